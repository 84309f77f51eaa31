package types

import "strings"

// Severity of a bug.
type Severity string

// Severity values.
const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// BugStatus is the lifecycle state of a bug.
type BugStatus string

// Bug states.
const (
	BugDraft  BugStatus = "Draft"
	BugOpened BugStatus = "Opened"
	BugFixed  BugStatus = "Fixed"
	BugClosed BugStatus = "Closed"
)

// Valid reports whether s is a known bug state.
func (s BugStatus) Valid() bool {
	switch s {
	case BugDraft, BugOpened, BugFixed, BugClosed:
		return true
	}
	return false
}

// Bug is a defect report owned by a project.
type Bug struct {
	Meta
	ProjectID         string    `json:"projectId"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	StepsToReproduce  string    `json:"stepsToReproduce"`
	TestData          string    `json:"testData,omitempty"`
	ExpectedResult    string    `json:"expectedResult,omitempty"`
	ActualResult      string    `json:"actualResult,omitempty"`
	Severity          Severity  `json:"severity"`
	Status            BugStatus `json:"status"`
	Tags              []string  `json:"tags"`
	Attachments       []string  `json:"attachments"`
	LinkedTestCaseIDs []string  `json:"linkedTestCaseIds"`
	LinkedTaskIDs     []string  `json:"linkedTaskIds"`
	FriendlyID        string    `json:"friendlyId"`
	CreatedBy         string    `json:"createdBy"`
}

// Scope returns the owning project ID.
func (b *Bug) Scope() string { return b.ProjectID }

// MissingRequired lists the required fields that are blank. A bug cannot
// leave Draft while any are missing.
func (b *Bug) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(b.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(b.StepsToReproduce) == "" {
		missing = append(missing, "stepsToReproduce")
	}
	return missing
}

// HasTestCase reports whether testCaseID is in LinkedTestCaseIDs.
func (b *Bug) HasTestCase(testCaseID string) bool {
	return containsID(b.LinkedTestCaseIDs, testCaseID)
}

// AddTestCase adds testCaseID. Returns false when already present.
func (b *Bug) AddTestCase(testCaseID string) bool {
	var added bool
	b.LinkedTestCaseIDs, added = addID(b.LinkedTestCaseIDs, testCaseID)
	return added
}

// RemoveTestCase removes testCaseID. Returns false when absent.
func (b *Bug) RemoveTestCase(testCaseID string) bool {
	var removed bool
	b.LinkedTestCaseIDs, removed = removeID(b.LinkedTestCaseIDs, testCaseID)
	return removed
}

// HasTask reports whether taskID is in LinkedTaskIDs.
func (b *Bug) HasTask(taskID string) bool {
	return containsID(b.LinkedTaskIDs, taskID)
}

// AddTask adds taskID. Returns false when already present.
func (b *Bug) AddTask(taskID string) bool {
	var added bool
	b.LinkedTaskIDs, added = addID(b.LinkedTaskIDs, taskID)
	return added
}

// RemoveTask removes taskID. Returns false when absent.
func (b *Bug) RemoveTask(taskID string) bool {
	var removed bool
	b.LinkedTaskIDs, removed = removeID(b.LinkedTaskIDs, taskID)
	return removed
}
