package types

import "strings"

// Priority applies to test cases and tasks.
type Priority string

// Priority values.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// TestCaseStatus is the lifecycle state of a test case.
type TestCaseStatus string

// Test case states.
const (
	TestCaseDraft      TestCaseStatus = "Draft"
	TestCaseTodo       TestCaseStatus = "Todo"
	TestCaseInProgress TestCaseStatus = "InProgress"
	TestCasePass       TestCaseStatus = "Pass"
	TestCaseFail       TestCaseStatus = "Fail"
)

// Valid reports whether s is a known test case state.
func (s TestCaseStatus) Valid() bool {
	switch s {
	case TestCaseDraft, TestCaseTodo, TestCaseInProgress, TestCasePass, TestCaseFail:
		return true
	}
	return false
}

// TestCase is a scripted check owned by a project.
type TestCase struct {
	Meta
	ProjectID      string         `json:"projectId"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Preconditions  string         `json:"preconditions,omitempty"`
	Steps          string         `json:"steps"`
	ExpectedResult string         `json:"expectedResult"`
	Priority       Priority       `json:"priority"`
	Status         TestCaseStatus `json:"status"`
	Tags           []string       `json:"tags"`
	FriendlyID     string         `json:"friendlyId"`
	LinkedBugIDs   []string       `json:"linkedBugIds"`
	CreatedBy      string         `json:"createdBy"`
}

// Scope returns the owning project ID.
func (tc *TestCase) Scope() string { return tc.ProjectID }

// MissingRequired lists the required fields that are blank. A test case
// cannot leave Draft while any are missing.
func (tc *TestCase) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(tc.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(tc.Steps) == "" {
		missing = append(missing, "steps")
	}
	if strings.TrimSpace(tc.ExpectedResult) == "" {
		missing = append(missing, "expectedResult")
	}
	return missing
}

// HasBug reports whether bugID is in LinkedBugIDs.
func (tc *TestCase) HasBug(bugID string) bool {
	return containsID(tc.LinkedBugIDs, bugID)
}

// AddBug adds bugID to LinkedBugIDs. Returns false when already present.
func (tc *TestCase) AddBug(bugID string) bool {
	var added bool
	tc.LinkedBugIDs, added = addID(tc.LinkedBugIDs, bugID)
	return added
}

// RemoveBug removes bugID from LinkedBugIDs. Returns false when absent.
func (tc *TestCase) RemoveBug(bugID string) bool {
	var removed bool
	tc.LinkedBugIDs, removed = removeID(tc.LinkedBugIDs, bugID)
	return removed
}

// containsID reports whether id is in ids.
func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// addID appends id to ids unless present.
func addID(ids []string, id string) ([]string, bool) {
	if containsID(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

// removeID drops every occurrence of id from ids.
func removeID(ids []string, id string) ([]string, bool) {
	out := ids[:0]
	removed := false
	for _, v := range ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return []string{}, removed
	}
	return out, removed
}

// NormalizeTags trims, drops blanks and de-duplicates tags, keeping first
// occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out, _ = addID(out, t)
	}
	return out
}
