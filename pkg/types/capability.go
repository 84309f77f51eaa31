package types

// Role is a project member's role.
type Role string

// Member roles. RoleNone marks an actor without a recognized membership.
const (
	RoleQA   Role = "QA"
	RoleDEV  Role = "DEV"
	RoleNone Role = ""
)

// Valid reports whether r is a member role.
func (r Role) Valid() bool {
	return r == RoleQA || r == RoleDEV
}

// Actor is the identity handed to the core by the session provider.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// PermissionOverrides is the per-project matrix applied to DEV members.
// QA members are never gated by it.
type PermissionOverrides struct {
	ViewTestCases     bool `json:"viewTestCases"`
	CreateTestCases   bool `json:"createTestCases"`
	EditTestCases     bool `json:"editTestCases"`
	ViewBugs          bool `json:"viewBugs"`
	CreateBugs        bool `json:"createBugs"`
	EditBugs          bool `json:"editBugs"`
	EditBugStatusOnly bool `json:"editBugStatusOnly"`
	ViewNotes         bool `json:"viewNotes"`
	ViewTasks         bool `json:"viewTasks"`
	CreateTasks       bool `json:"createTasks"`
	EditTasks         bool `json:"editTasks"`
}

// DefaultPermissionOverrides returns the DEV matrix applied to new projects:
// DEVs can see everything, file bugs and move them through statuses, and work
// tasks, but cannot author test cases or rewrite bugs.
func DefaultPermissionOverrides() PermissionOverrides {
	return PermissionOverrides{
		ViewTestCases:     true,
		CreateTestCases:   false,
		EditTestCases:     false,
		ViewBugs:          true,
		CreateBugs:        true,
		EditBugs:          false,
		EditBugStatusOnly: true,
		ViewNotes:         true,
		ViewTasks:         true,
		CreateTasks:       true,
		EditTasks:         true,
	}
}

// Capability names a single flag of a CapabilitySet.
type Capability string

// Capability flags.
const (
	CapViewTestCases     Capability = "viewTestCases"
	CapCreateTestCases   Capability = "createTestCases"
	CapEditTestCases     Capability = "editTestCases"
	CapViewBugs          Capability = "viewBugs"
	CapCreateBugs        Capability = "createBugs"
	CapEditBugs          Capability = "editBugs"
	CapEditBugStatus     Capability = "editBugStatus"
	CapViewNotes         Capability = "viewNotes"
	CapViewTasks         Capability = "viewTasks"
	CapCreateTasks       Capability = "createTasks"
	CapEditTasks         Capability = "editTasks"
	CapManagePermissions Capability = "managePermissions"
)

// AllCapabilities lists every capability flag.
var AllCapabilities = []Capability{
	CapViewTestCases,
	CapCreateTestCases,
	CapEditTestCases,
	CapViewBugs,
	CapCreateBugs,
	CapEditBugs,
	CapEditBugStatus,
	CapViewNotes,
	CapViewTasks,
	CapCreateTasks,
	CapEditTasks,
	CapManagePermissions,
}

// CapabilitySet is the resolved permission set of one actor in one project.
type CapabilitySet struct {
	ViewTestCases     bool `json:"canViewTestCases"`
	CreateTestCases   bool `json:"canCreateTestCases"`
	EditTestCases     bool `json:"canEditTestCases"`
	ViewBugs          bool `json:"canViewBugs"`
	CreateBugs        bool `json:"canCreateBugs"`
	EditBugs          bool `json:"canEditBugs"`
	EditBugStatus     bool `json:"canEditBugStatus"`
	ViewNotes         bool `json:"canViewNotes"`
	ViewTasks         bool `json:"canViewTasks"`
	CreateTasks       bool `json:"canCreateTasks"`
	EditTasks         bool `json:"canEditTasks"`
	ManagePermissions bool `json:"canManagePermissions"`
}

// Has reports whether the set grants c. Unknown capabilities are denied.
func (s CapabilitySet) Has(c Capability) bool {
	switch c {
	case CapViewTestCases:
		return s.ViewTestCases
	case CapCreateTestCases:
		return s.CreateTestCases
	case CapEditTestCases:
		return s.EditTestCases
	case CapViewBugs:
		return s.ViewBugs
	case CapCreateBugs:
		return s.CreateBugs
	case CapEditBugs:
		return s.EditBugs
	case CapEditBugStatus:
		return s.EditBugStatus
	case CapViewNotes:
		return s.ViewNotes
	case CapViewTasks:
		return s.ViewTasks
	case CapCreateTasks:
		return s.CreateTasks
	case CapEditTasks:
		return s.EditTasks
	case CapManagePermissions:
		return s.ManagePermissions
	default:
		return false
	}
}

// Any reports whether at least one flag is granted.
func (s CapabilitySet) Any() bool {
	for _, c := range AllCapabilities {
		if s.Has(c) {
			return true
		}
	}
	return false
}
