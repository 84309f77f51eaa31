// Package access resolves an actor's capability set within a project.
//
// Resolution is fail-closed: an unknown role, a missing project or a missing
// membership all produce a capability set with every flag false.
package access

import (
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// full is the capability set granted to QA members.
var full = types.CapabilitySet{
	ViewTestCases:     true,
	CreateTestCases:   true,
	EditTestCases:     true,
	ViewBugs:          true,
	CreateBugs:        true,
	EditBugs:          true,
	EditBugStatus:     true,
	ViewNotes:         true,
	ViewTasks:         true,
	CreateTasks:       true,
	EditTasks:         true,
	ManagePermissions: true,
}

// Resolve maps a role and the project's DEV overrides to a capability set.
// overrides is nil when the project is unknown or the actor is not a member.
func Resolve(role types.Role, overrides *types.PermissionOverrides) types.CapabilitySet {
	switch role {
	case types.RoleQA:
		return full
	case types.RoleDEV:
		if overrides == nil {
			return types.CapabilitySet{}
		}
		o := *overrides
		return types.CapabilitySet{
			ViewTestCases:   o.ViewTestCases,
			CreateTestCases: o.CreateTestCases,
			EditTestCases:   o.EditTestCases,
			ViewBugs:        o.ViewBugs,
			CreateBugs:      o.CreateBugs,
			EditBugs:        o.EditBugs,
			// Status-only edit never grants less than full edit.
			EditBugStatus: o.EditBugStatusOnly || o.EditBugs,
			ViewNotes:     o.ViewNotes,
			ViewTasks:     o.ViewTasks,
			CreateTasks:   o.CreateTasks,
			EditTasks:     o.EditTasks,
		}
	default:
		return types.CapabilitySet{}
	}
}

// ForActor resolves actorID's capabilities in project. The role comes from
// the project's member list, not from the session: a non-member resolves to
// the empty set whatever role the session claims.
func ForActor(project *types.Project, actorID string) (types.Role, types.CapabilitySet) {
	if project == nil || actorID == "" {
		return types.RoleNone, types.CapabilitySet{}
	}
	member, ok := project.Member(actorID)
	if !ok {
		return types.RoleNone, types.CapabilitySet{}
	}
	overrides := project.Permissions
	return member.Role, Resolve(member.Role, &overrides)
}

// Require returns an AuthorizationError naming capability when caps lacks it.
func Require(caps types.CapabilitySet, capability types.Capability, op string) error {
	if caps.Has(capability) {
		return nil
	}
	return types.Unauthorized(op, string(capability))
}

// RequireAny passes when caps holds at least one of the capabilities.
func RequireAny(caps types.CapabilitySet, op string, capabilities ...types.Capability) error {
	for _, c := range capabilities {
		if caps.Has(c) {
			return nil
		}
	}
	names := ""
	for i, c := range capabilities {
		if i > 0 {
			names += " or "
		}
		names += string(c)
	}
	return types.Unauthorized(op, names)
}

// CanUnlinkBug implements the owner-or-QA rule for removing links that
// involve a bug.
func CanUnlinkBug(role types.Role, actorID string, bug *types.Bug) bool {
	if role == types.RoleQA {
		return true
	}
	return bug != nil && actorID != "" && bug.CreatedBy == actorID
}

// IsOwnerOrQA reports whether actorID authored the record or holds QA.
func IsOwnerOrQA(role types.Role, actorID, authorID string) bool {
	return role == types.RoleQA || (actorID != "" && actorID == authorID)
}
