package service

import (
	"context"
	"strings"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// NewProject is the input of CreateProject.
type NewProject struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	// DisplayName and LoginHandle describe the creator's membership entry.
	DisplayName string `json:"displayName"`
	LoginHandle string `json:"loginHandle"`
}

// ProjectPatch changes project fields. Nil fields are left alone.
type ProjectPatch struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	ExpectedVersion int64   `json:"expectedVersion,omitempty"`
}

// CreateProject creates a project with the actor as creator and first member
// in their session role. The project starts with the default DEV overrides
// and board columns.
func (s *Service) CreateProject(ctx context.Context, actor types.Actor, in NewProject) (*types.Project, error) {
	const op = "create project"
	if actor.ID == "" {
		return nil, types.Forbidden(op, "no actor")
	}
	if !actor.Role.Valid() {
		return nil, types.Invalid(op, "creator role must be QA or DEV", "role")
	}
	displayName := in.DisplayName
	if displayName == "" {
		displayName = actor.Name
	}
	p := &types.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatorID:   actor.ID,
		Members: []types.Member{{
			MemberID:    actor.ID,
			DisplayName: displayName,
			LoginHandle: in.LoginHandle,
			Role:        actor.Role,
		}},
		Permissions:  types.DefaultPermissionOverrides(),
		BoardColumns: types.DefaultBoardColumns(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.update(ctx, op, actor, "", func(tx types.Tx, _ *scope) error {
		return tx.Projects().Put(p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject returns a project the actor is a member of.
func (s *Service) GetProject(ctx context.Context, actor types.Actor, projectID string) (*types.Project, error) {
	var out *types.Project
	err := s.view(ctx, "get project", actor, projectID, func(tx types.Tx, sc *scope) error {
		if sc.role == types.RoleNone {
			return types.NotFound(types.KindProject, projectID)
		}
		out = sc.project
		return nil
	})
	return out, err
}

// ListProjects returns the projects the actor is a member of, oldest first.
func (s *Service) ListProjects(ctx context.Context, actor types.Actor) ([]*types.Project, error) {
	out := []*types.Project{}
	err := s.view(ctx, "list projects", actor, "", func(tx types.Tx, _ *scope) error {
		all, err := tx.Projects().Fetch(types.Filter{})
		if err != nil {
			return err
		}
		for _, p := range all {
			if _, ok := p.Member(actor.ID); ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

// Capabilities returns the actor's resolved capability set in a project.
// Non-members get the empty set, not an error.
func (s *Service) Capabilities(ctx context.Context, actor types.Actor, projectID string) (types.CapabilitySet, error) {
	var caps types.CapabilitySet
	err := s.view(ctx, "capabilities", actor, projectID, func(tx types.Tx, sc *scope) error {
		caps = sc.caps
		return nil
	})
	return caps, err
}

// manageProject runs fn on the project after checking ManagePermissions,
// then stores the project.
func (s *Service) manageProject(ctx context.Context, op string, actor types.Actor, projectID string, expectedVersion int64, fn func(p *types.Project) error) (*types.Project, error) {
	var out *types.Project
	err := s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapManagePermissions, op); err != nil {
			return err
		}
		p := sc.project
		if err := checkVersion(op, expectedVersion, &p.Meta); err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := tx.Projects().Put(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// UpdateProject changes the project's name or description.
func (s *Service) UpdateProject(ctx context.Context, actor types.Actor, projectID string, patch ProjectPatch) (*types.Project, error) {
	return s.manageProject(ctx, "update project", actor, projectID, patch.ExpectedVersion, func(p *types.Project) error {
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		return nil
	})
}

// AddMember appends a member to the project.
func (s *Service) AddMember(ctx context.Context, actor types.Actor, projectID string, m types.Member) (*types.Project, error) {
	return s.manageProject(ctx, "add member", actor, projectID, 0, func(p *types.Project) error {
		return p.AddMember(m)
	})
}

// RemoveMember drops a member. The creator cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actor types.Actor, projectID, memberID string) (*types.Project, error) {
	return s.manageProject(ctx, "remove member", actor, projectID, 0, func(p *types.Project) error {
		return p.RemoveMember(memberID)
	})
}

// SetMemberRole changes a member's role.
func (s *Service) SetMemberRole(ctx context.Context, actor types.Actor, projectID, memberID string, role types.Role) (*types.Project, error) {
	return s.manageProject(ctx, "set member role", actor, projectID, 0, func(p *types.Project) error {
		return p.SetMemberRole(memberID, role)
	})
}

// SetPermissions replaces the project's DEV overrides.
func (s *Service) SetPermissions(ctx context.Context, actor types.Actor, projectID string, overrides types.PermissionOverrides) (*types.Project, error) {
	return s.manageProject(ctx, "set permissions", actor, projectID, 0, func(p *types.Project) error {
		p.Permissions = overrides
		return nil
	})
}

// SetBoardColumns replaces the project's board columns.
func (s *Service) SetBoardColumns(ctx context.Context, actor types.Actor, projectID string, columns []types.BoardColumn) (*types.Project, error) {
	return s.manageProject(ctx, "set board columns", actor, projectID, 0, func(p *types.Project) error {
		if err := types.ValidateBoardColumns(columns); err != nil {
			return err
		}
		p.BoardColumns = columns
		return nil
	})
}

// DeleteProject removes a project and every record it owns.
func (s *Service) DeleteProject(ctx context.Context, actor types.Actor, projectID string) error {
	const op = "delete project"
	return s.update(ctx, op, actor, projectID, func(tx types.Tx, sc *scope) error {
		if err := sc.require(types.CapManagePermissions, op); err != nil {
			return err
		}
		filter := types.Filter{ProjectID: projectID}
		if err := deleteAll(tx.Comments(), filter); err != nil {
			return err
		}
		if err := deleteAll(tx.Notifications(), filter); err != nil {
			return err
		}
		if err := deleteAll(tx.Notes(), filter); err != nil {
			return err
		}
		if err := deleteAll(tx.Tasks(), filter); err != nil {
			return err
		}
		if err := deleteAll(tx.Bugs(), filter); err != nil {
			return err
		}
		if err := deleteAll(tx.TestCases(), filter); err != nil {
			return err
		}
		return tx.Projects().Delete(projectID)
	})
}

func deleteAll[R types.Record](table types.Table[R], filter types.Filter) error {
	recs, err := table.Fetch(filter)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := table.Delete(r.Key().ID); err != nil {
			return err
		}
	}
	return nil
}
