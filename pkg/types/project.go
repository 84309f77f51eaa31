package types

import "strings"

// Member is one entry of a project's ordered member list.
type Member struct {
	MemberID    string `json:"memberId"`
	DisplayName string `json:"displayName"`
	LoginHandle string `json:"loginHandle"`
	Role        Role   `json:"role"`
}

// BoardColumn is one configured status column of a project's task board.
type BoardColumn struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
}

// DefaultBoardColumns returns the columns given to new projects. Archived
// tasks are intentionally not on the default board.
func DefaultBoardColumns() []BoardColumn {
	return []BoardColumn{
		{ID: "backlog", Title: "Backlog", Status: TaskBacklog},
		{ID: "todo", Title: "To Do", Status: TaskToDo},
		{ID: "in-progress", Title: "In Progress", Status: TaskInProgress},
		{ID: "done", Title: "Done", Status: TaskDone},
	}
}

// Project groups test cases, bugs, tasks and notes, and owns the member list
// and the DEV permission matrix.
type Project struct {
	Meta
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	CreatorID    string              `json:"creatorId"`
	Members      []Member            `json:"members"`
	Permissions  PermissionOverrides `json:"permissions"`
	BoardColumns []BoardColumn       `json:"boardColumns"`
}

// Scope returns the project's own ID.
func (p *Project) Scope() string { return p.ID }

// Member returns the membership record for memberID.
func (p *Project) Member(memberID string) (Member, bool) {
	for _, m := range p.Members {
		if m.MemberID == memberID {
			return m, true
		}
	}
	return Member{}, false
}

// RoleOf returns the role of memberID, or RoleNone when not a member.
func (p *Project) RoleOf(memberID string) Role {
	m, ok := p.Member(memberID)
	if !ok {
		return RoleNone
	}
	return m.Role
}

// AddMember appends m. Member ids are unique within a project.
func (p *Project) AddMember(m Member) error {
	if m.MemberID == "" {
		return Invalid("add member", "member id is required", "memberId")
	}
	if !m.Role.Valid() {
		return Invalid("add member", "role must be QA or DEV", "role")
	}
	if _, ok := p.Member(m.MemberID); ok {
		return Conflict("add member", "member "+m.MemberID+" already in project")
	}
	p.Members = append(p.Members, m)
	return nil
}

// RemoveMember drops memberID from the member list. The creator cannot be
// removed.
func (p *Project) RemoveMember(memberID string) error {
	if memberID == p.CreatorID {
		return Conflict("remove member", "the project creator cannot be removed")
	}
	for i, m := range p.Members {
		if m.MemberID == memberID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			return nil
		}
	}
	return NotFound("member", memberID)
}

// SetMemberRole changes the role of an existing member.
func (p *Project) SetMemberRole(memberID string, role Role) error {
	if !role.Valid() {
		return Invalid("set member role", "role must be QA or DEV", "role")
	}
	for i := range p.Members {
		if p.Members[i].MemberID == memberID {
			p.Members[i].Role = role
			return nil
		}
	}
	return NotFound("member", memberID)
}

// Column returns the board column mapped to status.
func (p *Project) Column(status TaskStatus) (BoardColumn, bool) {
	for _, c := range p.BoardColumns {
		if c.Status == status {
			return c, true
		}
	}
	return BoardColumn{}, false
}

// Validate checks the project invariants: a name, a creator who is a member,
// unique member ids with valid roles, and well-formed board columns.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Invalid("validate project", "name is required", "name")
	}
	if p.CreatorID == "" {
		return Invalid("validate project", "creator is required", "creatorId")
	}
	seen := make(map[string]bool, len(p.Members))
	for _, m := range p.Members {
		if seen[m.MemberID] {
			return Invalid("validate project", "duplicate member "+m.MemberID, "members")
		}
		if !m.Role.Valid() {
			return Invalid("validate project", "invalid role for member "+m.MemberID, "members")
		}
		seen[m.MemberID] = true
	}
	if !seen[p.CreatorID] {
		return Invalid("validate project", "creator must be a member", "members")
	}
	return ValidateBoardColumns(p.BoardColumns)
}

// ValidateBoardColumns checks that column ids are unique and non-empty, and
// that every column maps a distinct, known task status.
func ValidateBoardColumns(cols []BoardColumn) error {
	ids := make(map[string]bool, len(cols))
	statuses := make(map[TaskStatus]bool, len(cols))
	for _, c := range cols {
		if c.ID == "" || strings.Contains(c.ID, ":") {
			return Invalid("validate board columns", "column id must be non-empty and contain no ':'", "boardColumns")
		}
		if ids[c.ID] {
			return Invalid("validate board columns", "duplicate column id "+c.ID, "boardColumns")
		}
		if !c.Status.Valid() {
			return Invalid("validate board columns", "unknown status "+string(c.Status), "boardColumns")
		}
		if statuses[c.Status] {
			return Invalid("validate board columns", "status "+string(c.Status)+" mapped twice", "boardColumns")
		}
		ids[c.ID] = true
		statuses[c.Status] = true
	}
	return nil
}
