package types

// Note is free-form project documentation.
type Note struct {
	Meta
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedBy string `json:"createdBy"`
}

// Scope returns the owning project ID.
func (n *Note) Scope() string { return n.ProjectID }
