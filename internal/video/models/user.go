package models

type Role string

const (
	ViewerRole Role = "viewer"
	EditorRole Role = "editor"
	AdminRole  Role = "admin"
)

func (r Role) Valid() bool {
	return r == ViewerRole || r == EditorRole || r == AdminRole
}

// User is owned by the identity layer; the catalog only reads it.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	OrgID  string `json:"orgId"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}
