package models

// Role is the dashboard role granted by the external auth provider
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ValidRoles defines allowed dashboard roles
var ValidRoles = map[Role]bool{
	RoleAdmin:  true,
	RoleEditor: true,
	RoleViewer: true,
}

// Session is the read-only request context handed explicitly to every
// service call. It replaces ambient session and theme lookups.
type Session struct {
	Token    string `json:"-"`
	Role     Role   `json:"role"`
	DarkMode bool   `json:"dark_mode"`
}

// CanEdit reports whether the session may create, edit, delete or change
// the status of content.
func (s Session) CanEdit() bool {
	return s.Role == RoleAdmin || s.Role == RoleEditor
}
