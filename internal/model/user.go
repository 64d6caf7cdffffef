package model

// Role is the access level assigned to an account by the backend.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleSuperuser Role = "superuser"
)

// IsStaff reports whether the role grants access to the admin console
// and the admin notification stream.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperuser
}

// User is the authenticated account profile returned by the backend.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
