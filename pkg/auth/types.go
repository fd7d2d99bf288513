package auth

// Role names as stored in the roles table.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Role IDs as stored in the roles table. New registrations always get
// RoleIDUser.
const (
	RoleIDAdmin int64 = 1
	RoleIDUser  int64 = 2
)

// Principal is the authenticated caller extracted from a verified access
// token. It travels in the request context.
type Principal struct {
	ID    string
	Email string
	Role  string
	Name  string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
