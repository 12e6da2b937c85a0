package auth

import "errors"

// Role is the access level carried in a token.
type Role string

const (
	// RoleViewer can read device state and the channel directory.
	RoleViewer Role = "viewer"

	// RoleAdmin can additionally send commands and invalidate caches.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleViewer, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, valid := range ValidRoles {
		if r == valid {
			return true
		}
	}
	return false
}

var (
	// ErrTokenInvalid is returned when a JWT fails signature, expiry or
	// claim validation.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrInvalidCredentials is returned when a login attempt does not
	// match the configured user.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
