// Package identity is the port to the external identity provider. The
// trust subsystem only needs a stable user id and the admin capability;
// authorization logic never compares identities against literals.
package identity

// Role distinguishes moderation authority from ordinary users.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the acting identity for a request.
type User struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the user carries the admin capability.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Resolver maps raw user ids (as supplied by the external identity
// provider) to Users, granting the admin role to allow-listed ids.
type Resolver struct {
	admins map[string]bool
}

// NewResolver creates a Resolver with the given admin allow-list.
func NewResolver(adminIDs []string) *Resolver {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		if id != "" {
			admins[id] = true
		}
	}
	return &Resolver{admins: admins}
}

// Resolve returns the User for a raw id. Unknown ids are ordinary users;
// an empty id yields a zero User that holds no capabilities.
func (r *Resolver) Resolve(userID string) User {
	if userID == "" {
		return User{}
	}
	role := RoleUser
	if r.admins[userID] {
		role = RoleAdmin
	}
	return User{ID: userID, Role: role}
}
