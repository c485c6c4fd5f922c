package model

// Role is the access level of a logged-in operator.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks whether the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEmployee:
		return true
	}
	return false
}

// Profile is the operator identity stored alongside the session token.
type Profile struct {
	ID       string `json:"id" toml:"id"`
	Username string `json:"username" toml:"username"`
	Role     Role   `json:"role" toml:"role"`
	Name     string `json:"name,omitempty" toml:"name,omitempty"`
}

// DisplayName returns the name, falling back to the username.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and the operator profile.
type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}
