package protocol

// Role distinguishes student and admin callers. The core trusts the
// identity provider and performs no authentication itself.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Identity describes the current user as supplied by the identity
// collaborator.
type Identity struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}
