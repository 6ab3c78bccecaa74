package types

import "time"

// Role ids as stored in the users table. The numeric values predate this
// service and are shared with the historical schema.
const (
	RoleIDAdmin = 1
	RoleIDUser  = 2
)

// Role labels resolved at authentication time.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// User represents a customer account in the bookstore.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"userId" db:"id"`

	// FirstName and LastName form the user's display name.
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`

	// Username is the unique login name chosen by the user. Uniqueness is
	// enforced by the database; no two rows ever share a username.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hex digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Gender as supplied at registration.
	Gender string `json:"gender" db:"gender"`

	// RoleID is the numeric role of the user (RoleIDAdmin or RoleIDUser).
	RoleID int `json:"-" db:"role_id"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AuthenticatedUser is the transient claims bundle produced by a successful
// login. It is handed to the token issuer and never persisted.
type AuthenticatedUser struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// RoleName maps a stored role id to its label. Unknown ids fall back to the
// ordinary user role.
func RoleName(roleID int) string {
	if roleID == RoleIDAdmin {
		return RoleAdmin
	}
	return RoleUser
}
