package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when the identity record for a user id does not exist.
var ErrUserNotFound = errors.New("user not found")

// RoleAdmin grants access to slot catalog administration.
const RoleAdmin = "admin"

// User is the subset of the identity record the booking core needs for notifications.
// swagger:model User
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}

// UserRepository looks up users owned by the identity service.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
