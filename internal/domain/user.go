package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the fixed set of roles a user can hold.
type Role string

const (
	RoleAuthor    Role = "AUTHOR"
	RolePerformer Role = "PERFORMER"
)

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAuthor:
		return RoleAuthor, nil
	case RolePerformer:
		return RolePerformer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	return r == RoleAuthor || r == RolePerformer
}

// User represents a registered account. Role never changes after creation.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Identity is the authenticated caller of a single request.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

// IdentityOf builds the request identity for a stored user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
