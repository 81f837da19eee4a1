package auth

import (
	"strings"
	"time"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// User represents an authenticated back-office account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         shared.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is the name shown in greetings, falling back to the email.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

// CanSignIn reports whether the account is active with a known role.
func (u *User) CanSignIn() bool {
	return u != nil && u.IsActive && u.Role.Valid()
}
