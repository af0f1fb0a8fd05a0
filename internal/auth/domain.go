package auth

import "time"

// AdminUser represents a back-office user account. The role stored
// here is the source of truth; sessions carry a snapshot of it taken
// at login.
type AdminUser struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
