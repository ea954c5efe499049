package domain

import "time"

// Role is a privilege level attached to a user.
type Role string

const (
	RoleUser         Role = "USER"
	RoleSupportStaff Role = "SUPPORT_STAFF"
	RoleModerator    Role = "MODERATOR"
	RoleAdmin        Role = "ADMIN"
	RoleSuperAdmin   Role = "SUPER_ADMIN"
)

// Roles lists every role ordered by increasing privilege.
var Roles = []Role{RoleUser, RoleSupportStaff, RoleModerator, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusActive              AccountStatus = "ACTIVE"
	AccountStatusDisabled            AccountStatus = "DISABLED"
	AccountStatusBanned              AccountStatus = "BANNED"
	AccountStatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusDisabled, AccountStatusBanned, AccountStatusPendingVerification:
		return true
	}
	return false
}

// User is the credential store record.
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	Role                Role
	Status              AccountStatus
	EmailVerified       bool
	VerificationToken   *string
	ResetToken          *string
	ResetTokenExpiry    *time.Time
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account is locked at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
