package model

import (
	"kami-system/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account record. ExpireTime is the membership expiration in
// epoch milliseconds; it is mutated only by the redemption workflow.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Email        string `json:"email,omitempty"`
	Role         Role   `json:"role"`
	CreatedAt    int64  `json:"createdAt"`
	ExpireTime   *int64 `json:"expireTime"`
}

func NewUser(username, passwordHash, email string, role Role) (*User, error) {
	if username == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	if role == "" {
		role = RoleUser
	}
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Role:         role,
		CreatedAt:    NowMillis(),
	}, nil
}

func (u *User) IsZero() bool  { return u == nil || u.ID == "" }
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// ExtendMembership pushes the membership expiry forward by the given number
// of days, stacking on top of any remaining time rather than resetting it.
func (u *User) ExtendMembership(days int, now int64) int64 {
	base := now
	if u.ExpireTime != nil && *u.ExpireTime > now {
		base = *u.ExpireTime
	}
	newExpire := base + int64(days)*86400000
	u.ExpireTime = &newExpire
	return newExpire
}
