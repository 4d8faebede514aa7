package model

import (
	"time"

	"kami-system/internal/domain"
)

type KamiStatus string

const (
	KamiStatusUnused KamiStatus = "unused"
	KamiStatusUsed   KamiStatus = "used"
)

// Kami is a single-use redemption code granting a fixed number of
// membership days. All timestamps are epoch milliseconds, UTC.
type Kami struct {
	Code      string     `json:"code"`
	Status    KamiStatus `json:"status"`
	Days      int        `json:"days"`
	Value     float64    `json:"value,omitempty"`
	Type      string     `json:"type,omitempty"`
	Password  string     `json:"password,omitempty"`
	CreatedAt int64      `json:"createdAt"`
	UsedAt    *int64     `json:"usedAt"`
	UsedBy    *string    `json:"usedBy"`
	ExpiresAt *int64     `json:"expiresAt,omitempty"`
}

// NewKami creates an unused code record stamped with the current time.
func NewKami(code string, days int, value float64, kamiType string, expiresAt *int64) (*Kami, error) {
	if code == "" || days <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Kami{
		Code:      code,
		Status:    KamiStatusUnused,
		Days:      days,
		Value:     value,
		Type:      kamiType,
		CreatedAt: NowMillis(),
		ExpiresAt: expiresAt,
	}, nil
}

// Redeemable reports whether the code can still be redeemed at the given
// instant. It does not check the optional secondary password.
func (k *Kami) Redeemable(now int64) error {
	if k.Status == KamiStatusUsed {
		return domain.ErrCodeAlreadyUsed
	}
	if k.ExpiresAt != nil && *k.ExpiresAt < now {
		return domain.ErrCodeExpired
	}
	return nil
}

// MarkUsed transitions unused -> used. Any other transition is rejected.
func (k *Kami) MarkUsed(userID string, now int64) error {
	if err := k.Redeemable(now); err != nil {
		return err
	}
	k.Status = KamiStatusUsed
	k.UsedAt = &now
	k.UsedBy = &userID
	return nil
}

// TypeLabel returns the reporting label, defaulting untyped codes to "standard".
func (k *Kami) TypeLabel() string {
	if k.Type == "" {
		return "standard"
	}
	return k.Type
}

// Redacted returns a copy safe to hand back to the caller.
func (k *Kami) Redacted() *Kami {
	c := *k
	c.Password = ""
	return &c
}

// NowMillis is the canonical timestamp used across all stored records.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
