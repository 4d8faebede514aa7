package model

// RedemptionLog is an append-only audit entry written after every
// successful redemption. The ID is a ULID, so keys sort by time.
type RedemptionLog struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	UserID        string `json:"userId"`
	Days          int    `json:"days"`
	NewExpireTime int64  `json:"newExpireTime"`
	At            int64  `json:"at"`
}
