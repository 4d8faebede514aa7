package repository

import (
	"context"

	"kami-system/internal/domain/model"
)

// KamiRepository is the port over the kami: keyspace.
type KamiRepository interface {
	Save(ctx context.Context, kami *model.Kami) error
	FindByCode(ctx context.Context, code string) (*model.Kami, error)
	// ListAll fetches every record under the kami: prefix. O(n) by design;
	// callers filter and slice in memory.
	ListAll(ctx context.Context) ([]*model.Kami, error)
	// Redeem performs the unused -> used transition for the given code,
	// serialized against concurrent redemptions of the same code. Returns
	// the updated record, or ErrCodeNotFound / ErrCodeAlreadyUsed /
	// ErrCodeExpired / ErrCodeLocked.
	Redeem(ctx context.Context, code, userID string) (*model.Kami, error)
}
