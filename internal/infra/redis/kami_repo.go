package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kami-system/internal/domain"
	"kami-system/internal/domain/model"
	"kami-system/internal/domain/ports/repository"
)

var _ repository.KamiRepository = (*KamiRepo)(nil)

// KamiRepo stores code records as JSON blobs under kami:<code>.
type KamiRepo struct {
	client *Client
	locker Locker
}

func NewKamiRepo(client *Client, locker Locker) *KamiRepo {
	return &KamiRepo{client: client, locker: locker}
}

func kamiKey(code string) string { return "kami:" + code }
func lockKey(code string) string { return "lock:kami:" + code }

func (r *KamiRepo) Save(ctx context.Context, kami *model.Kami) error {
	data, err := json.Marshal(kami)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, kamiKey(kami.Code), data, 0)
}

func (r *KamiRepo) FindByCode(ctx context.Context, code string) (*model.Kami, error) {
	data, err := r.client.Get(ctx, kamiKey(code))
	if err != nil {
		return nil, fmt.Errorf("get kami: %w", err)
	}
	if data == "" {
		return nil, domain.ErrCodeNotFound
	}
	var kami model.Kami
	if err := json.Unmarshal([]byte(data), &kami); err != nil {
		return nil, fmt.Errorf("decode kami: %w", err)
	}
	return &kami, nil
}

func (r *KamiRepo) ListAll(ctx context.Context) ([]*model.Kami, error) {
	keys, err := r.client.Keys(ctx, "kami:")
	if err != nil {
		return nil, fmt.Errorf("list kami keys: %w", err)
	}
	if len(keys) == 0 {
		return []*model.Kami{}, nil
	}
	values, err := r.client.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("fetch kami values: %w", err)
	}
	kamis := make([]*model.Kami, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // deleted between SCAN and MGET
		}
		var kami model.Kami
		if err := json.Unmarshal([]byte(s), &kami); err != nil {
			continue
		}
		kamis = append(kamis, &kami)
	}
	return kamis, nil
}

// Redeem marks the code used under a per-code lock, so two concurrent
// redemptions of the same code cannot both observe status=unused.
func (r *KamiRepo) Redeem(ctx context.Context, code, userID string) (*model.Kami, error) {
	token, err := r.locker.TryLock(ctx, lockKey(code), 10*time.Second)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.locker.Unlock(ctx, lockKey(code), token) }()

	kami, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := kami.MarkUsed(userID, model.NowMillis()); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, kami); err != nil {
		return nil, fmt.Errorf("save redeemed kami: %w", err)
	}
	return kami, nil
}
