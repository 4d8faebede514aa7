package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"kami-system/internal/domain/model"
	"kami-system/internal/domain/ports/repository"
)

var _ repository.LogRepository = (*LogRepo)(nil)

// LogRepo stores redemption audit entries under log:<ulid>. ULIDs sort
// lexicographically by time, so key order is chronological.
type LogRepo struct {
	client *Client
}

func NewLogRepo(client *Client) *LogRepo {
	return &LogRepo{client: client}
}

func logKey(id string) string { return "log:" + id }

func (r *LogRepo) Append(ctx context.Context, entry *model.RedemptionLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, logKey(entry.ID), data, 0)
}

func (r *LogRepo) ListRecent(ctx context.Context, limit int) ([]*model.RedemptionLog, error) {
	keys, err := r.client.Keys(ctx, "log:")
	if err != nil {
		return nil, fmt.Errorf("list log keys: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	if len(keys) == 0 {
		return []*model.RedemptionLog{}, nil
	}
	values, err := r.client.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("fetch log values: %w", err)
	}
	entries := make([]*model.RedemptionLog, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry model.RedemptionLog
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
