package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"kami-system/internal/domain"
	"kami-system/internal/domain/model"
	"kami-system/internal/domain/ports/repository"
	"kami-system/internal/infra/logging"
	"kami-system/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ KamiUseCase = (*kamiUC)(nil)

// maxGenerateBatch caps one generation request. The endpoint is
// admin-gated; the cap only guards against fat-fingered counts.
const maxGenerateBatch = 1000

type KamiStats struct {
	TotalKami    int     `json:"totalKami"`
	UsedKami     int     `json:"usedKami"`
	UnusedKami   int     `json:"unusedKami"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// UsagePoint is one (day, metric) row for the usage-trend chart.
type UsagePoint struct {
	Date  string `json:"date"`
	Type  string `json:"type"` // "generated" | "used"
	Value int    `json:"value"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type MonthRevenue struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
}

// KamiUseCase is the redemption workflow plus the admin reporting surface.
type KamiUseCase interface {
	Generate(ctx context.Context, count, days int, value float64, kamiType string, expiresAt *int64) ([]*model.Kami, error)
	Verify(ctx context.Context, code, password string) (*model.Kami, error)
	Redeem(ctx context.Context, code, password, userID string) (int64, error)
	List(ctx context.Context, status string, page, limit int) (int, []*model.Kami, error)
	Stats(ctx context.Context) (*KamiStats, error)
	Recent(ctx context.Context, limit int) ([]*model.Kami, error)
	UsageTrend(ctx context.Context, start, end time.Time) ([]UsagePoint, error)
	TypeDistribution(ctx context.Context) ([]TypeCount, error)
	RevenueTrend(ctx context.Context) ([]MonthRevenue, error)
	RecentLogs(ctx context.Context, limit int) ([]*model.RedemptionLog, error)
}

type kamiUC struct {
	kamis repository.KamiRepository
	users repository.UserRepository
	logs  repository.LogRepository

	now func() time.Time
	log *zerolog.Logger
}

func NewKamiUseCase(kamis repository.KamiRepository, users repository.UserRepository, logs repository.LogRepository, logger *zerolog.Logger) *kamiUC {
	return &kamiUC{
		kamis: kamis,
		users: users,
		logs:  logs,
		now:   time.Now,
		log:   logger,
	}
}

func (k *kamiUC) Generate(ctx context.Context, count, days int, value float64, kamiType string, expiresAt *int64) ([]*model.Kami, error) {
	defer logging.TraceDuration(k.log, "KamiUC.Generate")()

	if count <= 0 || count > maxGenerateBatch || days <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	created := make([]*model.Kami, 0, count)
	for i := 0; i < count; i++ {
		code, err := generateKamiCode()
		if err != nil {
			return nil, err
		}
		kami, err := model.NewKami(code, days, value, kamiType, expiresAt)
		if err != nil {
			return nil, err
		}
		if err := k.kamis.Save(ctx, kami); err != nil {
			return nil, err
		}
		created = append(created, kami)
	}
	metrics.AddKamiGenerated(len(created))
	k.log.Info().Int("count", count).Int("days", days).Msg("kami codes generated")
	return created, nil
}

// Verify checks a code without consuming it.
func (k *kamiUC) Verify(ctx context.Context, code, password string) (*model.Kami, error) {
	defer logging.TraceDuration(k.log, "KamiUC.Verify")()

	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	kami, err := k.kamis.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if kami.Password != "" && kami.Password != password {
		return nil, domain.ErrBadCredentials
	}
	if err := kami.Redeemable(k.now().UnixMilli()); err != nil {
		return nil, err
	}
	return kami.Redacted(), nil
}

// Redeem consumes the code and extends the caller's membership. The code
// flip and the membership write are two separate puts; a crash in between
// loses the extension, which the audit log at least makes visible.
func (k *kamiUC) Redeem(ctx context.Context, code, password, userID string) (int64, error) {
	defer logging.TraceDuration(k.log, "KamiUC.Redeem")()

	if code == "" || userID == "" {
		return 0, domain.ErrInvalidArgument
	}
	precheck, err := k.kamis.FindByCode(ctx, code)
	if err != nil {
		metrics.IncRedemption("not_found")
		return 0, err
	}
	if precheck.Password != "" && precheck.Password != password {
		metrics.IncRedemption("bad_password")
		return 0, domain.ErrBadCredentials
	}

	kami, err := k.kamis.Redeem(ctx, code, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeAlreadyUsed):
			metrics.IncRedemption("already_used")
		case errors.Is(err, domain.ErrCodeExpired):
			metrics.IncRedemption("expired")
		default:
			metrics.IncRedemption("error")
		}
		return 0, err
	}

	user, err := k.users.FindByID(ctx, userID)
	if err != nil {
		metrics.IncRedemption("error")
		return 0, err
	}
	newExpire := user.ExtendMembership(kami.Days, k.now().UnixMilli())
	if err := k.users.Save(ctx, user); err != nil {
		metrics.IncRedemption("error")
		return 0, err
	}

	entry := &model.RedemptionLog{
		ID:            ulid.Make().String(),
		Code:          kami.Code,
		UserID:        userID,
		Days:          kami.Days,
		NewExpireTime: newExpire,
		At:            k.now().UnixMilli(),
	}
	if err := k.logs.Append(ctx, entry); err != nil {
		// The redemption itself succeeded; losing the audit entry is not
		// worth failing the request over.
		k.log.Warn().Err(err).Str("code", code).Msg("failed to append redemption log")
	}

	metrics.IncRedemption("success")
	k.log.Info().Str("code", code).Str("user_id", userID).Int64("expire_time", newExpire).Msg("kami redeemed")
	return newExpire, nil
}

func (k *kamiUC) List(ctx context.Context, status string, page, limit int) (int, []*model.Kami, error) {
	defer logging.TraceDuration(k.log, "KamiUC.List")()

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	all, err := k.kamis.ListAll(ctx)
	if err != nil {
		return 0, nil, err
	}
	filtered := make([]*model.Kami, 0, len(all))
	for _, kami := range all {
		if status == "" || string(kami.Status) == status {
			filtered = append(filtered, kami)
		}
	}
	total := len(filtered)

	start := (page - 1) * limit
	end := start + limit
	if start >= total {
		return total, []*model.Kami{}, nil
	}
	if end > total {
		end = total
	}
	items := make([]*model.Kami, 0, end-start)
	for _, kami := range filtered[start:end] {
		items = append(items, kami.Redacted())
	}
	return total, items, nil
}

func (k *kamiUC) Stats(ctx context.Context) (*KamiStats, error) {
	defer logging.TraceDuration(k.log, "KamiUC.Stats")()

	all, err := k.kamis.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &KamiStats{TotalKami: len(all)}
	for _, kami := range all {
		if kami.Status == model.KamiStatusUsed {
			stats.UsedKami++
			// Revenue counts redeemed codes only.
			stats.TotalRevenue += kami.Value
		} else {
			stats.UnusedKami++
		}
	}
	return stats, nil
}

func (k *kamiUC) Recent(ctx context.Context, limit int) ([]*model.Kami, error) {
	defer logging.TraceDuration(k.log, "KamiUC.Recent")()

	if limit <= 0 {
		limit = 5
	}
	all, err := k.kamis.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt > all[j].CreatedAt })
	if len(all) > limit {
		all = all[:limit]
	}
	items := make([]*model.Kami, 0, len(all))
	for _, kami := range all {
		items = append(items, kami.Redacted())
	}
	return items, nil
}

func (k *kamiUC) UsageTrend(ctx context.Context, start, end time.Time) ([]UsagePoint, error) {
	defer logging.TraceDuration(k.log, "KamiUC.UsageTrend")()

	if start.IsZero() {
		start = k.now().AddDate(0, 0, -30)
	}
	if end.IsZero() {
		end = k.now()
	}
	if end.Before(start) {
		return nil, domain.ErrInvalidArgument
	}
	all, err := k.kamis.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	type dayCounts struct{ generated, used int }
	buckets := make(map[string]*dayCounts)
	var days []string
	for d := start.UTC().Truncate(24 * time.Hour); !d.After(end.UTC()); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		buckets[key] = &dayCounts{}
		days = append(days, key)
	}

	for _, kami := range all {
		created := time.UnixMilli(kami.CreatedAt).UTC().Format("2006-01-02")
		if b, ok := buckets[created]; ok {
			b.generated++
		}
		if kami.Status == model.KamiStatusUsed && kami.UsedAt != nil {
			used := time.UnixMilli(*kami.UsedAt).UTC().Format("2006-01-02")
			if b, ok := buckets[used]; ok {
				b.used++
			}
		}
	}

	points := make([]UsagePoint, 0, len(days)*2)
	for _, day := range days {
		points = append(points, UsagePoint{Date: day, Type: "generated", Value: buckets[day].generated})
		points = append(points, UsagePoint{Date: day, Type: "used", Value: buckets[day].used})
	}
	return points, nil
}

func (k *kamiUC) TypeDistribution(ctx context.Context) ([]TypeCount, error) {
	defer logging.TraceDuration(k.log, "KamiUC.TypeDistribution")()

	all, err := k.kamis.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, kami := range all {
		counts[kami.TypeLabel()]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	out := make([]TypeCount, 0, len(types))
	for _, t := range types {
		out = append(out, TypeCount{Type: t, Value: counts[t]})
	}
	return out, nil
}

func (k *kamiUC) RevenueTrend(ctx context.Context) ([]MonthRevenue, error) {
	defer logging.TraceDuration(k.log, "KamiUC.RevenueTrend")()

	all, err := k.kamis.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	monthly := make(map[string]float64)
	for _, kami := range all {
		if kami.Status != model.KamiStatusUsed || kami.UsedAt == nil {
			continue
		}
		month := time.UnixMilli(*kami.UsedAt).UTC().Format("2006-01")
		monthly[month] += kami.Value
	}

	// Most recent 12 months, oldest first, zero-filled.
	out := make([]MonthRevenue, 0, 12)
	now := k.now().UTC()
	// Anchor at the first of the month so AddDate never skips a month.
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 11; i >= 0; i-- {
		month := anchor.AddDate(0, -i, 0).Format("2006-01")
		out = append(out, MonthRevenue{Month: month, Revenue: monthly[month]})
	}
	return out, nil
}

func (k *kamiUC) RecentLogs(ctx context.Context, limit int) ([]*model.RedemptionLog, error) {
	defer logging.TraceDuration(k.log, "KamiUC.RecentLogs")()

	if limit <= 0 {
		limit = 50
	}
	return k.logs.ListRecent(ctx, limit)
}
