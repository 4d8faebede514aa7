package web

import (
	"context"
	"sync"

	"kami-system/internal/domain"
	"kami-system/internal/domain/model"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- Mock Repositories (Ports) ---

type mockKamiRepo struct {
	mu        sync.Mutex
	kamis     map[string]*model.Kami
	ListError error
}

func newMockKamiRepo() *mockKamiRepo {
	return &mockKamiRepo{kamis: make(map[string]*model.Kami)}
}

func (m *mockKamiRepo) Save(ctx context.Context, kami *model.Kami) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *kami
	m.kamis[kami.Code] = &c
	return nil
}

func (m *mockKamiRepo) FindByCode(ctx context.Context, code string) (*model.Kami, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kami, ok := m.kamis[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	c := *kami
	return &c, nil
}

func (m *mockKamiRepo) ListAll(ctx context.Context) ([]*model.Kami, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Kami, 0, len(m.kamis))
	for _, kami := range m.kamis {
		c := *kami
		out = append(out, &c)
	}
	return out, nil
}

func (m *mockKamiRepo) Redeem(ctx context.Context, code, userID string) (*model.Kami, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kami, ok := m.kamis[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	if err := kami.MarkUsed(userID, model.NowMillis()); err != nil {
		return nil, err
	}
	c := *kami
	return &c, nil
}

type mockUserRepo struct {
	mu     sync.Mutex
	byName map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byName: make(map[string]*model.User)}
}

func (m *mockUserRepo) Save(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *user
	m.byName[user.Username] = &c
	return nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	_, exists := m.byName[user.Username]
	m.mu.Unlock()
	if exists {
		return domain.ErrAlreadyExists
	}
	return m.Save(ctx, user)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byName[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byName {
		if user.ID == id {
			c := *user
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockLogRepo struct {
	mu      sync.Mutex
	entries []*model.RedemptionLog
}

func (m *mockLogRepo) Append(ctx context.Context, entry *model.RedemptionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLogRepo) ListRecent(ctx context.Context, limit int) ([]*model.RedemptionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.RedemptionLog, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
