package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"kami-system/internal/domain"
	"kami-system/internal/domain/model"
	"kami-system/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo stores accounts as JSON blobs under user:<username>, with a
// userid:<id> secondary key mapping token subjects back to the username.
type UserRepo struct {
	client *Client
}

func NewUserRepo(client *Client) *UserRepo {
	return &UserRepo{client: client}
}

func userKey(username string) string { return "user:" + username }
func userIDKey(id string) string     { return "userid:" + id }

func (r *UserRepo) Save(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, userKey(user.Username), data, 0); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return r.client.Set(ctx, userIDKey(user.ID), user.Username, 0)
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	existing, err := r.client.Get(ctx, userKey(user.Username))
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if existing != "" {
		return domain.ErrAlreadyExists
	}
	return r.Save(ctx, user)
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	data, err := r.client.Get(ctx, userKey(username))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if data == "" {
		return nil, domain.ErrNotFound
	}
	var user model.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	username, err := r.client.Get(ctx, userIDKey(id))
	if err != nil {
		return nil, fmt.Errorf("resolve user id: %w", err)
	}
	if username == "" {
		return nil, domain.ErrNotFound
	}
	return r.FindByUsername(ctx, username)
}
