package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const (
	usersAllKey        = "users:all"
	usersSubscribedKey = "users:subscribed"
)

// UserRepo stores each user as JSON under user:{id} and keeps id sets for
// scans. Subscribed membership mirrors User.IsSubscribed.
type UserRepo struct {
	client RedisClient
}

func NewUserRepo(client RedisClient) *UserRepo {
	return &UserRepo{client: client}
}

func userKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	if u.IsZero() {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, userKey(u.ID), data, 0); err != nil {
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	if err := r.client.SAdd(ctx, usersAllKey, u.ID); err != nil {
		return fmt.Errorf("index user %d: %w", u.ID, err)
	}
	if u.IsSubscribed {
		err = r.client.SAdd(ctx, usersSubscribedKey, u.ID)
	} else {
		err = r.client.SRem(ctx, usersSubscribedKey, u.ID)
	}
	if err != nil {
		return fmt.Errorf("index subscription of user %d: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	data, err := r.client.Get(ctx, userKey(id))
	if errors.Is(err, Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	var u model.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", id, err)
	}
	return &u, nil
}

func (r *UserRepo) FindAllActive(ctx context.Context) ([]*model.User, error) {
	users, err := r.loadSet(ctx, usersAllKey)
	if err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UserRepo) FindAllSubscribed(ctx context.Context) ([]*model.User, error) {
	users, err := r.loadSet(ctx, usersSubscribedKey)
	if err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if u.IsSubscribed {
			out = append(out, u)
		}
	}
	return out, nil
}

// loadSet reads every user whose id is in the set. Dangling ids are skipped.
func (r *UserRepo) loadSet(ctx context.Context, setKey string) ([]*model.User, error) {
	ids, err := r.client.SMembers(ctx, setKey)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", setKey, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, userKey(id))
	}
	values, err := r.client.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make([]*model.User, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var u model.User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		users = append(users, &u)
	}
	return users, nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	if err := r.client.Del(ctx, userKey(id)); err != nil {
		return err
	}
	if err := r.client.SRem(ctx, usersAllKey, id); err != nil {
		return err
	}
	return r.client.SRem(ctx, usersSubscribedKey, id)
}

func (r *UserRepo) CountUsers(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, usersAllKey)
	return int(n), err
}
