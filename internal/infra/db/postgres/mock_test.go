//go:build !integration

package postgres

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	red "salah-reminder-bot/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerUserRepo mocks the database repository that the User decorator wraps.
type mockInnerUserRepo struct {
	SaveFunc     func(ctx context.Context, u *model.User) error
	FindByIDFunc func(ctx context.Context, id int64) (*model.User, error)
	DeleteFunc   func(ctx context.Context, id int64) error

	findCalls int
}

func (m *mockInnerUserRepo) Save(ctx context.Context, u *model.User) error {
	return m.SaveFunc(ctx, u)
}
func (m *mockInnerUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	m.findCalls++
	if m.FindByIDFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.FindByIDFunc(ctx, id)
}
func (m *mockInnerUserRepo) FindAllActive(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}
func (m *mockInnerUserRepo) FindAllSubscribed(ctx context.Context) ([]*model.User, error) {
	return nil, nil
}
func (m *mockInnerUserRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id)
}
func (m *mockInnerUserRepo) CountUsers(ctx context.Context) (int, error) { return 0, nil }

// mockRedisClient is a key/value stand-in for the Redis client wrapper. Only
// the string commands used by the decorator do anything.
type mockRedisClient struct {
	mu     sync.Mutex
	data   map[string]string
	GetErr error
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{data: map[string]string{}}
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", red.Nil
	}
	return v, nil
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return false, nil
}
func (m *mockRedisClient) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	return make([]interface{}, len(keys)), nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) SAdd(ctx context.Context, key string, members ...interface{}) error {
	return nil
}
func (m *mockRedisClient) SRem(ctx context.Context, key string, members ...interface{}) error {
	return nil
}
func (m *mockRedisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return nil, nil
}
func (m *mockRedisClient) SCard(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return nil, nil
}
func (m *mockRedisClient) Close() error { return nil }

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
