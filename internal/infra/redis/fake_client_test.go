//go:build !integration

package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// fakeClient is an in-memory RedisClient. Expirations are recorded, not enforced.
type fakeClient struct {
	mu   sync.Mutex
	kv   map[string]string
	sets map[string]map[string]struct{}
	ttl  map[string]time.Duration

	failWith error
}

var _ RedisClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		kv:   map[string]string{},
		sets: map[string]map[string]struct{}{},
		ttl:  map[string]time.Duration{},
	}
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.failWith }

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = toString(value)
	f.ttl[key] = expiration
	return nil
}

func (f *fakeClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.kv[key]; ok {
		return false, nil
	}
	f.kv[key] = toString(value)
	f.ttl[key] = expiration
	return true, nil
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (f *fakeClient) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		if v, ok := f.kv[k]; ok {
			out[i] = v
		}
	}
	return out, nil
}

func (f *fakeClient) Incr(ctx context.Context, key string) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.kv[key], 10, 64)
	n++
	f.kv[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttl[key] = expiration
	return f.failWith
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.kv, k)
		delete(f.sets, k)
	}
	return f.failWith
}

func (f *fakeClient) SAdd(ctx context.Context, key string, members ...interface{}) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[key]
	if !ok {
		s = map[string]struct{}{}
		f.sets[key] = s
	}
	for _, m := range members {
		s[toString(m)] = struct{}{}
	}
	return nil
}

func (f *fakeClient) SRem(ctx context.Context, key string, members ...interface{}) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range members {
		delete(f.sets[key], toString(m))
	}
	return nil
}

func (f *fakeClient) SMembers(ctx context.Context, key string) ([]string, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeClient) SCard(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sets[key])), f.failWith
}

// Eval understands only the unlock script.
func (f *fakeClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if script != luaUnlock || len(keys) != 1 || len(args) != 1 {
		return nil, errors.New("fakeClient: unsupported script")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kv[keys[0]] == toString(args[0]) {
		delete(f.kv, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}

func (f *fakeClient) Close() error { return nil }

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
