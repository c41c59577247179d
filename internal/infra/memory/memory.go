// Package memory implements in-memory storage for development and tests.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/repository"
)

// DB implements an in-memory user store and reminder ledger.
type DB struct {
	mu    sync.Mutex
	users map[int64]model.User
	fired map[string]map[string]struct{} // date -> event key
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		users: make(map[int64]model.User),
		fired: make(map[string]map[string]struct{}),
	}
}

// Ensure interfaces are met.
var _ repository.UserRepository = (*DB)(nil)
var _ repository.ReminderLedger = (*DB)(nil)

// --- UserRepository ---

func (db *DB) Save(ctx context.Context, u *model.User) error {
	if u.IsZero() {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.ID] = cloneUser(u)
	return nil
}

func (db *DB) FindByID(ctx context.Context, id int64) (*model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneUser(&u)
	return &out, nil
}

func (db *DB) FindAllActive(ctx context.Context) ([]*model.User, error) {
	return db.filter(func(u *model.User) bool { return u.IsActive }), nil
}

func (db *DB) FindAllSubscribed(ctx context.Context) ([]*model.User, error) {
	return db.filter(func(u *model.User) bool { return u.IsSubscribed }), nil
}

func (db *DB) Delete(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(db.users, id)
	return nil
}

func (db *DB) CountUsers(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// filter returns copies ordered by id.
func (db *DB) filter(keep func(*model.User) bool) []*model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.User
	for _, u := range db.users {
		if keep(&u) {
			c := cloneUser(&u)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// cloneUser copies u including its location so callers never share state.
func cloneUser(u *model.User) model.User {
	c := *u
	if u.Location != nil {
		loc := *u.Location
		c.Location = &loc
	}
	return c
}

// --- ReminderLedger ---

func (db *DB) MarkFired(ctx context.Context, ev model.ReminderEvent, date string) (bool, error) {
	key := fmt.Sprintf("%d:%s:%s", ev.UserID, ev.Prayer, ev.Phase)
	db.mu.Lock()
	defer db.mu.Unlock()
	day, ok := db.fired[date]
	if !ok {
		day = make(map[string]struct{})
		db.fired[date] = day
	}
	if _, dup := day[key]; dup {
		return false, nil
	}
	day[key] = struct{}{}
	return true, nil
}

// PruneBefore drops ledger days older than date (YYYY-MM-DD) and returns how
// many days were removed.
func (db *DB) PruneBefore(date string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for d := range db.fired {
		if d < date {
			delete(db.fired, d)
			n++
		}
	}
	return n
}
