//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/domain/ports/repository"
	"salah-reminder-bot/internal/infra/i18n"
)

// =============================
// Adapters
// =============================

// ---- Mock NotificationSink ----

type SentMessage struct {
	ChatID int64
	Text   string
}

type SentAudio struct {
	ChatID   int64
	AudioRef string
	Caption  string
}

type MockSink struct {
	mu    sync.Mutex
	Sent  []SentMessage
	Audio []SentAudio

	SendMessageFunc    func(ctx context.Context, chatID int64, text string) error
	IsGroupFunc        func(ctx context.Context, chatID int64) (bool, error)
	BroadcastAudioFunc func(ctx context.Context, chatID int64, audioRef, caption string) error
}

var _ adapter.NotificationSink = (*MockSink)(nil)

func (m *MockSink) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(ctx, chatID, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *MockSink) IsGroup(ctx context.Context, chatID int64) (bool, error) {
	if m.IsGroupFunc != nil {
		return m.IsGroupFunc(ctx, chatID)
	}
	// Telegram group chat ids are negative
	return chatID < 0, nil
}

func (m *MockSink) BroadcastAudio(ctx context.Context, chatID int64, audioRef, caption string) error {
	if m.BroadcastAudioFunc != nil {
		if err := m.BroadcastAudioFunc(ctx, chatID, audioRef, caption); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Audio = append(m.Audio, SentAudio{ChatID: chatID, AudioRef: audioRef, Caption: caption})
	return nil
}

// SentTo returns messages sent to chatID, in order.
func (m *MockSink) SentTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

// ---- Mock PrayerTimesProvider ----

type MockProvider struct {
	mu    sync.Mutex
	Calls int

	GetScheduleFunc func(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error)
	Schedule        *model.PrayerSchedule
}

var _ adapter.PrayerTimesProvider = (*MockProvider)(nil)

func (m *MockProvider) GetSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.GetScheduleFunc != nil {
		return m.GetScheduleFunc(ctx, loc, date)
	}
	if m.Schedule == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return m.Schedule, nil
}

// ---- Task runner ----

// syncRunner runs submitted tasks inline so assertions see their effects.
type syncRunner struct {
	mu    sync.Mutex
	count int
	full  bool
}

func (r *syncRunner) Submit(task func(ctx context.Context) error) error {
	if r.full {
		return context.DeadlineExceeded
	}
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	_ = task(context.Background())
	return nil
}

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu   sync.RWMutex
	data map[int64]*model.User

	SaveFunc              func(ctx context.Context, u *model.User) error
	FindByIDFunc          func(ctx context.Context, id int64) (*model.User, error)
	FindAllSubscribedFunc func(ctx context.Context) ([]*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{data: make(map[int64]*model.User)}
}

func (m *MockUserRepo) Save(ctx context.Context, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.data[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) all(filter func(*model.User) bool) []*model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.data {
		if filter(u) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockUserRepo) FindAllActive(ctx context.Context) ([]*model.User, error) {
	return m.all(func(u *model.User) bool { return u.IsActive }), nil
}

func (m *MockUserRepo) FindAllSubscribed(ctx context.Context) ([]*model.User, error) {
	if m.FindAllSubscribedFunc != nil {
		return m.FindAllSubscribedFunc(ctx)
	}
	return m.all(func(u *model.User) bool { return u.IsSubscribed }), nil
}

func (m *MockUserRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *MockUserRepo) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

// ---- Mock SubscriberDirectory ----

type MockDirectory struct {
	Subscribers     []model.Subscriber
	ListEligibleErr error
}

var _ repository.SubscriberDirectory = (*MockDirectory)(nil)

func (m *MockDirectory) ListEligible(ctx context.Context) ([]model.Subscriber, error) {
	if m.ListEligibleErr != nil {
		return nil, m.ListEligibleErr
	}
	return m.Subscribers, nil
}

// ---- Mock ReminderLedger ----

type MockLedger struct {
	mu    sync.Mutex
	fired map[string]bool
	Err   error
}

var _ repository.ReminderLedger = (*MockLedger)(nil)

func NewMockLedger() *MockLedger { return &MockLedger{fired: map[string]bool{}} }

func (m *MockLedger) MarkFired(ctx context.Context, ev model.ReminderEvent, date string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s|%d|%s|%s", date, ev.UserID, ev.Prayer, ev.Phase)
	if m.fired[key] {
		return false, nil
	}
	m.fired[key] = true
	return true, nil
}

// =============================
// Helpers
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// newTestTranslator loads the embedded production locales.
func newTestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewDefaultTranslator()
	if err != nil {
		t.Fatalf("failed to load translator: %v", err)
	}
	return tr
}

func mustLocation(t *testing.T, lat, lng float64) model.Location {
	t.Helper()
	loc, err := model.NewLocation(lat, lng)
	if err != nil {
		t.Fatalf("NewLocation: %v", err)
	}
	return loc
}

// baselineSchedule is Fajr 05:00, Sunrise 06:20, Dhuhr 12:00, Asr 15:30,
// Maghrib 18:10, Isha 19:40.
func baselineSchedule(t *testing.T) *model.PrayerSchedule {
	t.Helper()
	var prayers []model.PrayerTime
	for _, p := range []struct {
		name model.PrayerName
		at   string
	}{
		{model.Fajr, "05:00"}, {model.Sunrise, "06:20"}, {model.Dhuhr, "12:00"},
		{model.Asr, "15:30"}, {model.Maghrib, "18:10"}, {model.Isha, "19:40"},
	} {
		pt, err := model.NewPrayerTime(p.name, p.at)
		if err != nil {
			t.Fatalf("NewPrayerTime: %v", err)
		}
		prayers = append(prayers, pt)
	}
	s, err := model.NewPrayerSchedule("2026-10-18", mustLocation(t, 21.4225, 39.8262), prayers)
	if err != nil {
		t.Fatalf("NewPrayerSchedule: %v", err)
	}
	return s
}

func at(hh, mm int) time.Time {
	return time.Date(2026, 10, 18, hh, mm, 0, 0, time.UTC)
}
