package model

import (
	"fmt"
	"strings"
	"time"

	"salah-reminder-bot/internal/domain"
)

// Language is a supported interface language.
type Language string

const (
	LangEnglish Language = "en"
	LangArabic  Language = "ar"

	DefaultLanguage = LangEnglish
)

var SupportedLanguages = []Language{LangEnglish, LangArabic}

func ParseLanguage(code string) (Language, error) {
	c := Language(strings.ToLower(strings.TrimSpace(code)))
	for _, l := range SupportedLanguages {
		if c == l {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidArgument, code)
}

// Functionalities are the features a user has enabled.
type Functionalities struct {
	Reminder     bool `json:"reminder"`
	Tracker      bool `json:"tracker"`
	RemindByCall bool `json:"remind_by_call"`
}

func (f Functionalities) HasAnyEnabled() bool {
	return f.Reminder || f.Tracker || f.RemindByCall
}

// User is a Telegram user or group chat. ID is the Telegram chat id, so
// group chats are registered under their own (negative) id.
type User struct {
	ID              int64           `json:"id"`
	Username        string          `json:"username,omitempty"`
	DisplayName     string          `json:"display_name"`
	Language        Language        `json:"language"`
	Location        *Location       `json:"location,omitempty"`
	IsSubscribed    bool            `json:"is_subscribed"`
	IsActive        bool            `json:"is_active"`
	Functionalities Functionalities `json:"functionalities"`
	RegisteredAt    time.Time       `json:"registered_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func NewUser(id int64, username, displayName string, lang Language) (*User, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: chat id must be non-zero", domain.ErrInvalidArgument)
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	now := time.Now()
	return &User{
		ID:           id,
		Username:     username,
		DisplayName:  displayName,
		Language:     lang,
		IsActive:     true,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == 0 }
func (u *User) Touch()       { u.UpdatedAt = time.Now() }

func (u *User) HasLocation() bool { return u.Location != nil }

func (u *User) UpdateProfile(username, displayName string) {
	u.Username = username
	u.DisplayName = displayName
	u.Touch()
}

func (u *User) UpdateLocation(loc Location) {
	u.Location = &loc
	u.Touch()
}

func (u *User) ChangeLanguage(lang Language) {
	u.Language = lang
	u.Touch()
}

// Subscribe enables reminders. A location is required to compute a schedule.
func (u *User) Subscribe() error {
	if !u.HasLocation() {
		return domain.ErrLocationRequired
	}
	u.IsSubscribed = true
	u.Functionalities.Reminder = true
	u.Touch()
	return nil
}

func (u *User) Unsubscribe() {
	u.IsSubscribed = false
	u.Touch()
}

func (u *User) SetFunctionalities(f Functionalities) {
	u.Functionalities = f
	u.Touch()
}

func (u *User) Activate()   { u.IsActive = true; u.Touch() }
func (u *User) Deactivate() { u.IsActive = false; u.Touch() }

// IsEligibleForReminders reports whether the reminder engine should consider u.
func (u *User) IsEligibleForReminders() bool {
	return u.IsSubscribed && u.Functionalities.Reminder && u.HasLocation()
}

// Subscriber is the read-only projection of a User consumed by the reminder engine.
type Subscriber struct {
	ID              int64
	Location        Location
	Language        Language
	ReminderEnabled bool
}

func (u *User) Subscriber() (Subscriber, bool) {
	if !u.IsEligibleForReminders() {
		return Subscriber{}, false
	}
	lang := u.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	return Subscriber{
		ID:              u.ID,
		Location:        *u.Location,
		Language:        lang,
		ReminderEnabled: u.Functionalities.Reminder,
	}, true
}
