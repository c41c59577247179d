package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"salah-reminder-bot/internal/domain"
)

// PrayerSchedule holds the prayer times of one date at one location.
// It is immutable once built and safe to share between goroutines.
type PrayerSchedule struct {
	date     string
	location Location
	prayers  []PrayerTime
}

// NewPrayerSchedule validates and orders prayers by time of day. date must be
// YYYY-MM-DD; each name may appear at most once.
func NewPrayerSchedule(date string, loc Location, prayers []PrayerTime) (*PrayerSchedule, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", domain.ErrInvalidSchedule, date)
	}
	if len(prayers) == 0 {
		return nil, fmt.Errorf("%w: prayer times cannot be empty", domain.ErrInvalidSchedule)
	}
	seen := make(map[PrayerName]struct{}, len(prayers))
	out := make([]PrayerTime, 0, len(prayers))
	for _, p := range prayers {
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate prayer %s", domain.ErrInvalidSchedule, p.Name)
		}
		seen[p.Name] = struct{}{}
		// rebuild so values decoded from JSON are validated too
		pt, err := NewPrayerTime(p.Name, p.Time24)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Minutes() < out[j].Minutes() })
	return &PrayerSchedule{date: date, location: loc, prayers: out}, nil
}

func (s *PrayerSchedule) Date() string       { return s.date }
func (s *PrayerSchedule) Location() Location { return s.location }
func (s *PrayerSchedule) Len() int           { return len(s.prayers) }

// Get returns the prayer time with the given name.
func (s *PrayerSchedule) Get(name PrayerName) (PrayerTime, bool) {
	for _, p := range s.prayers {
		if p.Name == name {
			return p, true
		}
	}
	return PrayerTime{}, false
}

// All returns a copy of every prayer time, ordered by time of day.
func (s *PrayerSchedule) All() []PrayerTime {
	out := make([]PrayerTime, len(s.prayers))
	copy(out, s.prayers)
	return out
}

// ReminderPrayers returns the reminder-eligible prayers, ordered by time of day.
func (s *PrayerSchedule) ReminderPrayers() []PrayerTime {
	out := make([]PrayerTime, 0, len(s.prayers))
	for _, p := range s.prayers {
		if p.Name.IsReminderEligible() {
			out = append(out, p)
		}
	}
	return out
}

// NextPrayer returns the first reminder prayer that has not passed at
// currentMinutes. ok is false once Isha has passed.
func (s *PrayerSchedule) NextPrayer(currentMinutes int) (PrayerTime, bool) {
	for _, p := range s.ReminderPrayers() {
		if p.Minutes() >= currentMinutes {
			return p, true
		}
	}
	return PrayerTime{}, false
}

// scheduleJSON is the cache/wire representation.
type scheduleJSON struct {
	Date     string       `json:"date"`
	Location Location     `json:"location"`
	Prayers  []PrayerTime `json:"prayers"`
}

func (s *PrayerSchedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(scheduleJSON{Date: s.date, Location: s.location, Prayers: s.prayers})
}

func (s *PrayerSchedule) UnmarshalJSON(b []byte) error {
	var raw scheduleJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	built, err := NewPrayerSchedule(raw.Date, raw.Location, raw.Prayers)
	if err != nil {
		return err
	}
	*s = *built
	return nil
}
