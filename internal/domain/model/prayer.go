package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"salah-reminder-bot/internal/domain"
)

// PrayerName is one of the named daily prayer instants.
type PrayerName string

const (
	Fajr    PrayerName = "Fajr"
	Sunrise PrayerName = "Sunrise" // display only, no salah at sunrise
	Dhuhr   PrayerName = "Dhuhr"
	Asr     PrayerName = "Asr"
	Maghrib PrayerName = "Maghrib"
	Isha    PrayerName = "Isha"
)

// MinutesPerDay bounds every minutes-since-midnight value: [0, MinutesPerDay).
const MinutesPerDay = 24 * 60

// ReminderPrayers lists the prayers reminders are sent for, in daily order.
var ReminderPrayers = []PrayerName{Fajr, Dhuhr, Asr, Maghrib, Isha}

// AllPrayers lists every known name, in daily order.
var AllPrayers = []PrayerName{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

func ParsePrayerName(s string) (PrayerName, error) {
	for _, p := range AllPrayers {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown prayer name %q", domain.ErrInvalidSchedule, s)
}

func (p PrayerName) IsReminderEligible() bool {
	return p != Sunrise && p != ""
}

// Previous returns the reminder prayer before p. Fajr wraps to the previous
// day's Isha.
func (p PrayerName) Previous() PrayerName {
	for i, rp := range ReminderPrayers {
		if rp != p {
			continue
		}
		if i == 0 {
			return Isha
		}
		return ReminderPrayers[i-1]
	}
	if p == Sunrise {
		return Fajr
	}
	return ""
}

// PrayerTime is a named local wall-clock time. No timezone offset is carried:
// providers return local time for the requested coordinates.
type PrayerTime struct {
	Name   PrayerName `json:"name"`
	Time24 string     `json:"time"`
	Time12 string     `json:"time12h"`

	minutes int
}

func NewPrayerTime(name PrayerName, time24 string) (PrayerTime, error) {
	if name == "" {
		return PrayerTime{}, fmt.Errorf("%w: empty prayer name", domain.ErrInvalidSchedule)
	}
	clean := CleanTimeString(time24)
	m, err := TimeToMinutes(clean)
	if err != nil {
		return PrayerTime{}, err
	}
	return PrayerTime{
		Name:    name,
		Time24:  fmt.Sprintf("%02d:%02d", m/60, m%60),
		Time12:  to12(m),
		minutes: m,
	}, nil
}

// Minutes returns minutes since local midnight.
func (p PrayerTime) Minutes() int {
	if p.minutes == 0 && p.Time24 != "" {
		// decoded from JSON; Time24 was validated when it was first built
		m, _ := TimeToMinutes(p.Time24)
		return m
	}
	return p.minutes
}

func (p PrayerTime) String() string {
	return fmt.Sprintf("%s: %s", p.Name, p.Time12)
}

// CleanTimeString strips a trailing timezone annotation such as "05:12 (+03)".
func CleanTimeString(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// TimeToMinutes parses "HH:MM" (24h) into minutes since midnight.
func TimeToMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: invalid time format %q", domain.ErrInvalidSchedule, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour in %q", domain.ErrInvalidSchedule, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: invalid minute in %q", domain.ErrInvalidSchedule, s)
	}
	return h*60 + m, nil
}

// To12Hour converts "HH:MM" to "h:MM AM|PM".
func To12Hour(time24 string) (string, error) {
	m, err := TimeToMinutes(time24)
	if err != nil {
		return "", err
	}
	return to12(m), nil
}

func to12(minutes int) string {
	h, m := minutes/60, minutes%60
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, period)
}

// MinutesOfDay returns minutes since midnight of t in t's location.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatDate formats t as YYYY-MM-DD in t's location.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
