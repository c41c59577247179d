package usecase

import (
	"fmt"
	"strings"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
)

// reminderKeys maps a phase to its message template key.
var reminderKeys = map[model.Phase]string{
	model.PhaseBefore: "reminder_before",
	model.PhaseAt:     "reminder_at",
	model.PhaseAfter:  "reminder_after",
}

// PrayerLabel returns the localized prayer name.
func PrayerLabel(tr adapter.Translator, lang model.Language, p model.PrayerName) string {
	return tr.T(lang, "prayer_"+strings.ToLower(string(p)))
}

// FormatReminder renders the message for ev in lang. The "before" message
// also names the previous prayer; before Fajr that is the previous day's Isha.
func FormatReminder(tr adapter.Translator, lang model.Language, ev model.ReminderEvent) string {
	name := PrayerLabel(tr, lang, ev.Prayer)
	key, ok := reminderKeys[ev.Phase]
	if !ok {
		return name
	}
	if ev.Phase == model.PhaseBefore {
		return tr.T(lang, key, name, PrayerLabel(tr, lang, ev.Prayer.Previous()))
	}
	return tr.T(lang, key, name)
}

// FormatAzanCaption renders the caption of the azan audio for p.
func FormatAzanCaption(tr adapter.Translator, lang model.Language, p model.PrayerName) string {
	return tr.T(lang, "azan_caption", PrayerLabel(tr, lang, p))
}

// FormatTimings renders a schedule for chat, marking the next prayer when
// currentMinutes is within the schedule's day (pass -1 to skip).
func FormatTimings(tr adapter.Translator, lang model.Language, s *model.PrayerSchedule, currentMinutes int) string {
	var next model.PrayerTime
	hasNext := false
	if currentMinutes >= 0 {
		next, hasNext = s.NextPrayer(currentMinutes)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📿 *%s* 📿\n", tr.T(lang, "prayer_times_title"))
	fmt.Fprintf(&b, "%s\n\n", tr.T(lang, "prayer_times_date", s.Date()))
	for _, pt := range s.All() {
		label := PrayerLabel(tr, lang, pt.Name)
		if hasNext && pt.Name == next.Name {
			fmt.Fprintf(&b, "▶️ *%s*: %s\n", label, pt.Time12)
			continue
		}
		fmt.Fprintf(&b, "   %s: %s\n", label, pt.Time12)
	}
	if hasNext {
		fmt.Fprintf(&b, "\n🔔 *%s*: %s", tr.T(lang, "next_prayer"),
			tr.T(lang, "next_prayer_line", PrayerLabel(tr, lang, next.Name), next.Time12))
	}
	return strings.TrimRight(b.String(), "\n")
}
