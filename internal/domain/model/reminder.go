package model

// Phase is one of the reminder moments relative to a single prayer.
type Phase int

const (
	PhaseBefore Phase = iota // 10 minutes before
	PhaseAt                  // at prayer time
	PhaseAfter               // 5 minutes after
)

// Phases lists every phase in firing order within one prayer.
var Phases = []Phase{PhaseBefore, PhaseAt, PhaseAfter}

// Offset returns the phase target relative to the prayer, in minutes.
func (p Phase) Offset() int {
	switch p {
	case PhaseBefore:
		return -10
	case PhaseAfter:
		return 5
	default:
		return 0
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseAt:
		return "at"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// ReminderEvent is one firing decision. It is never persisted.
type ReminderEvent struct {
	UserID     int64
	Prayer     PrayerName
	Phase      Phase
	PrayerTime PrayerTime
}

// DefaultWindowWidth matches a one-minute poll: only an exact minute match fires.
const DefaultWindowWidth = 1

// ReminderEvaluator decides which phases fire for a schedule at a given minute.
// It has no clock and no I/O.
//
// A phase fires iff |current - target| < WindowWidth. Targets that fall outside
// the schedule's own day (before 00:00 or after 23:59) never fire.
type ReminderEvaluator struct {
	WindowWidth int
}

func NewReminderEvaluator(windowWidth int) ReminderEvaluator {
	if windowWidth < 1 {
		windowWidth = DefaultWindowWidth
	}
	return ReminderEvaluator{WindowWidth: windowWidth}
}

// Evaluate returns the events due at currentMinutes, in schedule order and
// before -> at -> after within a prayer.
func (e ReminderEvaluator) Evaluate(userID int64, schedule *PrayerSchedule, currentMinutes int) []ReminderEvent {
	if schedule == nil || currentMinutes < 0 || currentMinutes >= MinutesPerDay {
		return nil
	}
	width := e.WindowWidth
	if width < 1 {
		width = DefaultWindowWidth
	}

	var events []ReminderEvent
	for _, pt := range schedule.ReminderPrayers() {
		for _, ph := range Phases {
			target := pt.Minutes() + ph.Offset()
			if target < 0 || target >= MinutesPerDay {
				continue
			}
			if abs(currentMinutes-target) < width {
				events = append(events, ReminderEvent{
					UserID:     userID,
					Prayer:     pt.Name,
					Phase:      ph,
					PrayerTime: pt,
				})
			}
		}
	}
	return events
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
