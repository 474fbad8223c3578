package notify

import (
	"time"

	"neothink/pkg/types"
)

type Action int

const (
	ActionDrop Action = iota
	ActionSendNow
	ActionDefer
	ActionBatch
)

func (a Action) String() string {
	switch a {
	case ActionDrop:
		return "drop"
	case ActionSendNow:
		return "send_now"
	case ActionDefer:
		return "defer"
	case ActionBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// Decision is the routing outcome for one candidate notification.
type Decision struct {
	Action       Action
	ScheduledFor time.Time
	Batch        types.Frequency
}

// Decide routes a candidate given the recipient's preference row. now must
// already be expressed in the recipient's location. Quiet hours take
// precedence over frequency batching.
func Decide(pref *types.NotificationPreference, now time.Time) Decision {
	if pref == nil || !pref.Enabled || pref.Frequency == types.FrequencyNever {
		return Decision{Action: ActionDrop}
	}

	if start, end, ok := quietHours(pref); ok && InQuietHours(start, end, minuteOfDay(now)) {
		return Decision{
			Action:       ActionDefer,
			ScheduledFor: NextQuietHoursEnd(now, end),
		}
	}

	if pref.Frequency != "" && pref.Frequency != types.FrequencyInstant {
		return Decision{Action: ActionBatch, Batch: pref.Frequency}
	}

	return Decision{Action: ActionSendNow}
}

// quietHours returns the window bounds only when both are set and parse.
func quietHours(pref *types.NotificationPreference) (int, int, bool) {
	if pref.QuietHoursStart == nil || pref.QuietHoursEnd == nil {
		return 0, 0, false
	}

	start, err := ParseClock(*pref.QuietHoursStart)
	if err != nil {
		return 0, 0, false
	}

	end, err := ParseClock(*pref.QuietHoursEnd)
	if err != nil {
		return 0, 0, false
	}

	return start, end, true
}
