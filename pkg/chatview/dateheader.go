package chatview

import "time"

// headerLabel computes the date-group header for a message timestamp, both
// taken in the viewer's location:
//
//	same calendar day          -> "Today"
//	previous calendar day      -> "Yesterday"
//	within the last seven days -> weekday name
//	anything older             -> "January 2"
func headerLabel(ts, now time.Time) string {
	msgDay := midnight(ts)
	today := midnight(now)

	switch {
	case msgDay.Equal(today):
		return "Today"
	case msgDay.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case msgDay.After(today.AddDate(0, 0, -7)):
		return msgDay.Weekday().String()
	default:
		return msgDay.Format("January 2")
	}
}

// midnight truncates t to its local calendar date.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
