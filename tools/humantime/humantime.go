package humantime

import (
	"fmt"
	"time"
)

// Format renders a message timestamp relative to now:
//
//	today at 3:04 PM
//	yesterday at 3:04 PM
//	01/02/2006
//
// The comparison is by calendar day in now's location.
func Format(t, now time.Time) string {
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	yesterday := now.AddDate(0, 0, -1)
	yy, ym, yd := yesterday.Date()

	switch {
	case ty == ny && tm == nm && td == nd:
		return "today at " + t.Format("3:04 PM")
	case ty == yy && tm == ym && td == yd:
		return "yesterday at " + t.Format("3:04 PM")
	default:
		return t.Format("01/02/2006")
	}
}

// Natural renders a short "time ago" phrase for notification rows, falling
// back to Format past one day.
func Natural(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "a minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "an hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return Format(t, now)
	}
}
