// Package format converts API timestamps into the labels shown by the DM views.
package format

import (
	"fmt"
	"strings"
	"time"
)

// layouts accepted by ParseTime, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// ParseTime parses a server timestamp. Absent or unparsable values yield the
// Unix epoch so they sort first.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

// Formatter renders labels in a fixed time zone.
type Formatter struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Formatter for the named IANA zone. An empty or unknown zone
// falls back to UTC with an error so callers can log it.
func New(zone string) (*Formatter, error) {
	if zone == "" {
		return &Formatter{loc: time.UTC, now: time.Now}, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return &Formatter{loc: time.UTC, now: time.Now}, fmt.Errorf("load time zone %q: %w", zone, err)
	}
	return &Formatter{loc: loc, now: time.Now}, nil
}

// NewWithClock is New with an injected clock for relative labels.
func NewWithClock(loc *time.Location, now func() time.Time) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Formatter{loc: loc, now: now}
}

// Location returns the active zone.
func (f *Formatter) Location() *time.Location { return f.loc }

func (f *Formatter) local(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	return ParseTime(s).In(f.loc), true
}

// DateLabel renders "2024年1月2日(火)".
func (f *Formatter) DateLabel(s string) string {
	t, ok := f.local(s)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d年%d月%d日(%s)", t.Year(), int(t.Month()), t.Day(), weekdays[t.Weekday()])
}

// TimeLabel renders "15:04".
func (f *Formatter) TimeLabel(s string) string {
	t, ok := f.local(s)
	if !ok {
		return ""
	}
	return t.Format("15:04")
}

// DateTimeLabel renders "2024/01/02 15:04".
func (f *Formatter) DateTimeLabel(s string) string {
	t, ok := f.local(s)
	if !ok {
		return ""
	}
	return t.Format("2006/01/02 15:04")
}

// DateKey returns the calendar date of s in the active zone.
func (f *Formatter) DateKey(s string) string {
	return ParseTime(s).In(f.loc).Format("2006-01-02")
}

// SameDate reports whether a and b fall on the same calendar date.
func (f *Formatter) SameDate(a, b string) bool {
	return f.DateKey(a) == f.DateKey(b)
}

// RelativeLabel renders a compact last-activity label: the time for today,
// 昨日 for yesterday, M/D within the current year, otherwise YYYY/M/D.
func (f *Formatter) RelativeLabel(s string) string {
	t, ok := f.local(s)
	if !ok {
		return ""
	}
	now := f.now().In(f.loc)
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	switch {
	case ty == ny && tm == nm && td == nd:
		return t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "昨日"
	case ty == ny:
		return fmt.Sprintf("%d/%d", int(tm), td)
	default:
		return fmt.Sprintf("%d/%d/%d", ty, int(tm), td)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
