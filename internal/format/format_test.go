package format

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"rfc3339", "2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Unix()},
		{"offset", "2024-01-02T12:04:05+09:00", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Unix()},
		{"fractional", "2024-01-02T03:04:05.123456Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Unix()},
		{"sql", "2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Unix()},
		{"empty", "", 0},
		{"garbage", "yesterday", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTime(tt.input).Unix(); got != tt.want {
				t.Errorf("ParseTime(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestLabels(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	f := NewWithClock(tokyo, nil)

	const ts = "2024-01-02T03:04:00Z" // 12:04 in Tokyo
	if got := f.DateLabel(ts); got != "2024年1月2日(火)" {
		t.Errorf("DateLabel = %q", got)
	}
	if got := f.TimeLabel(ts); got != "12:04" {
		t.Errorf("TimeLabel = %q", got)
	}
	if got := f.DateTimeLabel(ts); got != "2024/01/02 12:04" {
		t.Errorf("DateTimeLabel = %q", got)
	}
	if got := f.DateLabel(""); got != "" {
		t.Errorf("DateLabel(empty) = %q, want empty", got)
	}
}

func TestSameDate(t *testing.T) {
	f := NewWithClock(time.UTC, nil)
	if f.SameDate("2024-01-01T23:59:00Z", "2024-01-02T00:01:00Z") {
		t.Error("dates across midnight reported as same")
	}
	if !f.SameDate("2024-01-02T00:01:00Z", "2024-01-02T23:00:00Z") {
		t.Error("same calendar date reported as different")
	}
}

func TestSameDateFollowsZone(t *testing.T) {
	f := NewWithClock(time.FixedZone("JST", 9*3600), nil)
	// 23:59Z and 00:01Z are 08:59 and 09:01 on the same day at +09:00.
	if !f.SameDate("2024-01-01T23:59:00Z", "2024-01-02T00:01:00Z") {
		t.Error("expected same date in +09:00")
	}
}

func TestRelativeLabel(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	f := NewWithClock(time.UTC, func() time.Time { return now })

	tests := []struct {
		input string
		want  string
	}{
		{"2024-06-10T09:05:00Z", "09:05"},
		{"2024-06-09T23:00:00Z", "昨日"},
		{"2024-03-01T10:00:00Z", "3/1"},
		{"2023-12-31T10:00:00Z", "2023/12/31"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := f.RelativeLabel(tt.input); got != tt.want {
			t.Errorf("RelativeLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewUnknownZone(t *testing.T) {
	f, err := New("Mars/Olympus")
	if err == nil {
		t.Error("expected error for unknown zone")
	}
	if f.Location() != time.UTC {
		t.Errorf("Location = %v, want UTC fallback", f.Location())
	}
}
