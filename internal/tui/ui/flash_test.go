package ui

import (
	"errors"
	"testing"
	"time"
)

func TestFlashExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	f.Info("sent")
	if m := f.GetMessage(); m == nil || m.Text != "sent" || m.Level != FlashInfo {
		t.Fatalf("GetMessage() = %+v", m)
	}
	now = now.Add(6 * time.Second)
	if m := f.GetMessage(); m != nil {
		t.Errorf("message did not expire: %+v", m)
	}
}

func TestFlashErr(t *testing.T) {
	f := NewFlashModel()
	f.Err(errors.New("boom"))
	m := f.GetMessage()
	if m == nil || m.Level != FlashErr || m.Text != "boom" {
		t.Fatalf("GetMessage() = %+v", m)
	}
	select {
	case got := <-f.Watch():
		if got.Text != "boom" {
			t.Errorf("watched %q", got.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("no watch notification")
	}

	f.Err(nil)
	if m := f.GetMessage(); m != nil {
		t.Errorf("Err(nil) did not clear: %+v", m)
	}
}
