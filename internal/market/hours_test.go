package market

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIsOpen(t *testing.T) {
	h, err := NewHours(9, 18, time.UTC, false)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2026, 2, 7, 8, 30, 0, 0, time.UTC), false},
		{"at open", time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC), true},
		{"midday", time.Date(2026, 2, 7, 12, 15, 0, 0, time.UTC), true},
		{"last minute", time.Date(2026, 2, 7, 17, 59, 59, 0, time.UTC), true},
		{"at close", time.Date(2026, 2, 7, 18, 0, 0, 0, time.UTC), false},
		{"night", time.Date(2026, 2, 7, 23, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.IsOpen(tt.at); got != tt.want {
				t.Errorf("IsOpen(%s) = %v, want %v", tt.at.Format("15:04:05"), got, tt.want)
			}
		})
	}
}

func TestIsOpenUsesLocation(t *testing.T) {
	warsaw := time.FixedZone("CET", 60*60)
	h, err := NewHours(9, 18, warsaw, false)
	if err != nil {
		t.Fatal(err)
	}

	// 08:30 UTC is 09:30 in CET
	if !h.IsOpen(time.Date(2026, 2, 9, 8, 30, 0, 0, time.UTC)) {
		t.Error("expected window to be open at 09:30 CET")
	}
	// 17:30 UTC is 18:30 in CET
	if h.IsOpen(time.Date(2026, 2, 9, 17, 30, 0, 0, time.UTC)) {
		t.Error("expected window to be closed at 18:30 CET")
	}
}

func TestSkipWeekends(t *testing.T) {
	h, err := NewHours(9, 18, time.UTC, true)
	if err != nil {
		t.Fatal(err)
	}

	saturday := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	if h.IsOpen(saturday) {
		t.Error("expected window to be closed on Saturday")
	}

	monday := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	if !h.IsOpen(monday) {
		t.Error("expected window to be open on Monday")
	}

	next := h.NextOpen(saturday)
	want := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", next, want)
	}
}

func TestNewHoursRejectsInvalidWindow(t *testing.T) {
	for _, w := range [][2]int{{18, 9}, {9, 9}, {-1, 10}, {9, 25}} {
		if _, err := NewHours(w[0], w[1], time.UTC, false); err == nil {
			t.Errorf("NewHours(%d, %d) expected error", w[0], w[1])
		}
	}
}

func TestClosed(t *testing.T) {
	h, err := NewHours(9, 18, time.UTC, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := h.Closed(time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("Closed during the window = %v", err)
	}

	err = h.Closed(time.Date(2026, 2, 9, 19, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrMarketClosed) {
		t.Fatalf("Closed after hours = %v, want ErrMarketClosed", err)
	}
	var closed *ClosedError
	if !errors.As(err, &closed) {
		t.Fatalf("Closed after hours = %T, want *ClosedError", err)
	}
	if want := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC); !closed.NextOpen.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", closed.NextOpen, want)
	}
	if !strings.Contains(err.Error(), "2026-02-10 09:00") {
		t.Errorf("message %q does not name the next open", err)
	}
}
