package alert

import (
	"errors"
	"math"
	"testing"
)

func defaultLadder(t *testing.T) Ladder {
	t.Helper()
	l, err := NewLadder(-1.0, -0.5)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLadderNext(t *testing.T) {
	l := defaultLadder(t)

	tests := []struct {
		change float64
		want   float64
	}{
		{-1.0, -1.0},
		{-1.3, -1.0},
		{-1.5, -1.5},
		{-1.7, -1.5},
		{-2.1, -2.0},
		{-3.0, -3.0},
		{-5.4, -5.0},
	}
	for _, tt := range tests {
		got, crossed, err := l.Next(tt.change)
		if err != nil {
			t.Fatalf("Next(%v) returned error: %v", tt.change, err)
		}
		if !crossed {
			t.Errorf("Next(%v) reported no boundary crossed", tt.change)
		}
		if got != tt.want {
			t.Errorf("Next(%v) = %v, want %v", tt.change, got, tt.want)
		}
	}
}

func TestLadderNextAboveFirst(t *testing.T) {
	l := defaultLadder(t)

	for _, change := range []float64{-0.99, -0.5, 0, 2.5} {
		if _, crossed, err := l.Next(change); err != nil || crossed {
			t.Errorf("Next(%v) crossed=%v err=%v, want no boundary", change, crossed, err)
		}
	}
}

func TestLadderNextRejectsNonFinite(t *testing.T) {
	l := defaultLadder(t)

	for _, change := range []float64{math.NaN(), math.Inf(-1), math.Inf(1)} {
		if _, _, err := l.Next(change); !errors.Is(err, ErrInvalidChange) {
			t.Errorf("Next(%v) err = %v, want ErrInvalidChange", change, err)
		}
		if _, err := l.Decide(change, 0); !errors.Is(err, ErrInvalidChange) {
			t.Errorf("Decide(%v) err = %v, want ErrInvalidChange", change, err)
		}
	}
}

func TestLadderNextUnevenStep(t *testing.T) {
	l, err := NewLadder(-2.0, -0.3)
	if err != nil {
		t.Fatal(err)
	}

	tests := map[float64]float64{
		-2.0:  -2.0,
		-2.29: -2.0,
		-2.3:  -2.3,
		-2.6:  -2.6,
		-2.9:  -2.9,
		-3.19: -2.9,
	}
	for change, want := range tests {
		got, _, err := l.Next(change)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Next(%v) = %v, want %v", change, got, want)
		}
	}
}

func TestDecide(t *testing.T) {
	l := defaultLadder(t)

	tests := []struct {
		name      string
		change    float64
		last      float64
		wantFire  bool
		wantLevel float64
	}{
		{"shallow drop", -0.5, 0, false, 0},
		{"first alert of the day", -1.2, 0, true, -1.0},
		{"same step again", -1.4, -1.0, false, -1.0},
		{"deeper step", -1.6, -1.0, true, -1.5},
		{"recovered", -1.1, -1.5, false, -1.0},
		{"jump several steps", -4.2, -1.5, true, -4.0},
		{"gain", 1.2, 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := l.Decide(tt.change, tt.last)
			if err != nil {
				t.Fatal(err)
			}
			if d.Fire != tt.wantFire || d.Threshold != tt.wantLevel {
				t.Errorf("Decide(%v, %v) = %+v, want fire=%v threshold=%v", tt.change, tt.last, d, tt.wantFire, tt.wantLevel)
			}
		})
	}
}

func TestNewLadderValidation(t *testing.T) {
	bad := [][2]float64{{1, -0.5}, {0, -0.5}, {-1, 0}, {-1, 0.5}, {math.NaN(), -0.5}, {-1, math.Inf(-1)}}
	for _, b := range bad {
		if _, err := NewLadder(b[0], b[1]); err == nil {
			t.Errorf("NewLadder(%v, %v) expected error", b[0], b[1])
		}
	}
}
