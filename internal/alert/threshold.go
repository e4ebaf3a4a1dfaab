package alert

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidChange is returned for a NaN or infinite change percentage
var ErrInvalidChange = errors.New("change percentage is not a finite number")

// Ladder is the sequence of alert boundaries First, First+Step, First+2*Step, ...
// Both values are negative percentages.
type Ladder struct {
	First decimal.Decimal
	Step  decimal.Decimal
}

// Decision is the outcome of comparing a change against the last notified threshold
type Decision struct {
	Fire      bool
	Threshold float64
}

func NewLadder(first, step float64) (Ladder, error) {
	if !isFinite(first) || !isFinite(step) {
		return Ladder{}, errors.New("ladder bounds must be finite")
	}
	if first >= 0 {
		return Ladder{}, errors.Errorf("first alert threshold must be negative, got %v", first)
	}
	if step >= 0 {
		return Ladder{}, errors.Errorf("alert threshold step must be negative, got %v", step)
	}
	return Ladder{
		First: decimal.NewFromFloat(first),
		Step:  decimal.NewFromFloat(step),
	}, nil
}

// Next returns the deepest boundary reached by changePct, i.e. the boundary T
// with T >= changePct > T+Step. crossed is false when changePct is above First.
func (l Ladder) Next(changePct float64) (threshold float64, crossed bool, err error) {
	if !isFinite(changePct) {
		return 0, false, ErrInvalidChange
	}

	change := decimal.NewFromFloat(changePct)
	if change.GreaterThan(l.First) {
		return 0, false, nil
	}

	steps := change.Sub(l.First).Div(l.Step).Floor()
	return l.First.Add(l.Step.Mul(steps)).InexactFloat64(), true, nil
}

// Decide fires when changePct crosses a boundary strictly deeper than last.
// A symbol without a notified threshold today has last == 0.
func (l Ladder) Decide(changePct, last float64) (Decision, error) {
	threshold, crossed, err := l.Next(changePct)
	if err != nil {
		return Decision{}, err
	}
	if !crossed {
		return Decision{}, nil
	}
	if threshold < last {
		return Decision{Fire: true, Threshold: threshold}, nil
	}
	return Decision{Threshold: threshold}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
