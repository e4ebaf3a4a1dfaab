package price

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Quote holds the pricing details of an instrument
type Quote struct {
	Symbol        string  `json:"symbol"`
	Currency      string  `json:"currency,omitempty"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
}

// ChangePct returns the percentage change of the price versus previous close
func (q Quote) ChangePct() float64 {
	return (q.Price - q.PreviousClose) / q.PreviousClose * 100
}

// Fetcher retrieves the current quote for a symbol
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (Quote, error)
}

// FetchError is a per-symbol failure to retrieve or decode a quote
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchError(symbol string, err error) error {
	return &FetchError{Symbol: symbol, Err: err}
}

// validate rejects quotes that cannot produce a finite change percentage
func validate(q Quote) error {
	if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return errors.Errorf("non-finite price %v", q.Price)
	}
	if math.IsNaN(q.PreviousClose) || math.IsInf(q.PreviousClose, 0) {
		return errors.Errorf("non-finite previous close %v", q.PreviousClose)
	}
	if q.PreviousClose == 0 {
		return errors.New("previous close is zero")
	}
	return nil
}

// Router dispatches a symbol to the fetcher registered for its prefix.
// Symbols without a registered prefix go to the default fetcher.
type Router struct {
	Default  Fetcher
	prefixes map[string]Fetcher
}

func NewRouter(def Fetcher) *Router {
	return &Router{Default: def, prefixes: make(map[string]Fetcher)}
}

// Handle registers f for symbols written as "<prefix>:<id>"
func (r *Router) Handle(prefix string, f Fetcher) {
	r.prefixes[prefix] = f
}

func (r *Router) Fetch(ctx context.Context, symbol string) (Quote, error) {
	if prefix, id, ok := strings.Cut(symbol, ":"); ok {
		if f, found := r.prefixes[prefix]; found {
			q, err := f.Fetch(ctx, id)
			q.Symbol = symbol
			if fe, isFetchErr := err.(*FetchError); isFetchErr {
				fe.Symbol = symbol
			}
			return q, err
		}
	}
	if r.Default == nil {
		return Quote{}, fetchError(symbol, errors.New("no quote source configured"))
	}
	return r.Default.Fetch(ctx, symbol)
}
