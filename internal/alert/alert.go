package alert

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"price-drop-tracker/internal/commands"
	"price-drop-tracker/internal/market"
	"price-drop-tracker/internal/price"
	"price-drop-tracker/internal/types"
)

// Notifier delivers an alert text to the chat. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Observer is told about every symbol result and every finished cycle
type Observer interface {
	ObserveResult(r types.CheckResult)
	ObserveCycle(s *types.Snapshot)
}

// CriticalError aborts a whole cycle
type CriticalError struct {
	Err error
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical error in check cycle: %v", e.Err)
}

func (e *CriticalError) Unwrap() error {
	return e.Err
}

type Options struct {
	Symbols   []types.Symbol
	Fetcher   price.Fetcher
	Store     Store
	Notifier  Notifier
	Ladder    Ladder
	Hours     market.Hours
	Observers []Observer
	// Now defaults to time.Now
	Now func() time.Time
}

// Checker runs check cycles over the configured symbols and keeps the last snapshot
type Checker struct {
	symbols   []types.Symbol
	fetcher   price.Fetcher
	store     Store
	notifier  Notifier
	ladder    Ladder
	hours     market.Hours
	observers []Observer
	now       func() time.Time

	mu   sync.RWMutex
	last *types.Snapshot
}

func NewChecker(o Options) (*Checker, error) {
	if o.Fetcher == nil {
		return nil, errors.New("checker needs a quote fetcher")
	}
	if o.Store == nil {
		return nil, errors.New("checker needs a threshold store")
	}
	if o.Notifier == nil {
		return nil, errors.New("checker needs a notifier")
	}
	if o.Ladder.First.IsZero() || o.Ladder.Step.IsZero() {
		return nil, errors.New("checker needs an alert ladder")
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	symbols := make([]types.Symbol, len(o.Symbols))
	copy(symbols, o.Symbols)

	return &Checker{
		symbols:   symbols,
		fetcher:   o.Fetcher,
		store:     o.Store,
		notifier:  o.Notifier,
		ladder:    o.Ladder,
		hours:     o.Hours,
		observers: o.Observers,
		now:       o.Now,
	}, nil
}

// Symbols returns the configured symbol table
func (c *Checker) Symbols() []types.Symbol {
	out := make([]types.Symbol, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// LastResult returns the snapshot of the most recent cycle that ran
func (c *Checker) LastResult() (*types.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.last != nil
}

// RunCycle checks every symbol once. Outside market hours nothing is fetched
// and a *market.ClosedError matching market.ErrMarketClosed is returned.
func (c *Checker) RunCycle(ctx context.Context) (*types.Snapshot, error) {
	now := c.now()
	if err := c.hours.Closed(now); err != nil {
		log.Infof("Market closed (%s). Skipping check: %v", now.Format("15:04:05"), err)
		return nil, err
	}
	return c.run(ctx, now)
}

// ForceCycle checks every symbol once regardless of market hours
func (c *Checker) ForceCycle(ctx context.Context) (*types.Snapshot, error) {
	return c.run(ctx, c.now())
}

func (c *Checker) run(ctx context.Context, started time.Time) (snapshot *types.Snapshot, err error) {
	snapshot = &types.Snapshot{ID: uuid.NewString(), Timestamp: started}
	logger := log.WithField("cycle", snapshot.ID)

	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			logger.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
			err = &CriticalError{Err: errors.Errorf("panic: %v", r)}
		}
		if err != nil {
			snapshot.Results = nil
			snapshot.Success = false
			snapshot.Error = err.Error()
		}
		snapshot.Timestamp = c.now()
		c.finish(snapshot)
	}()

	logger.Infof("Check prices triggered at %s", started.Format("15:04:05"))

	if err := ctx.Err(); err != nil {
		return snapshot, &CriticalError{Err: err}
	}

	if err := c.store.ResetIfStale(); err != nil {
		logger.Warn(err)
	}
	thresholds := c.store.Load()
	if thresholds == nil {
		thresholds = make(map[string]float64)
	}

	results := make([]types.CheckResult, 0, len(c.symbols))
	for _, symbol := range c.symbols {
		result := c.safeCheckSymbol(ctx, symbol, thresholds)
		results = append(results, result)
		for _, o := range c.observers {
			o.ObserveResult(result)
		}
	}

	snapshot.Results = results
	snapshot.Success = true
	return snapshot, nil
}

func (c *Checker) finish(snapshot *types.Snapshot) {
	c.mu.Lock()
	c.last = snapshot
	c.mu.Unlock()

	for _, o := range c.observers {
		o.ObserveCycle(snapshot)
	}
}

// safeCheckSymbol keeps a panic while checking one symbol inside that symbol's result
func (c *Checker) safeCheckSymbol(ctx context.Context, symbol types.Symbol, thresholds map[string]float64) (result types.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic while checking %s: %v", symbol.Symbol, r)
			result = types.CheckResult{Symbol: symbol.Symbol, Name: symbol.Name, Status: types.StatusError, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return c.checkSymbol(ctx, symbol, thresholds)
}

func (c *Checker) checkSymbol(ctx context.Context, symbol types.Symbol, thresholds map[string]float64) types.CheckResult {
	logger := log.WithField("symbol", symbol.Symbol)

	quote, err := c.fetcher.Fetch(ctx, symbol.Symbol)
	if err != nil {
		logger.Errorf("Error checking %s: %v", symbol.Symbol, err)
		return types.CheckResult{Symbol: symbol.Symbol, Name: symbol.Name, Status: types.StatusError, Error: err.Error()}
	}

	change := quote.ChangePct()
	logger.Infof("%s (%s): %v (Change: %.2f%%)", symbol.Symbol, symbol.Name, quote.Price, change)

	decision, err := c.ladder.Decide(change, thresholds[symbol.Symbol])
	if err != nil {
		logger.Errorf("Error checking %s: %v", symbol.Symbol, err)
		return types.CheckResult{Symbol: symbol.Symbol, Name: symbol.Name, Status: types.StatusError, Error: err.Error()}
	}

	result := types.CheckResult{
		Symbol:    symbol.Symbol,
		Name:      symbol.Name,
		Price:     quote.Price,
		ChangePct: change,
		Status:    types.StatusChecked,
	}
	if !decision.Fire {
		return result
	}

	text := commands.AlertMessage(symbol.Name, quote.Price, change, decision.Threshold)
	if err := c.notifier.Notify(ctx, text); err != nil {
		logger.Errorf("Failed to send alert for %s: %v", symbol.Name, err)
		result.NotifyError = err.Error()
	}

	if err := c.store.Save(symbol.Symbol, decision.Threshold); err != nil {
		logger.Warn(err)
	}
	thresholds[symbol.Symbol] = decision.Threshold

	threshold := decision.Threshold
	result.AlertSent = true
	result.Threshold = &threshold
	logger.Infof("Alert sent for %s: threshold %v", symbol.Name, threshold)
	return result
}

// LogNotifier writes alerts to the log instead of a chat
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, text string) error {
	log.Infof("Notification (not sent):\n%s", text)
	return nil
}
