package alert

import (
	"bytes"
	"context"
	"runtime"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"price-drop-tracker/internal/market"
)

// Service drives the checker and housekeeping jobs from one scheduler.
// Every job runs in singleton mode so a slow cycle is never overlapped.
type Service struct {
	ctx       context.Context
	checker   *Checker
	scheduler *gocron.Scheduler
}

func NewService(ctx context.Context, checker *Checker, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		ctx:       ctx,
		checker:   checker,
		scheduler: gocron.NewScheduler(loc),
	}
}

// ScheduleChecks runs a gated check cycle immediately and then every interval
func (s *Service) ScheduleChecks(interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("invalid check interval %s", interval)
	}
	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.runCheck)
	return errors.Wrap(err, "could not schedule price checks")
}

// ScheduleEvery runs fn every interval, starting one interval from now
func (s *Service) ScheduleEvery(name string, interval time.Duration, fn func()) error {
	_, err := s.scheduler.Every(interval).WaitForSchedule().SingletonMode().Do(s.guard(name, fn))
	return errors.Wrapf(err, "could not schedule %s", name)
}

// ScheduleDaily runs fn once a day at the given "HH:MM" wall time
func (s *Service) ScheduleDaily(name, at string, fn func()) error {
	_, err := s.scheduler.Every(1).Day().At(at).SingletonMode().Do(s.guard(name, fn))
	return errors.Wrapf(err, "could not schedule %s", name)
}

func (s *Service) Start() {
	s.scheduler.StartAsync()
	log.Infof("🚀 Price check service started with %d jobs.", s.scheduler.Len())
}

func (s *Service) Stop() {
	s.scheduler.Stop()
	log.Info("Price check service stopped.")
}

func (s *Service) runCheck() {
	s.guard("price check", func() {
		snapshot, err := s.checker.RunCycle(s.ctx)
		switch {
		case errors.Is(err, market.ErrMarketClosed):
		case err != nil:
			log.Errorf("❌ %v", err)
		default:
			log.Infof("✅ Price check %s completed with %d results.", snapshot.ID, len(snapshot.Results))
		}
	})()
}

// guard keeps a panicking job from taking down the scheduler goroutine
func (s *Service) guard(name string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				stackBuf := make([]byte, 1024)
				stackSize := runtime.Stack(stackBuf, false)
				stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
				log.Errorf("🔥 Panic recovered in %s: %v\nStack trace: %s", name, r, stackTrace)
			}
		}()
		fn()
	}
}
