package main

import (
	"path/filepath"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"price-drop-tracker/config"
	"price-drop-tracker/internal/alert"
	"price-drop-tracker/internal/chart"
	"price-drop-tracker/internal/database"
	"price-drop-tracker/internal/market"
	"price-drop-tracker/internal/metrics"
	"price-drop-tracker/internal/price"
	"price-drop-tracker/internal/telegram"
)

type appOptions struct {
	// dryRun keeps thresholds in memory and logs alerts instead of sending them
	dryRun bool
	// withDatabase opens the sqlite database for history and metrics
	withDatabase bool
}

// app holds the wired tracker components
type app struct {
	loc      *time.Location
	db       *database.DB
	metrics  *metrics.Metrics
	checker  *alert.Checker
	notifier alert.Notifier
	bot      *telegram.Client
	charts   *chart.Renderer
}

func newApp(o appOptions) (*app, error) {
	a := &app{loc: config.Location()}
	now := func() time.Time { return time.Now().In(a.loc) }

	ladder, err := alert.NewLadder(config.GetFloat64("alert_threshold_first"), config.GetFloat64("alert_threshold_step"))
	if err != nil {
		return nil, err
	}
	hours, err := market.NewHours(
		config.GetInt("market_open_hour"),
		config.GetInt("market_close_hour"),
		a.loc,
		config.GetBool("market_skip_weekends"),
	)
	if err != nil {
		return nil, err
	}

	timeout := config.GetDuration("fetch_timeout")
	fetcher := price.NewRouter(price.NewYahooFetcher(config.GetString("quote_endpoint"), timeout))
	fetcher.Handle(price.PaprikaPrefix, price.NewPaprikaFetcher(config.GetString("api_pro_key"), timeout))

	var observers []alert.Observer
	if o.withDatabase && !o.dryRun {
		a.db, err = database.Open(filepath.Join(config.GetString("data_dir"), "tracker.db"))
		if err != nil {
			return nil, err
		}
		a.metrics = metrics.Restore(a.db)
		observers = append(observers, a.metrics, a.db.HistoryRecorder(now))
	}

	store, err := a.thresholdStore(o, now)
	if err != nil {
		a.close()
		return nil, err
	}

	a.notifier = alert.LogNotifier{}
	if token := config.GetString("telegram_token"); token != "" && !o.dryRun {
		a.bot, err = telegram.NewClient(telegram.BotConfig{
			Token:          token,
			ChatID:         config.GetString("telegram_chat_id"),
			Endpoint:       config.GetString("telegram_api_endpoint"),
			Debug:          config.GetBool("debug"),
			UpdatesTimeout: 60,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		if _, err := a.bot.Connect(); err != nil {
			log.Warnf("Telegram is unreachable, retrying on the next alert: %v", err)
		}
		a.notifier = a.bot
	} else if token == "" {
		log.Warn("TELEGRAM_TOKEN is not set, alerts are only logged")
	}

	var font *truetype.Font
	if path := config.GetString("chart_font"); path != "" {
		if font, err = chart.LoadFont(path); err != nil {
			log.Warnf("Using the default chart font: %v", err)
		}
	}
	a.charts = chart.NewRenderer(font, 5*time.Minute)

	a.checker, err = alert.NewChecker(alert.Options{
		Symbols:   config.Symbols(),
		Fetcher:   fetcher,
		Store:     store,
		Notifier:  a.notifier,
		Ladder:    ladder,
		Hours:     hours,
		Observers: observers,
		Now:       now,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) thresholdStore(o appOptions, now func() time.Time) (alert.Store, error) {
	if o.dryRun {
		return alert.NewMemoryStore(now), nil
	}

	switch kind := config.GetString("threshold_store"); kind {
	case "file", "":
		fs := alert.NewFileStore(filepath.Join(config.GetString("data_dir"), "alert_thresholds"), now)
		log.Infof("Alert thresholds are kept in %s", fs.Path())
		return fs, nil
	case "sqlite":
		if a.db == nil {
			db, err := database.Open(filepath.Join(config.GetString("data_dir"), "tracker.db"))
			if err != nil {
				return nil, err
			}
			a.db = db
		}
		return a.db.ThresholdStore(now), nil
	default:
		return nil, errors.Errorf("unknown threshold store %q", kind)
	}
}

func (a *app) saveMetrics() {
	if a.metrics == nil || a.db == nil {
		return
	}
	if err := a.metrics.Save(a.db); err != nil {
		log.Errorf("Failed to save metrics: %v", err)
	}
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		log.Warnf("Failed to close database: %v", err)
	}
}
