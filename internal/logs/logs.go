// Package logs configures logrus and keeps one log file per day.
package logs

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dayLayout = "2006-01-02"

type Config struct {
	Dir   string
	Debug bool
	// Now defaults to time.Now
	Now func() time.Time
}

// Setup sets the global logrus level and formatter and, when Dir is set,
// mirrors every entry into <Dir>/<YYYY-MM-DD>.log.
func Setup(cfg Config) (*DailyFileHook, error) {
	log.SetLevel(log.InfoLevel)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})

	if cfg.Dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create log directory")
	}

	hook := NewDailyFileHook(cfg.Dir, cfg.Now)
	log.AddHook(hook)
	log.Debugf("Logging to %s", cfg.Dir)
	return hook, nil
}

// DailyFileHook writes entries to a file named after the current day and
// switches files when the day changes.
type DailyFileHook struct {
	dir       string
	now       func() time.Time
	formatter log.Formatter

	mu     sync.Mutex
	day    string
	writer *lumberjack.Logger
}

func NewDailyFileHook(dir string, now func() time.Time) *DailyFileHook {
	if now == nil {
		now = time.Now
	}
	return &DailyFileHook{
		dir: dir,
		now: now,
		formatter: &log.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		},
	}
}

func (h *DailyFileHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *DailyFileHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	day := h.now().Format(dayLayout)
	if h.writer == nil || h.day != day {
		if h.writer != nil {
			h.writer.Close()
		}
		h.day = day
		h.writer = &lumberjack.Logger{
			Filename: Path(h.dir, day),
			// size rotation is left off, retention is handled by Cleanup
			MaxSize: 1 << 20,
		}
	}

	_, err = h.writer.Write(line)
	return err
}

func (h *DailyFileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.writer == nil {
		return nil
	}
	err := h.writer.Close()
	h.writer = nil
	return err
}

// Path returns the log file of day inside dir
func Path(dir, day string) string {
	return filepath.Join(dir, day+".log")
}

// Cleanup deletes dated log files older than retentionDays and returns their names.
// Files that are not named after a date are left alone.
func Cleanup(dir string, retentionDays int, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "could not list log directory")
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".log") {
			continue
		}
		day, err := time.ParseInLocation(dayLayout, strings.TrimSuffix(name, ".log"), now.Location())
		if err != nil || !day.Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			log.Warnf("System: Error during cleanup of %s: %v", name, err)
			continue
		}
		log.Infof("System: Deleted old log file %s", name)
		removed = append(removed, name)
	}
	return removed, nil
}

// Tail returns the lines logged on day. A day without a file has no lines.
func Tail(dir, day string) ([]string, error) {
	f, err := os.Open(Path(dir, day))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "could not open log file")
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, errors.Wrap(scanner.Err(), "could not read log file")
}
