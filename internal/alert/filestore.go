package alert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// thresholdRecord is the on-disk form of a day's thresholds
type thresholdRecord struct {
	Date       string             `json:"date"`
	Thresholds map[string]float64 `json:"thresholds"`
}

// FileStore keeps the day's thresholds in a single JSON file that is
// rewritten atomically on every save.
type FileStore struct {
	path string
	now  func() time.Time
}

func NewFileStore(path string, now func() time.Time) *FileStore {
	if now == nil {
		now = time.Now
	}
	return &FileStore{path: path, now: now}
}

func (f *FileStore) Path() string {
	return f.path
}

// read returns the stored record, or nil when the file is missing or unparseable
func (f *FileStore) read() *thresholdRecord {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn((&StoreError{Op: "read", Err: err}).Error())
		}
		return nil
	}

	var rec thresholdRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		log.Warnf("ignoring unreadable threshold file %s: %v", f.path, err)
		return nil
	}
	return &rec
}

func (f *FileStore) Load() map[string]float64 {
	out := make(map[string]float64)

	rec := f.read()
	if rec == nil || rec.Date != Day(f.now()) {
		return out
	}
	for k, v := range rec.Thresholds {
		out[k] = v
	}
	return out
}

func (f *FileStore) Save(symbol string, threshold float64) error {
	rec := thresholdRecord{
		Date:       Day(f.now()),
		Thresholds: f.Load(),
	}
	rec.Thresholds[symbol] = threshold

	b, err := json.Marshal(rec)
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	if err := writeFileAtomic(f.path, b); err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}

func (f *FileStore) ResetIfStale() error {
	rec := f.read()
	if rec == nil || rec.Date == Day(f.now()) {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return &StoreError{Op: "reset", Err: err}
	}
	log.Infof("Removed stale threshold file %s", f.path)
	return nil
}

// writeFileAtomic writes to a temp file in the target directory and renames it
// over path so readers never observe a partial write
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "could not create data directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "could not replace threshold file")
}
