package database

import (
	"time"

	log "github.com/sirupsen/logrus"

	"price-drop-tracker/internal/alert"
)

// ThresholdStore keeps the day's notified thresholds in the alert_thresholds table
type ThresholdStore struct {
	db  *DB
	now func() time.Time
}

func (db *DB) ThresholdStore(now func() time.Time) *ThresholdStore {
	if now == nil {
		now = time.Now
	}
	return &ThresholdStore{db: db, now: now}
}

func (s *ThresholdStore) Load() map[string]float64 {
	out := make(map[string]float64)

	rows, err := s.db.conn.Query(`SELECT symbol, threshold FROM alert_thresholds WHERE day = ?;`, alert.Day(s.now()))
	if err != nil {
		log.Warn((&alert.StoreError{Op: "load", Err: err}).Error())
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var symbol string
		var threshold float64
		if err := rows.Scan(&symbol, &threshold); err != nil {
			log.Warn((&alert.StoreError{Op: "load", Err: err}).Error())
			return make(map[string]float64)
		}
		out[symbol] = threshold
	}
	if err := rows.Err(); err != nil {
		log.Warn((&alert.StoreError{Op: "load", Err: err}).Error())
		return make(map[string]float64)
	}
	return out
}

func (s *ThresholdStore) Save(symbol string, threshold float64) error {
	_, err := s.db.conn.Exec(`
	INSERT OR REPLACE INTO alert_thresholds (day, symbol, threshold)
	VALUES (?, ?, ?);`, alert.Day(s.now()), symbol, threshold)
	if err != nil {
		return &alert.StoreError{Op: "save", Err: err}
	}
	return nil
}

func (s *ThresholdStore) ResetIfStale() error {
	res, err := s.db.conn.Exec(`DELETE FROM alert_thresholds WHERE day <> ?;`, alert.Day(s.now()))
	if err != nil {
		return &alert.StoreError{Op: "reset", Err: err}
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Infof("Removed %d stale thresholds", n)
	}
	return nil
}
