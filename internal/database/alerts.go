package database

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"price-drop-tracker/internal/alert"
	"price-drop-tracker/internal/types"
)

// InsertAlert appends a fired alert to the history and returns its id
func (db *DB) InsertAlert(rec types.AlertRecord) (int64, error) {
	query := `
	INSERT INTO alert_history (day, symbol, name, price, change_pct, threshold, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);`

	res, err := db.conn.Exec(query, rec.Day, rec.Symbol, rec.Name, rec.Price, rec.ChangePct, rec.Threshold, rec.CreatedAt.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert alert")
	}

	log.Debugf("Alert inserted: Day: %s, Symbol: %s, Threshold: %.2f", rec.Day, rec.Symbol, rec.Threshold)
	return res.LastInsertId()
}

// GetAlertsByDay returns the alerts fired on day, oldest first
func (db *DB) GetAlertsByDay(day string) ([]types.AlertRecord, error) {
	query := `
	SELECT id, day, symbol, name, price, change_pct, threshold, created_at
	FROM alert_history WHERE day = ? ORDER BY id;`

	rows, err := db.conn.Query(query, day)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query alerts for day %s", day)
	}
	defer rows.Close()

	alerts := []types.AlertRecord{}
	for rows.Next() {
		var rec types.AlertRecord
		if err := rows.Scan(&rec.ID, &rec.Day, &rec.Symbol, &rec.Name, &rec.Price, &rec.ChangePct, &rec.Threshold, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		alerts = append(alerts, rec)
	}
	return alerts, rows.Err()
}

// HistoryRecorder appends every fired alert of a cycle to the alert history
type HistoryRecorder struct {
	db  *DB
	now func() time.Time
}

func (db *DB) HistoryRecorder(now func() time.Time) *HistoryRecorder {
	if now == nil {
		now = time.Now
	}
	return &HistoryRecorder{db: db, now: now}
}

func (h *HistoryRecorder) ObserveResult(r types.CheckResult) {
	if !r.AlertSent || r.Threshold == nil {
		return
	}

	now := h.now()
	_, err := h.db.InsertAlert(types.AlertRecord{
		Day:       alert.Day(now),
		Symbol:    r.Symbol,
		Name:      r.Name,
		Price:     r.Price,
		ChangePct: r.ChangePct,
		Threshold: *r.Threshold,
		CreatedAt: now,
	})
	if err != nil {
		log.Errorf("❌ Failed to record alert history for %s: %v", r.Symbol, err)
	}
}

func (h *HistoryRecorder) ObserveCycle(*types.Snapshot) {}
