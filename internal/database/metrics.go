package database

import (
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SaveMetric stores an unlabeled metric value
func (db *DB) SaveMetric(metricName string, value float64) error {
	return db.SaveMetricWithLabels(metricName, "", "", value)
}

// GetMetric returns an unlabeled metric value, or 0 when it was never saved
func (db *DB) GetMetric(metricName string) (float64, error) {
	var value float64
	query := `
	SELECT metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key = '' AND label_value = '';`
	err := db.conn.QueryRow(query, metricName).Scan(&value)
	if err == sql.ErrNoRows {
		log.Debugf("Metric %s not found in the database, defaulting to 0", metricName)
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrapf(err, "failed to get metric %s", metricName)
	}
	log.Debugf("Metric loaded: %s = %f", metricName, value)
	return value, nil
}

func (db *DB) SaveMetricWithLabels(metricName, labelKey, labelValue string, value float64) error {
	query := `
	INSERT OR REPLACE INTO metrics (metric_name, label_key, label_value, metric_value)
	VALUES (?, ?, ?, ?);`
	_, err := db.conn.Exec(query, metricName, labelKey, labelValue, value)
	if err != nil {
		return errors.Wrap(err, "failed to save metric")
	}
	log.Debugf("Metric saved: %s[%s=%s] = %f", metricName, labelKey, labelValue, value)
	return nil
}

// GetMetricsWithLabels fetches all labeled values of a metric keyed by label key and value
func (db *DB) GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error) {
	query := `
	SELECT label_key, label_value, metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key <> '';`

	rows, err := db.conn.Query(query, metricName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query metrics with labels")
	}
	defer rows.Close()

	metrics := make(map[string]map[string]float64)
	for rows.Next() {
		var labelKey, labelValue string
		var value float64
		if err := rows.Scan(&labelKey, &labelValue, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		if _, exists := metrics[labelKey]; !exists {
			metrics[labelKey] = make(map[string]float64)
		}
		metrics[labelKey][labelValue] = value
	}
	return metrics, rows.Err()
}
