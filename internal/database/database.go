package database

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

// DB is the tracker's sqlite database holding thresholds, alert history and metrics
type DB struct {
	conn *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS alert_thresholds (
		day TEXT NOT NULL,
		symbol TEXT NOT NULL,
		threshold REAL NOT NULL,
		PRIMARY KEY (day, symbol)
	);`,
	`CREATE TABLE IF NOT EXISTS alert_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day TEXT NOT NULL,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL,
		price REAL NOT NULL,
		change_pct REAL NOT NULL,
		threshold REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS alert_history_day ON alert_history (day);`,
	`CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`,
}

// Open connects to the database at path and creates missing tables
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	// sqlite allows a single writer
	conn.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "failed to create schema")
		}
	}

	log.Debugf("Database %s initialized successfully.", path)
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
