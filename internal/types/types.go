package types

import "time"

const (
	StatusChecked = "checked"
	StatusError   = "error"
)

// Symbol maps a quote identifier to its display name
type Symbol struct {
	Symbol string `json:"symbol" mapstructure:"symbol"`
	Name   string `json:"name" mapstructure:"name"`
}

// CheckResult is the outcome of checking one symbol during a cycle
type CheckResult struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name,omitempty"`
	Price       float64  `json:"price,omitempty"`
	ChangePct   float64  `json:"change_pct"`
	Status      string   `json:"status"`
	AlertSent   bool     `json:"alert_sent"`
	Threshold   *float64 `json:"threshold,omitempty"`
	NotifyError string   `json:"notify_error,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Checked reports whether the symbol was fetched successfully
func (r CheckResult) Checked() bool {
	return r.Status == StatusChecked
}

// Snapshot aggregates the results of one check cycle
type Snapshot struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Results   []CheckResult `json:"results,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// AlertRecord is a fired alert kept in the alert history
type AlertRecord struct {
	ID        int64     `json:"id"`
	Day       string    `json:"day"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	Threshold float64   `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}
