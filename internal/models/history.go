package models

import "time"

// SearchHistoryEntry records one settled search submission.
type SearchHistoryEntry struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id,omitempty"`
	Generation       uint64    `json:"generation"`
	City             string    `json:"city"`
	Area             string    `json:"area"`
	MaxPriceText     string    `json:"max_price"`
	PropertyCategory string    `json:"property_category"`
	PropertyType     string    `json:"property_type"`
	Source           string    `json:"source"`
	State            string    `json:"state"`
	Strategy         string    `json:"strategy,omitempty"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	RecordCount      int       `json:"record_count"`
	Dropped          int       `json:"dropped"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}
