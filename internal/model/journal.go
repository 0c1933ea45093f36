package model

import "time"

// ScanStatus is the outcome of a scan triggered from this client.
type ScanStatus string

const (
	// ScanSucceeded means the backend accepted and completed the scan.
	ScanSucceeded ScanStatus = "succeeded"

	// ScanFailed means the scan request returned an error.
	ScanFailed ScanStatus = "failed"
)

// ScanRecord is one entry of the local scan journal.
type ScanRecord struct {
	ID              int64         `json:"id"`
	CompetitorID    string        `json:"competitor_id"`
	CompetitorName  string        `json:"competitor_name"`
	Status          ScanStatus    `json:"status"`
	Message         string        `json:"message,omitempty"`
	ChangesDetected int           `json:"changes_detected"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
	Timestamp       time.Time     `json:"timestamp"`
}
