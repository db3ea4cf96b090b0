package domain

import "time"

// RequestSample carries the observations recorded after one companion request.
// Confidence is optional; a nil pointer means the router produced no score.
type RequestSample struct {
	Category     string
	Language     string
	ResponseTime time.Duration
	Confidence   *float64
	Err          error
}

// RequestError is one entry in the recorder's bounded error history.
type RequestError struct {
	Category   string
	Message    string
	OccurredAt time.Time
}

// MetricsSummary aggregates recorder state for periodic logging and the admin API.
type MetricsSummary struct {
	TotalRequests   uint64
	TotalErrors     uint64
	ErrorRate       float64
	AvgResponseTime time.Duration
	P50ResponseTime time.Duration
	P95ResponseTime time.Duration
	P99ResponseTime time.Duration
	AvgConfidence   float64
	CategoryUsage   map[string]uint64
	LanguageUsage   map[string]uint64
	RecentErrors    []RequestError
	GeneratedAt     time.Time
}
