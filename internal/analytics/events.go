package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventQueryError EventType = "query_error"
	EventReload     EventType = "index_reload"
)

// SearchEvent describes one served query.
type SearchEvent struct {
	Type         EventType `json:"type"`
	Mode         string    `json:"mode"`
	Scheme       string    `json:"scheme,omitempty"`
	Query        string    `json:"query"`
	TotalHits    int       `json:"total_hits"`
	Returned     int       `json:"returned"`
	UnknownTerms []string  `json:"unknown_terms,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Generation   uint64    `json:"generation"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
}

// ReloadEvent describes an index swap.
type ReloadEvent struct {
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// envelope lets one topic carry both event kinds; Type decides which
// fields are meaningful.
type envelope struct {
	Type EventType `json:"type"`
}
