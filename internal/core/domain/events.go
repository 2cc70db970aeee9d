package domain

// Event names carried on the fetch/analysis event subjects.
const (
	EventDataAvailable     = "data_available"
	EventFetchFailed       = "fetch_failed"
	EventAnalysisCompleted = "analysis_completed"
	EventAnalysisFailed    = "analysis_failed"
)

// FetchEvent is the inbound envelope published by the fetcher service.
// Only Event, Chat and Date are mandatory; the rest is informational.
type FetchEvent struct {
	Event           string  `json:"event"`
	Chat            string  `json:"chat"`
	Date            string  `json:"date"`
	MessageCount    int     `json:"message_count,omitempty"`
	FilePath        string  `json:"file_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Timestamp       string  `json:"timestamp,omitempty"`
	Service         string  `json:"service,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// AnalysisEvent is the outbound completion envelope published after each
// dispatched run, successful or not.
type AnalysisEvent struct {
	Event           string  `json:"event"`
	Chat            string  `json:"chat"`
	Date            string  `json:"date"`
	Discussions     int     `json:"discussions"`
	TokensUsed      int     `json:"tokens_used,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
	Batch           int     `json:"batch,omitempty"`
	Timestamp       string  `json:"timestamp"`
	Service         string  `json:"service"`
}
