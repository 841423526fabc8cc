package domain

import "time"

// QueryType is a coarse classification of the query's purpose, used to tune
// retrieval parameters and decide whether context resolution applies.
type QueryType string

const (
	QueryGreeting   QueryType = "greeting"
	QueryBotInfo    QueryType = "bot_info"
	QueryAdmission  QueryType = "admission"
	QueryCurriculum QueryType = "curriculum"
	QueryLocation   QueryType = "location"
	QueryCost       QueryType = "cost"
	QuerySchedule   QueryType = "schedule"
	QueryComparison QueryType = "comparison"
	QueryFollowUp   QueryType = "followup"
	QueryCareerInfo QueryType = "career_info"
	QueryUnknown    QueryType = "unknown"
)

// SearchParams tunes the vector search for a query type.
type SearchParams struct {
	TopK      int
	Threshold float64
}

// AskRequest is the validated inbound question.
type AskRequest struct {
	Message   string
	SessionID string
	Streaming bool
}

// AnswerMetadata describes how an answer was produced.
type AnswerMetadata struct {
	Duration      time.Duration `json:"-"`
	DurationMs    int64         `json:"duration_ms"`
	FAQsCount     int           `json:"faqs_count"`
	TopSimilarity float64       `json:"top_similarity"`
	QueryType     QueryType     `json:"query_type"`
	FromCache     bool          `json:"from_cache"`
	Model         string        `json:"model,omitempty"`
	TokensUsed    int           `json:"tokens_used,omitempty"`
}

// Answer is the pipeline result for one question.
type Answer struct {
	Text      string         `json:"answer"`
	SessionID string         `json:"session_id"`
	Sources   []SourceRef    `json:"sources"`
	Metadata  AnswerMetadata `json:"metadata"`
}

// Generation is the raw output of the generation client.
type Generation struct {
	Text       string
	TokensUsed int
	ModelID    string
}

// AnalyticsEvent is the fire-and-forget record emitted per answered query.
type AnalyticsEvent struct {
	ID               string    `json:"id"`
	Query            string    `json:"query"`
	MatchedIDs       []string  `json:"matched_ids"`
	SimilarityScores []float64 `json:"similarity_scores"`
	LatencyMs        int64     `json:"latency_ms"`
	SessionID        string    `json:"session_id"`
	QueryType        QueryType `json:"query_type"`
	FromCache        bool      `json:"from_cache"`
	CreatedAt        time.Time `json:"created_at"`
}
