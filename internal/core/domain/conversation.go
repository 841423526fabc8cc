package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TurnMetadata carries what the pipeline inferred about a turn. The resolver
// reads Topic/Category from recent assistant turns to rewrite follow-ups.
type TurnMetadata struct {
	QueryType QueryType `json:"query_type,omitempty"`
	Category  string    `json:"category,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	NoContext bool      `json:"no_context,omitempty"`
}

// Turn is one message in a session's rolling window.
type Turn struct {
	Role      string       `json:"role"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Metadata  TurnMetadata `json:"metadata"`
}
