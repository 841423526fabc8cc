package domain

// CachedAnswer is the payload stored per cache entry: everything needed to
// answer a near-duplicate question without retrieval or generation.
type CachedAnswer struct {
	Text      string      `json:"text"`
	Sources   []SourceRef `json:"sources"`
	QueryType QueryType   `json:"query_type"`
	Model     string      `json:"model,omitempty"`
}
