package domain

import "time"

// KnowledgeEntry is a stored question/answer unit eligible for retrieval.
// Entries are written by the loader and read-only for the answering pipeline.
type KnowledgeEntry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RetrievedEntry is a knowledge entry paired with its cosine similarity
// against the query embedding. Similarity is in [-1, 1].
type RetrievedEntry struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Similarity float64  `json:"similarity"`
}

// SourceRef is the caller-facing projection of a retrieved entry.
type SourceRef struct {
	ID         string  `json:"id"`
	Question   string  `json:"question"`
	Category   string  `json:"category,omitempty"`
	Similarity float64 `json:"similarity"`
}

func (e RetrievedEntry) SourceRef() SourceRef {
	return SourceRef{
		ID:         e.ID,
		Question:   e.Question,
		Category:   e.Category,
		Similarity: e.Similarity,
	}
}
