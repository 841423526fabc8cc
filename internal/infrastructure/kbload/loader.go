// Package kbload parses FAQ knowledge-base files for the loader command.
// YAML is the canonical format; XLSX is accepted for sheets maintained by
// the admissions staff.
package kbload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

// Load parses the file according to its extension.
func Load(path string) ([]domain.KnowledgeEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported knowledge base format: %s", filepath.Ext(path))
	}
}

type record struct {
	id       string
	question string
	answer   string
	category string
	keywords []string
	active   *bool
}

func (r record) toEntry(position int) (domain.KnowledgeEntry, error) {
	question := strings.TrimSpace(r.question)
	answer := strings.TrimSpace(r.answer)
	if question == "" {
		return domain.KnowledgeEntry{}, fmt.Errorf("entry %d: question is empty", position)
	}
	if answer == "" {
		return domain.KnowledgeEntry{}, fmt.Errorf("entry %d: answer is empty", position)
	}

	id := strings.TrimSpace(r.id)
	if id == "" {
		id = uuid.NewString()
	}

	active := true
	if r.active != nil {
		active = *r.active
	}

	keywords := make([]string, 0, len(r.keywords))
	for _, keyword := range r.keywords {
		if k := strings.TrimSpace(keyword); k != "" {
			keywords = append(keywords, strings.ToLower(k))
		}
	}

	return domain.KnowledgeEntry{
		ID:       id,
		Question: question,
		Answer:   answer,
		Category: strings.TrimSpace(strings.ToLower(r.category)),
		Keywords: keywords,
		IsActive: active,
	}, nil
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
