package kbload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

type yamlEntry struct {
	ID       string   `yaml:"id"`
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Active   *bool    `yaml:"active"`
}

type yamlFile struct {
	FAQs []yamlEntry `yaml:"faqs"`
}

func LoadYAML(path string) ([]domain.KnowledgeEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml file: %w", err)
	}
	return ParseYAML(raw)
}

func ParseYAML(raw []byte) ([]domain.KnowledgeEntry, error) {
	var file yamlFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(file.FAQs) == 0 {
		return nil, fmt.Errorf("no faqs found in yaml file")
	}

	entries := make([]domain.KnowledgeEntry, 0, len(file.FAQs))
	for i, item := range file.FAQs {
		entry, err := record{
			id:       item.ID,
			question: item.Question,
			answer:   item.Answer,
			category: item.Category,
			keywords: item.Keywords,
			active:   item.Active,
		}.toEntry(i + 1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
