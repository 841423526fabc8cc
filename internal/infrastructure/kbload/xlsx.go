package kbload

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

// LoadXLSX reads the first sheet. Expected header columns, in any order:
// id, question, answer, category, keywords, active. Keywords are
// comma-separated in a single cell.
func LoadXLSX(path string) ([]domain.KnowledgeEntry, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("xlsx sheet has no data rows")
	}

	columns := map[string]int{}
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"question", "answer"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("xlsx sheet missing %q column", required)
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	entries := make([]domain.KnowledgeEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}

		var active *bool
		if raw := strings.TrimSpace(cell(row, "active")); raw != "" {
			value := parseBoolCell(raw)
			active = &value
		}

		entry, err := record{
			id:       cell(row, "id"),
			question: cell(row, "question"),
			answer:   cell(row, "answer"),
			category: cell(row, "category"),
			keywords: splitKeywords(cell(row, "keywords")),
			active:   active,
		}.toEntry(i + 2)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no faqs found in xlsx file")
	}
	return entries, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseBoolCell(raw string) bool {
	switch strings.ToLower(raw) {
	case "false", "no", "0":
		return false
	default:
		return true
	}
}
