package memory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

// Resolution heuristic: rewrite ambiguous follow-ups into self-contained
// search queries using the topic named by a recent assistant turn. Best
// effort: when nothing applies the raw query passes through unchanged.

var (
	ambiguousShape = regexp.MustCompile(`^(si|sí|ok|dale|la de |el de |esa|ese|esta|este|dame|dime|quiero|cuál|cual|y eso|y ese|y esa)`)

	durationShape = regexp.MustCompile(`cuanto dura|cuánto dura|duración|duracion`)
	workShape     = regexp.MustCompile(`donde trabaja|dónde trabaja|campo laboral|salida laboral|trabajo`)
	costShape     = regexp.MustCompile(`cuanto cuesta|cuánto cuesta|precio|costo`)
	confirmShape  = regexp.MustCompile(`^(si|sí|ok|dale)[.!¡¿?\s]*$`)
	entityRef     = regexp.MustCompile(`^(?:la de|el de|de)\s+(\p{L}+)$`)
)

// Common academic abbreviations users type for specific programs.
var abbreviations = map[string]string{
	"ia":       "inteligencia artificial",
	"ai":       "inteligencia artificial",
	"ciber":    "ciberseguridad",
	"robotica": "robótica",
	"electro":  "electromedicina",
	"petro":    "petroquímica",
	"bio":      "biotecnología",
	"datos":    "ciencia de datos",
	"nano":     "nanotecnología",
	"fisica":   "física",
	"mate":     "matemáticas",
	"filo":     "filosofía",
}

// Resolve rewrites raw into a self-contained query when it is ambiguous and a
// recent assistant turn names a topic. The second return reports whether a
// rewrite happened.
func Resolve(raw string, recentTurns []domain.Turn) (string, bool) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return raw, false
	}
	normalized := strings.ToLower(strings.Trim(query, "¿?¡!.,"))

	if expanded, ok := expandAbbreviation(normalized); ok {
		return expanded, true
	}

	if len(query) >= 40 || !ambiguousShape.MatchString(normalized) {
		return raw, false
	}

	topic := lastAssistantTopic(recentTurns)
	if topic == "" {
		return raw, false
	}

	switch {
	case durationShape.MatchString(normalized):
		return fmt.Sprintf("¿cuánto dura %s?", topic), true
	case workShape.MatchString(normalized):
		return fmt.Sprintf("¿dónde puede trabajar un profesional en %s?", topic), true
	case costShape.MatchString(normalized):
		return fmt.Sprintf("¿cuánto cuesta estudiar %s?", topic), true
	case confirmShape.MatchString(normalized):
		return fmt.Sprintf("información sobre %s", topic), true
	default:
		return fmt.Sprintf("%s sobre %s", query, topic), true
	}
}

// expandAbbreviation handles "la de ia", "el de ciber" style references that
// are unambiguous on their own once the abbreviation is spelled out.
func expandAbbreviation(normalized string) (string, bool) {
	m := entityRef.FindStringSubmatch(normalized)
	if m == nil {
		return "", false
	}
	keyword := m[1]
	full, ok := abbreviations[keyword]
	if !ok {
		full = keyword
	}
	return fmt.Sprintf("¿qué es %s?", full), true
}

// lastAssistantTopic scans newest-first for an assistant turn whose metadata
// names a topic or category.
func lastAssistantTopic(turns []domain.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if turn.Role != domain.RoleAssistant {
			continue
		}
		if turn.Metadata.Topic != "" {
			return turn.Metadata.Topic
		}
		if turn.Metadata.Category != "" {
			return turn.Metadata.Category
		}
	}
	return ""
}
