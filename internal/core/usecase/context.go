package usecase

import (
	"fmt"
	"strings"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

// ContextBlock is the assembled text handed to the generation step.
type ContextBlock struct {
	SystemPrompt string
	Text         string
	Grounded     bool
	Escalated    bool
}

const groundedSystemPrompt = `Eres el asistente de admisiones de la universidad. RESPUESTAS CORTAS.

REGLAS:
- Usa la respuesta de la FAQ más relevante DIRECTAMENTE, sin expandirla ni reformularla
- No agregues saludos ni introducciones
- Máximo 3 líneas
- Termina con una pregunta de seguimiento`

const ungroundedSystemPrompt = `Eres el asistente de admisiones de la universidad.
No encontraste información para esta pregunta. Sigue las instrucciones del mensaje del usuario al pie de la letra.`

// AssembleContext renders retrieved entries into a bounded context block, or
// one of the two fallback instructions when retrieval came back empty. The
// branch is keyed purely on (context availability, failure streak).
func AssembleContext(results []domain.RetrievedEntry, query string, failureCount int, maxChars, escalateAfter int) ContextBlock {
	if len(results) == 0 {
		if failureCount >= escalateAfter {
			return ContextBlock{
				SystemPrompt: ungroundedSystemPrompt,
				Text:         escalationBlock(query, failureCount),
				Escalated:    true,
			}
		}
		return ContextBlock{
			SystemPrompt: ungroundedSystemPrompt,
			Text:         rephraseBlock(query),
		}
	}

	return ContextBlock{
		SystemPrompt: groundedSystemPrompt,
		Text:         groundedBlock(results, query, maxChars),
		Grounded:     true,
	}
}

const entrySeparator = "\n\n---\n\n"

// groundedBlock renders whole entries until the character budget runs out.
// An entry is never split from its answer: if the next one does not fit, it
// is dropped entirely. Only when not even the first entry fits is it cut.
// The header and footer count against the budget, and the final string is
// hard-capped at maxChars runes so the block never exceeds the maximum.
func groundedBlock(results []domain.RetrievedEntry, query string, maxChars int) string {
	footer := fmt.Sprintf(`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

Pregunta: %s

INSTRUCCIONES:
- Responde ÚNICAMENTE con la información de las FAQs anteriores
- Usa la respuesta de la FAQ más relevante directamente
- Máximo 3 líneas y una pregunta de seguimiento al final`, query)

	header := "FAQs relevantes de la base de conocimiento:\n\n"
	budget := maxChars - runeLen(header) - runeLen(footer) - 2

	var entries []string
	used := 0
	for i, result := range results {
		block := renderEntry(i+1, result)
		cost := runeLen(block)
		if len(entries) > 0 {
			cost += runeLen(entrySeparator)
		}
		if used+cost > budget {
			if len(entries) == 0 && budget > 0 {
				entries = append(entries, cutRunes(block, budget))
			}
			break
		}
		entries = append(entries, block)
		used += cost
	}

	out := header + strings.Join(entries, entrySeparator) + "\n\n" + footer
	return cutRunes(out, maxChars)
}

func runeLen(s string) int { return len([]rune(s)) }

// cutRunes caps s at max runes so multibyte text never splits mid-character.
func cutRunes(s string, max int) string {
	if max < 0 {
		max = 0
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func renderEntry(position int, result domain.RetrievedEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[FAQ %d] (Relevancia: %.1f%%)\n", position, result.Similarity*100)
	category := result.Category
	if category == "" {
		category = "General"
	}
	fmt.Fprintf(&b, "Categoría: %s\n", category)
	fmt.Fprintf(&b, "Pregunta: %s\n", result.Question)
	fmt.Fprintf(&b, "Respuesta: %s", result.Answer)
	if len(result.Keywords) > 0 {
		fmt.Fprintf(&b, "\nPalabras clave: %s", strings.Join(result.Keywords, ", "))
	}
	return b.String()
}

func rephraseBlock(query string) string {
	return fmt.Sprintf(`No se encontró información relevante en la base de conocimiento.

Pregunta del usuario: %s

Instrucciones:
Responde que no encontraste información sobre eso y pide al usuario que
reformule la pregunta con otras palabras, de forma amigable y breve.`, query)
}

func escalationBlock(query string, failureCount int) string {
	return fmt.Sprintf(`No se encontró información relevante por %d turnos seguidos.

Pregunta del usuario: %s

Instrucciones:
Discúlpate por no poder ayudar tras varios intentos. Indica al usuario que
puede encontrar más información en el sitio web oficial o escribir por redes
sociales. Reconoce explícitamente que no pudiste responder sus últimas
preguntas. Breve y amable.`, failureCount, query)
}
