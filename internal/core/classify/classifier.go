// Package classify assigns an intent to raw user input with fast pattern
// matching. Classification is a pure function: no I/O, no failure mode.
package classify

import (
	"regexp"
	"strings"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

// rule is one entry of the ordered dispatch table. Rules are evaluated
// top-to-bottom and the first match wins.
type rule struct {
	queryType domain.QueryType
	pattern   *regexp.Regexp
}

// Anchored rules match the start of the query; unanchored ones match anywhere.
// Order matters: the anchored conversational shapes (greeting, bot identity,
// follow-up openers) must win over the broader keyword rules below them, or
// "y eso cuánto dura" would land on the curriculum rule.
var rules = []rule{
	{domain.QueryGreeting, regexp.MustCompile(`^(hola|buenas|hey|saludos|buenos días|buenas tardes|buenas noches)`)},
	{domain.QueryBotInfo, regexp.MustCompile(`^(que eres|qué eres|que haces|quien eres|quién eres|que modelo|como funcionas|que puedes hacer)`)},
	{domain.QueryFollowUp, regexp.MustCompile(`^(y eso|y ese|y esa|cuentame|cuéntame|dame mas|dame más|mas info|más info|detalles|explica|amplia|amplía)`)},
	{domain.QueryAdmission, regexp.MustCompile(`inscri|admisi|requisito|documento|como me inscribo|como entrar|como estudiar`)},
	{domain.QueryCurriculum, regexp.MustCompile(`semestre|materia|pensum|malla|curricul|que veo en|cuanto dura|cuánto dura`)},
	{domain.QueryLocation, regexp.MustCompile(`donde|dónde|ubicaci|direcci|como llego|localizar|queda`)},
	{domain.QueryCost, regexp.MustCompile(`cuanto|cuánto|costo|precio|beca|gratis|pagos?|financiamiento`)},
	{domain.QuerySchedule, regexp.MustCompile(`horario|cuando|cuándo|fecha|abre|cierra|dias|días|hora`)},
	{domain.QueryComparison, regexp.MustCompile(`diferencia|comparar|mejor|vs|versus|contra`)},
	{domain.QueryCareerInfo, regexp.MustCompile(`carrera|ingenier|licenciatura|que es|qué es|informacion sobre|información sobre`)},
}

// Classify returns the intent for the given text, or QueryUnknown when no
// rule matches. Same input always yields the same label. Surrounding
// punctuation is stripped so "¿y eso?" anchors the same as "y eso".
func Classify(text string) domain.QueryType {
	q := strings.Trim(strings.ToLower(strings.TrimSpace(text)), "¿?¡!.,")
	q = strings.TrimSpace(q)
	if q == "" {
		return domain.QueryUnknown
	}
	for _, r := range rules {
		if r.pattern.MatchString(q) {
			return r.queryType
		}
	}
	return domain.QueryUnknown
}

// searchParams maps each intent to its retrieval tuning. Near-exact intents
// (greeting, bot identity) want a single high-confidence match; open-ended
// ones cast a wider net.
var searchParams = map[domain.QueryType]domain.SearchParams{
	domain.QueryGreeting:   {TopK: 1, Threshold: 0.9},
	domain.QueryBotInfo:    {TopK: 1, Threshold: 0.9},
	domain.QueryCareerInfo: {TopK: 5, Threshold: 0.7},
	domain.QueryCurriculum: {TopK: 3, Threshold: 0.75},
	domain.QueryAdmission:  {TopK: 3, Threshold: 0.75},
	domain.QueryLocation:   {TopK: 3, Threshold: 0.75},
	domain.QueryCost:       {TopK: 3, Threshold: 0.7},
	domain.QuerySchedule:   {TopK: 3, Threshold: 0.7},
	domain.QueryComparison: {TopK: 4, Threshold: 0.7},
	domain.QueryFollowUp:   {TopK: 2, Threshold: 0.6},
	domain.QueryUnknown:    {TopK: 5, Threshold: 0.7},
}

// ParamsFor returns the (topK, threshold) tuning tuple for a query type.
func ParamsFor(queryType domain.QueryType) domain.SearchParams {
	if params, ok := searchParams[queryType]; ok {
		return params
	}
	return searchParams[domain.QueryUnknown]
}

// NeedsResolution reports whether queries of this type are candidates for
// context resolution against conversation memory.
func NeedsResolution(queryType domain.QueryType) bool {
	switch queryType {
	case domain.QueryFollowUp, domain.QueryComparison, domain.QueryUnknown:
		return true
	default:
		return false
	}
}
