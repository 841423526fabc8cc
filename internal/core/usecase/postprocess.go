package usecase

import "strings"

// TruncateAtSentence enforces the output-length ceiling. Downstream chat
// surfaces have hard caps, so the answer is cut at the last sentence boundary
// under the limit, falling back to a newline, then a word boundary, then a
// hard cut. Limits are in runes so multibyte text never splits mid-character.
func TruncateAtSentence(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	const ellipsis = "..."
	cut := maxChars - len([]rune(ellipsis))
	if cut <= 0 {
		return string(runes[:maxChars])
	}
	window := runes[:cut]

	if idx := lastIndexAny(window, ".!?"); idx > cut/2 {
		return strings.TrimRight(string(window[:idx+1]), " ")
	}
	if idx := lastIndexAny(window, "\n"); idx > cut/2 {
		return strings.TrimRight(string(window[:idx]), " \n")
	}
	if idx := lastIndexAny(window, " "); idx > 0 {
		return string(window[:idx]) + ellipsis
	}
	return string(window) + ellipsis
}

func lastIndexAny(runes []rune, chars string) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if strings.ContainsRune(chars, runes[i]) {
			return i
		}
	}
	return -1
}
