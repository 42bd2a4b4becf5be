package extract

import "strings"

// extractClaims returns the first sentences of the whitespace-normalized text
func extractClaims(text string) []string {
	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return []string{}
	}

	sentences := splitSentences(normalized)
	if len(sentences) > maxClaims {
		sentences = sentences[:maxClaims]
	}
	return sentences
}

// normalizeWhitespace collapses whitespace runs into single spaces and trims
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences splits normalized text after '.', '!' or '?' followed by a space
func splitSentences(text string) []string {
	sentences := []string{}
	var current strings.Builder

	for i := 0; i < len(text); i++ {
		c := text[i]
		current.WriteByte(c)

		if c == '.' || c == '!' || c == '?' {
			if i+1 < len(text) && text[i+1] == ' ' {
				if sentence := strings.TrimSpace(current.String()); sentence != "" {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
	}

	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}
