package model

// ExtractedFacts holds the lightweight facts pulled out of a message.
// It is derived purely from the input text and never modified afterwards.
type ExtractedFacts struct {
	Claims  []string `json:"claims"`  // First sentences of the normalized text (at most 5)
	Dates   []string `json:"dates"`   // Deduplicated, first-seen order
	Numbers []string `json:"numbers"` // Deduplicated, first-seen order
	Names   []string `json:"names"`   // Capitalized word sequences
	Links   []string `json:"links"`   // http(s) tokens as they appear in the text
}

// IsEmpty reports whether no category holds any item
func (f ExtractedFacts) IsEmpty() bool {
	return len(f.Claims) == 0 && len(f.Dates) == 0 && len(f.Numbers) == 0 &&
		len(f.Names) == 0 && len(f.Links) == 0
}

// CandidateSources are links believed to be the origin of the claimed content
type CandidateSources struct {
	Sources []string `json:"sources"`
}
