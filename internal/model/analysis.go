package model

// MaxSources is the upper bound on sources returned by an analysis
const MaxSources = 3

// Analysis is the sanitized answer of the language model
type Analysis struct {
	Summary string   `json:"summary"`
	Sources []Source `json:"sources"`
}

// Source is a candidate origin proposed by the model
type Source struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"` // Always within [0,1]
	Reason     string  `json:"reason"`
}
