package models

// GenerationResult is the outcome of a successful generation. DocumentText is
// never empty; DocumentID is set only when the document was saved.
type GenerationResult struct {
	DocumentText string `json:"documentText"`
	DocumentID   string `json:"documentId,omitempty"`
}

// ReviewResult is the structured critique of a document. Collections are
// never nil so they serialize as [] rather than null.
type ReviewResult struct {
	Score            int      `json:"score"`
	Summary          string   `json:"summary"`
	MissingSections  []string `json:"missingSections"`
	OutdatedWarnings []string `json:"outdatedWarnings"`
	Improvements     []string `json:"improvements"`
	Positives        []string `json:"positives"`
}
