package model

// ResultSource records which stage produced a categorization.
type ResultSource string

// Result source constants.
const (
	SourceRule      ResultSource = "rule"
	SourceSecondary ResultSource = "secondary"
)

// CategorizationResult is a suggested category for one transaction.
type CategorizationResult struct {
	MatchedRule *Rule // Nil unless Source is SourceRule
	CategoryID  string
	Source      ResultSource
	Confidence  float64
}
