package model

// OutcomeKind is the terminal state of the classification of one line.
type OutcomeKind int

const (
	OutcomeDiscarded OutcomeKind = iota + 1
	OutcomeCritical
	OutcomeManual
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeCritical:
		return "critical"
	case OutcomeManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Outcome is the single classification result of a matched line.
// Reason is set for discards; Category and Pattern for critical findings.
type Outcome struct {
	Kind      OutcomeKind
	Reason    DiscardReason
	Category  Category
	Pattern   string
	Rationale string
}

// Discard builds a discarded outcome.
func Discard(reason DiscardReason, pattern string) Outcome {
	return Outcome{Kind: OutcomeDiscarded, Reason: reason, Pattern: pattern}
}

// Critical builds a critical outcome.
func Critical(category Category, pattern, rationale string) Outcome {
	return Outcome{Kind: OutcomeCritical, Category: category, Pattern: pattern, Rationale: rationale}
}

// Manual builds a manual-review outcome.
func Manual(rationale string) Outcome {
	return Outcome{Kind: OutcomeManual, Category: CategoryManualReview, Rationale: rationale}
}
