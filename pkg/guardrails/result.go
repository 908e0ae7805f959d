package guardrails

// Severity classifies how serious a finding is. Severities are totally
// ordered: low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank returns the position of the severity in the total order
func (s Severity) rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Max returns the higher of the two severities
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Recommendation is the action a single evaluator suggests for the content
type Recommendation string

const (
	RecommendationApproved             Recommendation = "approved"
	RecommendationReviewRecommended    Recommendation = "review_recommended"
	RecommendationBlocked              Recommendation = "blocked"
	RecommendationBlockedWithRedaction Recommendation = "blocked_with_redaction"
)

// Status is the aggregate decision across all evaluators
type Status string

const (
	StatusApproved       Status = "approved"
	StatusReviewRequired Status = "review_required"
	StatusModified       Status = "modified"
	StatusBlocked        Status = "blocked"
)

// Result is the outcome of one evaluator. Results are constructed fresh per
// evaluation, never mutated afterwards, and consumed immediately by the
// aggregator.
type Result struct {
	Passed          bool           `json:"passed"`
	Severity        Severity       `json:"severity"`
	Issues          []string       `json:"issues"`
	RedactedContent string         `json:"redacted_content,omitempty"`
	Recommendation  Recommendation `json:"recommendation"`
}

// CheckSummary is the per-evaluator slice of a verdict exposed to callers
type CheckSummary struct {
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Issues   []string `json:"issues"`
}

// Verdict combines all evaluator results for one text into a single decision.
// Precedence is fixed: toxicity > (DLP or privacy) > sensitivity > clean.
type Verdict struct {
	OverallStatus Status                  `json:"overall_status"`
	ShouldBlock   bool                    `json:"should_block"`
	ShouldRedact  bool                    `json:"should_redact"`
	FinalContent  string                  `json:"final_content"`
	Checks        map[string]CheckSummary `json:"checks"`
}

// summary converts a Result to the caller-facing check summary
func (r Result) summary() CheckSummary {
	issues := r.Issues
	if issues == nil {
		issues = []string{}
	}
	return CheckSummary{
		Passed:   r.Passed,
		Severity: r.Severity,
		Issues:   issues,
	}
}
