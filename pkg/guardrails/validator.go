// Package guardrails implements deterministic, auditable content-safety
// checks: sensitivity detection, toxicity filtering, data loss prevention and
// PII privacy, combined into a single aggregated verdict.
package guardrails

import "regexp"

// Validator runs the four content-safety evaluators against one authoritative
// rule set. Construct one per process and share it: the compiled pattern
// tables are read-only and safe for concurrent use.
type Validator struct {
	sensitive []sensitiveCategory
	toxic     []*regexp.Regexp
	dlp       []redactionCategory
	pii       []redactionCategory
}

// NewValidator creates a validator backed by the canonical rule set
func NewValidator() *Validator {
	return &Validator{
		sensitive: sensitivePatterns,
		toxic:     toxicPatterns,
		dlp:       dlpPatterns,
		pii:       piiPatterns,
	}
}

// ValidateAll runs every evaluator on the content and combines the results
// into one Verdict. Each evaluator sees the original text; only the final
// content is composed sequentially, DLP redaction first, privacy redaction
// applied on top of whatever the DLP pass produced. Given the static rule
// tables the call is pure.
func (v *Validator) ValidateAll(content string) *Verdict {
	sensitivityResult := v.CheckSensitivity(content)
	toxicityResult := v.CheckToxicity(content)
	dlpResult := v.CheckDataLossPrevention(content)
	privacyResult := v.CheckDataPrivacy(content)

	finalContent := content
	if len(dlpResult.Issues) > 0 {
		finalContent = dlpResult.RedactedContent
	}
	if len(privacyResult.Issues) > 0 {
		finalContent, _ = applyRedactions(v.pii, finalContent, "PII detected: %s")
	}

	var status Status
	switch {
	case len(toxicityResult.Issues) > 0:
		status = StatusBlocked
	case len(dlpResult.Issues) > 0 || len(privacyResult.Issues) > 0:
		status = StatusModified
	case len(sensitivityResult.Issues) > 0:
		status = StatusReviewRequired
	default:
		status = StatusApproved
	}

	return &Verdict{
		OverallStatus: status,
		ShouldBlock:   len(toxicityResult.Issues) > 0,
		ShouldRedact:  len(dlpResult.Issues) > 0 || len(privacyResult.Issues) > 0,
		FinalContent:  finalContent,
		Checks: map[string]CheckSummary{
			"sensitivity":          sensitivityResult.summary(),
			"toxicity":             toxicityResult.summary(),
			"data_loss_prevention": dlpResult.summary(),
			"data_privacy":         privacyResult.summary(),
		},
	}
}
