package guardrails

import "fmt"

// CheckSensitivity scans for sensitive topics (medical, financial, legal).
// A match lowers Passed and raises the severity to the maximum among matched
// categories, but only ever recommends review: this check never blocks and
// never redacts.
func (v *Validator) CheckSensitivity(content string) Result {
	var issues []string
	maxSeverity := SeverityLow

	for _, category := range v.sensitive {
		for _, pattern := range category.patterns {
			if pattern.MatchString(content) {
				issues = append(issues, fmt.Sprintf("Sensitive topic detected: %s", category.name))
				maxSeverity = maxSeverity.Max(category.severity)
			}
		}
	}

	issues = dedupe(issues)
	recommendation := RecommendationApproved
	if len(issues) > 0 {
		recommendation = RecommendationReviewRecommended
	}

	return Result{
		Passed:         len(issues) == 0,
		Severity:       maxSeverity,
		Issues:         issues,
		Recommendation: recommendation,
	}
}

// CheckToxicity scans for toxic, harmful or hateful language. Toxicity is
// binary, not enumerated: at most one generic issue is reported and scanning
// stops at the first matching rule.
func (v *Validator) CheckToxicity(content string) Result {
	var issues []string

	for _, pattern := range v.toxic {
		if pattern.MatchString(content) {
			issues = append(issues, "Toxic or harmful language detected")
			break
		}
	}

	severity := SeverityLow
	recommendation := RecommendationApproved
	if len(issues) > 0 {
		severity = SeverityCritical
		recommendation = RecommendationBlocked
	}

	return Result{
		Passed:         len(issues) == 0,
		Severity:       severity,
		Issues:         issues,
		Recommendation: recommendation,
	}
}

// CheckDataLossPrevention scans for secrets and credentials, replacing every
// matched span with the category's fixed redaction token.
func (v *Validator) CheckDataLossPrevention(content string) Result {
	return redactionCheck(v.dlp, content, "Sensitive data detected: %s")
}

// CheckDataPrivacy scans for PII, replacing every matched span with the
// category's fixed redaction token. Category confidence weights are carried
// in the pattern table but do not gate blocking.
func (v *Validator) CheckDataPrivacy(content string) Result {
	return redactionCheck(v.pii, content, "PII detected: %s")
}

// redactionCheck runs an ordered redaction table over the content. Each rule
// operates on the output of the previous one, so spans already replaced by an
// earlier category are not re-matched.
func redactionCheck(categories []redactionCategory, content string, issueFormat string) Result {
	redacted, issues := applyRedactions(categories, content, issueFormat)

	severity := SeverityLow
	recommendation := RecommendationApproved
	redactedContent := ""
	if len(issues) > 0 {
		severity = SeverityCritical
		recommendation = RecommendationBlockedWithRedaction
		redactedContent = redacted
	}

	return Result{
		Passed:          len(issues) == 0,
		Severity:        severity,
		Issues:          issues,
		RedactedContent: redactedContent,
		Recommendation:  recommendation,
	}
}

// applyRedactions substitutes redaction tokens for every match and returns
// the rewritten text plus one deduplicated issue per matched category.
func applyRedactions(categories []redactionCategory, content string, issueFormat string) (string, []string) {
	redacted := content
	var issues []string

	for _, category := range categories {
		for _, pattern := range category.patterns {
			if pattern.MatchString(redacted) {
				issues = append(issues, fmt.Sprintf(issueFormat, category.name))
				redacted = pattern.ReplaceAllString(redacted, category.redaction)
			}
		}
	}

	return redacted, dedupe(issues)
}

// dedupe removes duplicate issues preserving first-occurrence order
func dedupe(issues []string) []string {
	if len(issues) < 2 {
		return issues
	}

	seen := make(map[string]struct{}, len(issues))
	out := issues[:0]
	for _, issue := range issues {
		if _, ok := seen[issue]; ok {
			continue
		}
		seen[issue] = struct{}{}
		out = append(out, issue)
	}
	return out
}
