package guardrails

import "regexp"

// RuleSetVersion identifies the authoritative pattern tables below. There is
// exactly one rule set per process; bump the version when patterns change so
// audit logs can attribute decisions to the rules that produced them.
const RuleSetVersion = "2025.1"

// sensitiveCategory is an ordered group of match rules sharing a severity
type sensitiveCategory struct {
	name     string
	severity Severity
	patterns []*regexp.Regexp
}

// redactionCategory is an ordered group of match rules sharing a redaction
// token. Confidence is informational only; it does not gate blocking.
type redactionCategory struct {
	name       string
	redaction  string
	confidence float64
	patterns   []*regexp.Regexp
}

// Matching is case-insensitive throughout, hence the (?i) on every rule.

// sensitivePatterns covers topics that inform review state. Matches never
// block and never redact.
var sensitivePatterns = []sensitiveCategory{
	{
		name:     "medical",
		severity: SeverityMedium,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(diagnosis|prescription|medication|symptom|disease|treatment|patient|doctor|hospital|clinic)\b`),
			regexp.MustCompile(`(?i)\b(HIV|AIDS|cancer|diabetes|heart disease|mental illness)\b`),
		},
	},
	{
		name:     "financial",
		severity: SeverityMedium,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(credit card|bank account|loan|mortgage|investment|invested|invest|portfolio|salary|payment|debt|income|expense)\b`),
			regexp.MustCompile(`(?i)[$€£]\d+(,\d{3})*`),
		},
	},
	{
		name:     "legal",
		severity: SeverityMedium,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(lawsuit|defendant|plaintiff|court|judge|attorney|lawyer|legal|contract|agreement|sue|suing)\b`),
			regexp.MustCompile(`(?i)\b(guilty|innocent|verdict|sentence|parole|conviction)\b`),
		},
	},
}

// toxicPatterns covers threats, hate speech, harassment and dehumanizing
// language. Toxicity is binary: the evaluator stops at the first match.
var toxicPatterns = []*regexp.Regexp{
	// Violence and threats, future tense or intent
	regexp.MustCompile(`(?i)\b(will|gonna|going to|im going to|i will|time to|lets?)\s+(kill|murder|hurt|harm|attack|rape|bomb|shoot|assault)\b`),
	regexp.MustCompile(`(?i)\b(kill|murder|harm|assault|attack|bomb|shoot|stab|torture|rape)\s+(my|your|anyone|people|everyone|them|us|the|a)\b`),
	// Standalone bombs/explosives
	regexp.MustCompile(`(?i)\b(bomb|explosives?|detonate|ied)\b`),
	// Hate speech
	regexp.MustCompile(`(?i)\b(hate|despise|detest)\s+\w+`),
	regexp.MustCompile(`(?i)\b(people\s+of\s+(religion|race|ethnicity|nationality))`),
	// Group harm and deportation
	regexp.MustCompile(`(?i)\b(should\s+be\s+(deported|killed|eliminated|removed|destroyed))\b`),
	regexp.MustCompile(`(?i)\b(should\s+all\s+be\s+(deported|killed|eliminated|removed|destroyed))\b`),
	// Harassment: doxxing/swatting
	regexp.MustCompile(`(?i)\b(doxxing|swat|blackmail|extort|haunt|stalk|found.*home.*address|found.*address|organize.*swat)\b`),
	regexp.MustCompile(`(?i)\b(home\s+address|criminal\s+record|everyone\s+should\s+know)\b`),
	// Dehumanizing language
	regexp.MustCompile(`(?i)\b(deserve\s+to\s+die|should\s+be\s+killed|human\s+trash|subhuman)\b`),
	// Threats to groups
	regexp.MustCompile(`(?i)\b(all\s+\w+\s+should\s+(die|be\s+killed|be\s+eliminated))\b`),
}

// dlpPatterns covers secrets and credentials that must never be transmitted.
// The password rules require a separator after the keyword so that the fixed
// redaction tokens themselves can never re-match.
var dlpPatterns = []redactionCategory{
	{
		name:      "api_key",
		redaction: "[API_KEY_REDACTED]",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)api[_-]?key[:\s]*['"]?([a-zA-Z0-9\-_]{20,})['"]?`),
			regexp.MustCompile(`(?i)sk[_-]?[a-zA-Z0-9\-_]{20,}`),
			regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36,}`),
		},
	},
	{
		name:      "password",
		redaction: "[PASSWORD_REDACTED]",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)password[\s:=]+['"]?([^\s'"]{6,})['"]?`),
			regexp.MustCompile(`(?i)passwd[\s:=]+['"]?([^\s'"]{6,})['"]?`),
			regexp.MustCompile(`(?i)pwd[\s:=]+['"]?([^\s'"]{6,})['"]?`),
		},
	},
	{
		name:      "database_connection",
		redaction: "[DATABASE_URL_REDACTED]",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(mongodb|mysql|postgresql|sql)[+:/]+[a-zA-Z0-9]+:[^\s]+@`),
			regexp.MustCompile(`(?i)(host|server)[=:]\s*\S+\s*(port|user|password)[=:]`),
		},
	},
	{
		name:      "aws_key",
		redaction: "[AWS_KEY_REDACTED]",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		},
	},
}

// piiPatterns covers personally identifiable information. Order matters:
// redaction is sequential and earlier categories consume their spans first.
var piiPatterns = []redactionCategory{
	{
		name:       "email",
		redaction:  "[EMAIL_REDACTED]",
		confidence: 0.95,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		},
	},
	{
		name:       "phone",
		redaction:  "[PHONE_REDACTED]",
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})\b`),
			regexp.MustCompile(`\b(?:\+[0-9]{1,3}[-.\s]?)?[0-9]{7,15}\b`),
		},
	},
	{
		name:       "ssn",
		redaction:  "[SSN_REDACTED]",
		confidence: 0.99,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`),
		},
	},
	{
		name:       "credit_card",
		redaction:  "[CREDIT_CARD_REDACTED]",
		confidence: 0.99,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|3(?:0[0-5]|[68][0-9])[0-9]{11})\b`),
		},
	},
	{
		name:       "ip_address",
		redaction:  "[IP_ADDRESS_REDACTED]",
		confidence: 0.90,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
		},
	},
}
