// Package grounding checks the factual claims in a generated response against
// web evidence. Verification is advisory: it annotates the response, it never
// blocks it.
package grounding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/logging"
)

// Verdict classifies one claim against the gathered evidence
type Verdict string

const (
	VerdictSupported    Verdict = "supported"
	VerdictContradicted Verdict = "contradicted"
	VerdictUnverified   Verdict = "unverified"
)

// ClaimVerdict is the verification outcome for a single claim
type ClaimVerdict struct {
	Claim    string                    `json:"claim"`
	Verdict  Verdict                   `json:"verdict"`
	Evidence []interfaces.SearchResult `json:"evidence,omitempty"`
}

// Report summarizes grounding verification for one response
type Report struct {
	Claims       []ClaimVerdict `json:"claims"`
	SupportRatio float64        `json:"support_ratio"`
}

const extractPrompt = "Extract the distinct factual claims from the text below. " +
	"Only include claims that could be checked against external sources; skip opinions and instructions. " +
	"Respond with JSON only, in the form {\"claims\": [\"...\"]}.\n\nText:\n"

const verifyPrompt = "Decide whether the claim is supported by the evidence snippets. " +
	"Respond with JSON only, in the form {\"verdict\": \"supported\"|\"contradicted\"|\"unverified\"}.\n\n"

// Verifier extracts claims with a model call and checks each against web
// search evidence
type Verifier struct {
	invoker          interfaces.ModelInvoker
	searcher         interfaces.Searcher
	logger           logging.Logger
	maxClaims        int
	evidencePerClaim int
}

// VerifierOption represents an option for configuring the verifier
type VerifierOption func(*Verifier)

// WithMaxClaims caps how many claims are verified per response
func WithMaxClaims(n int) VerifierOption {
	return func(v *Verifier) {
		v.maxClaims = n
	}
}

// WithEvidencePerClaim sets how many search results back each claim
func WithEvidencePerClaim(n int) VerifierOption {
	return func(v *Verifier) {
		v.evidencePerClaim = n
	}
}

// WithVerifierLogger sets the logger for the verifier
func WithVerifierLogger(logger logging.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a new verifier
func NewVerifier(invoker interfaces.ModelInvoker, searcher interfaces.Searcher, options ...VerifierOption) *Verifier {
	verifier := &Verifier{
		invoker:          invoker,
		searcher:         searcher,
		logger:           logging.New(),
		maxClaims:        5,
		evidencePerClaim: 3,
	}

	for _, option := range options {
		option(verifier)
	}

	return verifier
}

// Verify extracts claims from the response and checks each one. Failures on
// individual claims degrade that claim to unverified rather than failing the
// whole report.
func (v *Verifier) Verify(ctx context.Context, response string) (*Report, error) {
	claims, err := v.extractClaims(ctx, response)
	if err != nil {
		return nil, fmt.Errorf("claim extraction failed: %w", err)
	}
	if len(claims) > v.maxClaims {
		claims = claims[:v.maxClaims]
	}

	report := &Report{Claims: make([]ClaimVerdict, 0, len(claims))}
	supported := 0
	for _, claim := range claims {
		verdict := v.verifyClaim(ctx, claim)
		if verdict.Verdict == VerdictSupported {
			supported++
		}
		report.Claims = append(report.Claims, verdict)
	}

	if len(report.Claims) > 0 {
		report.SupportRatio = float64(supported) / float64(len(report.Claims))
	}
	return report, nil
}

// extractClaims asks the model for the checkable claims in the text
func (v *Verifier) extractClaims(ctx context.Context, response string) ([]string, error) {
	resp, err := v.invoker.Invoke(ctx, "", extractPrompt+response, interfaces.InvokeParams{JSONMode: true})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Claims []string `json:"claims"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	return parsed.Claims, nil
}

// verifyClaim gathers evidence for one claim and judges it. Any failure along
// the way yields an unverified verdict.
func (v *Verifier) verifyClaim(ctx context.Context, claim string) ClaimVerdict {
	verdict := ClaimVerdict{Claim: claim, Verdict: VerdictUnverified}

	evidence, err := v.searcher.Search(ctx, claim, v.evidencePerClaim)
	if err != nil || len(evidence) == 0 {
		if err != nil {
			v.logger.Warn(ctx, "Evidence search failed", map[string]interface{}{
				"claim": claim,
				"error": err.Error(),
			})
		}
		return verdict
	}
	verdict.Evidence = evidence

	var sb strings.Builder
	sb.WriteString(verifyPrompt)
	sb.WriteString("Claim: ")
	sb.WriteString(claim)
	sb.WriteString("\n\nEvidence:\n")
	for _, e := range evidence {
		sb.WriteString("- ")
		sb.WriteString(e.Snippet)
		sb.WriteString("\n")
	}

	resp, err := v.invoker.Invoke(ctx, "", sb.String(), interfaces.InvokeParams{JSONMode: true})
	if err != nil {
		v.logger.Warn(ctx, "Claim verification call failed", map[string]interface{}{
			"claim": claim,
			"error": err.Error(),
		})
		return verdict
	}

	var parsed struct {
		Verdict string `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return verdict
	}

	switch Verdict(parsed.Verdict) {
	case VerdictSupported, VerdictContradicted:
		verdict.Verdict = Verdict(parsed.Verdict)
	}
	return verdict
}
