package grounding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedInvoker returns canned JSON responses in order
type scriptedInvoker struct {
	responses []string
	calls     int
	err       error
}

func (s *scriptedInvoker) Invoke(ctx context.Context, systemPrompt, userPrompt string, params interfaces.InvokeParams) (*interfaces.InvokeResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.responses) {
		return nil, errors.New("no scripted response left")
	}
	resp := &interfaces.InvokeResponse{Content: s.responses[s.calls]}
	s.calls++
	return resp, nil
}

func (s *scriptedInvoker) Name() string { return "scripted" }

// fakeSearcher returns fixed results or an error
type fakeSearcher struct {
	results []interfaces.SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]interfaces.SearchResult, error) {
	return f.results, f.err
}

func TestVerifySupportedClaims(t *testing.T) {
	invoker := &scriptedInvoker{responses: []string{
		`{"claims": ["Paris is the capital of France", "France uses the euro"]}`,
		`{"verdict": "supported"}`,
		`{"verdict": "contradicted"}`,
	}}
	searcher := &fakeSearcher{results: []interfaces.SearchResult{
		{Title: "t", URL: "u", Snippet: "some evidence"},
	}}

	verifier := NewVerifier(invoker, searcher)
	report, err := verifier.Verify(context.Background(), "Paris is the capital of France. France uses the euro.")

	require.NoError(t, err)
	require.Len(t, report.Claims, 2)
	assert.Equal(t, VerdictSupported, report.Claims[0].Verdict)
	assert.Equal(t, VerdictContradicted, report.Claims[1].Verdict)
	assert.InDelta(t, 0.5, report.SupportRatio, 1e-9)
}

func TestVerifyDegradesToUnverifiedOnSearchFailure(t *testing.T) {
	invoker := &scriptedInvoker{responses: []string{
		`{"claims": ["some claim"]}`,
	}}
	searcher := &fakeSearcher{err: errors.New("network down")}

	verifier := NewVerifier(invoker, searcher)
	report, err := verifier.Verify(context.Background(), "some claim")

	require.NoError(t, err)
	require.Len(t, report.Claims, 1)
	assert.Equal(t, VerdictUnverified, report.Claims[0].Verdict)
	assert.Zero(t, report.SupportRatio)
}

func TestVerifyDegradesOnGarbageVerdict(t *testing.T) {
	invoker := &scriptedInvoker{responses: []string{
		`{"claims": ["some claim"]}`,
		`{"verdict": "maybe?"}`,
	}}
	searcher := &fakeSearcher{results: []interfaces.SearchResult{{Snippet: "evidence"}}}

	verifier := NewVerifier(invoker, searcher)
	report, err := verifier.Verify(context.Background(), "some claim")

	require.NoError(t, err)
	assert.Equal(t, VerdictUnverified, report.Claims[0].Verdict)
}

func TestVerifyCapsClaims(t *testing.T) {
	claims := make([]string, 10)
	for i := range claims {
		claims[i] = "claim"
	}
	invoker := &scriptedInvoker{responses: []string{
		`{"claims": ["` + strings.Join(claims, `","`) + `"]}`,
		`{"verdict": "supported"}`, `{"verdict": "supported"}`,
	}}
	searcher := &fakeSearcher{results: []interfaces.SearchResult{{Snippet: "evidence"}}}

	verifier := NewVerifier(invoker, searcher, WithMaxClaims(2))
	report, err := verifier.Verify(context.Background(), "many claims")

	require.NoError(t, err)
	assert.Len(t, report.Claims, 2)
}

func TestVerifyFailsWhenExtractionFails(t *testing.T) {
	invoker := &scriptedInvoker{err: errors.New("backend down")}
	verifier := NewVerifier(invoker, &fakeSearcher{})

	_, err := verifier.Verify(context.Background(), "text")
	require.Error(t, err)
}
