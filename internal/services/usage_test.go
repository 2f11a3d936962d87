package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewgate-backend/internal/clients/ai"
)

func TestUsageServiceRateLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.usageService(3)
	user := uuid.New()

	for i := 0; i < 3; i++ {
		d, err := svc.CheckAIRateLimit(ctx, user, "free")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, int64(2-i), d.Remaining)
	}
	d, err := svc.CheckAIRateLimit(ctx, user, "free")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)
	assert.Equal(t, h.now.Truncate(time.Hour).Add(time.Hour), d.ResetAt)

	status, err := svc.GetRateLimitStatus(ctx, user, "free")
	require.NoError(t, err)
	assert.False(t, status.Allowed)

	// Unknown tiers fall back to the default tier's window.
	d, err = svc.CheckAIRateLimit(ctx, user, "enterprise")
	require.NoError(t, err)
	assert.Equal(t, "free", d.Tier)
	assert.False(t, d.Allowed)

	h.now = h.now.Add(time.Hour)
	d, err = svc.CheckAIRateLimit(ctx, user, "free")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestUsageServiceLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.usageService(3)
	user := uuid.New()

	usage, err := svc.GetUsage(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.AIRequestsCount)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), usage.PeriodStart)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), usage.PeriodEnd)

	require.NoError(t, svc.RecordAIUsage(ctx, user))
	require.NoError(t, svc.RecordAIUsage(ctx, user))
	usage, err = svc.GetUsage(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage.AIRequestsCount)

	h.now = time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	usage, err = svc.GetUsage(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.AIRequestsCount)
}

type fakeAI struct {
	calls   int
	err     error
	explain ai.ExplainResponse
	eval    ai.EvaluateResponse
}

func (f *fakeAI) Explain(context.Context, ai.ExplainRequest) (ai.ExplainResponse, error) {
	f.calls++
	return f.explain, f.err
}

func (f *fakeAI) EvaluateAnswer(context.Context, ai.EvaluateRequest) (ai.EvaluateResponse, error) {
	f.calls++
	return f.eval, f.err
}

// ledgerFailingUsage admits every call but cannot record usage.
type ledgerFailingUsage struct {
	UsageService
}

func (ledgerFailingUsage) RecordAIUsage(context.Context, uuid.UUID) error {
	return errors.New("ledger unavailable")
}

func TestAssistExplainIsGated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	usage := h.usageService(2)
	client := &fakeAI{explain: ai.ExplainResponse{Explanation: "because"}}
	svc := NewAssistService(h.log, NewAIGate(h.log, usage, h.metrics), client)
	user := uuid.New()
	req := ai.ExplainRequest{TopicTitle: "t", Question: "why?"}

	for i := 0; i < 2; i++ {
		out, d, err := svc.Explain(ctx, user, "free", req)
		require.NoError(t, err)
		assert.Equal(t, "because", out.Explanation)
		assert.True(t, d.Allowed)
	}
	_, d, err := svc.Explain(ctx, user, "free", req)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, int64(2), rl.Decision.Limit)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, client.calls, "rejected call must not reach the collaborator")

	summary, err := usage.GetUsage(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.AIRequestsCount)
}

func TestAssistExplainRejectsEmptyQuestionBeforeQuota(t *testing.T) {
	h := newHarness(t)
	usage := h.usageService(1)
	svc := NewAssistService(h.log, NewAIGate(h.log, usage, h.metrics), &fakeAI{})
	user := uuid.New()

	_, _, err := svc.Explain(context.Background(), user, "free", ai.ExplainRequest{Question: "  "})
	assert.True(t, IsInvalidAssistRequest(err))
	status, err := usage.GetRateLimitStatus(context.Background(), user, "free")
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Remaining)
}

func TestAssistEvaluateFallsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	usage := h.usageService(1)
	client := &fakeAI{eval: ai.EvaluateResponse{Correct: true, Score: 0.9, Feedback: "nice"}}
	svc := NewAssistService(h.log, NewAIGate(h.log, usage, h.metrics), client)
	user := uuid.New()
	req := ai.EvaluateRequest{Question: "2+2", ExpectedAnswer: "4", UserAnswer: " 4 "}

	out, _, err := svc.EvaluateAnswer(ctx, user, "free", req)
	require.NoError(t, err)
	assert.False(t, out.Fallback)
	assert.Equal(t, "nice", out.Feedback)

	// Quota spent: canned evaluation instead of an error.
	out, d, err := svc.EvaluateAnswer(ctx, user, "free", req)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, out.Fallback)
	assert.True(t, out.Correct)
	assert.Equal(t, 1, client.calls)
}

func TestAssistEvaluateFallsBackOnCollaboratorError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	usage := h.usageService(5)
	client := &fakeAI{err: ai.ErrUnavailable}
	svc := NewAssistService(h.log, NewAIGate(h.log, usage, h.metrics), client)
	user := uuid.New()

	out, d, err := svc.EvaluateAnswer(ctx, user, "free", ai.EvaluateRequest{Question: "q", ExpectedAnswer: "yes", UserAnswer: "no"})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, out.Fallback)
	assert.False(t, out.Correct)

	summary, err := usage.GetUsage(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.AIRequestsCount, "failed calls are not billed")
}

func TestAIGateLedgerFailureDoesNotFailCall(t *testing.T) {
	h := newHarness(t)
	gate := NewAIGate(h.log, ledgerFailingUsage{h.usageService(5)}, h.metrics)
	called := false
	d, err := gate.Guard(context.Background(), uuid.New(), "free", "explanations", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, d.Allowed)
}

func TestAIGateCallErrorPropagates(t *testing.T) {
	h := newHarness(t)
	gate := NewAIGate(h.log, h.usageService(5), h.metrics)
	boom := errors.New("boom")
	_, err := gate.Guard(context.Background(), uuid.New(), "free", "explanations", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestFallbackEvaluation(t *testing.T) {
	cases := []struct {
		name     string
		req      ai.EvaluateRequest
		correct  bool
		score    float64
		fallback bool
	}{
		{"match ignores case", ai.EvaluateRequest{ExpectedAnswer: "Paris", UserAnswer: "paris"}, true, 1, true},
		{"mismatch", ai.EvaluateRequest{ExpectedAnswer: "Paris", UserAnswer: "Rome"}, false, 0, true},
		{"no expected answer", ai.EvaluateRequest{UserAnswer: "anything"}, false, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FallbackEvaluation(tc.req)
			assert.Equal(t, tc.correct, got.Correct)
			assert.Equal(t, tc.score, got.Score)
			assert.Equal(t, tc.fallback, got.Fallback)
			assert.NotEmpty(t, got.Feedback)
		})
	}
}
