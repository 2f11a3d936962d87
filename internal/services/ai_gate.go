package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/reviewgate-backend/internal/clients/ai"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
)

// AIGate admits calls to the AI collaborator against the user's quota and
// records admitted, successful calls in the usage ledger.
type AIGate struct {
	log     *logger.Logger
	usage   UsageService
	metrics *observability.Metrics
}

func NewAIGate(baseLog *logger.Logger, usage UsageService, metrics *observability.Metrics) *AIGate {
	return &AIGate{log: baseLog.With("service", "AIGate"), usage: usage, metrics: metrics}
}

// Guard returns a *RateLimitedError without invoking call when the quota is spent.
func (g *AIGate) Guard(ctx context.Context, userID uuid.UUID, tier, endpoint string, call func(context.Context) error) (ratelimit.Decision, error) {
	d, err := g.usage.CheckAIRateLimit(ctx, userID, tier)
	if err != nil {
		return ratelimit.Decision{}, err
	}
	if !d.Allowed {
		g.metrics.ObserveAICall(endpoint, "rate_limited", 0)
		return d, &RateLimitedError{Decision: d}
	}
	start := time.Now()
	if err := call(ctx); err != nil {
		g.metrics.ObserveAICall(endpoint, "error", time.Since(start))
		return d, err
	}
	g.metrics.ObserveAICall(endpoint, "ok", time.Since(start))
	g.recordUsage(ctx, userID, endpoint)
	return d, nil
}

// GuardWithFallback runs fallback instead of failing when the call is rate
// limited or the collaborator errors. Limiter store failures still propagate.
func (g *AIGate) GuardWithFallback(ctx context.Context, userID uuid.UUID, tier, endpoint string, call func(context.Context) error, fallback func()) (ratelimit.Decision, bool, error) {
	d, err := g.Guard(ctx, userID, tier, endpoint, call)
	switch {
	case err == nil:
		return d, false, nil
	case IsRateLimited(err):
	case d.Allowed:
		g.log.Warn("AI call failed, using fallback", "endpoint", endpoint, "user_id", userID, "error", err)
	default:
		return d, false, err
	}
	g.metrics.ObserveAICall(endpoint, "fallback", 0)
	fallback()
	return d, true, nil
}

func (g *AIGate) recordUsage(ctx context.Context, userID uuid.UUID, endpoint string) {
	if err := g.usage.RecordAIUsage(ctx, userID); err != nil {
		g.metrics.IncUsageLedgerFailure()
		g.log.Error("Record AI usage failed", "user_id", userID, "endpoint", endpoint, "error", err)
	}
}

// AssistService exposes the gated AI features.
type AssistService interface {
	Explain(ctx context.Context, userID uuid.UUID, tier string, req ai.ExplainRequest) (ai.ExplainResponse, ratelimit.Decision, error)
	EvaluateAnswer(ctx context.Context, userID uuid.UUID, tier string, req ai.EvaluateRequest) (ai.EvaluateResponse, ratelimit.Decision, error)
}

type assistService struct {
	log    *logger.Logger
	gate   *AIGate
	client ai.Client
}

func NewAssistService(baseLog *logger.Logger, gate *AIGate, client ai.Client) AssistService {
	return &assistService{log: baseLog.With("service", "AssistService"), gate: gate, client: client}
}

var errEmptyPrompt = errors.New("question is required")

func (s *assistService) Explain(ctx context.Context, userID uuid.UUID, tier string, req ai.ExplainRequest) (ai.ExplainResponse, ratelimit.Decision, error) {
	if strings.TrimSpace(req.Question) == "" {
		return ai.ExplainResponse{}, ratelimit.Decision{}, errEmptyPrompt
	}
	var out ai.ExplainResponse
	d, err := s.gate.Guard(ctx, userID, tier, "explanations", func(ctx context.Context) error {
		var err error
		out, err = s.client.Explain(ctx, req)
		return err
	})
	if err != nil {
		return ai.ExplainResponse{}, d, err
	}
	return out, d, nil
}

func (s *assistService) EvaluateAnswer(ctx context.Context, userID uuid.UUID, tier string, req ai.EvaluateRequest) (ai.EvaluateResponse, ratelimit.Decision, error) {
	if strings.TrimSpace(req.Question) == "" {
		return ai.EvaluateResponse{}, ratelimit.Decision{}, errEmptyPrompt
	}
	var out ai.EvaluateResponse
	d, _, err := s.gate.GuardWithFallback(ctx, userID, tier, "answer_evaluations",
		func(ctx context.Context) error {
			var err error
			out, err = s.client.EvaluateAnswer(ctx, req)
			return err
		},
		func() { out = FallbackEvaluation(req) },
	)
	if err != nil {
		return ai.EvaluateResponse{}, d, err
	}
	return out, d, nil
}

// FallbackEvaluation grades by exact match when the collaborator cannot be used.
func FallbackEvaluation(req ai.EvaluateRequest) ai.EvaluateResponse {
	expected := strings.TrimSpace(req.ExpectedAnswer)
	given := strings.TrimSpace(req.UserAnswer)
	correct := expected != "" && strings.EqualFold(expected, given)
	out := ai.EvaluateResponse{Correct: correct, Fallback: true}
	switch {
	case expected == "":
		out.Feedback = "Automatic feedback is unavailable right now."
	case correct:
		out.Score = 1
		out.Feedback = "Correct."
	default:
		out.Feedback = "Not quite. The expected answer was: " + expected
	}
	return out
}

// IsInvalidAssistRequest reports a request rejected before any quota was used.
func IsInvalidAssistRequest(err error) bool { return errors.Is(err, errEmptyPrompt) }
