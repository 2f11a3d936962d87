package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"

	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

// ErrUnavailable is returned when no collaborator endpoint is configured.
var ErrUnavailable = errors.New("ai collaborator unavailable")

type ExplainRequest struct {
	TopicTitle string `json:"topic_title"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
}

type ExplainResponse struct {
	Explanation string `json:"explanation"`
}

type EvaluateRequest struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer,omitempty"`
	UserAnswer     string `json:"user_answer"`
	TimeTakenMs    int64  `json:"time_taken_ms,omitempty"`
}

type EvaluateResponse struct {
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	Fallback bool    `json:"fallback,omitempty"`
}

// Client is the generative-AI collaborator used by gated endpoints.
type Client interface {
	Explain(ctx context.Context, req ExplainRequest) (ExplainResponse, error)
	EvaluateAnswer(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries uint
}

// StatusError is a non-2xx reply from the collaborator.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai response error %d: %s", e.Status, e.Body)
}

type client struct {
	log        *logger.Logger
	http       *resty.Client
	maxRetries uint
	enabled    bool
}

func NewClient(log *logger.Logger, cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		h.SetAuthToken(key)
	}
	return &client{
		log:        log.With("client", "AIClient"),
		http:       h,
		maxRetries: cfg.MaxRetries,
		enabled:    strings.TrimSpace(cfg.BaseURL) != "",
	}
}

func (c *client) Explain(ctx context.Context, req ExplainRequest) (ExplainResponse, error) {
	var out ExplainResponse
	err := c.post(ctx, "/v1/explanations", req, &out)
	return out, err
}

func (c *client) EvaluateAnswer(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error) {
	var out EvaluateResponse
	err := c.post(ctx, "/v1/answer-evaluations", req, &out)
	return out, err
}

func (c *client) post(ctx context.Context, path string, body, result interface{}) error {
	if !c.enabled {
		return ErrUnavailable
	}
	return retry.Do(
		func() error {
			resp, err := c.http.R().
				SetContext(ctx).
				SetBody(body).
				SetResult(result).
				Post(path)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				return fmt.Errorf("ai post %s: %w", path, err)
			}
			if resp.IsError() {
				serr := &StatusError{Status: resp.StatusCode(), Body: resp.String()}
				if !retryableStatus(serr.Status) {
					return retry.Unrecoverable(serr)
				}
				return serr
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries+1),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("AI request retry", "path", path, "attempt", n+1, "error", err)
		}),
	)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// IsTimeout reports whether err came from a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
