package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewgate-backend/internal/platform/apierr"
	"github.com/yungbote/reviewgate-backend/internal/services"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

const CodeRateLimited = "RATE_LIMITED"

// Error translates service errors into the error envelope.
func Error(c *gin.Context, err error) {
	var rl *services.RateLimitedError
	if errors.As(err, &rl) {
		d := rl.Decision
		c.Header("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		if wait := time.Until(d.ResetAt); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		}
		RespondError(c, http.StatusTooManyRequests, CodeRateLimited, err)
		return
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	switch {
	case errors.Is(err, srs.ErrInvalidQuality):
		RespondError(c, http.StatusBadRequest, "invalid_quality", err)
	case errors.Is(err, services.ErrInvalidSignal):
		RespondError(c, http.StatusBadRequest, "invalid_signal", err)
	case errors.Is(err, services.ErrInvalidDailyCap):
		RespondError(c, http.StatusBadRequest, "invalid_daily_cap", err)
	case errors.Is(err, services.ErrTopicNotFound):
		RespondError(c, http.StatusNotFound, "topic_not_found", err)
	case errors.Is(err, services.ErrMissingUser):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case services.IsInvalidAssistRequest(err):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}
