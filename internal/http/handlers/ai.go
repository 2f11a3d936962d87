package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewgate-backend/internal/clients/ai"
	"github.com/yungbote/reviewgate-backend/internal/http/response"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
	"github.com/yungbote/reviewgate-backend/internal/services"
)

type AIHandlerDeps struct {
	Log    *logger.Logger
	Usage  services.UsageService
	Assist services.AssistService
}

type AIHandler struct {
	log    *logger.Logger
	usage  services.UsageService
	assist services.AssistService
}

func NewAIHandlerWithDeps(deps AIHandlerDeps) *AIHandler {
	return &AIHandler{log: deps.Log.With("handler", "AIHandler"), usage: deps.Usage, assist: deps.Assist}
}

// GET /api/ai/rate-limit
func (h *AIHandler) RateLimit(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	d, err := h.usage.GetRateLimitStatus(c.Request.Context(), rd.UserID, rd.Tier)
	if err != nil {
		response.Error(c, err)
		return
	}
	setRateHeaders(c, d)
	response.RespondOK(c, d)
}

// GET /api/ai/usage
func (h *AIHandler) Usage(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	u, err := h.usage.GetUsage(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, u)
}

// POST /api/ai/explanations
func (h *AIHandler) Explain(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	var req ai.ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, d, err := h.assist.Explain(c.Request.Context(), rd.UserID, rd.Tier, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	setRateHeaders(c, d)
	response.RespondOK(c, out)
}

// POST /api/ai/answer-evaluations
func (h *AIHandler) EvaluateAnswer(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	var req ai.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, d, err := h.assist.EvaluateAnswer(c.Request.Context(), rd.UserID, rd.Tier, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	setRateHeaders(c, d)
	response.RespondOK(c, out)
}

func setRateHeaders(c *gin.Context, d ratelimit.Decision) {
	if d.Limit == 0 && d.ResetAt.IsZero() {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
