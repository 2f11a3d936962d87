package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewgate-backend/internal/http/response"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/services"
)

const headerIdempotencyKey = "Idempotency-Key"

type ReviewHandlerDeps struct {
	Log     *logger.Logger
	Reviews services.ReviewService
	Queue   services.ReviewQueueService
}

type ReviewHandler struct {
	log     *logger.Logger
	reviews services.ReviewService
	queue   services.ReviewQueueService
}

func NewReviewHandlerWithDeps(deps ReviewHandlerDeps) *ReviewHandler {
	return &ReviewHandler{log: deps.Log.With("handler", "ReviewHandler"), reviews: deps.Reviews, queue: deps.Queue}
}

type reviewRequest struct {
	// Pointer so a missing field is rejected rather than read as 0.
	Quality *int `json:"quality" binding:"required"`
}

// POST /api/topics/:id/review
func (h *ReviewHandler) ReviewTopic(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	topicID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.reviews.Review(c.Request.Context(), services.ReviewInput{
		UserID:         rd.UserID,
		TopicID:        topicID,
		Quality:        *req.Quality,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topic": out.Topic, "replayed": out.Replayed})
}

// GET /api/topics/:id/reviews
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	topicID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.reviews.ListHistory(c.Request.Context(), rd.UserID, topicID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reviews": events})
}

// GET /api/review/queue
func (h *ReviewHandler) GetQueue(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	q, err := h.queue.Build(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, q)
}

type preferencesRequest struct {
	MaxDailyReviews int `json:"max_daily_reviews"`
}

// PUT /api/review/preferences
func (h *ReviewHandler) SetPreferences(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.queue.SetDailyCap(c.Request.Context(), rd.UserID, req.MaxDailyReviews); err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"max_daily_reviews": req.MaxDailyReviews})
}
