package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewgate-backend/internal/http/response"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/services"
)

type LearningHandlerDeps struct {
	Log      *logger.Logger
	Learning services.LearningModelService
}

type LearningHandler struct {
	log      *logger.Logger
	learning services.LearningModelService
}

func NewLearningHandlerWithDeps(deps LearningHandlerDeps) *LearningHandler {
	return &LearningHandler{log: deps.Log.With("handler", "LearningHandler"), learning: deps.Learning}
}

// POST /api/sessions/:id/complete
//
// The session row itself belongs to the session lifecycle; this endpoint
// only folds its summary into the learning model and always answers 202.
func (h *LearningHandler) CompleteSession(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.SessionSummary
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out := h.learning.RecordSessionCompletion(c.Request.Context(), rd.UserID, req)
	h.log.Debug("Session completion folded", "session_id", sessionID, "recorded", out.Recorded, "reason", out.Reason)
	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID, "learning_model": out})
}

// GET /api/learning-model
func (h *LearningHandler) Get(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	view, err := h.learning.Get(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, view)
}

type signalRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// PUT /api/learning-model/signals/:signal
func (h *LearningHandler) SetSignal(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	signals, err := h.learning.SetSignal(c.Request.Context(), rd.UserID, c.Param("signal"), *req.Enabled)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"signals": signals})
}

// DELETE /api/learning-model
func (h *LearningHandler) Reset(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	deleted, err := h.learning.Reset(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": deleted})
}

// GET /api/learning-model/export
func (h *LearningHandler) Export(c *gin.Context) {
	rd, ok := requestUser(c)
	if !ok {
		return
	}
	bundle, err := h.learning.Export(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="learning-data.json"`)
	response.RespondOK(c, bundle)
}
