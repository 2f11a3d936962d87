package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/reviewgate-backend/internal/http/response"
	"github.com/yungbote/reviewgate-backend/internal/platform/ctxutil"
)

// requestUser returns the verified caller or writes 401.
func requestUser(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return nil, false
	}
	return rd, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
