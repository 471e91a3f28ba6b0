package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	promotiondomain "github.com/smallbiznis/bursary/internal/promotion/domain"
)

type executePromotionRequest struct {
	StudentIDs       []snowflake.ID `json:"student_ids" validate:"required,min=1,max=1000,dive,required"`
	CurrentSessionID snowflake.ID   `json:"current_session_id" validate:"required"`
	NextSessionID    snowflake.ID   `json:"next_session_id"`
	NextClass        string         `json:"next_class" validate:"max=50"`
	NextSection      string         `json:"next_section" validate:"max=10"`
	MarkAsPassout    bool           `json:"mark_as_passout"`
	PromotedBy       string         `json:"promoted_by" validate:"max=100"`
}

func (s *Server) PreviewPromotion(c *gin.Context) {
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	if sessionID == nil {
		AbortWithError(c, newValidationError("session_id", "required", "session_id is required"))
		return
	}

	resp, err := s.promotionSvc.Preview(c.Request.Context(), promotiondomain.PreviewRequest{
		SessionID: *sessionID,
		ClassName: strings.TrimSpace(c.Query("class_name")),
		Section:   strings.TrimSpace(c.Query("section")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExecutePromotion(c *gin.Context) {
	var req executePromotionRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.promotionSvc.Execute(c.Request.Context(), promotiondomain.ExecuteRequest{
		StudentIDs:       req.StudentIDs,
		CurrentSessionID: req.CurrentSessionID,
		NextSessionID:    req.NextSessionID,
		NextClass:        strings.TrimSpace(req.NextClass),
		NextSection:      strings.TrimSpace(req.NextSection),
		MarkAsPassout:    req.MarkAsPassout,
		PromotedBy:       strings.TrimSpace(req.PromotedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
