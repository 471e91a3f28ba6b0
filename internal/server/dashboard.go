package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetDashboard(c *gin.Context) {
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	if sessionID == nil {
		active, err := s.sessionSvc.GetActive(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		sessionID = &active.ID
	}

	resp, err := s.dashboardSvc.Summary(c.Request.Context(), *sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
