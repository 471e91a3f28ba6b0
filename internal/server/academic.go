package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
)

type createClassRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	DisplayName string `json:"display_name" validate:"max=100"`
	Order       int    `json:"order" validate:"gte=0"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
}

func (s *Server) CreateClass(c *gin.Context) {
	var req createClassRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.classSvc.Create(c.Request.Context(), classdomain.CreateClassRequest{
		Name:        strings.TrimSpace(req.Name),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Order:       req.Order,
		Capacity:    req.Capacity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListClasses(c *gin.Context) {
	resp, err := s.classSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetClass(c *gin.Context) {
	resp, err := s.classSvc.GetByName(c.Request.Context(), strings.TrimSpace(c.Param("name")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteClass(c *gin.Context) {
	if err := s.classSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("name"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type createSessionRequest struct {
	Name      string `json:"name" validate:"required,max=50"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func (s *Server) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	startDate, err := parseOptionalTime(req.StartDate, false)
	if err != nil || startDate == nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	endDate, err := parseOptionalTime(req.EndDate, false)
	if err != nil || endDate == nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	resp, err := s.sessionSvc.Create(c.Request.Context(), sessiondomain.CreateSessionRequest{
		Name:      strings.TrimSpace(req.Name),
		StartDate: startDate.UTC().Truncate(24 * time.Hour),
		EndDate:   endDate.UTC().Truncate(24 * time.Hour),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSessions(c *gin.Context) {
	resp, err := s.sessionSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.sessionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetActiveSession(c *gin.Context) {
	resp, err := s.sessionSvc.GetActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.sessionSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.sessionSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
