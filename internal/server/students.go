package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
)

type admitStudentRequest struct {
	AdmissionNo string       `json:"admission_no" validate:"required,max=50"`
	Name        string       `json:"name" validate:"required,max=200"`
	SessionID   snowflake.ID `json:"session_id" validate:"required"`
	ClassName   string       `json:"class_name" validate:"required,max=50"`
	Section     string       `json:"section" validate:"max=10"`
}

func (s *Server) AdmitStudent(c *gin.Context) {
	var req admitStudentRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.studentSvc.Admit(c.Request.Context(), studentdomain.AdmitRequest{
		AdmissionNo: strings.TrimSpace(req.AdmissionNo),
		Name:        strings.TrimSpace(req.Name),
		SessionID:   req.SessionID,
		ClassName:   strings.TrimSpace(req.ClassName),
		Section:     strings.TrimSpace(req.Section),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListStudents(c *gin.Context) {
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	if sessionID == nil {
		AbortWithError(c, newValidationError("session_id", "required", "session_id is required"))
		return
	}

	status := studentdomain.Status(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if status != "" && !status.Valid() {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}

	resp, err := s.studentSvc.List(c.Request.Context(), studentdomain.PlacementFilter{
		SessionID: *sessionID,
		ClassName: strings.TrimSpace(c.Query("class_name")),
		Section:   strings.TrimSpace(c.Query("section")),
		Status:    status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStudent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.studentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStudentHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.studentSvc.History(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListStudentDiscounts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}

	resp, err := s.discountSvc.FindByStudent(c.Request.Context(), id, sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStudentStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	if sessionID == nil {
		AbortWithError(c, newValidationError("session_id", "required", "session_id is required"))
		return
	}

	resp, err := s.paymentSvc.Statement(c.Request.Context(), id, *sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
