package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
)

type generateBillsRequest struct {
	StudentID        *snowflake.ID  `json:"student_id"`
	ClassName        string         `json:"class_name" validate:"max=50"`
	Section          string         `json:"section" validate:"max=10"`
	StudentIDs       []snowflake.ID `json:"student_ids" validate:"omitempty,max=1000,dive,required"`
	SessionID        snowflake.ID   `json:"session_id" validate:"required"`
	Month            int            `json:"month" validate:"required,min=1,max=12"`
	Year             int            `json:"year" validate:"required,min=2000,max=2100"`
	DueDate          string         `json:"due_date"`
	FeeTypeIDs       []snowflake.ID `json:"fee_type_ids" validate:"omitempty,dive,required"`
	AutoLateFee      bool           `json:"auto_late_fee"`
	CarryForwardDues bool           `json:"carry_forward_dues"`
	GeneratedBy      string         `json:"generated_by" validate:"max=100"`
}

type cancelBillRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type sweepOverdueRequest struct {
	AsOf string `json:"as_of"`
}

func (s *Server) GenerateBills(c *gin.Context) {
	var req generateBillsRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	dueDate, err := parseOptionalTime(req.DueDate, true)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	resp, err := s.billSvc.Generate(c.Request.Context(), billdomain.GenerateRequest{
		StudentID:        req.StudentID,
		ClassName:        strings.TrimSpace(req.ClassName),
		Section:          strings.TrimSpace(req.Section),
		StudentIDs:       req.StudentIDs,
		SessionID:        req.SessionID,
		Month:            req.Month,
		Year:             req.Year,
		DueDate:          dueDate,
		FeeTypeIDs:       req.FeeTypeIDs,
		AutoLateFee:      req.AutoLateFee,
		CarryForwardDues: req.CarryForwardDues,
		GeneratedBy:      strings.TrimSpace(req.GeneratedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBills(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClassName string `form:"class_name"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	studentID, ok := queryID(c, "student_id")
	if !ok {
		return
	}
	month, err := parseOptionalInt(c.Query("month"))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "invalid month"))
		return
	}
	year, err := parseOptionalInt(c.Query("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}

	resp, err := s.billSvc.List(c.Request.Context(), billdomain.ListRequest{
		Pagination: query.Pagination,
		ListFilter: billdomain.ListFilter{
			SessionID: sessionID,
			StudentID: studentID,
			ClassName: strings.TrimSpace(query.ClassName),
			Month:     month,
			Year:      year,
			Status:    billdomain.BillStatus(strings.ToUpper(strings.TrimSpace(query.Status))),
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Bills, "page_info": resp.PageInfo})
}

func (s *Server) GetBill(c *gin.Context) {
	resp, err := s.billSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("billNo")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendBill(c *gin.Context) {
	resp, err := s.billSvc.MarkSent(c.Request.Context(), strings.TrimSpace(c.Param("billNo")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelBill(c *gin.Context) {
	var req cancelBillRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.billSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("billNo")), strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SweepOverdueBills(c *gin.Context) {
	var req sweepOverdueRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	asOf, err := parseOptionalTime(req.AsOf, true)
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_as_of", "invalid as_of"))
		return
	}
	var at time.Time
	if asOf != nil {
		at = *asOf
	}

	resp, err := s.billSvc.MarkOverdue(c.Request.Context(), at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
