package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
)

type paymentDetailRequest struct {
	FeeTypeID      snowflake.ID     `json:"fee_type_id" validate:"required"`
	Amount         decimal.Decimal  `json:"amount"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
}

type collectPaymentRequest struct {
	StudentID   snowflake.ID           `json:"student_id" validate:"required"`
	SessionID   snowflake.ID           `json:"session_id" validate:"required"`
	Amount      decimal.Decimal        `json:"amount"`
	PaymentMode string                 `json:"payment_mode" validate:"required,max=20"`
	PaymentDate string                 `json:"payment_date"`
	Details     []paymentDetailRequest `json:"details" validate:"required,min=1,dive"`
	BillNo      string                 `json:"bill_no" validate:"max=64"`
	CollectedBy string                 `json:"collected_by" validate:"max=100"`
	Remarks     string                 `json:"remarks" validate:"max=500"`
	Metadata    map[string]any         `json:"metadata"`
}

type reversePaymentRequest struct {
	Reason     string `json:"reason" validate:"required,max=500"`
	ReversedBy string `json:"reversed_by" validate:"max=100"`
}

func (s *Server) CollectPayment(c *gin.Context) {
	var req collectPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	paymentDate, err := parseOptionalTime(req.PaymentDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "invalid payment_date"))
		return
	}

	details := make([]paymentdomain.DetailInput, 0, len(req.Details))
	for _, detail := range req.Details {
		discount := decimal.Zero
		if detail.DiscountAmount != nil {
			discount = *detail.DiscountAmount
		}
		details = append(details, paymentdomain.DetailInput{
			FeeTypeID:      detail.FeeTypeID,
			Amount:         detail.Amount,
			DiscountAmount: discount,
		})
	}

	resp, err := s.paymentSvc.Collect(c.Request.Context(), paymentdomain.CollectRequest{
		StudentID:   req.StudentID,
		SessionID:   req.SessionID,
		Amount:      req.Amount,
		PaymentMode: req.PaymentMode,
		PaymentDate: paymentDate,
		Details:     details,
		BillNo:      strings.TrimSpace(req.BillNo),
		CollectedBy: strings.TrimSpace(req.CollectedBy),
		Remarks:     strings.TrimSpace(req.Remarks),
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ReversePayment(c *gin.Context) {
	var req reversePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.Reverse(c.Request.Context(), paymentdomain.ReverseRequest{
		TransactionID: strings.TrimSpace(c.Param("transactionId")),
		Reason:        strings.TrimSpace(req.Reason),
		ReversedBy:    strings.TrimSpace(req.ReversedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("transactionId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		BillNo string `form:"bill_no"`
		Kind   string `form:"kind"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	studentID, ok := queryID(c, "student_id")
	if !ok {
		return
	}
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListRequest{
		Pagination: query.Pagination,
		ListFilter: paymentdomain.ListFilter{
			StudentID: studentID,
			SessionID: sessionID,
			BillNo:    strings.TrimSpace(query.BillNo),
			Kind:      paymentdomain.TransactionKind(strings.ToUpper(strings.TrimSpace(query.Kind))),
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Transactions, "page_info": resp.PageInfo})
}
