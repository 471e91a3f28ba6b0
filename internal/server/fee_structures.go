package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/bursary/internal/discount/domain"
	structuredomain "github.com/smallbiznis/bursary/internal/feestructure/domain"
)

type feeStructureItemRequest struct {
	FeeTypeID  snowflake.ID    `json:"fee_type_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	IsOptional bool            `json:"is_optional"`
	Frequency  string          `json:"frequency" validate:"omitempty,max=20"`
}

type upsertFeeStructureRequest struct {
	SessionID snowflake.ID              `json:"session_id" validate:"required"`
	ClassName string                    `json:"class_name" validate:"required,max=50"`
	Items     []feeStructureItemRequest `json:"items" validate:"required,dive"`
}

type copyFeeStructuresRequest struct {
	SourceSessionID    snowflake.ID     `json:"source_session_id" validate:"required"`
	TargetSessionID    snowflake.ID     `json:"target_session_id" validate:"required"`
	Classes            []string         `json:"classes" validate:"omitempty,dive,required"`
	PercentageIncrease *decimal.Decimal `json:"percentage_increase"`
}

func (s *Server) ResolveFeeStructure(c *gin.Context) {
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	if sessionID == nil {
		AbortWithError(c, newValidationError("session_id", "required", "session_id is required"))
		return
	}

	resp, err := s.structureSvc.Resolve(c.Request.Context(), *sessionID, strings.TrimSpace(c.Query("class_name")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFeeStructures(c *gin.Context) {
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	if sessionID == nil {
		AbortWithError(c, newValidationError("session_id", "required", "session_id is required"))
		return
	}

	resp, err := s.structureSvc.List(c.Request.Context(), *sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertFeeStructure(c *gin.Context) {
	var req upsertFeeStructureRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]structuredomain.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, structuredomain.ItemInput{
			FeeTypeID:  item.FeeTypeID,
			Amount:     item.Amount,
			IsOptional: item.IsOptional,
			Frequency:  strings.TrimSpace(item.Frequency),
		})
	}

	resp, err := s.structureSvc.Upsert(c.Request.Context(), structuredomain.UpsertRequest{
		SessionID: req.SessionID,
		ClassName: strings.TrimSpace(req.ClassName),
		Items:     items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CopyFeeStructures(c *gin.Context) {
	var req copyFeeStructuresRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	increase := decimal.Zero
	if req.PercentageIncrease != nil {
		increase = *req.PercentageIncrease
	}

	resp, err := s.structureSvc.Copy(c.Request.Context(), structuredomain.CopyRequest{
		SourceSessionID:    req.SourceSessionID,
		TargetSessionID:    req.TargetSessionID,
		Classes:            req.Classes,
		PercentageIncrease: increase,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFeeStructure(c *gin.Context) {
	sessionID, ok := queryID(c, "session_id")
	if !ok {
		return
	}
	if sessionID == nil {
		AbortWithError(c, newValidationError("session_id", "required", "session_id is required"))
		return
	}

	if err := s.structureSvc.Delete(c.Request.Context(), *sessionID, strings.TrimSpace(c.Query("class_name"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type createDiscountRequest struct {
	StudentID    snowflake.ID    `json:"student_id" validate:"required"`
	FeeTypeID    snowflake.ID    `json:"fee_type_id" validate:"required"`
	SessionID    snowflake.ID    `json:"session_id" validate:"required"`
	DiscountType string          `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED percentage fixed"`
	Value        decimal.Decimal `json:"value"`
	Reason       string          `json:"reason" validate:"max=500"`
	ApprovedBy   string          `json:"approved_by" validate:"max=100"`
}

type updateDiscountRequest struct {
	DiscountType *string          `json:"discount_type" validate:"omitempty,oneof=PERCENTAGE FIXED percentage fixed"`
	Value        *decimal.Decimal `json:"value"`
	Reason       *string          `json:"reason" validate:"omitempty,max=500"`
	ApprovedBy   *string          `json:"approved_by" validate:"omitempty,max=100"`
}

func (s *Server) CreateDiscount(c *gin.Context) {
	var req createDiscountRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.discountSvc.Create(c.Request.Context(), discountdomain.CreateDiscountRequest{
		StudentID:    req.StudentID,
		FeeTypeID:    req.FeeTypeID,
		SessionID:    req.SessionID,
		DiscountType: req.DiscountType,
		Value:        req.Value,
		Reason:       strings.TrimSpace(req.Reason),
		ApprovedBy:   strings.TrimSpace(req.ApprovedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateDiscount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateDiscountRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.discountSvc.Update(c.Request.Context(), id, discountdomain.UpdateDiscountRequest{
		DiscountType: req.DiscountType,
		Value:        req.Value,
		Reason:       req.Reason,
		ApprovedBy:   req.ApprovedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDiscount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.discountSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
