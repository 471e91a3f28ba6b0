package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionFeeTypeCreate      = "fee_type.create"
	ActionFeeTypeUpdate      = "fee_type.update"
	ActionFeeTypeDelete      = "fee_type.delete"
	ActionFeeStructureUpsert = "fee_structure.upsert"
	ActionFeeStructureCopy   = "fee_structure.copy"
	ActionFeeStructureDelete = "fee_structure.delete"
	ActionDiscountCreate     = "discount.create"
	ActionDiscountUpdate     = "discount.update"
	ActionDiscountDelete     = "discount.delete"
	ActionBillBatch          = "demand_bill.generate"
	ActionBillCancel         = "demand_bill.cancel"
	ActionBillSent           = "demand_bill.sent"
	ActionBillOverdueSweep   = "demand_bill.overdue_sweep"
	ActionPaymentCollect     = "fee_payment.collect"
	ActionPaymentReverse     = "fee_payment.reverse"
	ActionPromotionExecute   = "promotion.execute"
	ActionSessionActivate    = "academic_session.activate"
	ActionSessionCreate      = "academic_session.create"
	ActionSessionDelete      = "academic_session.delete"
	ActionClassCreate        = "school_class.create"
	ActionClassDelete        = "school_class.delete"
)

// AuditLog is an append-only record of a fee mutation.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID      `gorm:"not null;index:idx_audit_logs_tenant_created,priority:1" json:"tenant_id"`
	Actor      string            `gorm:"type:text;not null" json:"actor"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"type:text" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	RequestID  *string           `gorm:"type:text" json:"request_id,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index:idx_audit_logs_tenant_created,priority:2" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	TenantID   snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Actor      string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
