package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
)

// FeeStructure prices fee types for one (session, class) pair.
type FeeStructure struct {
	ID          snowflake.ID       `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID       `gorm:"not null;uniqueIndex:ux_fee_structures_key,priority:1" json:"tenant_id"`
	SessionID   snowflake.ID       `gorm:"not null;uniqueIndex:ux_fee_structures_key,priority:2" json:"session_id"`
	ClassName   string             `gorm:"type:text;not null;uniqueIndex:ux_fee_structures_key,priority:3" json:"class_name"`
	TotalAmount decimal.Decimal    `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	UpdatedBy   string             `gorm:"type:text;not null" json:"updated_by"`
	CreatedAt   time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"not null" json:"updated_at"`
	Items       []FeeStructureItem `gorm:"-" json:"items"`
}

func (FeeStructure) TableName() string { return "fee_structures" }

type FeeStructureItem struct {
	ID          snowflake.ID             `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID             `gorm:"not null;index" json:"tenant_id"`
	StructureID snowflake.ID             `gorm:"not null;uniqueIndex:ux_fee_structure_items_fee_type,priority:1" json:"structure_id"`
	FeeTypeID   snowflake.ID             `gorm:"not null;uniqueIndex:ux_fee_structure_items_fee_type,priority:2" json:"fee_type_id"`
	Position    int                      `gorm:"not null" json:"position"`
	Amount      decimal.Decimal          `gorm:"type:numeric(14,2);not null" json:"amount"`
	IsOptional  bool                     `gorm:"not null" json:"is_optional"`
	Frequency   *feetypedomain.Frequency `gorm:"type:text" json:"frequency,omitempty"`
	CreatedAt   time.Time                `gorm:"not null" json:"created_at"`
}

func (FeeStructureItem) TableName() string { return "fee_structure_items" }

// ResolvedItem is a structure item with its effective frequency.
type ResolvedItem struct {
	FeeTypeID   snowflake.ID             `json:"fee_type_id"`
	FeeTypeName string                   `json:"fee_type_name"`
	Amount      decimal.Decimal          `json:"amount"`
	IsOptional  bool                     `json:"is_optional"`
	Frequency   *feetypedomain.Frequency `json:"frequency"`
	Position    int                      `json:"position"`
}

type Resolution struct {
	SessionID   snowflake.ID    `json:"session_id"`
	ClassName   string          `json:"class_name"`
	Configured  bool            `json:"configured"`
	Items       []ResolvedItem  `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
