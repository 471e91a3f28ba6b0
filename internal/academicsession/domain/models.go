package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AcademicSession struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;uniqueIndex:ux_academic_sessions_tenant_name,priority:1" json:"tenant_id"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_academic_sessions_tenant_name,priority:2" json:"name"`
	StartDate   time.Time    `gorm:"not null" json:"start_date"`
	EndDate     time.Time    `gorm:"not null" json:"end_date"`
	IsActive    bool         `gorm:"not null" json:"is_active"`
	IsSetupMode bool         `gorm:"not null" json:"is_setup_mode"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (AcademicSession) TableName() string { return "academic_sessions" }

// ActiveSessionPointer is the single row per tenant naming the active
// session. It is only written inside the activation transaction.
type ActiveSessionPointer struct {
	TenantID    snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"tenant_id"`
	SessionID   snowflake.ID `gorm:"not null" json:"session_id"`
	ActivatedBy string       `gorm:"type:text;not null" json:"activated_by"`
	ActivatedAt time.Time    `gorm:"not null" json:"activated_at"`
}

func (ActiveSessionPointer) TableName() string { return "active_session_pointers" }
