package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SchoolClass is a grade level. Order drives the promotion sequence.
type SchoolClass struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;uniqueIndex:ux_school_classes_tenant_name,priority:1;uniqueIndex:ux_school_classes_tenant_order,priority:1" json:"tenant_id"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_school_classes_tenant_name,priority:2" json:"name"`
	DisplayName string       `gorm:"type:text;not null" json:"display_name"`
	Order       int          `gorm:"column:sort_order;not null;uniqueIndex:ux_school_classes_tenant_order,priority:2" json:"order"`
	Capacity    int          `gorm:"not null" json:"capacity"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (SchoolClass) TableName() string { return "school_classes" }
