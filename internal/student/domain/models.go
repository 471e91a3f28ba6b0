package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPassed   Status = "passed"
	StatusArchived Status = "archived"
	StatusLeft     Status = "left"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPassed, StatusArchived, StatusLeft:
		return true
	}
	return false
}

// StudentDetails is the live placement of a student. Past placements only
// survive in StudentAcademicHistory.
type StudentDetails struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;uniqueIndex:ux_student_details_admission,priority:1;index:idx_student_details_placement,priority:1" json:"tenant_id"`
	AdmissionNo string       `gorm:"type:text;not null;uniqueIndex:ux_student_details_admission,priority:2" json:"admission_no"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	SessionID   snowflake.ID `gorm:"not null;index:idx_student_details_placement,priority:2" json:"session_id"`
	ClassName   string       `gorm:"type:text;not null;index:idx_student_details_placement,priority:3" json:"class_name"`
	Section     string       `gorm:"type:text;not null" json:"section"`
	Status      Status       `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (StudentDetails) TableName() string { return "student_details" }

// StudentAcademicHistory is an append-only snapshot written before a
// placement changes.
type StudentAcademicHistory struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID  `gorm:"not null;index" json:"tenant_id"`
	StudentID     snowflake.ID  `gorm:"not null;index" json:"student_id"`
	SessionID     snowflake.ID  `gorm:"not null" json:"session_id"`
	ClassName     string        `gorm:"type:text;not null" json:"class_name"`
	Section       string        `gorm:"type:text;not null" json:"section"`
	Status        Status        `gorm:"type:text;not null" json:"status"`
	Outcome       string        `gorm:"type:text;not null" json:"outcome"`
	NextSessionID *snowflake.ID `json:"next_session_id,omitempty"`
	NextClassName *string       `gorm:"type:text" json:"next_class_name,omitempty"`
	NextSection   *string       `gorm:"type:text" json:"next_section,omitempty"`
	RecordedBy    string        `gorm:"type:text;not null" json:"recorded_by"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
}

func (StudentAcademicHistory) TableName() string { return "student_academic_histories" }
