package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type AdmitRequest struct {
	AdmissionNo string
	Name        string
	SessionID   snowflake.ID
	ClassName   string
	Section     string
}

type Service interface {
	Admit(ctx context.Context, req AdmitRequest) (StudentDetails, error)
	Get(ctx context.Context, id snowflake.ID) (StudentDetails, error)
	List(ctx context.Context, filter PlacementFilter) ([]StudentDetails, error)
	History(ctx context.Context, id snowflake.ID) ([]StudentAcademicHistory, error)
}
