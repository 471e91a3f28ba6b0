package seed

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/config"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const seedActor = "system:seed"

// EnsureDefaultFeeTypes seeds the catalog defaults for one tenant. Fee types
// that already exist are left untouched.
func EnsureDefaultFeeTypes(ctx context.Context, feeTypes feetypedomain.Service, tenantID snowflake.ID) (feetypedomain.SeedResult, error) {
	ctx = tenantcontext.WithTenantID(ctx, tenantID)
	ctx = tenantcontext.WithActor(ctx, seedActor)
	return feeTypes.SeedDefaults(ctx, tenantID)
}

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	FeeTypes feetypedomain.Service
}

func run(p Params) error {
	if !p.Config.SeedDefaults || p.Config.DefaultTenantID == 0 {
		return nil
	}
	tenantID := snowflake.ID(p.Config.DefaultTenantID)
	result, err := EnsureDefaultFeeTypes(context.Background(), p.FeeTypes, tenantID)
	if err != nil {
		return err
	}
	p.Log.Info("default fee types ensured",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return nil
}

var Module = fx.Module("seed", fx.Invoke(run))
