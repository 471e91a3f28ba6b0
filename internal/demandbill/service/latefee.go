package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/internal/config"
	"github.com/smallbiznis/bursary/internal/demandbill/domain"
)

// FlatLateFeePolicy charges the configured flat amount once per bill when any
// earlier unpaid bill is past its due date plus the grace period.
type FlatLateFeePolicy struct {
	billing *config.BillingConfigHolder
}

func NewFlatLateFeePolicy(billing *config.BillingConfigHolder) domain.LateFeePolicy {
	return &FlatLateFeePolicy{billing: billing}
}

func (p *FlatLateFeePolicy) LateFee(in domain.LateFeeInput) decimal.Decimal {
	if p == nil || p.billing == nil {
		return decimal.Zero
	}
	cfg := p.billing.Get().LateFee
	amount := cfg.FlatAmount()
	if !amount.IsPositive() {
		return decimal.Zero
	}
	grace := time.Duration(cfg.GraceDays) * 24 * time.Hour
	for _, bill := range in.PriorUnpaid {
		if bill == nil || !bill.Outstanding().IsPositive() {
			continue
		}
		if bill.DueDate.Add(grace).Before(in.Now) {
			return amount
		}
	}
	return decimal.Zero
}
