// Package seed loads the published Singapore GST rate history into an
// empty rule set so a fresh deployment can price invoices immediately.
package seed

import (
	"context"
	"errors"
	"time"

	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func timePtr(t time.Time) *time.Time { return &t }

// gstHistory is the published GST rate schedule: 7% until the 2023
// transition, 8% through 2023, 9% from 1 January 2024.
func gstHistory() []taxdomain.CreateRequest {
	return []taxdomain.CreateRequest{
		{
			Category:      "standard",
			RateBps:       700,
			IRASCode:      taxdomain.IRASCodeStandardRate,
			EffectiveFrom: time.Date(2007, 7, 1, 0, 0, 0, 0, time.UTC),
			EffectiveTo:   timePtr(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			Category:      "standard",
			RateBps:       800,
			IRASCode:      taxdomain.IRASCodeStandardRate,
			EffectiveFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			EffectiveTo:   timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			Category:      "standard",
			RateBps:       900,
			IRASCode:      taxdomain.IRASCodeStandardRate,
			EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Category:      "zero_rated",
			RateBps:       0,
			IRASCode:      taxdomain.IRASCodeZeroRate,
			EffectiveFrom: time.Date(2007, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Category:      "out_of_scope",
			RateBps:       0,
			IRASCode:      taxdomain.IRASCodeOutOfScope,
			EffectiveFrom: time.Date(2007, 7, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// EnsureDefaultTaxRules inserts the GST history when the rule set is
// empty. An operator-managed rule set is left untouched.
func EnsureDefaultTaxRules(ctx context.Context, svc taxdomain.Service, log *zap.Logger) error {
	log = log.Named("seed")

	existing, err := svc.List(ctx, taxdomain.ListRequest{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, req := range gstHistory() {
		if _, err := svc.Insert(ctx, req); err != nil {
			if errors.Is(err, taxdomain.ErrRuleConflict) {
				continue
			}
			return err
		}
	}
	log.Info("seeded default GST rule set")
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(func(svc taxdomain.Service, log *zap.Logger) error {
		return EnsureDefaultTaxRules(context.Background(), svc, log)
	}),
)
