package service

import (
	"sort"
	"strings"
	"time"

	"github.com/nexuscore/nexuscore/internal/config"
	retentiondomain "github.com/nexuscore/nexuscore/internal/retention/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Holder *config.ComplianceConfigHolder
}

// Service answers retention questions against the live compliance config.
// It never caches: every lookup reads the holder, so a hot reload takes
// effect on the next call.
type Service struct {
	log    *zap.Logger
	holder *config.ComplianceConfigHolder
}

func NewService(p Params) retentiondomain.Service {
	return &Service{
		log:    p.Log.Named("retention.service"),
		holder: p.Holder,
	}
}

func (s *Service) Policy(category string) (retentiondomain.Policy, error) {
	category = strings.TrimSpace(category)
	for _, entry := range s.holder.Get().RetentionPolicies {
		if entry.Category == category {
			return retentiondomain.Policy{
				Category:         entry.Category,
				MaxRetention:     entry.MaxRetention(),
				MaxRetentionDays: entry.MaxRetentionDays,
				LegalHold:        entry.LegalHold,
			}, nil
		}
	}
	return retentiondomain.Policy{}, retentiondomain.ErrUnknownCategory
}

func (s *Service) MaxRetention(category string) (time.Duration, error) {
	policy, err := s.Policy(category)
	if err != nil {
		return 0, err
	}
	return policy.MaxRetention, nil
}

func (s *Service) LegalHold(category string) (bool, error) {
	policy, err := s.Policy(category)
	if err != nil {
		return false, err
	}
	return policy.LegalHold, nil
}

func (s *Service) List() []retentiondomain.Policy {
	entries := s.holder.Get().RetentionPolicies
	policies := make([]retentiondomain.Policy, 0, len(entries))
	for _, entry := range entries {
		policies = append(policies, retentiondomain.Policy{
			Category:         entry.Category,
			MaxRetention:     entry.MaxRetention(),
			MaxRetentionDays: entry.MaxRetentionDays,
			LegalHold:        entry.LegalHold,
		})
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Category < policies[j].Category })
	return policies
}
