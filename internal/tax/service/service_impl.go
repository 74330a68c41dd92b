package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	obsmetrics "github.com/nexuscore/nexuscore/internal/observability/metrics"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     taxdomain.Repository
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Service keeps the rule set as an immutable snapshot swapped atomically.
// Reads never block; inserts are serialized so the no-overlap invariant is
// checked against a consistent view.
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    taxdomain.Repository
	audit   auditdomain.Service
	metrics *obsmetrics.Metrics

	mu       sync.Mutex   // serializes inserts
	snapshot atomic.Value // holds ruleSet
}

// ruleSet maps category to rules ordered by effective_from.
type ruleSet map[string][]taxdomain.TaxRule

func NewService(p Params) (taxdomain.Service, error) {
	s := &Service{
		db:      p.DB,
		log:     p.Log.Named("tax.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		audit:   p.AuditSvc,
		metrics: p.Metrics,
	}

	rules, err := p.Repo.ListAll(context.Background(), p.DB)
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(buildRuleSet(rules))

	s.log.Info("tax rule set loaded", zap.Int("rules", len(rules)))
	return s, nil
}

func (s *Service) RateFor(category string, at time.Time) (taxdomain.RateSnapshot, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return taxdomain.RateSnapshot{}, taxdomain.ErrInvalidCategory
	}

	rules := s.snapshot.Load().(ruleSet)[category]
	for _, rule := range rules {
		if rule.Covers(at) {
			return taxdomain.RateSnapshot{
				RuleID:   rule.ID,
				Category: rule.Category,
				RateBps:  rule.RateBps,
				IRASCode: rule.IRASCode,
			}, nil
		}
	}
	return taxdomain.RateSnapshot{}, taxdomain.ErrNoApplicableRule
}

func (s *Service) Insert(ctx context.Context, req taxdomain.CreateRequest) (*taxdomain.Response, error) {
	code := strings.TrimSpace(req.IRASCode)
	if code == "" {
		code = taxdomain.IRASCodeStandardRate
	}
	rule := taxdomain.TaxRule{
		ID:            s.genID.Generate(),
		Category:      strings.TrimSpace(req.Category),
		RateBps:       req.RateBps,
		IRASCode:      code,
		EffectiveFrom: req.EffectiveFrom.UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	if req.EffectiveTo != nil {
		to := req.EffectiveTo.UTC()
		rule.EffectiveTo = &to
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot.Load().(ruleSet)
	for _, existing := range current[rule.Category] {
		if existing.Overlaps(rule) {
			s.metrics.RecordTaxRuleReject(ctx, rule.Category)
			return nil, taxdomain.ErrRuleConflict
		}
	}

	if err := s.repo.Insert(ctx, s.db, &rule); err != nil {
		return nil, err
	}
	s.snapshot.Store(current.with(rule))

	s.metrics.RecordTaxRuleInsert(ctx, rule.Category)
	ruleID := rule.ID.String()
	_ = s.audit.AuditLog(ctx, "admin", nil, "tax_rule.insert", "tax_rule", &ruleID, map[string]any{
		"category":       rule.Category,
		"rate_bps":       rule.RateBps,
		"iras_code":      rule.IRASCode,
		"effective_from": rule.EffectiveFrom,
	})

	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) List(_ context.Context, req taxdomain.ListRequest) ([]taxdomain.Response, error) {
	current := s.snapshot.Load().(ruleSet)

	categories := make([]string, 0, len(current))
	for category := range current {
		if req.Category != "" && category != req.Category {
			continue
		}
		categories = append(categories, category)
	}
	sort.Strings(categories)

	out := make([]taxdomain.Response, 0)
	for _, category := range categories {
		for _, rule := range current[category] {
			if req.At != nil && !rule.Covers(*req.At) {
				continue
			}
			out = append(out, toResponse(rule))
		}
	}
	return out, nil
}

// with returns a copy of the rule set including the new rule. The receiver
// is never mutated; readers keep their snapshot.
func (rs ruleSet) with(rule taxdomain.TaxRule) ruleSet {
	next := make(ruleSet, len(rs)+1)
	for category, rules := range rs {
		next[category] = rules
	}

	rules := make([]taxdomain.TaxRule, 0, len(rs[rule.Category])+1)
	rules = append(rules, rs[rule.Category]...)
	rules = append(rules, rule)
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].EffectiveFrom.Before(rules[j].EffectiveFrom)
	})
	next[rule.Category] = rules

	return next
}

func buildRuleSet(rules []taxdomain.TaxRule) ruleSet {
	rs := make(ruleSet)
	for _, rule := range rules {
		rs[rule.Category] = append(rs[rule.Category], rule)
	}
	for category := range rs {
		sort.Slice(rs[category], func(i, j int) bool {
			return rs[category][i].EffectiveFrom.Before(rs[category][j].EffectiveFrom)
		})
	}
	return rs
}

func toResponse(rule taxdomain.TaxRule) taxdomain.Response {
	return taxdomain.Response{
		ID:            rule.ID.String(),
		Category:      rule.Category,
		RateBps:       rule.RateBps,
		IRASCode:      rule.IRASCode,
		EffectiveFrom: rule.EffectiveFrom,
		EffectiveTo:   rule.EffectiveTo,
		CreatedAt:     rule.CreatedAt,
	}
}
