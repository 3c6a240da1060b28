package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"parksync/internal/client/well"
)

// Person types granted unbounded passage.
var permanentPersonTypes = []string{"正式员工", "子女工"}

// Person types whose passage window follows their validity dates.
var temporaryPersonTypes = []string{"外来员工", "施工人员"}

// TimeRuleClient is the slice of the access control API the resolver needs.
type TimeRuleClient interface {
	ListTimeRules(ctx context.Context) ([]well.TimeRuleInfo, error)
	BatchUpsertTimeRules(ctx context.Context, rules []well.TimeRuleUpsert) error
}

// RuleResolver maps a person type and validity window to a vendor-assigned
// time rule id, creating rules remotely when no cached one matches. The
// sentinel id 0 means no rule could be obtained.
type RuleResolver struct {
	client            TimeRuleClient
	logger            *zap.Logger
	permanentRuleName string

	mu          sync.RWMutex
	cache       map[string]int
	permanentID int
}

func NewRuleResolver(client TimeRuleClient, permanentRuleName string, logger *zap.Logger) *RuleResolver {
	return &RuleResolver{
		client:            client,
		logger:            logger,
		permanentRuleName: permanentRuleName,
		cache:             map[string]int{},
	}
}

// RefreshCache reloads every rule from the vendor and swaps the cache
// wholesale, so concurrent readers never see a half-built map.
func (r *RuleResolver) RefreshCache(ctx context.Context) error {
	rules, err := r.client.ListTimeRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list time rules: %w", err)
	}

	next := make(map[string]int, len(rules))
	permanentID := 0
	for _, rule := range rules {
		next[rule.RuleName] = rule.RuleID
		if permanentID == 0 && r.isPermanentRule(rule.RuleName) {
			permanentID = rule.RuleID
		}
	}

	r.mu.Lock()
	r.cache = next
	r.permanentID = permanentID
	r.mu.Unlock()

	r.logger.Info("time rule cache refreshed",
		zap.Int("rules", len(next)),
		zap.Int("permanent_rule_id", permanentID))
	return nil
}

func (r *RuleResolver) isPermanentRule(name string) bool {
	if name == "" {
		return false
	}
	return name == r.permanentRuleName ||
		strings.Contains(name, "长期") ||
		strings.Contains(name, "永久") ||
		strings.Contains(name, "默认")
}

// PermanentRuleID returns the memoized long-term rule id, 0 when unknown.
func (r *RuleResolver) PermanentRuleID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.permanentID
}

func (r *RuleResolver) lookup(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.cache[name]
	return id, ok
}

// Resolve returns the rule id for a person type and validity window. Failures
// are logged and reported as the sentinel 0, never as an error, so one
// person's missing rule does not abort a sync pass.
func (r *RuleResolver) Resolve(ctx context.Context, personType string, validFrom, validTo *time.Time) int {
	if contains(permanentPersonTypes, personType) {
		return r.resolvePermanent(ctx, personType)
	}
	if contains(temporaryPersonTypes, personType) {
		if validFrom == nil || validTo == nil {
			// Missing validity falls back to unrestricted passage.
			r.logger.Warn("temporary person without validity window, using permanent rule",
				zap.String("person_type", personType))
			return r.resolvePermanent(ctx, personType)
		}
		return r.resolveTemporary(ctx, *validFrom, *validTo)
	}
	r.logger.Warn("unknown person type, using permanent rule",
		zap.String("person_type", personType))
	return r.resolvePermanent(ctx, personType)
}

func (r *RuleResolver) resolvePermanent(ctx context.Context, personType string) int {
	if id := r.PermanentRuleID(); id != 0 {
		return id
	}

	r.logger.Info("permanent rule missing, creating", zap.String("person_type", personType))
	rule := buildTimeRule(
		r.permanentRuleName,
		"PERMANENT_RULE_"+strconv.FormatInt(time.Now().UnixMilli(), 10),
		"全天通行",
		"2010-01-01",
		"2049-12-31",
	)
	if err := r.client.BatchUpsertTimeRules(ctx, []well.TimeRuleUpsert{rule}); err != nil {
		r.logger.Error("failed to create permanent rule", zap.Error(err))
		return 0
	}
	if err := r.RefreshCache(ctx); err != nil {
		r.logger.Error("failed to refresh rule cache after create", zap.Error(err))
		return 0
	}
	return r.PermanentRuleID()
}

func (r *RuleResolver) resolveTemporary(ctx context.Context, validFrom, validTo time.Time) int {
	name := RuleName(validFrom, validTo)
	if id, ok := r.lookup(name); ok {
		return id
	}

	r.logger.Info("temporary rule missing, creating",
		zap.String("rule_name", name),
		zap.Time("valid_from", validFrom),
		zap.Time("valid_to", validTo))
	rule := buildTimeRule(
		name,
		"TEMP_RULE_"+strconv.FormatInt(time.Now().UnixMilli(), 10),
		"临时通行时段",
		validFrom.Format("2006-01-02"),
		validTo.Format("2006-01-02"),
	)
	if err := r.client.BatchUpsertTimeRules(ctx, []well.TimeRuleUpsert{rule}); err != nil {
		r.logger.Error("failed to create temporary rule",
			zap.String("rule_name", name), zap.Error(err))
		return 0
	}
	if err := r.RefreshCache(ctx); err != nil {
		r.logger.Error("failed to refresh rule cache after create", zap.Error(err))
		return 0
	}
	id, _ := r.lookup(name)
	return id
}

// RuleName derives the deterministic rule name for a validity window.
func RuleName(validFrom, validTo time.Time) string {
	if CrossYear(validFrom, validTo) {
		return fmt.Sprintf("temp_%d-%d", validFrom.Year(), validTo.Year())
	}
	return fmt.Sprintf("temp_%d", validFrom.Year())
}

// CrossYear reports whether a window spans a calendar year boundary.
func CrossYear(validFrom, validTo time.Time) bool {
	return validFrom.Year() != validTo.Year()
}

// buildTimeRule assembles a single full-day window covering the date range.
func buildTimeRule(name, sourceNo, itemName, beginDate, endDate string) well.TimeRuleUpsert {
	return well.TimeRuleUpsert{
		RuleName: name,
		SourceNo: sourceNo,
		ItemList: []well.TimeRuleItem{{
			RuleItemName: itemName,
			BeginDate:    beginDate,
			EndDate:      endDate,
			MonthBegin:   1,
			MonthEnd:     12,
			WeekBegin:    1,
			WeekEnd:      7,
			DayBegin:     1,
			DayEnd:       31,
			TimeBegin1:   "00:00:00",
			TimeEnd1:     "23:59:59",
		}},
	}
}
