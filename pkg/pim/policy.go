package pim

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
)

// DefaultMaxActivationHours is used whenever no policy rule can be resolved.
// Durations are advisory caps, not safety-critical: the resolver degrades to
// this value rather than aborting the run.
const DefaultMaxActivationHours = 8

// endUserExpirationRuleID identifies the rule governing how long an end-user
// self-activation may last.
const endUserExpirationRuleID = "Expiration_EndUser_Assignment"

// PolicyResolver determines the maximum allowed activation duration for a
// role at a scope. Lookups are cached per process, keyed by
// (scope, roleDefinitionId).
type PolicyResolver struct {
	policies    PolicyGetter
	assignments PolicyAssignmentLister
	cache       map[string]int
	logger      *slog.Logger
}

func NewPolicyResolver(policies PolicyGetter, assignments PolicyAssignmentLister, logger *slog.Logger) *PolicyResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyResolver{
		policies:    policies,
		assignments: assignments,
		cache:       make(map[string]int),
		logger:      logger,
	}
}

// MaxDuration returns the maximum activation duration in hours for the role
// at the scope. policyID, when known, short-circuits to a direct policy fetch;
// otherwise the policy is discovered through the assignments at the scope.
// Every failure along the way degrades to DefaultMaxActivationHours.
func (r *PolicyResolver) MaxDuration(ctx context.Context, scope, roleDefinitionID, policyID string) int {
	key := scope + "|" + roleDefinitionID
	if hours, ok := r.cache[key]; ok {
		return hours
	}

	hours := r.resolve(ctx, scope, roleDefinitionID, policyID)
	r.cache[key] = hours
	return hours
}

func (r *PolicyResolver) resolve(ctx context.Context, scope, roleDefinitionID, policyID string) int {
	if policyID != "" {
		if hours, ok := r.fromPolicy(ctx, policyID); ok {
			return hours
		}
	}

	if hours, ok := r.fromAssignments(ctx, scope, roleDefinitionID); ok {
		return hours
	}

	r.logger.Debug("no expiration rule resolved, using default",
		"scope", scope, "roleDefinitionId", roleDefinitionID, "hours", DefaultMaxActivationHours)
	return DefaultMaxActivationHours
}

// fromPolicy fetches the policy resource and scans its effective rules.
func (r *PolicyResolver) fromPolicy(ctx context.Context, policyID string) (int, bool) {
	scope, name, ok := splitPolicyID(policyID)
	if !ok {
		return 0, false
	}

	policy, err := r.policies.GetPolicy(ctx, scope, name)
	if err != nil {
		r.logger.Debug("policy fetch failed", "policyId", policyID, "error", err)
		return 0, false
	}
	if policy.Properties == nil {
		return 0, false
	}
	return maxDurationFromRules(policy.Properties.EffectiveRules)
}

// fromAssignments discovers the governing policy through the policy
// assignments at the scope and applies the same rule scan.
func (r *PolicyResolver) fromAssignments(ctx context.Context, scope, roleDefinitionID string) (int, bool) {
	assignments, err := r.assignments.ListPolicyAssignments(ctx, scope)
	if err != nil {
		r.logger.Debug("policy assignment listing failed", "scope", scope, "error", err)
		return 0, false
	}

	for _, assignment := range assignments {
		if assignment == nil || assignment.Properties == nil || assignment.Properties.RoleDefinitionID == nil {
			continue
		}
		if !strings.EqualFold(*assignment.Properties.RoleDefinitionID, roleDefinitionID) {
			continue
		}
		if assignment.Properties.PolicyID == nil {
			continue
		}
		return r.fromPolicy(ctx, *assignment.Properties.PolicyID)
	}
	return 0, false
}

// maxDurationFromRules scans a rule set for the end-user assignment expiration
// rule and parses its maximum duration.
func maxDurationFromRules(rules []armauthorization.RoleManagementPolicyRuleClassification) (int, bool) {
	for _, classified := range rules {
		rule, ok := classified.(*armauthorization.RoleManagementPolicyExpirationRule)
		if !ok || rule.ID == nil || *rule.ID != endUserExpirationRuleID {
			continue
		}
		if rule.MaximumDuration == nil {
			return 0, false
		}
		return parseDurationHours(*rule.MaximumDuration)
	}
	return 0, false
}

// parseDurationHours converts the restricted ISO-8601 duration forms PIM
// policies use into whole hours. PT{n}H maps to n, PT{n}M rounds down but
// never below one hour, P{n}D maps to n*24. Anything else is untranslatable.
func parseDurationHours(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "PT") && strings.HasSuffix(s, "H"):
		n, err := strconv.Atoi(s[2 : len(s)-1])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	case strings.HasPrefix(s, "PT") && strings.HasSuffix(s, "M"):
		n, err := strconv.Atoi(s[2 : len(s)-1])
		if err != nil || n <= 0 {
			return 0, false
		}
		hours := n / 60
		if hours < 1 {
			hours = 1
		}
		return hours, true
	case strings.HasPrefix(s, "P") && strings.HasSuffix(s, "D"):
		n, err := strconv.Atoi(s[1 : len(s)-1])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n * 24, true
	}
	return 0, false
}

// splitPolicyID splits a roleManagementPolicies resource identifier into the
// scope it hangs off and the policy name.
func splitPolicyID(policyID string) (scope, name string, ok bool) {
	const marker = "/providers/Microsoft.Authorization/roleManagementPolicies/"
	i := strings.Index(policyID, marker)
	if i < 0 {
		return "", "", false
	}
	name = policyID[i+len(marker):]
	if name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return policyID[:i], name, true
}
