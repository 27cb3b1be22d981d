package pim

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
)

// tenantRootScope is the scope queried for "everything assigned to me".
const tenantRootScope = "/"

// SubscriptionNameResolver maps subscription IDs to display names. The
// implementation is expected to cache per process.
type SubscriptionNameResolver interface {
	ResolveSubscriptionName(ctx context.Context, subscriptionID string) string
}

// ScanOptions narrows an eligibility scan.
type ScanOptions struct {
	// FilterScopes keeps a record when its scope equals one of the filters or
	// is a strict descendant path of it. Nil means no scope filtering.
	FilterScopes []string

	// FilterRoleNames requires an exact case-sensitive match against the
	// resolved role name. Nil means no role filtering.
	FilterRoleNames []string

	// IncludeScopeDetails decomposes each record's scope and enriches it with
	// the subscription display name.
	IncludeScopeDetails bool
}

// Scanner enumerates role-eligibility records for the current principal.
type Scanner struct {
	eligibility EligibilityLister
	catalog     *Catalog
	subs        SubscriptionNameResolver
	logger      *slog.Logger
}

// NewScanner builds a scanner. subs may be nil when scope details are never
// requested.
func NewScanner(eligibility EligibilityLister, catalog *Catalog, subs SubscriptionNameResolver, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		eligibility: eligibility,
		catalog:     catalog,
		subs:        subs,
		logger:      logger,
	}
}

// Scan lists all eligibility records targeting the current principal and
// applies the requested filters. Zero eligible roles is an empty list, not an
// error; an authorization rejection surfaces as ErrAuth. Returned records
// carry no ordering guarantee and may contain duplicates (group co-assignment)
// that the caller must collapse before activation.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) ([]EligibleRoleAssignment, error) {
	instances, err := s.eligibility.ListEligibilityInstances(ctx, tenantRootScope)
	if err != nil {
		return nil, classifyAuthError(err)
	}

	results := make([]EligibleRoleAssignment, 0, len(instances))
	for _, instance := range instances {
		record, ok := s.toAssignment(ctx, instance)
		if !ok {
			continue
		}
		if opts.FilterScopes != nil && !matchesAnyScope(record.Scope, opts.FilterScopes) {
			continue
		}
		if opts.FilterRoleNames != nil && !containsExact(opts.FilterRoleNames, record.RoleName) {
			continue
		}
		if opts.IncludeScopeDetails {
			s.decorateScope(ctx, &record)
		}
		results = append(results, record)
	}

	s.logger.Debug("eligibility scan complete", "records", len(results), "total", len(instances))
	return results, nil
}

func (s *Scanner) toAssignment(ctx context.Context, instance *armauthorization.RoleEligibilityScheduleInstance) (EligibleRoleAssignment, bool) {
	if instance == nil || instance.Properties == nil {
		return EligibleRoleAssignment{}, false
	}
	props := instance.Properties
	if props.RoleDefinitionID == nil || props.Scope == nil {
		return EligibleRoleAssignment{}, false
	}

	record := EligibleRoleAssignment{
		RoleName:         s.catalog.Resolve(ctx, *props.Scope, *props.RoleDefinitionID),
		RoleDefinitionID: *props.RoleDefinitionID,
		Scope:            *props.Scope,
		MembershipType:   MembershipDirect,
	}
	if props.RoleEligibilityScheduleID != nil {
		record.EligibilityScheduleID = *props.RoleEligibilityScheduleID
	}
	if props.PrincipalID != nil {
		record.PrincipalID = *props.PrincipalID
	}
	if props.MemberType != nil && *props.MemberType == armauthorization.MemberTypeGroup {
		record.MembershipType = MembershipGroup
	}
	return record, true
}

func (s *Scanner) decorateScope(ctx context.Context, record *EligibleRoleAssignment) {
	parts := decomposeScope(record.Scope)
	record.ScopeLevel = parts.Level
	record.SubscriptionID = parts.SubscriptionID
	record.ResourceGroupName = parts.ResourceGroupName
	record.ResourceName = parts.ResourceName

	if parts.SubscriptionID != "" && s.subs != nil {
		record.SubscriptionName = s.subs.ResolveSubscriptionName(ctx, parts.SubscriptionID)
	}
}

// Dedupe collapses duplicate (roleName, scope) records, keeping the first
// occurrence, and returns them ordered by scope then role name so batch runs
// are deterministic.
func Dedupe(records []EligibleRoleAssignment) []EligibleRoleAssignment {
	seen := make(map[string]bool, len(records))
	out := make([]EligibleRoleAssignment, 0, len(records))
	for _, record := range records {
		if seen[record.Key()] {
			continue
		}
		seen[record.Key()] = true
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].RoleName < out[j].RoleName
	})
	return out
}

func matchesAnyScope(scope string, filters []string) bool {
	for _, filter := range filters {
		if ScopeMatches(scope, filter) {
			return true
		}
	}
	return false
}

func containsExact(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
