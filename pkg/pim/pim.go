// Package pim implements the Privileged Identity Management activation
// workflow: scanning role eligibilities for the current principal, resolving
// policy-capped activation durations, and driving batches of self-activation
// requests against the Azure control plane.
package pim

import (
	"context"
	"log/slog"
	"strings"

	u "github.com/mpvl/unique"
)

// Dependencies carries the collaborator surfaces the service is assembled
// from. Tests inject fakes; production wires everything to a *Client.
type Dependencies struct {
	Eligibility       EligibilityLister
	Active            ActiveAssignmentLister
	Requests          ActivationSubmitter
	RoleDefinitions   RoleDefinitionGetter
	Policies          PolicyGetter
	PolicyAssignments PolicyAssignmentLister
	Subscriptions     SubscriptionNameResolver
	Logger            *slog.Logger

	// PrincipalID is the authenticated user's object ID, submitted on every
	// activation request regardless of whether the eligibility is held
	// directly or through a group.
	PrincipalID string
}

// Service is the caller-facing surface of the PIM subsystem.
type Service struct {
	scanner      *Scanner
	policy       *PolicyResolver
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewService assembles the scanner, resolvers, engine and orchestrator. The
// role-name and policy caches are owned by this instance and last for a
// single run of the workflow.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog := NewCatalog(deps.RoleDefinitions, logger)
	policy := NewPolicyResolver(deps.Policies, deps.PolicyAssignments, logger)
	scanner := NewScanner(deps.Eligibility, catalog, deps.Subscriptions, logger)
	engine := NewEngine(deps.Active, deps.Requests, policy, deps.PrincipalID, logger)

	return &Service{
		scanner:      scanner,
		policy:       policy,
		orchestrator: NewOrchestrator(engine, logger),
		logger:       logger,
	}
}

// NewServiceFromClient wires every collaborator to the ARM client set, acting
// as the given principal.
func NewServiceFromClient(client *Client, subs SubscriptionNameResolver, principalID string, logger *slog.Logger) *Service {
	return NewService(Dependencies{
		Eligibility:       client,
		Active:            client,
		Requests:          client,
		RoleDefinitions:   client,
		Policies:          client,
		PolicyAssignments: client,
		Subscriptions:     subs,
		Logger:            logger,
		PrincipalID:       principalID,
	})
}

// ListOptions narrows the eligible-role listing.
type ListOptions struct {
	Scopes    []string
	RoleNames []string
}

// ActivateOptions parameterizes a batch activation.
type ActivateOptions struct {
	// ActivateAll requests activation of every eligible role. Without it, at
	// least one scope or role-name filter must be given.
	ActivateAll bool

	Scopes    []string
	RoleNames []string

	// Justification is mandatory: PIM activations are human-justification
	// gated.
	Justification string

	// DurationHours of zero (or below) means "the policy maximum".
	DurationHours int
}

// ListEligible returns the deduplicated eligible roles for the current
// principal, enriched with scope decomposition and the policy-resolved
// activation ceiling per entry.
func (s *Service) ListEligible(ctx context.Context, opts ListOptions) ([]EligibleRoleAssignment, error) {
	records, err := s.scanner.Scan(ctx, ScanOptions{
		FilterScopes:        normalizeFilter(opts.Scopes),
		FilterRoleNames:     normalizeFilter(opts.RoleNames),
		IncludeScopeDetails: true,
	})
	if err != nil {
		return nil, err
	}

	records = Dedupe(records)
	for i := range records {
		records[i].MaxHours = s.policy.MaxDuration(ctx, records[i].Scope, records[i].RoleDefinitionID, records[i].PolicyID)
	}
	return records, nil
}

// ActivateRoles scans, filters, deduplicates and activates eligible roles,
// returning the aggregated report. Validation and auth failures are
// fail-fast; per-role failures are recorded in the report and the batch
// always completes.
func (s *Service) ActivateRoles(ctx context.Context, opts ActivateOptions) (*BatchReport, error) {
	if err := validateActivateOptions(opts); err != nil {
		return nil, err
	}

	records, err := s.scanner.Scan(ctx, ScanOptions{
		FilterScopes:    normalizeFilter(opts.Scopes),
		FilterRoleNames: normalizeFilter(opts.RoleNames),
	})
	if err != nil {
		return nil, err
	}

	report := s.orchestrator.Run(ctx, Dedupe(records), opts.Justification, opts.DurationHours)
	return &report, nil
}

func validateActivateOptions(opts ActivateOptions) error {
	if strings.TrimSpace(opts.Justification) == "" {
		return validationError("justification is required")
	}
	if !opts.ActivateAll && len(opts.Scopes) == 0 && len(opts.RoleNames) == 0 {
		return validationError("specify --all or at least one scope/role filter")
	}
	return nil
}

// normalizeFilter copies, sorts and uniques a caller-supplied filter list.
// Nil in, nil out: an absent filter means "no filtering", not "match nothing".
func normalizeFilter(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := append([]string(nil), values...)
	r := u.StringSlice{P: &out}
	u.Sort(r)
	u.Strings(r.P)
	return out
}
