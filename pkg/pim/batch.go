package pim

import (
	"context"
	"fmt"
	"log/slog"
)

// Activator is the engine surface the orchestrator drives; split out so batch
// semantics can be tested without ARM plumbing.
type Activator interface {
	Activate(ctx context.Context, role EligibleRoleAssignment, justification string, requestedHours int) ActivationResult
}

// Orchestrator runs the activation engine across a set of eligible roles,
// strictly sequentially, and aggregates the outcomes. Sequential processing
// is deliberate: PIM activation is low-frequency and human-gated, and
// serializing sidesteps write-rate limits and same-scope races without any
// locking.
type Orchestrator struct {
	engine Activator
	logger *slog.Logger
}

func NewOrchestrator(engine Activator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{engine: engine, logger: logger}
}

// Run attempts each role once, in input order, and returns the aggregated
// report. A single role's failure is recorded and never aborts the batch; the
// results list preserves input order so callers can line outcomes up with
// requests. Roles are deduplicated defensively by (roleName, scope) even
// though callers are expected to have done so already.
func (o *Orchestrator) Run(ctx context.Context, roles []EligibleRoleAssignment, justification string, requestedHours int) BatchReport {
	roles = dedupeInOrder(roles)

	report := BatchReport{
		Activations: make([]ActivationResult, 0, len(roles)),
	}
	report.Summary.Total = len(roles)

	if len(roles) == 0 {
		report.Summary.Message = "No eligible roles to activate"
		return report
	}

	for _, role := range roles {
		result := o.engine.Activate(ctx, role, justification, requestedHours)
		report.Activations = append(report.Activations, result)

		switch result.Status {
		case StatusSuccess, StatusPendingApproval:
			report.Summary.Successful++
		case StatusSkipped:
			report.Summary.Skipped++
		case StatusFailed:
			report.Summary.Failed++
		}
	}

	report.Summary.Message = fmt.Sprintf("Activated %d of %d role(s), %d skipped, %d failed",
		report.Summary.Successful, report.Summary.Total, report.Summary.Skipped, report.Summary.Failed)
	o.logger.Info("batch complete",
		"total", report.Summary.Total,
		"successful", report.Summary.Successful,
		"skipped", report.Summary.Skipped,
		"failed", report.Summary.Failed)
	return report
}

// dedupeInOrder removes duplicate (roleName, scope) pairs preserving input
// order, unlike Dedupe which also sorts.
func dedupeInOrder(roles []EligibleRoleAssignment) []EligibleRoleAssignment {
	seen := make(map[string]bool, len(roles))
	out := make([]EligibleRoleAssignment, 0, len(roles))
	for _, role := range roles {
		if seen[role.Key()] {
			continue
		}
		seen[role.Key()] = true
		out = append(out, role)
	}
	return out
}
