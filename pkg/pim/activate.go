package pim

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/google/uuid"
)

// outcomeRule classifies a submission error by substring. Rules are evaluated
// in order against the lowercased error text; the first hit wins and anything
// unmatched is Failed with the raw error preserved.
type outcomeRule struct {
	substrings []string
	status     ActivationStatus
	message    string
}

// activationOutcomeRules is the second line of defense behind the
// already-active pre-check: the control plane's free-text errors for
// check-and-submit races and too-short remainders collapse to Skipped, and
// approval-gated submissions to PendingApproval. Extend the table, not the
// engine.
var activationOutcomeRules = []outcomeRule{
	{
		substrings: []string{
			"roleassignmentexists",
			"role assignment already exists",
			"already active",
			"activedurationtooshort",
			"duration too short",
			"roleassignmentrequestexists",
		},
		status:  StatusSkipped,
		message: "Already active",
	},
	{
		substrings: []string{
			"pendingapproval",
			"pending approval",
			"pendingadmindecision",
		},
		status:  StatusPendingApproval,
		message: "Activation submitted, pending approval",
	},
}

func classifySubmissionError(err error) (ActivationStatus, string) {
	text := strings.ToLower(err.Error())
	for _, rule := range activationOutcomeRules {
		for _, substring := range rule.substrings {
			if strings.Contains(text, substring) {
				return rule.status, rule.message
			}
		}
	}
	return StatusFailed, err.Error()
}

// Engine drives one activation attempt per (role, scope) pair. Each attempt
// runs an already-active check, resolves the effective duration against
// policy, and submits a self-activation request keyed by a fresh idempotency
// identifier. There are no retries: a role is attempted exactly once per run.
type Engine struct {
	active      ActiveAssignmentLister
	requests    ActivationSubmitter
	policy      *PolicyResolver
	principalID string
	logger      *slog.Logger

	// Injection points for deterministic tests.
	now            func() time.Time
	newRequestName func() string
}

// NewEngine builds an activation engine acting as principalID. The record's
// own principal is never submitted: for group-held eligibilities it is the
// group's object ID, and a self-activation must name the user.
func NewEngine(active ActiveAssignmentLister, requests ActivationSubmitter, policy *PolicyResolver, principalID string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		active:         active,
		requests:       requests,
		policy:         policy,
		principalID:    principalID,
		logger:         logger,
		now:            time.Now,
		newRequestName: uuid.NewString,
	}
}

// Activate attempts to activate one eligible role. Failures never propagate:
// every outcome, including transport errors, is folded into the returned
// ActivationResult.
func (e *Engine) Activate(ctx context.Context, role EligibleRoleAssignment, justification string, requestedHours int) ActivationResult {
	result := ActivationResult{
		RoleName: role.RoleName,
		Scope:    role.Scope,
	}

	// Best-effort race reduction: the check and the submission are not atomic
	// against the control plane, so a duplicate can still slip through and is
	// caught by the error classification below.
	if e.alreadyActive(ctx, role) {
		result.Status = StatusSkipped
		result.Message = "Already active"
		return result
	}

	hours := e.resolveHours(ctx, role, requestedHours)
	duration := fmt.Sprintf("PT%dH", hours)
	requestName := e.newRequestName()

	req := armauthorization.RoleAssignmentScheduleRequest{
		Properties: &armauthorization.RoleAssignmentScheduleRequestProperties{
			PrincipalID:      to.Ptr(e.principalID),
			RoleDefinitionID: to.Ptr(role.RoleDefinitionID),
			RequestType:      to.Ptr(armauthorization.RequestTypeSelfActivate),
			Justification:    to.Ptr(justification),
			ScheduleInfo: &armauthorization.RoleAssignmentScheduleRequestPropertiesScheduleInfo{
				StartDateTime: to.Ptr(e.now().UTC()),
				Expiration: &armauthorization.RoleAssignmentScheduleRequestPropertiesScheduleInfoExpiration{
					Type:     to.Ptr(armauthorization.TypeAfterDuration),
					Duration: to.Ptr(duration),
				},
			},
		},
	}
	if role.EligibilityScheduleID != "" {
		req.Properties.LinkedRoleEligibilityScheduleID = to.Ptr(role.EligibilityScheduleID)
	}

	e.logger.Info("submitting activation request",
		"role", role.RoleName, "scope", role.Scope, "duration", duration, "requestId", requestName)

	resp, err := e.requests.SubmitActivationRequest(ctx, role.Scope, requestName, req)
	if err != nil {
		result.Status, result.Message = classifySubmissionError(err)
		if result.Status == StatusFailed {
			e.logger.Warn("activation failed", "role", role.RoleName, "scope", role.Scope, "error", err)
		}
		return result
	}

	result.Duration = duration
	result.RequestID = requestName
	if isPendingApproval(resp) {
		result.Status = StatusPendingApproval
		result.Message = "Activation submitted, pending approval"
	} else {
		result.Status = StatusSuccess
		result.Message = fmt.Sprintf("Activated for %d hour(s)", hours)
	}
	return result
}

// alreadyActive reports whether an active assignment instance exists for the
// role at exactly its scope. Lookup failures are treated as "not active" and
// left to the submission to sort out.
func (e *Engine) alreadyActive(ctx context.Context, role EligibleRoleAssignment) bool {
	instances, err := e.active.ListActiveAssignmentInstances(ctx, role.Scope)
	if err != nil {
		e.logger.Debug("active assignment check failed", "scope", role.Scope, "error", err)
		return false
	}
	for _, instance := range instances {
		if instance == nil || instance.Properties == nil {
			continue
		}
		props := instance.Properties
		if props.RoleDefinitionID == nil || props.Scope == nil {
			continue
		}
		if *props.RoleDefinitionID == role.RoleDefinitionID && *props.Scope == role.Scope {
			return true
		}
	}
	return false
}

// resolveHours applies the policy ceiling: a non-positive request means "give
// me the maximum", and anything above the maximum is capped, not rejected.
func (e *Engine) resolveHours(ctx context.Context, role EligibleRoleAssignment, requestedHours int) int {
	maxHours := e.policy.MaxDuration(ctx, role.Scope, role.RoleDefinitionID, role.PolicyID)
	if requestedHours <= 0 {
		return maxHours
	}
	if requestedHours > maxHours {
		e.logger.Info("requested duration exceeds policy maximum, capping",
			"role", role.RoleName, "requested", requestedHours, "max", maxHours)
		return maxHours
	}
	return requestedHours
}

func isPendingApproval(resp armauthorization.RoleAssignmentScheduleRequest) bool {
	if resp.Properties == nil || resp.Properties.Status == nil {
		return false
	}
	switch *resp.Properties.Status {
	case armauthorization.StatusPendingApproval,
		armauthorization.StatusPendingApprovalProvisioning,
		armauthorization.StatusPendingAdminDecision:
		return true
	}
	return false
}
