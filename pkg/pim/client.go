package pim

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
)

// asTargetFilter restricts schedule-instance queries server-side to records
// targeting the calling principal.
const asTargetFilter = "asTarget()"

// The control plane is consumed through narrow per-operation interfaces so
// that the scanner, resolvers and engine can be exercised against fakes.

// EligibilityLister enumerates role-eligibility instances at a scope for the
// current principal.
type EligibilityLister interface {
	ListEligibilityInstances(ctx context.Context, scope string) ([]*armauthorization.RoleEligibilityScheduleInstance, error)
}

// ActiveAssignmentLister enumerates currently active role-assignment instances
// at a scope for the current principal.
type ActiveAssignmentLister interface {
	ListActiveAssignmentInstances(ctx context.Context, scope string) ([]*armauthorization.RoleAssignmentScheduleInstance, error)
}

// ActivationSubmitter submits a role-activation request. The request name is
// the idempotency key: resubmitting the same name is a no-op on the control
// plane.
type ActivationSubmitter interface {
	SubmitActivationRequest(ctx context.Context, scope, requestName string, req armauthorization.RoleAssignmentScheduleRequest) (armauthorization.RoleAssignmentScheduleRequest, error)
}

// RoleDefinitionGetter resolves role definitions by scoped name or by full
// resource identifier.
type RoleDefinitionGetter interface {
	GetRoleDefinition(ctx context.Context, scope, roleDefinitionName string) (armauthorization.RoleDefinition, error)
	GetRoleDefinitionByID(ctx context.Context, roleDefinitionID string) (armauthorization.RoleDefinition, error)
}

// PolicyGetter fetches a role management policy by scope and name.
type PolicyGetter interface {
	GetPolicy(ctx context.Context, scope, policyName string) (armauthorization.RoleManagementPolicy, error)
}

// PolicyAssignmentLister enumerates role management policy assignments at a
// scope.
type PolicyAssignmentLister interface {
	ListPolicyAssignments(ctx context.Context, scope string) ([]*armauthorization.RoleManagementPolicyAssignment, error)
}

// Client bundles the ARM authorization clients behind the interfaces above.
type Client struct {
	eligibility       *armauthorization.RoleEligibilityScheduleInstancesClient
	activeAssignments *armauthorization.RoleAssignmentScheduleInstancesClient
	requests          *armauthorization.RoleAssignmentScheduleRequestsClient
	roleDefinitions   *armauthorization.RoleDefinitionsClient
	policies          *armauthorization.RoleManagementPoliciesClient
	policyAssignments *armauthorization.RoleManagementPolicyAssignmentsClient
}

var (
	_ EligibilityLister      = (*Client)(nil)
	_ ActiveAssignmentLister = (*Client)(nil)
	_ ActivationSubmitter    = (*Client)(nil)
	_ RoleDefinitionGetter   = (*Client)(nil)
	_ PolicyGetter           = (*Client)(nil)
	_ PolicyAssignmentLister = (*Client)(nil)
)

// NewClient builds the ARM authorization client set from a credential.
func NewClient(cred azcore.TokenCredential, options *arm.ClientOptions) (*Client, error) {
	eligibility, err := armauthorization.NewRoleEligibilityScheduleInstancesClient(cred, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create eligibility instances client: %w", err)
	}
	active, err := armauthorization.NewRoleAssignmentScheduleInstancesClient(cred, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment instances client: %w", err)
	}
	requests, err := armauthorization.NewRoleAssignmentScheduleRequestsClient(cred, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule requests client: %w", err)
	}
	roleDefs, err := armauthorization.NewRoleDefinitionsClient(cred, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create role definitions client: %w", err)
	}
	policies, err := armauthorization.NewRoleManagementPoliciesClient(cred, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create policies client: %w", err)
	}
	policyAssignments, err := armauthorization.NewRoleManagementPolicyAssignmentsClient(cred, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy assignments client: %w", err)
	}

	return &Client{
		eligibility:       eligibility,
		activeAssignments: active,
		requests:          requests,
		roleDefinitions:   roleDefs,
		policies:          policies,
		policyAssignments: policyAssignments,
	}, nil
}

func (c *Client) ListEligibilityInstances(ctx context.Context, scope string) ([]*armauthorization.RoleEligibilityScheduleInstance, error) {
	var instances []*armauthorization.RoleEligibilityScheduleInstance
	pager := c.eligibility.NewListForScopePager(scope, &armauthorization.RoleEligibilityScheduleInstancesClientListForScopeOptions{
		Filter: to.Ptr(asTargetFilter),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list eligibility instances: %w", err)
		}
		instances = append(instances, page.Value...)
	}
	return instances, nil
}

func (c *Client) ListActiveAssignmentInstances(ctx context.Context, scope string) ([]*armauthorization.RoleAssignmentScheduleInstance, error) {
	var instances []*armauthorization.RoleAssignmentScheduleInstance
	pager := c.activeAssignments.NewListForScopePager(scope, &armauthorization.RoleAssignmentScheduleInstancesClientListForScopeOptions{
		Filter: to.Ptr(asTargetFilter),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active assignment instances: %w", err)
		}
		instances = append(instances, page.Value...)
	}
	return instances, nil
}

func (c *Client) SubmitActivationRequest(ctx context.Context, scope, requestName string, req armauthorization.RoleAssignmentScheduleRequest) (armauthorization.RoleAssignmentScheduleRequest, error) {
	resp, err := c.requests.Create(ctx, scope, requestName, req, nil)
	if err != nil {
		return armauthorization.RoleAssignmentScheduleRequest{}, err
	}
	return resp.RoleAssignmentScheduleRequest, nil
}

func (c *Client) GetRoleDefinition(ctx context.Context, scope, roleDefinitionName string) (armauthorization.RoleDefinition, error) {
	resp, err := c.roleDefinitions.Get(ctx, scope, roleDefinitionName, nil)
	if err != nil {
		return armauthorization.RoleDefinition{}, err
	}
	return resp.RoleDefinition, nil
}

func (c *Client) GetRoleDefinitionByID(ctx context.Context, roleDefinitionID string) (armauthorization.RoleDefinition, error) {
	resp, err := c.roleDefinitions.GetByID(ctx, roleDefinitionID, nil)
	if err != nil {
		return armauthorization.RoleDefinition{}, err
	}
	return resp.RoleDefinition, nil
}

func (c *Client) GetPolicy(ctx context.Context, scope, policyName string) (armauthorization.RoleManagementPolicy, error) {
	resp, err := c.policies.Get(ctx, scope, policyName, nil)
	if err != nil {
		return armauthorization.RoleManagementPolicy{}, err
	}
	return resp.RoleManagementPolicy, nil
}

func (c *Client) ListPolicyAssignments(ctx context.Context, scope string) ([]*armauthorization.RoleManagementPolicyAssignment, error) {
	var assignments []*armauthorization.RoleManagementPolicyAssignment
	pager := c.policyAssignments.NewListForScopePager(scope, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list policy assignments: %w", err)
		}
		assignments = append(assignments, page.Value...)
	}
	return assignments, nil
}
