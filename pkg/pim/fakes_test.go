package pim

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
)

type fakeEligibility struct {
	instances []*armauthorization.RoleEligibilityScheduleInstance
	err       error
	calls     int
}

func (f *fakeEligibility) ListEligibilityInstances(ctx context.Context, scope string) ([]*armauthorization.RoleEligibilityScheduleInstance, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.instances, nil
}

type fakeActive struct {
	instances []*armauthorization.RoleAssignmentScheduleInstance
	err       error
	calls     int
}

func (f *fakeActive) ListActiveAssignmentInstances(ctx context.Context, scope string) ([]*armauthorization.RoleAssignmentScheduleInstance, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.instances, nil
}

type submission struct {
	scope       string
	requestName string
	request     armauthorization.RoleAssignmentScheduleRequest
}

type fakeSubmitter struct {
	err       error
	status    armauthorization.Status
	submitted []submission
}

func (f *fakeSubmitter) SubmitActivationRequest(ctx context.Context, scope, requestName string, req armauthorization.RoleAssignmentScheduleRequest) (armauthorization.RoleAssignmentScheduleRequest, error) {
	f.submitted = append(f.submitted, submission{scope: scope, requestName: requestName, request: req})
	if f.err != nil {
		return armauthorization.RoleAssignmentScheduleRequest{}, f.err
	}
	resp := req
	if resp.Properties == nil {
		resp.Properties = &armauthorization.RoleAssignmentScheduleRequestProperties{}
	}
	status := f.status
	if status == "" {
		status = armauthorization.StatusProvisioned
	}
	resp.Properties.Status = to.Ptr(status)
	return resp, nil
}

type fakeRoleDefs struct {
	byScoped    map[string]string // "scope|name" -> role name
	byID        map[string]string // full id -> role name
	scopedCalls int
	byIDCalls   int
}

func (f *fakeRoleDefs) GetRoleDefinition(ctx context.Context, scope, name string) (armauthorization.RoleDefinition, error) {
	f.scopedCalls++
	if roleName, ok := f.byScoped[scope+"|"+name]; ok {
		return roleDefinition(roleName), nil
	}
	return armauthorization.RoleDefinition{}, fmt.Errorf("RoleDefinitionDoesNotExist: %s at %s", name, scope)
}

func (f *fakeRoleDefs) GetRoleDefinitionByID(ctx context.Context, id string) (armauthorization.RoleDefinition, error) {
	f.byIDCalls++
	if roleName, ok := f.byID[id]; ok {
		return roleDefinition(roleName), nil
	}
	return armauthorization.RoleDefinition{}, fmt.Errorf("RoleDefinitionDoesNotExist: %s", id)
}

type fakePolicies struct {
	policies map[string]armauthorization.RoleManagementPolicy // "scope|name" -> policy
	err      error
	calls    int
}

func (f *fakePolicies) GetPolicy(ctx context.Context, scope, name string) (armauthorization.RoleManagementPolicy, error) {
	f.calls++
	if f.err != nil {
		return armauthorization.RoleManagementPolicy{}, f.err
	}
	if policy, ok := f.policies[scope+"|"+name]; ok {
		return policy, nil
	}
	return armauthorization.RoleManagementPolicy{}, fmt.Errorf("PolicyNotFound: %s at %s", name, scope)
}

type fakePolicyAssignments struct {
	assignments []*armauthorization.RoleManagementPolicyAssignment
	err         error
}

func (f *fakePolicyAssignments) ListPolicyAssignments(ctx context.Context, scope string) ([]*armauthorization.RoleManagementPolicyAssignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assignments, nil
}

type fakeSubscriptionNames struct {
	names map[string]string
}

func (f *fakeSubscriptionNames) ResolveSubscriptionName(ctx context.Context, subscriptionID string) string {
	if name, ok := f.names[subscriptionID]; ok {
		return name
	}
	return subscriptionID
}

func roleDefinition(roleName string) armauthorization.RoleDefinition {
	return armauthorization.RoleDefinition{
		Properties: &armauthorization.RoleDefinitionProperties{
			RoleName: to.Ptr(roleName),
		},
	}
}

func eligibilityInstance(roleDefinitionID, scope, principalID string) *armauthorization.RoleEligibilityScheduleInstance {
	return &armauthorization.RoleEligibilityScheduleInstance{
		Properties: &armauthorization.RoleEligibilityScheduleInstanceProperties{
			RoleDefinitionID:          to.Ptr(roleDefinitionID),
			Scope:                     to.Ptr(scope),
			PrincipalID:               to.Ptr(principalID),
			RoleEligibilityScheduleID: to.Ptr(scope + "/providers/Microsoft.Authorization/roleEligibilitySchedules/" + lastSegment(roleDefinitionID)),
			MemberType:                to.Ptr(armauthorization.MemberTypeDirect),
		},
	}
}

func activeInstance(roleDefinitionID, scope string) *armauthorization.RoleAssignmentScheduleInstance {
	return &armauthorization.RoleAssignmentScheduleInstance{
		Properties: &armauthorization.RoleAssignmentScheduleInstanceProperties{
			RoleDefinitionID: to.Ptr(roleDefinitionID),
			Scope:            to.Ptr(scope),
		},
	}
}

func expirationPolicy(maximumDuration string) armauthorization.RoleManagementPolicy {
	return armauthorization.RoleManagementPolicy{
		Properties: &armauthorization.RoleManagementPolicyProperties{
			EffectiveRules: []armauthorization.RoleManagementPolicyRuleClassification{
				&armauthorization.RoleManagementPolicyExpirationRule{
					ID:              to.Ptr(endUserExpirationRuleID),
					MaximumDuration: to.Ptr(maximumDuration),
				},
			},
		},
	}
}

func policyAssignment(roleDefinitionID, policyID string) *armauthorization.RoleManagementPolicyAssignment {
	return &armauthorization.RoleManagementPolicyAssignment{
		Properties: &armauthorization.RoleManagementPolicyAssignmentProperties{
			RoleDefinitionID: to.Ptr(roleDefinitionID),
			PolicyID:         to.Ptr(policyID),
		},
	}
}
