package pim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRole() EligibleRoleAssignment {
	return EligibleRoleAssignment{
		RoleName:         "Contributor",
		RoleDefinitionID: contributorDefID,
		Scope:            "/subscriptions/S1",
		PrincipalID:      "principal-1",
	}
}

func newTestEngine(active *fakeActive, submitter *fakeSubmitter, policies *fakePolicies, assignments *fakePolicyAssignments) *Engine {
	if policies == nil {
		policies = &fakePolicies{}
	}
	if assignments == nil {
		assignments = &fakePolicyAssignments{}
	}
	engine := NewEngine(active, submitter, NewPolicyResolver(policies, assignments, nil), "principal-1", nil)
	engine.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	engine.newRequestName = func() string { return "req-1" }
	return engine
}

func TestActivateAlreadyActiveShortCircuits(t *testing.T) {
	active := &fakeActive{instances: []*armauthorization.RoleAssignmentScheduleInstance{
		activeInstance(contributorDefID, "/subscriptions/S1"),
	}}
	submitter := &fakeSubmitter{}
	engine := newTestEngine(active, submitter, nil, nil)

	result := engine.Activate(context.Background(), testRole(), "deploy", 0)

	assert.Equal(t, StatusSkipped, result.Status)
	assert.Equal(t, "Already active", result.Message)
	assert.Empty(t, submitter.submitted, "no submission is expected when the role is already active")
}

func TestActivateActiveAtOtherScopeDoesNotShortCircuit(t *testing.T) {
	active := &fakeActive{instances: []*armauthorization.RoleAssignmentScheduleInstance{
		activeInstance(contributorDefID, "/subscriptions/S1/resourceGroups/RG1"),
	}}
	submitter := &fakeSubmitter{}
	engine := newTestEngine(active, submitter, nil, nil)

	result := engine.Activate(context.Background(), testRole(), "deploy", 0)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Len(t, submitter.submitted, 1)
}

func TestActivateDurationDefaultsToPolicyMax(t *testing.T) {
	submitter := &fakeSubmitter{}
	engine := newTestEngine(&fakeActive{}, submitter, nil, nil)

	result := engine.Activate(context.Background(), testRole(), "deploy", 0)

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "PT8H", result.Duration)
}

func TestActivateDurationCappedByPolicy(t *testing.T) {
	policies := &fakePolicies{policies: map[string]armauthorization.RoleManagementPolicy{
		"/subscriptions/S1|pol-1": expirationPolicy("PT4H"),
	}}
	assignments := &fakePolicyAssignments{assignments: []*armauthorization.RoleManagementPolicyAssignment{
		policyAssignment(contributorDefID, testPolicyID),
	}}
	submitter := &fakeSubmitter{}
	engine := newTestEngine(&fakeActive{}, submitter, policies, assignments)

	result := engine.Activate(context.Background(), testRole(), "deploy", 10)

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "PT4H", result.Duration, "a request above the policy maximum is capped, not rejected")
}

func TestActivateRequestShape(t *testing.T) {
	submitter := &fakeSubmitter{}
	engine := newTestEngine(&fakeActive{}, submitter, nil, nil)
	role := testRole()
	role.EligibilityScheduleID = "/subscriptions/S1/providers/Microsoft.Authorization/roleEligibilitySchedules/sched-1"

	result := engine.Activate(context.Background(), role, "deploy", 2)

	require.Len(t, submitter.submitted, 1)
	sub := submitter.submitted[0]
	assert.Equal(t, "/subscriptions/S1", sub.scope)
	assert.Equal(t, "req-1", sub.requestName)
	assert.Equal(t, "req-1", result.RequestID)

	props := sub.request.Properties
	require.NotNil(t, props)
	assert.Equal(t, "principal-1", *props.PrincipalID)
	assert.Equal(t, contributorDefID, *props.RoleDefinitionID)
	assert.Equal(t, armauthorization.RequestTypeSelfActivate, *props.RequestType)
	assert.Equal(t, "deploy", *props.Justification)
	assert.Equal(t, role.EligibilityScheduleID, *props.LinkedRoleEligibilityScheduleID)

	require.NotNil(t, props.ScheduleInfo)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), *props.ScheduleInfo.StartDateTime)
	require.NotNil(t, props.ScheduleInfo.Expiration)
	assert.Equal(t, armauthorization.TypeAfterDuration, *props.ScheduleInfo.Expiration.Type)
	assert.Equal(t, "PT2H", *props.ScheduleInfo.Expiration.Duration)
}

func TestActivateGroupEligibilitySubmitsUserPrincipal(t *testing.T) {
	submitter := &fakeSubmitter{}
	engine := NewEngine(&fakeActive{}, submitter, NewPolicyResolver(&fakePolicies{}, &fakePolicyAssignments{}, nil), "user-1", nil)

	// A group-held eligibility carries the group's object ID; the activation
	// must still be submitted as the user.
	role := testRole()
	role.PrincipalID = "group-1"
	role.MembershipType = MembershipGroup

	result := engine.Activate(context.Background(), role, "deploy", 0)

	require.Equal(t, StatusSuccess, result.Status)
	require.Len(t, submitter.submitted, 1)
	assert.Equal(t, "user-1", *submitter.submitted[0].request.Properties.PrincipalID)
}

func TestActivatePendingApprovalResponse(t *testing.T) {
	submitter := &fakeSubmitter{status: armauthorization.StatusPendingApproval}
	engine := newTestEngine(&fakeActive{}, submitter, nil, nil)

	result := engine.Activate(context.Background(), testRole(), "deploy", 0)

	assert.Equal(t, StatusPendingApproval, result.Status)
}

func TestActivateErrorClassification(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		wantStatus  ActivationStatus
		wantMessage string
	}{
		{
			name:        "assignment exists",
			err:         errors.New("RoleAssignmentExists: The Role assignment already exists."),
			wantStatus:  StatusSkipped,
			wantMessage: "Already active",
		},
		{
			name:        "duration too short",
			err:         errors.New("ActiveDurationTooShort: remaining duration below minimum"),
			wantStatus:  StatusSkipped,
			wantMessage: "Already active",
		},
		{
			name:       "pending approval",
			err:        errors.New("PendingApproval: The request requires approval."),
			wantStatus: StatusPendingApproval,
		},
		{
			name:        "unclassified error preserves raw text",
			err:         errors.New("InsufficientPermissions: nope"),
			wantStatus:  StatusFailed,
			wantMessage: "InsufficientPermissions: nope",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			submitter := &fakeSubmitter{err: tc.err}
			engine := newTestEngine(&fakeActive{}, submitter, nil, nil)

			result := engine.Activate(context.Background(), testRole(), "deploy", 0)

			assert.Equal(t, tc.wantStatus, result.Status)
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, result.Message)
			}
		})
	}
}

func TestActivateCheckFailureFallsThroughToSubmission(t *testing.T) {
	active := &fakeActive{err: errors.New("transient")}
	submitter := &fakeSubmitter{}
	engine := newTestEngine(active, submitter, nil, nil)

	result := engine.Activate(context.Background(), testRole(), "deploy", 0)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Len(t, submitter.submitted, 1)
}
