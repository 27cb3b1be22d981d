package pim

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/stretchr/testify/assert"
)

func TestParseDurationHours(t *testing.T) {
	testCases := []struct {
		input     string
		wantHours int
		wantOK    bool
	}{
		{"PT2H", 2, true},
		{"PT8H", 8, true},
		{"PT90M", 1, true},
		{"PT240M", 4, true},
		{"PT30M", 1, true}, // sub-hour rounds down but never below 1
		{"P1D", 24, true},
		{"P2D", 48, true},
		{"pt4h", 4, true},
		{"P1DT4H", 0, false},
		{"PT", 0, false},
		{"8", 0, false},
		{"", 0, false},
		{"PT-2H", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			hours, ok := parseDurationHours(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantHours, hours)
			}
		})
	}
}

func TestSplitPolicyID(t *testing.T) {
	scope, name, ok := splitPolicyID("/subscriptions/S1/providers/Microsoft.Authorization/roleManagementPolicies/pol-1")
	assert.True(t, ok)
	assert.Equal(t, "/subscriptions/S1", scope)
	assert.Equal(t, "pol-1", name)

	_, _, ok = splitPolicyID("/subscriptions/S1")
	assert.False(t, ok)
}

const testPolicyID = "/subscriptions/S1/providers/Microsoft.Authorization/roleManagementPolicies/pol-1"

func TestMaxDurationDirectPolicy(t *testing.T) {
	policies := &fakePolicies{policies: map[string]armauthorization.RoleManagementPolicy{
		"/subscriptions/S1|pol-1": expirationPolicy("PT4H"),
	}}
	resolver := NewPolicyResolver(policies, &fakePolicyAssignments{}, nil)

	hours := resolver.MaxDuration(context.Background(), "/subscriptions/S1", "role-def-1", testPolicyID)
	assert.Equal(t, 4, hours)
}

func TestMaxDurationViaAssignments(t *testing.T) {
	policies := &fakePolicies{policies: map[string]armauthorization.RoleManagementPolicy{
		"/subscriptions/S1|pol-1": expirationPolicy("P1D"),
	}}
	assignments := &fakePolicyAssignments{assignments: []*armauthorization.RoleManagementPolicyAssignment{
		policyAssignment("other-role", "/subscriptions/S1/providers/Microsoft.Authorization/roleManagementPolicies/pol-other"),
		policyAssignment("role-def-1", testPolicyID),
	}}
	resolver := NewPolicyResolver(policies, assignments, nil)

	hours := resolver.MaxDuration(context.Background(), "/subscriptions/S1", "role-def-1", "")
	assert.Equal(t, 24, hours)
}

func TestMaxDurationDefaults(t *testing.T) {
	testCases := []struct {
		name        string
		policies    *fakePolicies
		assignments *fakePolicyAssignments
	}{
		{
			name:        "no assignments at scope",
			policies:    &fakePolicies{},
			assignments: &fakePolicyAssignments{},
		},
		{
			name:        "policy fetch fails",
			policies:    &fakePolicies{err: errors.New("boom")},
			assignments: &fakePolicyAssignments{assignments: []*armauthorization.RoleManagementPolicyAssignment{policyAssignment("role-def-1", testPolicyID)}},
		},
		{
			name:        "assignment listing fails",
			policies:    &fakePolicies{},
			assignments: &fakePolicyAssignments{err: errors.New("boom")},
		},
		{
			name: "unrecognized duration string",
			policies: &fakePolicies{policies: map[string]armauthorization.RoleManagementPolicy{
				"/subscriptions/S1|pol-1": expirationPolicy("P1M"),
			}},
			assignments: &fakePolicyAssignments{assignments: []*armauthorization.RoleManagementPolicyAssignment{policyAssignment("role-def-1", testPolicyID)}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := NewPolicyResolver(tc.policies, tc.assignments, nil)
			hours := resolver.MaxDuration(context.Background(), "/subscriptions/S1", "role-def-1", "")
			assert.Equal(t, DefaultMaxActivationHours, hours)
		})
	}
}

func TestMaxDurationCaches(t *testing.T) {
	policies := &fakePolicies{policies: map[string]armauthorization.RoleManagementPolicy{
		"/subscriptions/S1|pol-1": expirationPolicy("PT4H"),
	}}
	resolver := NewPolicyResolver(policies, &fakePolicyAssignments{}, nil)

	for i := 0; i < 3; i++ {
		resolver.MaxDuration(context.Background(), "/subscriptions/S1", "role-def-1", testPolicyID)
	}
	assert.Equal(t, 1, policies.calls, "repeated lookups for the same (scope, role) must hit the cache")
}
