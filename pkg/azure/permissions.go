package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
)

// RoleAssignmentDetails is one active RBAC role assignment, resolved to a
// display name.
type RoleAssignmentDetails struct {
	RoleName         string `json:"roleName"`
	RoleDefinitionID string `json:"roleDefinitionId"`
	Scope            string `json:"scope"`
	PrincipalID      string `json:"principalId"`
	PrincipalType    string `json:"principalType,omitempty"`
}

// RoleNameResolver resolves a role-definition identifier at a scope to its
// display name. pim.Catalog satisfies this, so the listing shares its cache.
type RoleNameResolver interface {
	Resolve(ctx context.Context, scope, roleDefinitionID string) string
}

// ListPermissions lists the active role assignments for the principal across
// a subscription, including assignments inherited from broader scopes.
func ListPermissions(ctx context.Context, authctx *AuthContext, subscriptionID string, roles RoleNameResolver) ([]RoleAssignmentDetails, error) {
	client, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, authctx.Credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role assignments client: %w", err)
	}

	filter := fmt.Sprintf("assignedTo('%s')", authctx.PrincipalID)
	pager := client.NewListForSubscriptionPager(&armauthorization.RoleAssignmentsClientListForSubscriptionOptions{
		Filter: to.Ptr(filter),
	})

	var assignments []RoleAssignmentDetails
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list role assignments: %w", err)
		}
		for _, assignment := range page.Value {
			if assignment == nil || assignment.Properties == nil {
				continue
			}
			props := assignment.Properties
			if props.RoleDefinitionID == nil || props.Scope == nil {
				continue
			}

			details := RoleAssignmentDetails{
				RoleDefinitionID: *props.RoleDefinitionID,
				Scope:            *props.Scope,
			}
			if props.PrincipalID != nil {
				details.PrincipalID = *props.PrincipalID
			}
			if props.PrincipalType != nil {
				details.PrincipalType = string(*props.PrincipalType)
			}
			if roles != nil {
				details.RoleName = roles.Resolve(ctx, *props.Scope, *props.RoleDefinitionID)
			}
			assignments = append(assignments, details)
		}
	}
	return assignments, nil
}
