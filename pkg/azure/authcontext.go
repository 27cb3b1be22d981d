// Package azure provides the authenticated context and the subscription and
// role-assignment lookups the PIM workflow and the CLI surface lean on.
package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/organization"
)

// AuthContext is the explicit authenticated identity threaded through every
// control-plane call. It is a plain value, never a singleton, so tests can
// inject a fake.
type AuthContext struct {
	Credential  azcore.TokenCredential
	PrincipalID string
	UserName    string
	DisplayName string
	TenantID    string
	TenantName  string
}

// Acquire builds an AuthContext from the default credential chain and the
// Graph "me" endpoint. A credential or principal lookup failure is fatal: the
// PIM workflow cannot do anything without knowing who it is acting as.
func Acquire(ctx context.Context) (*AuthContext, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get Azure credentials: %w", err)
	}

	graphClient, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %w", err)
	}

	me, err := graphClient.Me().Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current principal: %w", err)
	}

	authctx := &AuthContext{Credential: cred}
	if id := me.GetId(); id != nil {
		authctx.PrincipalID = *id
	}
	if upn := me.GetUserPrincipalName(); upn != nil {
		authctx.UserName = *upn
	}
	if name := me.GetDisplayName(); name != nil {
		authctx.DisplayName = *name
	}

	// Tenant details are informational; a lookup failure leaves them blank.
	org, err := graphClient.Organization().Get(ctx, &organization.OrganizationRequestBuilderGetRequestConfiguration{})
	if err == nil {
		if orgValue := org.GetValue(); len(orgValue) > 0 {
			if displayName := orgValue[0].GetDisplayName(); displayName != nil {
				authctx.TenantName = *displayName
			}
			if id := orgValue[0].GetId(); id != nil {
				authctx.TenantID = *id
			}
		}
	}

	return authctx, nil
}
