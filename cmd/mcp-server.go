package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pimctl/pimctl/pkg/azure"
	"github.com/pimctl/pimctl/pkg/pim"
	"github.com/pimctl/pimctl/version"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Launch pimctl's MCP server",
	Long:  `Expose eligibility listing, role activation and identity lookups as MCP tools for chat agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpServer()
	},
}

func mcpServer() error {
	s := server.NewMCPServer(
		"pimctl",
		version.FullVersion(),
		server.WithLogging(),
	)

	s.AddTool(mcp.NewTool("pim_list_eligible_roles",
		mcp.WithDescription("Lists Azure PIM role eligibilities for the current user with scope details and the policy-resolved maximum activation duration per role."),
		mcp.WithString("scopes", mcp.Description("Comma separated scope filters; a filter matches the scope and its descendants")),
		mcp.WithString("role_names", mcp.Description("Comma separated role names, exact match")),
	), pimListHandler)

	s.AddTool(mcp.NewTool("pim_activate_roles",
		mcp.WithDescription("Activates eligible Azure PIM roles in batch. Requires a business justification. Duration 0 requests the policy maximum; requests above the maximum are capped."),
		mcp.WithString("justification", mcp.Description("Business justification for the activation"), mcp.Required()),
		mcp.WithBoolean("all", mcp.Description("Activate every eligible role")),
		mcp.WithString("scopes", mcp.Description("Comma separated scope filters")),
		mcp.WithString("role_names", mcp.Description("Comma separated role names, exact match")),
		mcp.WithNumber("duration_hours", mcp.Description("Activation duration in hours, 0 = policy maximum")),
	), pimActivateHandler)

	s.AddTool(mcp.NewTool("azure_whoami",
		mcp.WithDescription("Returns the current user principal, tenant and display name."),
	), whoamiHandler)

	s.AddTool(mcp.NewTool("azure_list_subscriptions",
		mcp.WithDescription("Lists all Azure subscriptions the current user has access to."),
	), subscriptionsHandler)

	s.AddTool(mcp.NewTool("azure_list_permissions",
		mcp.WithDescription("Lists active Azure RBAC role assignments for the current user in a subscription."),
		mcp.WithString("subscription_id", mcp.Description("Subscription ID to list assignments for"), mcp.Required()),
	), permissionsHandler)

	// Start the stdio server
	return server.ServeStdio(s)
}

func pimListHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, err := newPIMService(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	roles, err := service.ListEligible(ctx, pim.ListOptions{
		Scopes:    argStringList(request, "scopes"),
		RoleNames: argStringList(request, "role_names"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonToolResult(roles)
}

func pimActivateHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, err := newPIMService(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := service.ActivateRoles(ctx, pim.ActivateOptions{
		ActivateAll:   argBool(request, "all"),
		Scopes:        argStringList(request, "scopes"),
		RoleNames:     argStringList(request, "role_names"),
		Justification: argString(request, "justification"),
		DurationHours: argInt(request, "duration_hours"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonToolResult(report)
}

func whoamiHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	authctx, err := azure.Acquire(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonToolResult(map[string]string{
		"userName":    authctx.UserName,
		"displayName": authctx.DisplayName,
		"principalId": authctx.PrincipalID,
		"tenantId":    authctx.TenantID,
		"tenantName":  authctx.TenantName,
	})
}

func subscriptionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	authctx, err := azure.Acquire(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	subscriptions, err := azure.ListSubscriptions(ctx, authctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonToolResult(subscriptions)
}

func permissionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subscriptionID := argString(request, "subscription_id")
	if subscriptionID == "" {
		return mcp.NewToolResultError("subscription_id is required"), nil
	}

	authctx, err := azure.Acquire(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	client, err := pim.NewClient(authctx.Credential, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	assignments, err := azure.ListPermissions(ctx, authctx, subscriptionID, pim.NewCatalog(client, nil))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonToolResult(assignments)
}

func jsonToolResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func argString(request mcp.CallToolRequest, name string) string {
	if v, ok := request.Params.Arguments[name].(string); ok {
		return v
	}
	return ""
}

func argBool(request mcp.CallToolRequest, name string) bool {
	if v, ok := request.Params.Arguments[name].(bool); ok {
		return v
	}
	return false
}

func argInt(request mcp.CallToolRequest, name string) int {
	if v, ok := request.Params.Arguments[name].(float64); ok {
		return int(v)
	}
	return 0
}

func argStringList(request mcp.CallToolRequest, name string) []string {
	raw := argString(request, name)
	if raw == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
