package cmd

import (
	"os"

	"github.com/pimctl/pimctl/internal/message"
	"github.com/pimctl/pimctl/pkg/azure"
	"github.com/pimctl/pimctl/pkg/pim"
	"github.com/spf13/cobra"
)

var azureCmd = &cobra.Command{
	Use:     "azure",
	Aliases: []string{"az"},
	Short:   "azure commands",
	Long:    `Execute azure commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current principal and tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		authctx, err := azure.Acquire(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(map[string]string{
			"userName":    authctx.UserName,
			"displayName": authctx.DisplayName,
			"principalId": authctx.PrincipalID,
			"tenantId":    authctx.TenantID,
			"tenantName":  authctx.TenantName,
		})
	},
}

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List subscriptions accessible to the current principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		authctx, err := azure.Acquire(cmd.Context())
		if err != nil {
			return err
		}
		subscriptions, err := azure.ListSubscriptions(cmd.Context(), authctx)
		if err != nil {
			return err
		}
		if len(subscriptions) == 0 {
			message.Warning("No accessible subscriptions found")
		}
		return printJSON(subscriptions)
	},
}

var permissionsSubscription string

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List active RBAC role assignments for the current principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		authctx, err := azure.Acquire(ctx)
		if err != nil {
			return err
		}

		client, err := pim.NewClient(authctx.Credential, nil)
		if err != nil {
			return err
		}
		catalog := pim.NewCatalog(client, nil)

		assignments, err := azure.ListPermissions(ctx, authctx, permissionsSubscription, catalog)
		if err != nil {
			return err
		}
		if len(assignments) == 0 {
			message.Warning("No active role assignments found in subscription %s", permissionsSubscription)
		}
		return printJSON(assignments)
	},
}

func init() {
	permissionsCmd.Flags().StringVarP(&permissionsSubscription, "subscription", "s", "", "subscription ID to list assignments for")
	permissionsCmd.MarkFlagRequired("subscription")

	azureCmd.AddCommand(whoamiCmd)
	azureCmd.AddCommand(subscriptionsCmd)
	azureCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(azureCmd)
}
