package cmd

import (
	"context"
	"fmt"

	"github.com/pimctl/pimctl/internal/message"
	"github.com/pimctl/pimctl/pkg/azure"
	"github.com/pimctl/pimctl/pkg/pim"
	"github.com/spf13/cobra"
)

var pimCmd = &cobra.Command{
	Use:   "pim",
	Short: "PIM role eligibility and activation",
	Long:  `List eligible Privileged Identity Management roles and activate them in batch.`,
}

var (
	pimScopes        []string
	pimRoleNames     []string
	pimActivateAll   bool
	pimJustification string
	pimDuration      int
)

var pimListCmd = &cobra.Command{
	Use:   "list",
	Short: "List eligible roles for the current principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newPIMService(cmd.Context())
		if err != nil {
			return err
		}

		roles, err := service.ListEligible(cmd.Context(), pim.ListOptions{
			Scopes:    pimScopes,
			RoleNames: pimRoleNames,
		})
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			message.Warning("No eligible roles found")
		}
		return printJSON(roles)
	},
}

var pimActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Activate eligible roles",
	Long: `Activate eligible PIM roles, optionally filtered by scope and role name.
A justification is always required; a duration of 0 requests the policy maximum.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := newPIMService(cmd.Context())
		if err != nil {
			return err
		}

		report, err := service.ActivateRoles(cmd.Context(), pim.ActivateOptions{
			ActivateAll:   pimActivateAll,
			Scopes:        pimScopes,
			RoleNames:     pimRoleNames,
			Justification: pimJustification,
			DurationHours: pimDuration,
		})
		if err != nil {
			return err
		}

		switch {
		case report.Summary.Total == 0:
			message.Warning("No eligible roles found")
		case report.Summary.Failed == 0:
			message.Success("%s", report.Summary.Message)
		default:
			message.Warning("%s", report.Summary.Message)
		}
		return printJSON(report)
	},
}

// newPIMService wires the service stack to the default credential chain. The
// acquired principal is what every activation request is submitted as.
func newPIMService(ctx context.Context) (*pim.Service, error) {
	authctx, err := azure.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire auth context: %w", err)
	}

	client, err := pim.NewClient(authctx.Credential, nil)
	if err != nil {
		return nil, err
	}
	subs, err := azure.NewSubscriptionNames(authctx.Credential, nil)
	if err != nil {
		return nil, err
	}

	return pim.NewServiceFromClient(client, subs, authctx.PrincipalID, nil), nil
}

func init() {
	for _, cmd := range []*cobra.Command{pimListCmd, pimActivateCmd} {
		cmd.Flags().StringSliceVar(&pimScopes, "scope", nil, "scope filter, matches the scope and its descendants (repeatable)")
		cmd.Flags().StringSliceVar(&pimRoleNames, "role", nil, "role name filter, exact match (repeatable)")
	}

	pimActivateCmd.Flags().BoolVar(&pimActivateAll, "all", false, "activate every eligible role")
	pimActivateCmd.Flags().StringVarP(&pimJustification, "justification", "j", "", "business justification for the activation")
	pimActivateCmd.Flags().IntVarP(&pimDuration, "duration", "d", 0, "activation duration in hours (0 = policy maximum)")
	pimActivateCmd.MarkFlagRequired("justification")

	pimCmd.AddCommand(pimListCmd)
	pimCmd.AddCommand(pimActivateCmd)
	azureCmd.AddCommand(pimCmd)
}
