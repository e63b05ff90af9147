package main

import (
	"fmt"

	goGate "github.com/MrEthical07/goGate"
	"github.com/spf13/cobra"
)

func (a *app) impersonateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impersonate",
		Short: "Enter or leave an impersonation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	enter := &cobra.Command{
		Use:   "enter <entity-id>",
		Short: "Act as the identity the backend resolves for entity-id",
		Long: `Act as another tenant's identity. The stored session must belong to a
super administrator; the identity is resolved through the backend's
impersonation endpoint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(e *goGate.Engine) error {
				user, err := e.EnterImpersonation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "impersonating %s as %s (%s)\n", args[0], user.ID, user.Role)
				return nil
			})
		},
	}

	exit := &cobra.Command{
		Use:   "exit",
		Short: "Restore the super administrator identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(e *goGate.Engine) error {
				d, err := e.ExitImpersonation(cmd.Context())
				if err != nil {
					return err
				}
				printDecision(cmd, d)
				return nil
			})
		},
	}

	cmd.AddCommand(enter, exit)
	return cmd
}
