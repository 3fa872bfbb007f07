package main

import (
	"github.com/matsen/bankbal/internal/gocardless"
	"github.com/spf13/cobra"
)

func (a *app) newCreateRequisitionCmd() *cobra.Command {
	req := gocardless.RequisitionRequest{}
	cmd := &cobra.Command{
		Use:   "create-requisition",
		Short: "Start linking a bank account",
		Long: `Create a requisition for an institution and print it as JSON.
Open the returned link to authorize access; the linked accounts appear
under "accounts" once the flow completes (see the requisition action).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "institution-id", "redirect"); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			client, cleanup, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := client.CreateRequisition(cmd.Context(), req)
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&req.InstitutionID, "institution-id", "", "Institution ID (see the institutions action)")
	cmd.Flags().StringVar(&req.Redirect, "redirect", "", "URL to return to after authorization")
	cmd.Flags().StringVar(&req.Reference, "reference", "orange-pi-balance", "Client reference")
	cmd.Flags().StringVar(&req.UserLanguage, "user-language", "EN", "Language of the bank-link UI")
	return cmd
}

func (a *app) newRequisitionCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "requisition",
		Short: "Show a requisition and its linked accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "requisition-id"); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			client, cleanup, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := client.Requisition(cmd.Context(), id)
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&id, "requisition-id", "", "Requisition ID")
	return cmd
}
