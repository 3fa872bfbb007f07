package main

import (
	"strings"

	"github.com/matsen/bankbal/internal/gocardless"
	"github.com/spf13/cobra"
)

func (a *app) newInstitutionsCmd() *cobra.Command {
	var (
		country string
		search  string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "institutions",
		Short: "List banks available in a country",
		Long: `List the institutions available in a country as "id<TAB>name".

Examples:
  bankbal institutions
  bankbal institutions --country GB --search monzo`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			client, cleanup, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			insts, err := client.Institutions(cmd.Context(), country)
			if err != nil {
				return err
			}
			insts = filterInstitutions(insts, search)

			if asJSON {
				return outputJSON(cmd.OutOrStdout(), insts)
			}
			formatInstitutionsHuman(cmd.OutOrStdout(), insts)
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "PT", "ISO 3166 two-letter country code")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive substring of the id or name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

// filterInstitutions keeps institutions whose id or name contains query,
// ignoring case. An empty query keeps everything.
func filterInstitutions(insts []gocardless.Institution, query string) []gocardless.Institution {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return insts
	}
	out := make([]gocardless.Institution, 0, len(insts))
	for _, inst := range insts {
		if strings.Contains(strings.ToLower(inst.Name), q) || strings.Contains(strings.ToLower(inst.ID), q) {
			out = append(out, inst)
		}
	}
	return out
}
