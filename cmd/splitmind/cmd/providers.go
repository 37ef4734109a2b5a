package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDEFAULT BASE URL\tMODELS")
			for _, p := range opts.catalog.Providers() {
				base := p.DefaultBaseURL
				if base == "" {
					base = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Name, base, len(opts.catalog.ModelsFor(p.ID)))
			}
			return tw.Flush()
		},
	}
}
