package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
)

func newModelsCmd(opts *rootOptions) *cobra.Command {
	var (
		providerID string
		search     string
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models offered for a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models := opts.catalog.Search(providerID, search)
			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), opts.styles.muted.Render("no matching models"))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPRICE (IN/OUT PER MTOK)")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Name, m.PricingLabel())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&providerID, "provider", catalog.ProviderAnthropic, "provider id")
	cmd.Flags().StringVarP(&search, "search", "s", "", "fuzzy filter on model id and name")

	cmd.AddCommand(newModelsCostCmd(opts))
	return cmd
}

func newModelsCostCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "cost MODEL INPUT_TOKENS OUTPUT_TOKENS",
		Short:   "Estimate the list price of a request",
		Example: "  splitmind models cost claude-sonnet-4-20250514 12000 3000",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := strconv.Atoi(args[1])
			if err != nil || in < 0 {
				return fmt.Errorf("invalid input token count %q", args[1])
			}
			outTokens, err := strconv.Atoi(args[2])
			if err != nil || outTokens < 0 {
				return fmt.Errorf("invalid output token count %q", args[2])
			}

			out := cmd.OutOrStdout()
			if _, ok := opts.catalog.PriceOf(args[0]); !ok {
				fmt.Fprintln(out, opts.styles.warn.Render("unknown model "+args[0]+", no list price"))
			}
			cost := opts.catalog.EstimateCost(args[0], in, outTokens)
			fmt.Fprintf(out, "input:  $%.4f\n", cost.InputCost)
			fmt.Fprintf(out, "output: $%.4f\n", cost.OutputCost)
			fmt.Fprintf(out, "total:  $%.4f\n", cost.TotalCost)
			return nil
		},
	}
}
