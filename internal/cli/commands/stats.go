package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/salesdash/internal/api/client"
	"github.com/spf13/cobra"
)

type filterFlags struct {
	region  string
	product string
	from    string
	to      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.region, "region", "", "Filter by region")
	cmd.Flags().StringVar(&f.product, "product", "", "Filter by product")
	cmd.Flags().StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "until", "", "End date (YYYY-MM-DD)")
}

func (f *filterFlags) query() client.Query {
	return client.Query{Region: f.region, Product: f.product, StartDate: f.from, EndDate: f.to}
}

func NewStatsCommand() *cobra.Command {
	var (
		filters filterFlags
		rows    bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show sales aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := NewClient().Stats(cmd.Context(), filters.query())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total sales:   %s\n", humanize.Comma(rep.TotalSales))
			fmt.Fprintf(out, "Total revenue: $%s\n\n", humanize.Comma(rep.TotalRevenue))

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "REGION\tSALES")
			for _, g := range rep.SalesByRegion {
				fmt.Fprintf(w, "%s\t%s\n", g.Region, humanize.Comma(g.Sales))
			}
			fmt.Fprintln(w, "\nPRODUCT\tSALES")
			for _, g := range rep.SalesByProduct {
				fmt.Fprintf(w, "%s\t%s\n", g.Product, humanize.Comma(g.Sales))
			}
			if rows {
				fmt.Fprintln(w, "\nDATE\tREGION\tPRODUCT\tSALES\tREVENUE")
				for _, r := range rep.Rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\n",
						r.Date.Format("2006-01-02"), r.Region, r.Product, r.Sales, r.Revenue)
				}
			}
			return w.Flush()
		},
	}

	filters.register(cmd)
	cmd.Flags().BoolVar(&rows, "rows", false, "Also print the matching rows")
	return cmd
}

func NewExportCommand() *cobra.Command {
	var (
		filters filterFlags
		output  string
	)

	cmd := &cobra.Command{
		Use:       "export [csv|excel]",
		Short:     "Download filtered data",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"csv", "excel"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]
			if output == "" {
				output = "dashboard_data.csv"
				if format == "excel" {
					output = "dashboard_data.xlsx"
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()

			if err := NewClient().Export(cmd.Context(), format, filters.query(), f); err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data exported to %s\n", output)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	return cmd
}
