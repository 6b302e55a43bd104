package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/crimengo/crimengo/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store summary and top categories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summary, err := st.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "status summary")
		}
		categories, err := st.TopCategories(ctx, 10)
		if err != nil {
			return eris.Wrap(err, "status categories")
		}
		locations, err := st.TopLocations(ctx, 10)
		if err != nil {
			return eris.Wrap(err, "status locations")
		}

		formatStatus(os.Stdout, summary, categories, locations)
		return nil
	},
}

func formatStatus(w io.Writer, summary *model.Summary, categories, locations []model.CategoryCount) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Incidents: %d (%d arrests, %d domestic)\n",
		summary.Total, summary.Arrests, summary.Domestic)
	if summary.LatestDate != nil {
		fmt.Fprintf(w, "Latest:    %s\n", summary.LatestDate.Format("2006-01-02 15:04"))
	}

	if len(categories) > 0 {
		fmt.Fprintln(w, "\nTop categories:")
		formatCounts(w, p, categories)
	}
	if len(locations) > 0 {
		fmt.Fprintln(w, "\nTop locations:")
		formatCounts(w, p, locations)
	}
}

func formatCounts(w io.Writer, p *message.Printer, counts []model.CategoryCount) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range counts {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Label, p.Sprintf("%d", c.Count))
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
