package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crimengo/crimengo/internal/export"
	"github.com/crimengo/crimengo/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export incidents to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		primaryType, _ := cmd.Flags().GetString("type")
		source, _ := cmd.Flags().GetString("source")
		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")

		if format != "csv" && format != "xlsx" {
			return eris.Errorf("unsupported format: %s (want csv or xlsx)", format)
		}
		if outPath == "" {
			outPath = "incidents." + format
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := model.IncidentFilter{
			PrimaryType: primaryType,
			Source:      model.Source(source),
			Limit:       limit,
		}
		if days > 0 {
			since := time.Now().UTC().AddDate(0, 0, -days)
			filter.Since = &since
		}

		incidents, err := st.ListIncidents(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "export list")
		}

		f, err := os.Create(outPath)
		if err != nil {
			return eris.Wrapf(err, "export create %s", outPath)
		}
		defer f.Close() //nolint:errcheck

		switch format {
		case "csv":
			err = export.WriteCSV(f, incidents)
		case "xlsx":
			err = export.WriteXLSX(f, incidents)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %d incidents to %s.\n", len(incidents), outPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().String("out", "", "output path (default incidents.<format>)")
	exportCmd.Flags().String("type", "", "filter by primary type")
	exportCmd.Flags().String("source", "", "filter by source (feed or synthetic)")
	exportCmd.Flags().Int("days", 0, "only incidents from the past N days")
	exportCmd.Flags().Int("limit", 0, "maximum records to export")
	rootCmd.AddCommand(exportCmd)
}
