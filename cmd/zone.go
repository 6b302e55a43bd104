package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crimengo/crimengo/internal/model"
	"github.com/crimengo/crimengo/internal/store"
	"github.com/crimengo/crimengo/internal/zonefile"
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Manage zone boundaries",
	Long:  "Commands for listing, inspecting, and importing zone polygons.",
}

var zoneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored zones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zones, err := st.ListZones(ctx)
		if err != nil {
			return eris.Wrap(err, "zone list")
		}
		if len(zones) == 0 {
			fmt.Fprintln(os.Stderr, "No zones found.")
			return nil
		}

		formatZonesTable(os.Stdout, zones)
		return nil
	},
}

var zoneShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a zone as GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zone, err := st.GetZone(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "zone show")
		}
		if zone == nil {
			return eris.Errorf("zone %q not found", args[0])
		}

		data, err := zonefile.GeoJSON([]model.Zone{*zone})
		if err != nil {
			return err
		}

		var pretty json.RawMessage = data
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	},
}

var zoneImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import zones from a YAML seed file or shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		seedPath, _ := cmd.Flags().GetString("seed")
		shpPath, _ := cmd.Flags().GetString("shapefile")
		nameField, _ := cmd.Flags().GetString("name-field")

		var zones []model.Zone
		var err error
		switch {
		case seedPath != "" && shpPath != "":
			return eris.New("--seed and --shapefile are mutually exclusive")
		case seedPath != "":
			zones, err = zonefile.LoadSeed(seedPath)
		case shpPath != "":
			zones, err = zonefile.ImportShapefile(shpPath, nameField)
		default:
			return eris.New("one of --seed or --shapefile is required")
		}
		if err != nil {
			return err
		}
		if len(zones) == 0 {
			return eris.New("no zones found in input")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pg, _ := st.(*store.PostgresStore)
		for _, zone := range zones {
			if err := st.UpsertZone(ctx, zone); err != nil {
				return eris.Wrapf(err, "zone import %s", zone.Name)
			}
			if pg == nil {
				continue
			}
			// Postgres also stores the boundary geometry for spatial tooling.
			geom, err := zonefile.EncodeEWKB(zone)
			if err != nil {
				return err
			}
			if err := pg.SetZoneGeom(ctx, zone.Name, geom); err != nil {
				return err
			}
		}

		fmt.Printf("Imported %d zones.\n", len(zones))
		return nil
	},
}

func formatZonesTable(w io.Writer, zones []model.Zone) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERTICES\tCENTER")
	for _, z := range zones {
		fmt.Fprintf(tw, "%s\t%d\t(%.4f, %.4f)\n", z.Name, len(z.Boundary), z.CenterLat, z.CenterLon)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	zoneImportCmd.Flags().String("seed", "", "YAML seed file of zones")
	zoneImportCmd.Flags().String("shapefile", "", "ESRI shapefile of zone polygons")
	zoneImportCmd.Flags().String("name-field", zonefile.DefaultNameField, "shapefile attribute holding the zone name")

	zoneCmd.AddCommand(zoneListCmd)
	zoneCmd.AddCommand(zoneShowCmd)
	zoneCmd.AddCommand(zoneImportCmd)
	rootCmd.AddCommand(zoneCmd)
}
