package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimengo/crimengo/internal/zonefile"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and seed zones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fmt.Println("Schema up to date.")

		// Seed zones are optional; a missing file is not an error.
		seedPath := cfg.Zones.SeedFile
		if seedPath == "" {
			return nil
		}
		if _, err := os.Stat(seedPath); os.IsNotExist(err) {
			zap.L().Debug("no zone seed file", zap.String("path", seedPath))
			return nil
		}

		zones, err := zonefile.LoadSeed(seedPath)
		if err != nil {
			return err
		}
		for _, zone := range zones {
			if err := st.UpsertZone(ctx, zone); err != nil {
				return eris.Wrapf(err, "seed zone %s", zone.Name)
			}
		}
		fmt.Printf("Seeded %d zones from %s.\n", len(zones), seedPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
