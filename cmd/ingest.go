package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crimengo/crimengo/internal/feed"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch the public incident feed into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		if limit <= 0 {
			limit = cfg.Feed.Limit
		}

		client := feed.NewClient(feed.Options{
			BaseURL:   cfg.Feed.BaseURL,
			AppToken:  cfg.Feed.AppToken,
			RateLimit: rate.Limit(cfg.Feed.RateLimit),
		})

		zap.L().Info("fetching incident feed",
			zap.String("url", cfg.Feed.BaseURL),
			zap.Int("limit", limit),
		)

		records, err := client.FetchPaged(ctx, limit, pageSize)
		if err != nil {
			return eris.Wrap(err, "ingest fetch")
		}

		inserted, err := st.UpsertIncidents(ctx, records)
		if err != nil {
			return eris.Wrap(err, "ingest store")
		}

		fmt.Printf("Fetched %d records, upserted %d.\n", len(records), inserted)
		return nil
	},
}

func init() {
	ingestCmd.Flags().Int("limit", 0, "total records to fetch (default from config)")
	ingestCmd.Flags().Int("page-size", 1000, "records per feed request")
	rootCmd.AddCommand(ingestCmd)
}
