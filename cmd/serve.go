package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crimengo/crimengo/internal/auth"
	"github.com/crimengo/crimengo/internal/feed"
	"github.com/crimengo/crimengo/internal/server"
	"github.com/crimengo/crimengo/internal/synth"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the incident API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Auth.JWTSecret == "" {
			return eris.New("auth.jwt_secret is required to serve (set CRIMENGO_AUTH_JWT_SECRET)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := server.New(
			st,
			feed.NewClient(feed.Options{
				BaseURL:   cfg.Feed.BaseURL,
				AppToken:  cfg.Feed.AppToken,
				RateLimit: rate.Limit(cfg.Feed.RateLimit),
			}),
			synth.New(cfg.Generator),
			auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
			server.Config{
				FeedLimit:           cfg.Feed.Limit,
				FeedRefreshInterval: cfg.Feed.RefreshInterval(),
				HotspotThreshold:    cfg.Hotspot.Threshold,
				HotspotBinSize:      cfg.Hotspot.BinSize,
			},
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
