package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hakim/vulntriage/internal/app"
	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/hakim/vulntriage/internal/telemetry"
	"github.com/hakim/vulntriage/internal/web"
	"github.com/spf13/cobra"
)

// purgeInterval is how often expired sessions are removed while serving.
const purgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Long: `Serve the triage dashboard over HTTP.

Pages:
  /                 dashboard (totals, severity bars, fix progress, recent reports)
  /reports          paginated, searchable report list
  /reports/{id}     severity tree, instance table and status updates

View state (page, search, tree expansion, selection, notices) is kept per
browser in the session database, so the server can be restarted freely.

Examples:
  vulntriage serve
  vulntriage serve --addr 0.0.0.0:8000
  VULNTRIAGE_API_BASE_URL=http://backend:10000 vulntriage serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		secure, _ := cmd.Flags().GetBool("secure-cookie")

		ctx, stop := signalContext()
		defer stop()

		// ── Telemetry ──────────────────────────────────────────────────────
		var metrics *telemetry.Metrics
		if cfg.Telemetry.Metrics {
			m, err := telemetry.NewMetrics()
			if err != nil {
				return fmt.Errorf("setting up metrics: %w", err)
			}
			metrics = m
		}

		shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingOptions{
			Endpoint:       cfg.Telemetry.OTLPEndpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: version,
			Insecure:       cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.WithError(err).Warn("flushing traces")
			}
		}()

		// ── Sessions ───────────────────────────────────────────────────────
		store, err := session.NewStore(cfg.Session.DBPath)
		if err != nil {
			return fmt.Errorf("opening session database %s: %w. Run 'vulntriage init' first", cfg.Session.DBPath, err)
		}
		defer store.Close()

		go purgeSessions(ctx, store, cfg.SessionTTL())

		// ── Application ────────────────────────────────────────────────────
		client := newClient(metrics)
		application := app.New(client, store, app.Options{
			PageSize:    cfg.UI.PageSize,
			RecentLimit: cfg.UI.RecentLimit,
			NoticeTTL:   cfg.NoticeTTL(),
			Webhook:     &notify.Webhook{URL: cfg.Notify.WebhookURL},
			Metrics:     metrics,
			Logger:      logger,
		})

		srv, err := web.New(web.Options{
			App:          application,
			Sessions:     store,
			Exporter:     client,
			Metrics:      metrics,
			Logger:       logger,
			NoticeTTL:    cfg.NoticeTTL(),
			SecureCookie: secure,
		})
		if err != nil {
			return err
		}

		fmt.Printf("[*] Backend: %s\n", client.BaseURL())
		return srv.Run(ctx, web.ServeOptions{
			Addr:         cfg.Server.Addr,
			ReadTimeout:  cfg.ReadTimeout(),
			WriteTimeout: cfg.WriteTimeout(),
			IdleTimeout:  cfg.IdleTimeout(),
			OnListen: func(addr string) {
				fmt.Printf("[+] Dashboard listening on http://%s\n", addr)
			},
		})
	},
}

// purgeSessions removes sessions idle for longer than ttl, once at start
// and then every purgeInterval until ctx is done.
func purgeSessions(ctx context.Context, store *session.Store, ttl time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		n, err := store.Purge(ttl)
		if err != nil {
			logger.WithError(err).Warn("purging sessions")
		} else if n > 0 {
			logger.WithField("removed", n).Info("purged expired sessions")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("secure-cookie", false, "mark the session cookie Secure (serve behind TLS)")
	rootCmd.AddCommand(serveCmd)
}
