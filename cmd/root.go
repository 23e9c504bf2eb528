// Package cmd defines the CLI commands for the hubcrawler executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsatlas/hubcrawler/internal/app"
	"github.com/newsatlas/hubcrawler/internal/config"
)

var cfgFile string

type appKeyType struct{}

var appKey appKeyType

// newApp is the application factory, swappable in tests.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command. Configuration is
// loaded and the service graph built before any subcommand runs.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hubcrawler",
		Short: "Discovers and validates news hub pages per place and topic.",
		Long: `hubcrawler predicts where a news site keeps its hub pages (country,
region, city, and topic landing pages), validates the predictions against the
live site, and learns the site's URL conventions as it goes. Confirmed hubs
and surfaced article URLs are persisted for downstream ingestion.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if domain, _ := cmd.Flags().GetString("domain"); domain != "" {
				cfg.Crawl.Domain = domain
			}
			if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
				cfg.Crawl.Mode = mode
			}
			if cfg.Crawl.Domain == "" {
				return fmt.Errorf("a crawl domain is required (--domain or crawl.domain)")
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app.App); ok && a != nil {
				a.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default relies on HUBCRAWLER_* env vars)")
	cmd.PersistentFlags().String("domain", "", "news domain to crawl (overrides crawl.domain)")
	cmd.PersistentFlags().String("mode", "", "scoring mode: normal or hub-focus (overrides crawl.mode)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hubcrawler: %v\n", err)
		os.Exit(1)
	}
}
