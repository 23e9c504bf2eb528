package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand: a one-shot run that plans,
// fetches, and validates until no gaps remain, then exits.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one hub-discovery crawl to completion",
		Long: `Runs a single crawl of the configured domain. The run finishes when
every reference entity either has a confirmed hub or its predictions are
exhausted. SIGINT aborts the run; queued work is discarded.`,

		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		a.Controller.Abort()
	}()

	progress, err := a.Controller.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	a.Logger.Info("crawl finished",
		zap.Int("hubs_confirmed", progress.EntitiesDiscovered),
		zap.Int("candidates_validated", progress.EntitiesValidated),
		zap.Int("articles_surfaced", progress.ArticlesSurfaced),
		zap.Bool("completed_with_gaps", a.Controller.CompletedWithGaps()),
	)
	return nil
}
