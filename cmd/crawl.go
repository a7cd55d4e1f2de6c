package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-crawler/internal/app"
	"github.com/JakeFAU/listing-crawler/internal/config"
	"github.com/JakeFAU/listing-crawler/internal/planner"
)

// crawlService is the part of *app.App the crawl command drives.
type crawlService interface {
	Crawl(ctx context.Context) (planner.Result, error)
	Close()
}

// newCrawlService is a variable so tests can swap in a fake.
var newCrawlService = func(ctx context.Context, cfg config.Config, logger *zap.Logger, dryRun bool) (crawlService, error) {
	return app.New(ctx, cfg, logger, app.Options{DryRun: dryRun})
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs the strategy plan once and persists the first non-empty result",
		Args:  cobra.NoArgs,
		RunE:  runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	svc, err := newCrawlService(cmd.Context(), rt.cfg, rt.logger, rt.dryRun)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer svc.Close()

	result, err := svc.Crawl(cmd.Context())
	switch {
	case app.IsNoData(err):
		// An empty run is a valid outcome.
		rt.logger.Warn("crawl finished without data", zap.Error(err))
		printNoData(cmd.OutOrStdout(), result)
		return nil
	case err != nil:
		return err
	}
	printSummary(cmd.OutOrStdout(), result, rt.dryRun)
	return nil
}

func printSummary(w io.Writer, result planner.Result, dryRun bool) {
	fmt.Fprintf(w, "run %s: %d records from %s (strategy %s)\n",
		result.RunID, len(result.Records), result.Source, result.Strategy)
	fmt.Fprintf(w, "  address: %s\n", result.Address)
	if dryRun {
		fmt.Fprintln(w, "  dry run: nothing persisted")
		return
	}
	fmt.Fprintf(w, "  persisted: %d\n", result.Persisted)
}

func printNoData(w io.Writer, result planner.Result) {
	fmt.Fprintf(w, "run %s: no data (%d strategies, %d addresses tried)\n",
		result.RunID, result.StrategiesTried, result.AddressesTried)
}
