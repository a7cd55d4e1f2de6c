// Package cmd defines the listing-crawler CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-crawler/internal/config"
	"github.com/JakeFAU/listing-crawler/internal/logging"
)

type envKeyType string

const envKey envKeyType = "cli-env"

// cliEnv is what PersistentPreRunE hands to subcommands.
type cliEnv struct {
	cfg    config.Config
	logger *zap.Logger
	dryRun bool
}

type rootFlags struct {
	configPath string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "listing-crawler",
		Short: "Fetches business listings and stores them by data source.",
		Long: `listing-crawler walks an ordered plan of fetch strategies against a
protected listing site, extracts business records from the first page that
yields any, and replaces the stored record set for that data source.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return err
			}
			rt := &cliEnv{cfg: cfg, logger: logger, dryRun: flags.dryRun}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveEnv(cmd.Context()); err == nil {
				logging.Sync(rt.logger)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (YAML, TOML or JSON)")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "fetch and extract without persisting or publishing")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newParseCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*cliEnv, error) {
	rt, ok := ctx.Value(envKey).(*cliEnv)
	if !ok || rt == nil {
		return nil, errors.New("cli environment not initialized")
	}
	return rt, nil
}

// Execute runs the CLI until completion or SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
