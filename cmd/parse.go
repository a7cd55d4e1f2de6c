package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
	"github.com/JakeFAU/listing-crawler/internal/extract"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Extracts record candidates from a saved page and prints them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runParseCommand,
	}
}

func runParseCommand(cmd *cobra.Command, args []string) error {
	rt, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	candidates := extract.NewEngine(rt.logger.Named("extract")).Extract(body)
	if candidates == nil {
		candidates = []crawler.RecordCandidate{}
	}
	rt.logger.Info("parsed file", zap.String("path", args[0]), zap.Int("candidates", len(candidates)))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(candidates); err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	return nil
}
