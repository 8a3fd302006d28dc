package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erazemk/knjigarna/internal/config"
	"github.com/erazemk/knjigarna/internal/model"
	"github.com/erazemk/knjigarna/internal/store"
)

func newRestockCmd() *cobra.Command {
	var dbPath string
	var threshold int

	cmd := &cobra.Command{
		Use:   "restock",
		Short: "Print sections that need restocking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if threshold == 0 {
				threshold = cfg.Jobs.RestockThreshold
			}
			if _, err := os.Stat(cfg.Database.Path); err != nil {
				return fmt.Errorf("database %s: %w", cfg.Database.Path, err)
			}

			database, err := openDatabase(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			recs, err := store.RestockRecommendations(context.Background(), database, threshold)
			if err != nil {
				return err
			}
			return printRecommendations(cmd.OutOrStdout(), threshold, recs)
		},
	}

	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides config)")
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "available count below which a section is listed (default from config)")
	return cmd
}

func printRecommendations(out io.Writer, threshold int, recs []model.RestockRecommendation) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintf(out, "All sections have at least %d available books.\n", threshold)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tAVAILABLE\tSEVERITY\tTOP CATEGORIES")
	for _, r := range recs {
		cats := strings.Join(r.TopCategories, ", ")
		if cats == "" {
			cats = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Location, r.AvailableCount, r.Severity, cats)
	}
	return tw.Flush()
}
