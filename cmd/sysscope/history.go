package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"sysscope/internal/config"
	"sysscope/internal/history"
	"sysscope/internal/models"
	"sysscope/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent stored samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			dbPath := cfg.DatabasePath()
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no metrics database at %s: %w", dbPath, err)
			}

			st, err := store.Open(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			samples, err := history.NewQuery(st, cfg.HistoryLimit, cfg.MaxHistoryLimit).History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON || !isTerminal(out) {
				return writeHistoryJSON(out, samples)
			}
			return writeHistoryTable(out, samples)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of samples (default: history_limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "always print JSON")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeHistoryJSON(w io.Writer, samples []models.Sample) error {
	entries := make([]models.HistoryEntry, 0, len(samples))
	for _, s := range samples {
		entries = append(entries, s.HistoryEntry())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func writeHistoryTable(w io.Writer, samples []models.Sample) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tCPU %\tMEMORY %\tDISK READ MiB\tLATENCY ms")
	for _, s := range samples {
		latency := fmt.Sprintf("%.2f", s.NetworkLatency)
		if s.Unreachable() {
			latency = "unreachable"
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.2f\t%s\n",
			models.FormatTimestamp(s.Timestamp), s.CPUUsage, s.MemoryUsage, s.DiskIO, latency)
	}
	return tw.Flush()
}
