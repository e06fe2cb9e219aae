package main

import (
	"fmt"

	"sysscope/internal/version"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "sysscope.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "sysscope",
		Short: "SysScope - host health sampling, history and live streaming",
		Long: `SysScope samples CPU, memory, disk I/O and network latency once per
interval, stores every sample in SQLite and streams them to websocket clients.

Running without a subcommand is the same as "sysscope serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "YAML config file (optional)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newHistoryCmd(&configPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Long())
		},
	})
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sampler, HTTP API and websocket stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}
