// Package main provides the replayctl command line for summarising and cataloguing replays.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"replayvault/parser/internal/boundary"
	"replayvault/parser/internal/config"
	"replayvault/parser/internal/logging"
	"replayvault/parser/internal/schema"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "replayctl",
		Short:         "Summarise and catalogue match replays",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default: $XDG_CONFIG_HOME/replayvault/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newForgeCmd())
	rootCmd.AddCommand(newCheckCmd())
	return rootCmd
}

// loadRuntime resolves configuration and installs the process logger.
func loadRuntime(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	config.LoadDotEnv()
	var (
		cfg *config.Config
		err error
	)
	if strings.TrimSpace(configPath) != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	if cfg.Source != "" {
		logger.Debug("configuration loaded", logging.String("path", cfg.Source))
	}
	return cfg, logger, nil
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <replay>",
		Short: "Print the JSON summary of one replay",
		Args:  cobra.ExactArgs(1),
		RunE:  runParseCmd,
	}
}

func runParseCmd(cmd *cobra.Command, args []string) error {
	_, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	//1.- Go through the same adapter the shared library exports so output is byte-identical.
	adapter := boundary.NewAdapter(boundary.NewHeapAllocator())
	handle := adapter.Parse(args[0])
	defer adapter.Release(handle)
	text := adapter.Text(handle)
	if boundary.IsDiagnostic(text) {
		return fmt.Errorf("%s", text)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), text); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <summary.json>...",
		Short: "Validate summary JSON against the summary schema",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheckCmd,
	}
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		if err := schema.ValidateSummaryFile(path); err != nil {
			failed++
			logErrf("%s: %v\n", path, err)
			continue
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		_ = err
	}
}
