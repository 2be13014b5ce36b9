package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"replayvault/parser/internal/config"
	"replayvault/parser/internal/logging"
	"replayvault/parser/internal/vehicles"
	replaycatalog "replayvault/parser/tools/replay_catalog"
)

var (
	scanJSON    bool
	scanFull    bool
	scanPrune   bool
	scanNoCache bool
	scanWatch   time.Duration
	scanWorkers int
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Catalogue every replay in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScanCmd,
	}
	cmd.Flags().BoolVar(&scanJSON, "json", false, "print records as JSON")
	cmd.Flags().BoolVar(&scanFull, "full", false, "re-parse every replay even when cached")
	cmd.Flags().BoolVar(&scanPrune, "prune", false, "drop catalog rows for vanished or expired replays after scanning")
	cmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "do not read or write the catalog database")
	cmd.Flags().DurationVar(&scanWatch, "watch", 0, "rescan on this interval until interrupted")
	cmd.Flags().IntVar(&scanWorkers, "workers", 0, "concurrent parses (default from config)")
	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	dir := cfg.ReplayDir
	if len(args) == 1 {
		dir = args[0]
	}
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("replay directory required (argument or %sREPLAY_DIR)", config.EnvPrefix)
	}
	if cmd.Flags().Changed("workers") {
		if scanWorkers <= 0 {
			return fmt.Errorf("--workers must be > 0")
		}
		cfg.Workers = scanWorkers
	}

	labels, err := vehicles.LoadLabels(cfg.LabelsPath)
	if err != nil {
		logger.Warn("vehicle labels unavailable", logging.String("path", cfg.LabelsPath), logging.Error(err))
		labels = vehicles.Labels{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	scanner := &replaycatalog.Scanner{
		Labels:  labels,
		Workers: cfg.Workers,
		Full:    scanFull,
		Logger:  logger,
	}
	var pruner *replaycatalog.Pruner
	if !scanNoCache {
		cache, err := replaycatalog.OpenCache(ctx, cfg.CachePath, cfg.CacheSize)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer func() {
			if cerr := cache.Close(); cerr != nil {
				logErrf("failed to close catalog: %v\n", cerr)
			}
		}()
		scanner.Cache = cache
		pruner = replaycatalog.NewPruner(cache, replaycatalog.RetentionPolicy{MaxAge: cfg.Retention}, logger)
	}

	if scanWatch <= 0 {
		return scanOnce(ctx, cmd.OutOrStdout(), scanner, pruner, dir)
	}

	//1.- Watch mode rescans on a ticker; interrupt ends the loop cleanly.
	ticker := time.NewTicker(scanWatch)
	defer ticker.Stop()
	for {
		if err := scanOnce(ctx, cmd.OutOrStdout(), scanner, pruner, dir); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("scan failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func scanOnce(ctx context.Context, out io.Writer, scanner *replaycatalog.Scanner, pruner *replaycatalog.Pruner, dir string) error {
	report, err := scanner.Scan(ctx, dir)
	if err != nil {
		return err
	}
	if scanPrune && pruner != nil {
		if _, err := pruner.RunOnce(ctx); err != nil {
			return fmt.Errorf("prune catalog: %w", err)
		}
	}
	if scanJSON {
		payload, err := replaycatalog.MarshalRecords(report.Records)
		if err != nil {
			return fmt.Errorf("failed to encode records: %w", err)
		}
		_, err = fmt.Fprintln(out, string(payload))
		return err
	}
	if err := writeTable(out, report.Records); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logErrf("%d replays (%d parsed, %d cached, %d failed, %d duplicates) in %s\n",
		len(report.Records), report.Parsed, report.Reused, report.Failed, report.Duplicates,
		report.Elapsed.Round(time.Millisecond))
	return nil
}

var tableHeader = []string{"DATE", "PLAYER", "TANK", "MAP", "DAMAGE", "SERVER", ""}

// writeTable prints records as a column-aligned table. Widths are measured in
// terminal cells so CJK player and map names line up.
func writeTable(out io.Writer, records []replaycatalog.Record) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, tableHeader)
	for _, rec := range records {
		flag := ""
		if rec.Duplicate {
			flag = "dup"
		} else if !rec.Complete {
			flag = "partial"
		}
		rows = append(rows, []string{
			rec.Date,
			rec.PlayerName,
			rec.TankLabel,
			rec.Map,
			strconv.FormatInt(rec.Damage, 10),
			rec.Server,
			flag,
		})
	}
	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == 4 {
				b.WriteString(runewidth.FillLeft(cell, widths[i]))
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		if _, err := fmt.Fprintln(out, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
