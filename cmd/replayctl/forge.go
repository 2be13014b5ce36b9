package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"replayvault/parser/internal/codec"
	"replayvault/parser/internal/logging"
	"replayvault/parser/internal/replay"
	"replayvault/parser/internal/tree"
)

var (
	forgeStart    string
	forgeEnd      []string
	forgeCodec    string
	forgeTrailing int
)

func newForgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forge <out.wotreplay>",
		Short: "Build a replay container from JSON or msgpack records",
		Args:  cobra.ExactArgs(1),
		RunE:  runForgeCmd,
	}
	cmd.Flags().StringVar(&forgeStart, "start", "", "start record file (required)")
	cmd.Flags().StringSliceVar(&forgeEnd, "end", nil, "trailing record files, in order")
	cmd.Flags().StringVar(&forgeCodec, "codec", "zstd", fmt.Sprintf("segment codec %v", codec.Names()))
	cmd.Flags().IntVar(&forgeTrailing, "trailing", 0, "append this many zero bytes after the last segment")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func runForgeCmd(cmd *cobra.Command, args []string) error {
	_, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	c, err := codec.Lookup(forgeCodec)
	if err != nil {
		return err
	}
	if forgeTrailing < 0 {
		return fmt.Errorf("--trailing must be >= 0")
	}
	if len(forgeEnd)+1 > replay.MaxSegments {
		return fmt.Errorf("at most %d segments fit in a container", replay.MaxSegments)
	}

	writer := replay.NewWriter()
	for _, path := range append([]string{forgeStart}, forgeEnd...) {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		value, err := tree.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := writer.AddTree(value, c); err != nil {
			return err
		}
	}
	if forgeTrailing > 0 {
		writer.SetTrailing(make([]byte, forgeTrailing))
	}
	if err := writer.WriteFile(args[0]); err != nil {
		return fmt.Errorf("failed to write replay: %w", err)
	}
	logger.Info("replay forged",
		logging.String("path", args[0]),
		logging.String("codec", c.Name()),
		logging.Int("segments", len(forgeEnd)+1),
	)
	return nil
}
