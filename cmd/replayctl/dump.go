package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	replayplayer "replayvault/parser/tools/replay_player"
)

var (
	dumpJSON  bool
	dumpTrees bool
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <replay>",
		Short: "Show the container segments of one replay",
		Args:  cobra.ExactArgs(1),
		RunE:  runDumpCmd,
	}
	cmd.Flags().BoolVar(&dumpJSON, "json", false, "print the inspection as JSON")
	cmd.Flags().BoolVar(&dumpTrees, "trees", false, "include decoded trees in JSON output")
	return cmd
}

func runDumpCmd(cmd *cobra.Command, args []string) error {
	_, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	inspection, err := replayplayer.Inspect(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dumpJSON {
		if !dumpTrees {
			for i := range inspection.Segments {
				inspection.Segments[i].Tree = nil
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(inspection); err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
		return nil
	}

	//1.- Human output lists one line per segment, then the container tail.
	fmt.Fprintf(out, "%s: magic 0x%08x, %d declared, %d decoded\n",
		inspection.Path, inspection.Magic, inspection.Declared, inspection.Decoded())
	for _, s := range inspection.Segments {
		line := fmt.Sprintf("  #%d  %-17s", s.Index, s.Status)
		if s.RawSize > 0 {
			line += fmt.Sprintf("  @%d  %s %s", s.Offset, s.Codec, humanize.Bytes(uint64(s.RawSize)))
		}
		if s.DecodedSize > 0 {
			line += fmt.Sprintf(" -> %s", humanize.Bytes(uint64(s.DecodedSize)))
		}
		if s.Kind != "" {
			line += fmt.Sprintf("  %s", s.Kind)
			if len(s.Keys) > 0 {
				line += fmt.Sprintf(" (%s keys)", humanize.Comma(int64(len(s.Keys))))
			}
		}
		if s.Error != "" {
			line += "  " + s.Error
		}
		fmt.Fprintln(out, line)
	}
	if inspection.Trailing > 0 {
		fmt.Fprintf(out, "  trailing %s\n", humanize.Bytes(uint64(inspection.Trailing)))
	}
	return nil
}
