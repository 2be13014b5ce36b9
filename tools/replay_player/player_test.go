package replayplayer

import (
	"path/filepath"
	"testing"

	"replayvault/parser/internal/codec"
	"replayvault/parser/internal/replay"
	"replayvault/parser/internal/tree"
)

func TestInspectReportsEverySegment(t *testing.T) {
	//1.- Build a replay with a gzip start record, a corrupt segment and a missing tail.
	writer := replay.NewWriter()
	start, err := tree.Decode([]byte(`{"playerName":"Ace","damageDealt":10}`))
	if err != nil {
		t.Fatalf("decode start: %v", err)
	}
	gzip, err := codec.Lookup("gzip")
	if err != nil {
		t.Fatalf("lookup gzip: %v", err)
	}
	if err := writer.AddTree(start, gzip); err != nil {
		t.Fatalf("add start: %v", err)
	}
	writer.AddRaw([]byte{0x28, 0xb5, 0x2f, 0xfd, 0x00, 0x01})
	writer.Declare(3)
	path := filepath.Join(t.TempDir(), "match.wotreplay")
	if err := writer.WriteFile(path); err != nil {
		t.Fatalf("write replay: %v", err)
	}

	//2.- Inspect and check each segment's view.
	got, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got.Magic != replay.Magic || got.Declared != 3 || len(got.Segments) != 3 {
		t.Fatalf("unexpected inspection header %+v", got)
	}
	first := got.Segments[0]
	if first.Status != replay.SegmentOK || first.Codec != "gzip" || first.Kind != "object" || first.Digest == "" {
		t.Fatalf("unexpected start segment %+v", first)
	}
	if first.Offset != replay.HeaderSize || len(first.Keys) != 2 || first.Keys[0] != "playerName" {
		t.Fatalf("unexpected start segment layout %+v", first)
	}
	if got.Segments[1].Status != replay.SegmentDecompressFailed || got.Segments[1].Error == "" {
		t.Fatalf("expected corrupt zstd segment, got %+v", got.Segments[1])
	}
	if got.Segments[2].Status != replay.SegmentDropped || got.Dropped != 1 {
		t.Fatalf("expected dropped tail, got %+v (dropped %d)", got.Segments[2], got.Dropped)
	}
	if got.Decoded() != 1 {
		t.Fatalf("expected one decoded segment, got %d", got.Decoded())
	}
}

func TestInspectKeepsUndecodableStartRecord(t *testing.T) {
	writer := replay.NewWriter()
	writer.AddRaw([]byte{0xc1, 0x00, 0x01})
	path := filepath.Join(t.TempDir(), "bad.wotreplay")
	if err := writer.WriteFile(path); err != nil {
		t.Fatalf("write replay: %v", err)
	}
	got, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if got.Segments[0].Status != replay.SegmentDecodeFailed || got.Segments[0].Codec != "raw" {
		t.Fatalf("unexpected start view %+v", got.Segments[0])
	}
	if _, err := replay.Decode(path); err == nil {
		t.Fatal("decode should reject what inspect tolerates")
	}
}

func TestInspectRequiresPath(t *testing.T) {
	if _, err := Inspect(" "); err == nil {
		t.Fatal("expected error for blank path")
	}
	if _, err := Inspect(filepath.Join(t.TempDir(), "missing.wotreplay")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
