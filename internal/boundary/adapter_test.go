package boundary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"replayvault/parser/internal/replay"
	"replayvault/parser/internal/tree"
)

func writeFixture(t *testing.T, start string) string {
	t.Helper()
	v, err := tree.Decode([]byte(start))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	w := replay.NewWriter()
	if err := w.AddTree(v, nil); err != nil {
		t.Fatalf("AddTree: %v", err)
	}
	path := filepath.Join(t.TempDir(), "fixture.wotreplay")
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseReturnsPrettySummary(t *testing.T) {
	path := writeFixture(t, `{"playerName":"Ace","playerVehicle":"T-34","mapDisplayName":"Prokhorovka","dateTime":"2024-01-01 10:00:00","serverName":"EU","clientVersionFromXml":"1.20.0","damageDealt":450}`)
	alloc := NewHeapAllocator()
	adapter := NewAdapter(alloc)

	h := adapter.Parse(path)
	if h == nil {
		t.Fatal("Parse must never return a nil handle")
	}
	text := adapter.Text(h)
	pathJSON, _ := json.Marshal(path)
	want := "{\n" +
		"  \"path\": " + string(pathJSON) + ",\n" +
		"  \"playerName\": \"Ace\",\n" +
		"  \"tank\": \"T-34\",\n" +
		"  \"map\": \"Prokhorovka\",\n" +
		"  \"date\": \"2024-01-01 10:00:00\",\n" +
		"  \"damage\": 450,\n" +
		"  \"server\": \"EU\",\n" +
		"  \"version\": \"1.20.0\"\n" +
		"}"
	if text != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", text, want)
	}
	if IsDiagnostic(text) {
		t.Fatal("summary misclassified as diagnostic")
	}

	adapter.Release(h)
	if adapter.Outstanding() != 0 || alloc.Live() != 0 || alloc.Invalid() != 0 {
		t.Fatalf("leak after release: outstanding=%d live=%d invalid=%d", adapter.Outstanding(), alloc.Live(), alloc.Invalid())
	}
}

func TestParseFailuresYieldDiagnostics(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.wotreplay")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	corrupt := filepath.Join(dir, "corrupt.wotreplay")
	if err := os.WriteFile(corrupt, []byte("not a replay container at all"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	adapter := NewAdapter(NewHeapAllocator())
	cases := map[string]struct {
		path   string
		prefix string
	}{
		"zero bytes":     {empty, PrefixParse},
		"corrupt header": {corrupt, PrefixParse},
		"missing file":   {filepath.Join(dir, "absent.wotreplay"), PrefixParse},
		"invalid utf8":   {string([]byte{0xff, 0xfe}), PrefixPath},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := adapter.Parse(tc.path)
			defer adapter.Release(h)
			text := adapter.Text(h)
			if !strings.HasPrefix(text, tc.prefix) {
				t.Fatalf("expected %q prefix, got %q", tc.prefix, text)
			}
			if !strings.Contains(strings.ToLower(text), "parse") && tc.prefix == PrefixParse {
				t.Fatalf("diagnostic must mention parse: %q", text)
			}
			if strings.Contains(text, "{") {
				t.Fatalf("diagnostic must not contain partial JSON: %q", text)
			}
			if !IsDiagnostic(text) {
				t.Fatal("diagnostic not recognised")
			}
		})
	}
	if adapter.Outstanding() != 0 {
		t.Fatalf("expected all handles released, got %d", adapter.Outstanding())
	}
}

func TestParseMissingPath(t *testing.T) {
	adapter := NewAdapter(NewHeapAllocator())
	h := adapter.ParseMissing()
	defer adapter.Release(h)
	if text := adapter.Text(h); !strings.HasPrefix(text, PrefixPath) {
		t.Fatalf("unexpected diagnostic %q", text)
	}
}

func TestReleaseNilIsNoop(t *testing.T) {
	alloc := NewHeapAllocator()
	adapter := NewAdapter(alloc)
	adapter.Release(nil)
	if adapter.Outstanding() != 0 || alloc.Invalid() != 0 {
		t.Fatalf("nil release must not touch the allocator")
	}
	if adapter.Text(nil) != "" {
		t.Fatal("nil handle must read as empty")
	}
}

func TestRenderRecoversPanics(t *testing.T) {
	original := parseReplay
	t.Cleanup(func() { parseReplay = original })
	parseReplay = func(string) replay.Outcome { panic("decoder exploded") }

	adapter := NewAdapter(NewHeapAllocator())
	h := adapter.Parse("whatever.wotreplay")
	defer adapter.Release(h)
	text := adapter.Text(h)
	if !strings.HasPrefix(text, PrefixParse) || !strings.Contains(text, "decoder exploded") {
		t.Fatalf("expected recovered diagnostic, got %q", text)
	}
}

func TestConcurrentParsesOwnTheirHandles(t *testing.T) {
	path := writeFixture(t, `{"playerName":"Ace","damageDealt":7}`)
	alloc := NewHeapAllocator()
	adapter := NewAdapter(alloc)

	var wg sync.WaitGroup
	failures := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := adapter.Parse(path)
			text := adapter.Text(h)
			adapter.Release(h)
			if !strings.Contains(text, `"damage": 7`) {
				failures <- text
			}
		}()
	}
	wg.Wait()
	close(failures)
	for text := range failures {
		t.Errorf("unexpected output %q", text)
	}
	if alloc.Live() != 0 || adapter.Outstanding() != 0 {
		t.Fatalf("handles leaked: live=%d outstanding=%d", alloc.Live(), adapter.Outstanding())
	}
}
