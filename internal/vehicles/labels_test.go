package vehicles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		id, nation, tag string
	}{
		{"ussr-R04_T-34", "ussr", "R04_T-34"},
		{"germany-G16_PzVIB_Tiger_II", "germany", "G16_PzVIB_Tiger_II"},
		{"nodash", "nodash", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		nation, tag := Split(tc.id)
		if nation != tc.nation || tag != tc.tag {
			t.Fatalf("Split(%q) = %q, %q; want %q, %q", tc.id, nation, tag, tc.nation, tc.tag)
		}
	}
}

func TestLabel(t *testing.T) {
	labels, err := ParseLabels([]byte(`{"R04_T-34":"T-34","G16_PzVIB_Tiger_II":"Tiger II"}`))
	if err != nil {
		t.Fatalf("ParseLabels: %v", err)
	}
	cases := map[string]string{
		"ussr-R04_T-34":                    "T-34",
		"germany-G16_PzVIB_Tiger_II_FEP23": "Tiger II (Overwhelming Fire)",
		"usa-A01_T1_Cunningham":            "usa-A01_T1_Cunningham",
		"usa-A01_T1_Cunningham_FEP23":      "usa-A01_T1_Cunningham (Overwhelming Fire)",
		"nodash":                           "nodash",
		"":                                 "",
	}
	for id, want := range cases {
		if got := labels.Label(id); got != want {
			t.Fatalf("Label(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	labels, err := LoadLabels(filepath.Join(dir, "missing.json"))
	if err != nil || len(labels) != 0 {
		t.Fatalf("missing file must yield empty labels, got %v, %v", labels, err)
	}

	path := filepath.Join(dir, "vehicles.json")
	if err := os.WriteFile(path, []byte(`{"R04_T-34":"T-34"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	labels, err = LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if labels["R04_T-34"] != "T-34" {
		t.Fatalf("unexpected labels %v", labels)
	}

	if err := os.WriteFile(path, []byte(`["not","an","object"]`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadLabels(path); err == nil {
		t.Fatal("expected error for non-object label file")
	}
}
