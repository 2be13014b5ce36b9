package summary

import (
	"encoding/json"
	"strings"
	"testing"

	"replayvault/parser/internal/tree"
)

const startRecord = `{"playerName":"Ace","playerVehicle":"T-34","mapDisplayName":"Prokhorovka","dateTime":"2024-01-01 10:00:00","serverName":"EU","clientVersionFromXml":"1.20.0","damageDealt":450}`

func decode(t *testing.T, raw string) tree.Value {
	t.Helper()
	v, err := tree.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%s): %v", raw, err)
	}
	return v
}

func TestExtractStartOnly(t *testing.T) {
	s := Extract("/replays/a.wotreplay", decode(t, startRecord), nil)
	want := MatchSummary{
		Path:       "/replays/a.wotreplay",
		PlayerName: "Ace",
		Tank:       "T-34",
		Map:        "Prokhorovka",
		Date:       "2024-01-01 10:00:00",
		Damage:     450,
		Server:     "EU",
		Version:    "1.20.0",
	}
	if s != want {
		t.Fatalf("unexpected summary:\n got %+v\nwant %+v", s, want)
	}
}

func TestExtractNonZeroStartDamageIgnoresEnd(t *testing.T) {
	end := decode(t, `[{"personal":{"111":{"damageDealt":9999}}}]`)
	s := Extract("p", decode(t, startRecord), &end)
	if s.Damage != 450 {
		t.Fatalf("expected start damage 450, got %d", s.Damage)
	}
}

func TestExtractFallbackUsesFirstPersonalEntry(t *testing.T) {
	start := decode(t, `{"playerName":"Ace","damageDealt":0}`)
	//1.- Entry order is fixed explicitly; the larger key comes first to rule out sorting.
	end := decode(t, `[{"personal":{"9001":{"damageDealt":1200},"17":{"damageDealt":35}}},{"vehicles":{}}]`)
	s := Extract("p", start, &end)
	if s.Damage != 1200 {
		t.Fatalf("expected first entry damage 1200, got %d", s.Damage)
	}
}

func TestExtractFallbackMisses(t *testing.T) {
	cases := map[string]string{
		"end is object":          `{"personal":{"1":{"damageDealt":5}}}`,
		"empty array":            `[]`,
		"no personal":            `[{"common":{}}]`,
		"personal not object":    `[{"personal":[{"damageDealt":5}]}]`,
		"empty personal":         `[{"personal":{}}]`,
		"first entry not object": `[{"personal":{"1":5,"2":{"damageDealt":7}}}]`,
		"damage wrong type":      `[{"personal":{"1":{"damageDealt":"5"}}}]`,
	}
	start := decode(t, `{"damageDealt":0}`)
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			end := decode(t, raw)
			if got := Extract("p", start, &end).Damage; got != 0 {
				t.Fatalf("expected damage 0, got %d", got)
			}
		})
	}
}

func TestExtractDefaultsOnTypeMismatch(t *testing.T) {
	start := decode(t, `{"playerName":42,"playerVehicle":null,"mapDisplayName":["x"],"dateTime":true,"serverName":{},"damageDealt":450.5}`)
	s := Extract("p", start, nil)
	if s.PlayerName != "" || s.Tank != "" || s.Map != "" || s.Date != "" || s.Server != "" || s.Version != "" {
		t.Fatalf("expected empty strings, got %+v", s)
	}
	if s.Damage != 0 {
		t.Fatalf("float damage must default to 0, got %d", s.Damage)
	}
}

func TestExtractStartNotObject(t *testing.T) {
	s := Extract("p", decode(t, `[1,2,3]`), nil)
	if s != (MatchSummary{Path: "p"}) {
		t.Fatalf("expected defaults, got %+v", s)
	}
}

func TestExtractCopiesStringsVerbatim(t *testing.T) {
	start := decode(t, `{"playerName":"<Ünïcødé & \"quotes\">","mapDisplayName":"Linie Siegfried"}`)
	s := Extract("p", start, nil)
	if s.PlayerName != `<Ünïcødé & "quotes">` {
		t.Fatalf("player name altered: %q", s.PlayerName)
	}
	out, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"playerName": "<Ünïcødé & \"quotes\">"`) {
		t.Fatalf("unexpected escaping in %s", out)
	}
}

func TestMarshalLeavesLineSeparatorsRaw(t *testing.T) {
	out, err := Marshal(MatchSummary{Path: "p", PlayerName: "a\u2028b\u2029c"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "\"playerName\": \"a\u2028b\u2029c\"") {
		t.Fatalf("separators were escaped: %q", out)
	}
}

func TestMarshalKeyOrderAndShape(t *testing.T) {
	out, err := Marshal(Extract("/tmp/x.wotreplay", decode(t, startRecord), nil))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{
  "path": "/tmp/x.wotreplay",
  "playerName": "Ace",
  "tank": "T-34",
  "map": "Prokhorovka",
  "date": "2024-01-01 10:00:00",
  "damage": 450,
  "server": "EU",
  "version": "1.20.0"
}`
	if string(out) != want {
		t.Fatalf("unexpected output:\n%s", out)
	}
	var generic map[string]any
	if err := json.Unmarshal(out, &generic); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(generic) != 8 {
		t.Fatalf("expected 8 fields, got %d", len(generic))
	}
}
