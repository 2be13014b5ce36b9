// Package summary reduces decoded replay trees to the fixed MatchSummary record.
package summary

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"replayvault/parser/internal/tree"
)

// Start record member names.
const (
	KeyPlayerName = "playerName"
	KeyVehicle    = "playerVehicle"
	KeyMap        = "mapDisplayName"
	KeyDate       = "dateTime"
	KeyServer     = "serverName"
	KeyVersion    = "clientVersionFromXml"
	KeyDamage     = "damageDealt"
	KeyPersonal   = "personal"
)

// MatchSummary is the flattened per-replay record. Field order is the wire order.
type MatchSummary struct {
	Path       string `json:"path"`
	PlayerName string `json:"playerName"`
	Tank       string `json:"tank"`
	Map        string `json:"map"`
	Date       string `json:"date"`
	Damage     int64  `json:"damage"`
	Server     string `json:"server"`
	Version    string `json:"version"`
}

// Extract builds the summary from the start record and the optional end record.
// Every field falls back to its zero value on absence or type mismatch.
func Extract(path string, start tree.Value, end *tree.Value) MatchSummary {
	s := MatchSummary{
		Path:       path,
		PlayerName: stringField(start, KeyPlayerName),
		Tank:       stringField(start, KeyVehicle),
		Map:        stringField(start, KeyMap),
		Date:       stringField(start, KeyDate),
		Damage:     intField(start, KeyDamage),
		Server:     stringField(start, KeyServer),
		Version:    stringField(start, KeyVersion),
	}
	//1.- The start record under-reports damage when captured before the player spawned.
	if s.Damage == 0 && end != nil {
		s.Damage = FallbackDamage(*end)
	}
	return s
}

// FallbackDamage reads damageDealt of the first personal entry of the end record.
//
// The entry is the first in decoder order, not the player's own vehicle; this
// mirrors the established behaviour and is kept on purpose.
func FallbackDamage(end tree.Value) int64 {
	results, ok := end.Index(0)
	if !ok {
		return 0
	}
	personal, ok := results.Lookup(KeyPersonal)
	if !ok {
		return 0
	}
	first, ok := personal.First()
	if !ok {
		return 0
	}
	return intField(first.Value, KeyDamage)
}

func stringField(v tree.Value, key string) string {
	field, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := field.AsString()
	return s
}

func intField(v tree.Value, key string) int64 {
	field, ok := v.Get(key)
	if !ok {
		return 0
	}
	n, _ := field.AsInt()
	return n
}

// Marshal renders the summary as two-space indented JSON. Only the characters
// JSON requires are escaped; HTML and JavaScript separators pass through raw.
func Marshal(s MatchSummary) ([]byte, error) {
	return json.Marshal(s,
		jsontext.WithIndent("  "),
		jsontext.AllowInvalidUTF8(true),
	)
}
