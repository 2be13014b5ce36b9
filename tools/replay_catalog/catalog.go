package replaycatalog

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"replayvault/parser/internal/summary"
	"replayvault/parser/internal/vehicles"
)

// Extension is the file suffix the catalog considers.
const Extension = ".wotreplay"

// Record is one catalogued replay: its summary plus file and derived metadata.
type Record struct {
	Path        string    `json:"path"`
	PlayerName  string    `json:"playerName"`
	Tank        string    `json:"tank"`
	Nation      string    `json:"nation"`
	TankTag     string    `json:"tankTag"`
	TankLabel   string    `json:"tankLabel"`
	Map         string    `json:"map"`
	Date        string    `json:"date"`
	PlayedAt    time.Time `json:"playedAt"`
	Damage      int64     `json:"damage"`
	Server      string    `json:"server"`
	Version     string    `json:"version"`
	Complete    bool      `json:"complete"`
	Fingerprint string    `json:"fingerprint"`
	Duplicate   bool      `json:"duplicate"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modTime"`
	ScannedAt   time.Time `json:"-"`
}

// Summary returns the record's MatchSummary fields.
func (r Record) Summary() summary.MatchSummary {
	return summary.MatchSummary{
		Path:       r.Path,
		PlayerName: r.PlayerName,
		Tank:       r.Tank,
		Map:        r.Map,
		Date:       r.Date,
		Damage:     r.Damage,
		Server:     r.Server,
		Version:    r.Version,
	}
}

// newRecord derives a record from a summary and the label mapping.
func newRecord(s summary.MatchSummary, labels vehicles.Labels) Record {
	rec := Record{
		Path:       s.Path,
		PlayerName: s.PlayerName,
		Tank:       s.Tank,
		TankLabel:  labels.Label(s.Tank),
		Map:        s.Map,
		Date:       s.Date,
		PlayedAt:   ParsePlayedAt(s.Date),
		Damage:     s.Damage,
		Server:     s.Server,
		Version:    s.Version,
	}
	rec.Nation, rec.TankTag = splitTank(s.Tank)
	return rec
}

func splitTank(id string) (string, string) {
	return vehicles.Split(strings.TrimSuffix(id, vehicles.EventSuffix))
}

var playedAtLayouts = []string{
	"02.01.2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParsePlayedAt reads the start record's date in the client's formats. Unknown
// formats yield the zero time, which sorts last.
func ParsePlayedAt(date string) time.Time {
	date = strings.TrimSpace(date)
	for _, layout := range playedAtLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// markDuplicates flags every record whose fingerprint was already seen on an
// older file. The oldest copy keeps Duplicate=false.
func markDuplicates(records []Record) {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := records[order[a]], records[order[b]]
		if !ra.ModTime.Equal(rb.ModTime) {
			return ra.ModTime.Before(rb.ModTime)
		}
		return ra.Path < rb.Path
	})
	seen := make(map[string]bool, len(records))
	for _, i := range order {
		fp := records[i].Fingerprint
		records[i].Duplicate = fp != "" && seen[fp]
		seen[fp] = true
	}
}

// sortRecords orders newest match first, then by path.
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].PlayedAt.Equal(records[j].PlayedAt) {
			return records[i].PlayedAt.After(records[j].PlayedAt)
		}
		return records[i].Path < records[j].Path
	})
}

// MarshalRecords produces a stable JSON representation of the records for CLI output.
func MarshalRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	//1.- Marshal with indentation to keep CLI output legible for operators.
	return json.MarshalIndent(records, "", "  ")
}
