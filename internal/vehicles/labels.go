// Package vehicles maps raw vehicle identifiers such as "ussr-R04_T-34" to display labels.
package vehicles

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-json-experiment/json"
)

// EventSuffix marks vehicles fielded in the Overwhelming Fire event mode.
const EventSuffix = "_FEP23"

// EventLabel is appended to the display label of event vehicles.
const EventLabel = " (Overwhelming Fire)"

// Split separates a vehicle identifier into its nation and tag at the first '-'.
// Identifiers without a separator have an empty tag.
func Split(id string) (nation, tag string) {
	nation, tag, found := strings.Cut(id, "-")
	if !found {
		return id, ""
	}
	return nation, tag
}

// Labels maps vehicle tags to human readable names.
type Labels map[string]string

// LoadLabels reads a JSON object of tag to name. A missing file yields an empty mapping.
func LoadLabels(path string) (Labels, error) {
	if strings.TrimSpace(path) == "" {
		return Labels{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Labels{}, nil
		}
		return nil, fmt.Errorf("read vehicle labels: %w", err)
	}
	return ParseLabels(data)
}

// ParseLabels decodes a JSON object of tag to name.
func ParseLabels(data []byte) (Labels, error) {
	labels := Labels{}
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("decode vehicle labels: %w", err)
	}
	return labels, nil
}

// Label returns the display name for a raw vehicle identifier, falling back to
// the identifier itself when the tag is unknown.
func (l Labels) Label(id string) string {
	suffix := ""
	if strings.HasSuffix(id, EventSuffix) {
		suffix = EventLabel
		id = strings.TrimSuffix(id, EventSuffix)
	}
	_, tag := Split(id)
	if name, ok := l[tag]; ok && tag != "" {
		return name + suffix
	}
	return id + suffix
}
