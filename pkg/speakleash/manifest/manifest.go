// Package manifest defines the per-dataset metadata document published by
// the registry next to every dataset archive.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Quality levels reported in Stats.Quality.
const (
	QualityHigh   = "HIGH"
	QualityMedium = "MEDIUM"
	QualityLow    = "LOW"
)

// Manifest is the decoded <name>.manifest document. Missing keys decode to
// zero values, so every accessor is safe on a partially populated manifest.
type Manifest struct {
	Stats       Stats          `json:"stats"`
	Description string         `json:"description"`
	License     string         `json:"license"`
	Category    Scores         `json:"category"`
	Category95  Scores         `json:"category=95%"`
	Sources     map[string]any `json:"sources"`
	FileSize    int64          `json:"file_size"`
}

// Stats holds the corpus counters computed by the registry.
type Stats struct {
	Characters   int64            `json:"characters"`
	Documents    int64            `json:"documents"`
	Words        int64            `json:"words"`
	Sentences    int64            `json:"sentences"`
	Stopwords    int64            `json:"stopwords"`
	Nouns        int64            `json:"nouns"`
	Verbs        int64            `json:"verbs"`
	Symbols      int64            `json:"symbols"`
	Punctuations int64            `json:"punctuations"`
	Quality      map[string]int64 `json:"quality"`
}

// Scores maps category labels to a confidence value.
type Scores map[string]Score

// Score is a category confidence. The registry publishes either a number
// or, for thresholded maps, a boolean; true decodes as 1 and false as 0.
type Score float64

// UnmarshalJSON accepts numbers, booleans and null.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*s = 1
		return nil
	case "false", "null":
		*s = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("category score %s: %w", data, err)
	}
	*s = Score(f)
	return nil
}

// Parse decodes a raw manifest document.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// HasQualityMetrics reports whether any quality bucket is non-zero.
func (m *Manifest) HasQualityMetrics() bool {
	for _, level := range []string{QualityHigh, QualityMedium, QualityLow} {
		if m.Stats.Quality[level] != 0 {
			return true
		}
	}
	return false
}

// IsCategorized reports whether any category passed the 95% threshold.
func (m *Manifest) IsCategorized() bool {
	for _, v := range m.Category95 {
		if v > 0 {
			return true
		}
	}
	return false
}
