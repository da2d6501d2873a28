// Package config provides configuration management for the speakleash client.
package config

import "time"

// Default configuration values for speakleash.
const (
	// DefaultLang is the registry language used when none is configured.
	DefaultLang = "pl"

	// DefaultHost is the registry root.
	DefaultHost = "https://speakleash.space/"

	// DefaultLabelsURL is the directory holding the category label lists.
	DefaultLabelsURL = "https://speakleash.space/datasets_text/"

	// DefaultTimeout bounds registry requests other than archive downloads.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies the client to the registry.
	DefaultUserAgent = "speakleash-go"

	// LabelStoreBadger keeps category labels in a badger database.
	LabelStoreBadger = "badger"

	// LabelStoreDir keeps category labels as text files.
	LabelStoreDir = "dir"

	// DefaultLabelStore is the label store used when none is configured.
	DefaultLabelStore = LabelStoreBadger

	// DefaultConfigDir is the default configuration directory path.
	DefaultConfigDir = "~/.config/speakleash"
)

// DefaultComponentLevels are the per-component log levels written to new
// config files.
var DefaultComponentLevels = map[string]string{
	"fetch":     "info",
	"structure": "warn",
	"category":  "info",
	"catalog":   "info",
	"dataset":   "info",
	"records":   "warn",
}
