// Package output provides formatters for displaying dataset listings
// in various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/speakleash/pkg/speakleash/dataset"
)

// DatasetInfo contains the manifest fields of one dataset prepared for
// output formatting.
type DatasetInfo struct {
	// Name is the registry name of the dataset.
	Name string `json:"name" yaml:"name"`

	// URL is the location of the compressed archive.
	URL string `json:"url" yaml:"url"`

	// Description is the human-readable description from the manifest.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// License is the dataset license.
	License string `json:"license,omitempty" yaml:"license,omitempty"`

	Characters int64 `json:"characters" yaml:"characters"`
	Documents  int64 `json:"documents" yaml:"documents"`
	Words      int64 `json:"words" yaml:"words"`
	Sentences  int64 `json:"sentences" yaml:"sentences"`

	// Size is the archive size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SizeHuman is the human-readable archive size (e.g., "1.5 GiB").
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// Quality holds document counts per quality level.
	Quality map[string]int64 `json:"quality,omitempty" yaml:"quality,omitempty"`

	// Categories lists the categories passing the 95% threshold, sorted.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Downloaded reports whether a valid archive is present locally.
	Downloaded bool `json:"downloaded" yaml:"downloaded"`
}

// Result contains the complete output data for formatting.
type Result struct {
	// Datasets contains the listed datasets in registry order.
	Datasets []DatasetInfo `json:"datasets" yaml:"datasets"`

	// Source is the registry listing the datasets came from.
	Source string `json:"source" yaml:"source"`

	// Lang is the registry language.
	Lang string `json:"lang" yaml:"lang"`

	// Warnings contains any warning messages generated while listing.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewDatasetInfo extracts the displayed fields from a dataset handle.
func NewDatasetInfo(d *dataset.Dataset) DatasetInfo {
	var categories []string
	for name, score := range d.Categories() {
		if score > 0 {
			categories = append(categories, name)
		}
	}
	sort.Strings(categories)

	info := DatasetInfo{
		Name:        d.Name(),
		URL:         d.DataURL(),
		Description: d.Description(),
		License:     d.License(),
		Characters:  d.Characters(),
		Documents:   d.Documents(),
		Words:       d.Words(),
		Sentences:   d.Sentences(),
		Size:        d.FileSize(),
		SizeHuman:   humanize.IBytes(uint64(max(d.FileSize(), 0))),
		Quality:     d.Quality(),
		Categories:  categories,
	}

	if st, err := os.Stat(d.LocalPath()); err == nil && st.Size() == d.FileSize() {
		info.Downloaded = true
	}
	return info
}

// NewResult builds a Result from dataset handles.
func NewResult(source, lang string, datasets []*dataset.Dataset) *Result {
	r := &Result{
		Datasets: make([]DatasetInfo, 0, len(datasets)),
		Source:   source,
		Lang:     lang,
	}
	for _, d := range datasets {
		r.Datasets = append(r.Datasets, NewDatasetInfo(d))
	}
	return r
}

// TotalSize returns the sum of all archive sizes in the result.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, d := range r.Datasets {
		total += d.Size
	}
	return total
}

// TotalCharacters returns the sum of all character counts in the result.
func (r *Result) TotalCharacters() int64 {
	var total int64
	for _, d := range r.Datasets {
		total += d.Characters
	}
	return total
}

// TotalDocuments returns the sum of all document counts in the result.
func (r *Result) TotalDocuments() int64 {
	var total int64
	for _, d := range r.Datasets {
		total += d.Documents
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
