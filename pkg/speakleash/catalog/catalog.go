// Package catalog lists the datasets published by the registry and hands
// out a Dataset handle for each of them.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/speakleash/pkg/speakleash/category"
	"github.com/jamesainslie/speakleash/pkg/speakleash/dataset"
	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
	"github.com/jamesainslie/speakleash/pkg/speakleash/logging"
	"github.com/jamesainslie/speakleash/pkg/speakleash/records"
	"github.com/jamesainslie/speakleash/pkg/speakleash/structure"
)

var logger = logging.Get("catalog")

// Registry languages.
const (
	LangPL = "pl"
	LangHR = "hr"
)

// DefaultHost is the registry root.
const DefaultHost = "https://speakleash.space/"

// Registry describes where a language's datasets are published.
type Registry struct {
	// BaseURL is the directory holding manifests and archives.
	BaseURL string

	// StructureFile is the listing document inside BaseURL.
	StructureFile string
}

// ListURL returns the location of the listing document.
func (r Registry) ListURL() string {
	return r.BaseURL + r.StructureFile
}

// RegistryFor returns the registry layout for lang under host. Unknown
// languages fall back to Polish.
func RegistryFor(host, lang string) Registry {
	if host == "" {
		host = DefaultHost
	}
	if lang == LangHR {
		return Registry{BaseURL: host + "datasets_text_hr/", StructureFile: "speakleash_hr.json"}
	}
	return Registry{BaseURL: host + "datasets_text/", StructureFile: "speakleash.json"}
}

// Options configures New.
type Options struct {
	// ReplicateDir holds cached documents and downloaded archives.
	ReplicateDir string

	// Lang selects the registry. Empty means Polish.
	Lang string

	// Host overrides DefaultHost. Ignored when BaseURL is set.
	Host string

	// BaseURL and StructureFile override the registry layout entirely.
	BaseURL       string
	StructureFile string

	// Fetcher is the transport. Nil uses fetch.New with default options.
	Fetcher fetch.Fetcher

	// Structures overrides the structure cache built on ReplicateDir.
	Structures *structure.Cache

	// Decoder opens archives. Nil uses records.ZstdDecoder.
	Decoder records.Decoder
}

// Catalog is the ordered list of dataset handles from one registry listing.
// It is fetched once and never refreshed.
type Catalog struct {
	registry Registry
	lang     string
	datasets []*dataset.Dataset
}

type entry struct {
	Name *string `json:"name"`
}

// New fetches the registry listing and creates a handle for every entry
// with a name. A listing that cannot be fetched or decoded yields an empty
// catalog; the failure is logged, not returned.
func New(ctx context.Context, opts Options) *Catalog {
	if opts.Lang == "" {
		opts.Lang = LangPL
	}
	reg := RegistryFor(opts.Host, opts.Lang)
	if opts.BaseURL != "" {
		reg.BaseURL = opts.BaseURL
	}
	if opts.StructureFile != "" {
		reg.StructureFile = opts.StructureFile
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.New(fetch.Options{})
	}
	if opts.Structures == nil {
		opts.Structures = structure.New(opts.ReplicateDir, opts.Fetcher)
	}

	c := &Catalog{registry: reg, lang: opts.Lang}

	var entries []entry
	if err := opts.Structures.GetInto(ctx, reg.ListURL(), structure.Hourly, &entries); err != nil {
		logger.Error("error downloading dataset list", "url", reg.ListURL(), "error", err)
		return c
	}

	dsOpts := dataset.Options{
		BaseURL:      reg.BaseURL,
		ReplicateDir: opts.ReplicateDir,
		Structures:   opts.Structures,
		Fetcher:      opts.Fetcher,
		Decoder:      opts.Decoder,
	}
	for _, e := range entries {
		if e.Name == nil {
			continue
		}
		c.datasets = append(c.datasets, dataset.New(ctx, *e.Name, dsOpts))
	}

	logger.Debug("catalog loaded", "lang", opts.Lang, "datasets", len(c.datasets))
	return c
}

// FromDatasets builds a catalog around existing handles.
func FromDatasets(reg Registry, lang string, datasets ...*dataset.Dataset) *Catalog {
	return &Catalog{registry: reg, lang: lang, datasets: datasets}
}

// Registry returns the registry the catalog was loaded from.
func (c *Catalog) Registry() Registry { return c.registry }

// Lang returns the registry language.
func (c *Catalog) Lang() string { return c.lang }

// Len returns the number of datasets.
func (c *Catalog) Len() int { return len(c.datasets) }

// Datasets returns the handles in listing order.
func (c *Catalog) Datasets() []*dataset.Dataset {
	out := make([]*dataset.Dataset, len(c.datasets))
	copy(out, c.datasets)
	return out
}

// Get returns the first dataset named name.
func (c *Catalog) Get(name string) (*dataset.Dataset, bool) {
	for _, d := range c.datasets {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Names returns the dataset names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.datasets))
	for _, d := range c.datasets {
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names
}

// Filter returns the datasets for which keep returns true, in listing order.
func (c *Catalog) Filter(keep func(*dataset.Dataset) bool) []*dataset.Dataset {
	var out []*dataset.Dataset
	for _, d := range c.datasets {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// Match returns the datasets whose name matches the glob pattern.
func (c *Catalog) Match(pattern string) ([]*dataset.Dataset, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return c.Filter(func(d *dataset.Dataset) bool {
		return g.Match(d.Name())
	}), nil
}

// ByCategory returns the datasets scoring at least cf in any of categories.
func (c *Catalog) ByCategory(r *category.Resolver, categories []string, cf float64, lang string) []*dataset.Dataset {
	return c.Filter(func(d *dataset.Dataset) bool {
		return r.CheckCategory(d.Manifest(), categories, cf, lang)
	})
}

// TotalCharacters sums the character counts of every dataset.
func (c *Catalog) TotalCharacters() int64 {
	var n int64
	for _, d := range c.datasets {
		n += d.Characters()
	}
	return n
}

// TotalDocuments sums the document counts of every dataset.
func (c *Catalog) TotalDocuments() int64 {
	var n int64
	for _, d := range c.datasets {
		n += d.Documents()
	}
	return n
}

// MarshalJSON encodes the catalog as its listing: [{"name": ...}, ...].
func (c *Catalog) MarshalJSON() ([]byte, error) {
	type named struct {
		Name string `json:"name"`
	}
	out := make([]named, 0, len(c.datasets))
	for _, d := range c.datasets {
		out = append(out, named{Name: d.Name()})
	}
	return json.Marshal(out)
}
