// Package dataset implements the handle for one registry dataset: its
// manifest, its local data file and the record stream decoded from it.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
	"github.com/jamesainslie/speakleash/pkg/speakleash/filestore"
	"github.com/jamesainslie/speakleash/pkg/speakleash/logging"
	"github.com/jamesainslie/speakleash/pkg/speakleash/manifest"
	"github.com/jamesainslie/speakleash/pkg/speakleash/records"
	"github.com/jamesainslie/speakleash/pkg/speakleash/structure"
)

var logger = logging.Get("dataset")

// File suffixes published by the registry for every dataset.
const (
	DataSuffix     = ".jsonl.zst"
	ManifestSuffix = ".manifest"
	SampleSuffix   = ".sample"
)

// ErrSizeMismatch is returned when a downloaded archive does not match the
// size declared in the manifest.
var ErrSizeMismatch = errors.New("archive size does not match manifest")

// Options holds the collaborators shared by every handle of a catalog.
type Options struct {
	// BaseURL is the registry directory, ending with a slash.
	BaseURL string

	// ReplicateDir holds downloaded archives.
	ReplicateDir string

	// Structures serves manifests and samples.
	Structures *structure.Cache

	// Fetcher downloads archives.
	Fetcher fetch.Fetcher

	// Decoder opens archives. Nil uses records.ZstdDecoder.
	Decoder records.Decoder
}

// Dataset is a handle to one registry dataset. The manifest is fetched
// when the handle is created and never refreshed.
type Dataset struct {
	name     string
	baseURL  string
	dir      string
	manifest *manifest.Manifest

	structures *structure.Cache
	fetcher    fetch.Fetcher
	decoder    records.Decoder
}

// New creates the handle for name and fetches its manifest. A manifest
// that cannot be fetched or decoded leaves every accessor at its zero value.
func New(ctx context.Context, name string, opts Options) *Dataset {
	d := newHandle(name, opts)
	d.manifest = d.loadManifest(ctx)
	return d
}

func newHandle(name string, opts Options) *Dataset {
	d := &Dataset{
		name:       name,
		baseURL:    opts.BaseURL,
		dir:        opts.ReplicateDir,
		structures: opts.Structures,
		fetcher:    opts.Fetcher,
		decoder:    opts.Decoder,
	}
	if d.decoder == nil {
		d.decoder = &records.ZstdDecoder{}
	}
	return d
}

// NewWithManifest creates a handle around an already decoded manifest.
func NewWithManifest(name string, m *manifest.Manifest, opts Options) *Dataset {
	if m == nil {
		m = &manifest.Manifest{}
	}
	d := newHandle(name, opts)
	d.manifest = m
	return d
}

func (d *Dataset) loadManifest(ctx context.Context) *manifest.Manifest {
	if d.structures == nil {
		return &manifest.Manifest{}
	}

	url := d.ManifestURL()
	raw, err := d.structures.Get(ctx, url, structure.Daily)
	if err != nil {
		logger.Error("error downloading manifest", "dataset", d.name, "url", url, "error", err)
		return &manifest.Manifest{}
	}

	m, err := manifest.Parse(raw)
	if err != nil {
		logger.Error("error decoding manifest", "dataset", d.name, "url", url, "error", err)
		return &manifest.Manifest{}
	}
	return m
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// URL returns the registry directory the dataset is published in.
func (d *Dataset) URL() string { return d.baseURL }

// ManifestURL returns the location of the manifest document.
func (d *Dataset) ManifestURL() string { return d.baseURL + d.name + ManifestSuffix }

// DataURL returns the location of the compressed archive.
func (d *Dataset) DataURL() string { return d.baseURL + d.name + DataSuffix }

// SampleURL returns the location of the preview document.
func (d *Dataset) SampleURL() string { return d.baseURL + d.name + SampleSuffix }

// LocalPath returns where the archive is stored once downloaded.
func (d *Dataset) LocalPath() string {
	return filepath.Join(d.dir, d.name+DataSuffix)
}

// Manifest returns the decoded manifest. It is never nil.
func (d *Dataset) Manifest() *manifest.Manifest { return d.manifest }

// Description returns the human-readable dataset description.
func (d *Dataset) Description() string { return d.manifest.Description }

// License returns the dataset license.
func (d *Dataset) License() string { return d.manifest.License }

// Category returns the per-category confidence scores.
func (d *Dataset) Category() manifest.Scores { return d.manifest.Category }

// Categories returns the categories thresholded at 95% confidence.
func (d *Dataset) Categories() manifest.Scores { return d.manifest.Category95 }

// Sources returns the provenance section of the manifest.
func (d *Dataset) Sources() map[string]any { return d.manifest.Sources }

// Counters from the manifest stats; zero when absent.

func (d *Dataset) Characters() int64   { return d.manifest.Stats.Characters }
func (d *Dataset) Documents() int64    { return d.manifest.Stats.Documents }
func (d *Dataset) Words() int64        { return d.manifest.Stats.Words }
func (d *Dataset) Sentences() int64    { return d.manifest.Stats.Sentences }
func (d *Dataset) Stopwords() int64    { return d.manifest.Stats.Stopwords }
func (d *Dataset) Nouns() int64        { return d.manifest.Stats.Nouns }
func (d *Dataset) Verbs() int64        { return d.manifest.Stats.Verbs }
func (d *Dataset) Symbols() int64      { return d.manifest.Stats.Symbols }
func (d *Dataset) Punctuations() int64 { return d.manifest.Stats.Punctuations }

// Quality returns document counts per quality level.
func (d *Dataset) Quality() map[string]int64 { return d.manifest.Stats.Quality }

// FileSize returns the archive size declared by the manifest.
func (d *Dataset) FileSize() int64 { return d.manifest.FileSize }

// QualityMetrics reports whether the manifest carries any quality counts.
func (d *Dataset) QualityMetrics() bool { return d.manifest.HasQualityMetrics() }

// Categorization reports whether any category passed the 95% threshold.
func (d *Dataset) Categorization() bool { return d.manifest.IsCategorized() }

// String renders the handle as "name: .., url: .., characters: ..".
func (d *Dataset) String() string {
	return fmt.Sprintf("name: %s, url: %s, characters: %d", d.name, d.baseURL, d.Characters())
}

// CheckFile returns the path of a valid local archive, downloading it once
// when the file is missing or its size differs from the manifest.
func (d *Dataset) CheckFile(ctx context.Context) (string, error) {
	return d.CheckFileProgress(ctx, nil)
}

// CheckFileProgress is CheckFile with download progress reporting.
func (d *Dataset) CheckFileProgress(ctx context.Context, progress fetch.ProgressFunc) (string, error) {
	if err := filestore.EnsureDir(d.dir); err != nil {
		return "", err
	}

	path := d.LocalPath()
	if d.valid(path) {
		logger.Debug("archive present", "dataset", d.name, "path", path)
		return path, nil
	}

	if d.fetcher == nil {
		return "", fmt.Errorf("download %s: no fetcher configured", d.name)
	}

	logger.Info("downloading archive", "dataset", d.name, "url", d.DataURL(), "size", d.FileSize())
	if _, err := d.fetcher.Download(ctx, d.DataURL(), path, progress); err != nil {
		return "", fmt.Errorf("download %s: %w", d.name, err)
	}

	if want := d.FileSize(); want > 0 {
		if info, err := os.Stat(path); err != nil || info.Size() != want {
			_ = os.Remove(path)
			logger.Error("downloaded archive has unexpected size", "dataset", d.name, "want", want)
			return "", fmt.Errorf("%w: %s", ErrSizeMismatch, d.name)
		}
	}
	return path, nil
}

func (d *Dataset) valid(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cannot stat archive", "path", path, "error", err)
		}
		return false
	}
	return info.Mode().IsRegular() && info.Size() == d.FileSize()
}

// Data returns a stream over the document texts.
func (d *Dataset) Data(ctx context.Context) (records.Stream, error) {
	return d.open(ctx, false)
}

// ExtData returns a stream over the documents with their metadata.
func (d *Dataset) ExtData(ctx context.Context) (records.Stream, error) {
	return d.open(ctx, true)
}

func (d *Dataset) open(ctx context.Context, withMeta bool) (records.Stream, error) {
	path, err := d.CheckFile(ctx)
	if err != nil {
		return nil, err
	}
	s, err := d.decoder.Open(path, withMeta)
	if err != nil {
		logger.Error("cannot open archive", "dataset", d.name, "path", path, "error", err)
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	return s, nil
}

// Samples returns the preview documents, or an empty slice when they are
// unavailable.
func (d *Dataset) Samples(ctx context.Context) []map[string]any {
	if d.structures == nil {
		return []map[string]any{}
	}

	raw, err := d.structures.Get(ctx, d.SampleURL(), structure.Daily)
	if err != nil {
		logger.Warn("samples unavailable", "dataset", d.name, "error", err)
		return []map[string]any{}
	}

	var samples []map[string]any
	if err := json.Unmarshal(raw, &samples); err != nil {
		logger.Warn("malformed samples", "dataset", d.name, "error", err)
		return []map[string]any{}
	}
	if samples == nil {
		return []map[string]any{}
	}
	return samples
}
