package dataset

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
	"github.com/jamesainslie/speakleash/pkg/speakleash/records"
	"github.com/jamesainslie/speakleash/pkg/speakleash/structure"
)

func compress(t *testing.T, lines string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(lines))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type registry struct {
	srv       *httptest.Server
	archive   []byte
	manifest  string
	sample    string
	downloads atomic.Int32
	manifests atomic.Int32
}

func newRegistry(t *testing.T) *registry {
	t.Helper()
	r := &registry{
		archive: compress(t, `{"text":"Pierwszy.","meta":{"url":"https://a.pl"}}`+"\n"+`{"text":"Drugi.","meta":{"url":"https://b.pl"}}`+"\n"),
		sample:  `[{"text":"Pierwszy."}]`,
	}
	r.manifest = fmt.Sprintf(`{
		"description": "Polish news",
		"license": "CC-BY",
		"category": {"Wiadomości": 0.97},
		"category=95%%": {"Wiadomości": true, "Sport": false},
		"sources": {"portal": "https://example.pl"},
		"file_size": %d,
		"stats": {"characters": 17, "documents": 2, "words": 2, "sentences": 2,
			"quality": {"HIGH": 2, "MEDIUM": 0, "LOW": 0}}
	}`, len(r.archive))

	mux := http.NewServeMux()
	mux.HandleFunc("/news.manifest", func(w http.ResponseWriter, _ *http.Request) {
		r.manifests.Add(1)
		_, _ = w.Write([]byte(r.manifest))
	})
	mux.HandleFunc("/news.sample", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(r.sample))
	})
	mux.HandleFunc("/news.jsonl.zst", func(w http.ResponseWriter, _ *http.Request) {
		r.downloads.Add(1)
		w.Header().Set("Content-Length", fmt.Sprint(len(r.archive)))
		_, _ = w.Write(r.archive)
	})
	r.srv = httptest.NewServer(mux)
	t.Cleanup(r.srv.Close)
	return r
}

func (r *registry) options(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	f := fetch.New(fetch.Options{})
	return Options{
		BaseURL:      r.srv.URL + "/",
		ReplicateDir: dir,
		Structures:   structure.New(dir, f),
		Fetcher:      f,
	}
}

func TestNew_ManifestAccessors(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "news", r.options(t))

	assert.Equal(t, "news", d.Name())
	assert.Equal(t, "Polish news", d.Description())
	assert.Equal(t, "CC-BY", d.License())
	assert.InDelta(t, 0.97, float64(d.Category()["Wiadomości"]), 1e-9)
	assert.InDelta(t, 1, float64(d.Categories()["Wiadomości"]), 1e-9)
	assert.Equal(t, "https://example.pl", d.Sources()["portal"])
	assert.Equal(t, int64(17), d.Characters())
	assert.Equal(t, int64(2), d.Documents())
	assert.Equal(t, int64(0), d.Nouns())
	assert.Equal(t, int64(len(r.archive)), d.FileSize())
	assert.True(t, d.QualityMetrics())
	assert.True(t, d.Categorization())
	assert.Equal(t, fmt.Sprintf("name: news, url: %s/, characters: 17", r.srv.URL), d.String())
}

func TestNew_ManifestCachedDaily(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	opts := r.options(t)

	New(context.Background(), "news", opts)
	New(context.Background(), "news", opts)
	assert.Equal(t, int32(1), r.manifests.Load())
}

func TestNew_MissingManifestDefaults(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "absent", r.options(t))

	require.NotNil(t, d.Manifest())
	assert.Empty(t, d.Description())
	assert.Zero(t, d.Characters())
	assert.Nil(t, d.Quality())
	assert.False(t, d.QualityMetrics())
	assert.False(t, d.Categorization())
}

func TestCheckFile_DownloadsOnceWhenSizeDiffers(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	opts := r.options(t)
	d := New(context.Background(), "news", opts)

	require.NoError(t, os.WriteFile(d.LocalPath(), []byte("stale"), 0o644))

	path, err := d.CheckFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.ReplicateDir, "news.jsonl.zst"), path)
	assert.Equal(t, int32(1), r.downloads.Load())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, d.FileSize(), info.Size())

	_, err = d.CheckFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.downloads.Load())
}

func TestCheckFile_SizeMismatchAfterDownload(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	r.manifest = `{"file_size": 999999}`
	d := New(context.Background(), "news", r.options(t))

	_, err := d.CheckFile(context.Background())
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.NoFileExists(t, d.LocalPath())
}

func TestCheckFile_DownloadFailure(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "absent", r.options(t))

	path, err := d.CheckFile(context.Background())
	assert.Empty(t, path)
	assert.ErrorIs(t, err, fetch.ErrStatus)
}

func TestCheckFileProgress(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "news", r.options(t))

	var last, total int64
	_, err := d.CheckFileProgress(context.Background(), func(w, tot int64) { last, total = w, tot })
	require.NoError(t, err)
	assert.Equal(t, d.FileSize(), last)
	assert.Equal(t, d.FileSize(), total)
}

func TestData(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "news", r.options(t))

	s, err := d.Data(context.Background())
	require.NoError(t, err)
	defer s.Close()

	recs, err := records.Collect(s, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Pierwszy.", recs[0].Text)
	assert.Nil(t, recs[0].Meta)
}

func TestExtData(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "news", r.options(t))

	s, err := d.ExtData(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.True(t, s.Next())
	assert.Equal(t, "https://a.pl", s.Record().Meta["url"])
}

func TestData_DownloadFailureYieldsNoStream(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "absent", r.options(t))

	s, err := d.Data(context.Background())
	assert.Nil(t, s)
	assert.Error(t, err)
}

func TestSamples(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	d := New(context.Background(), "news", r.options(t))

	samples := d.Samples(context.Background())
	require.Len(t, samples, 1)
	assert.Equal(t, "Pierwszy.", samples[0]["text"])

	missing := New(context.Background(), "absent", r.options(t))
	got := missing.Samples(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNewWithManifest(t *testing.T) {
	t.Parallel()
	d := NewWithManifest("x", nil, Options{BaseURL: "https://r/"})

	require.NotNil(t, d.Manifest())
	assert.Equal(t, "https://r/x.jsonl.zst", d.DataURL())
	assert.Equal(t, "https://r/x.manifest", d.ManifestURL())
	assert.Equal(t, "https://r/x.sample", d.SampleURL())
}
