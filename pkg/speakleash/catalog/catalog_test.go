package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/speakleash/pkg/speakleash/category"
	"github.com/jamesainslie/speakleash/pkg/speakleash/dataset"
)

type registryServer struct {
	srv      *httptest.Server
	listings atomic.Int32
}

func newRegistryServer(t *testing.T, listing string, manifests map[string]string) *registryServer {
	t.Helper()
	rs := &registryServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets_text/speakleash.json", func(w http.ResponseWriter, _ *http.Request) {
		rs.listings.Add(1)
		_, _ = w.Write([]byte(listing))
	})
	mux.HandleFunc("/datasets_text_hr/speakleash_hr.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"hrwac"}]`))
	})
	for name, body := range manifests {
		mux.HandleFunc("/datasets_text/"+name+".manifest", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}
	rs.srv = httptest.NewServer(mux)
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *registryServer) host() string {
	return rs.srv.URL + "/"
}

func TestRegistryFor(t *testing.T) {
	t.Parallel()

	pl := RegistryFor("", LangPL)
	assert.Equal(t, "https://speakleash.space/datasets_text/", pl.BaseURL)
	assert.Equal(t, "https://speakleash.space/datasets_text/speakleash.json", pl.ListURL())

	hr := RegistryFor("", LangHR)
	assert.Equal(t, "https://speakleash.space/datasets_text_hr/speakleash_hr.json", hr.ListURL())

	assert.Equal(t, pl, RegistryFor("", "de"))
}

func TestNew_SkipsEntriesWithoutName(t *testing.T) {
	t.Parallel()
	rs := newRegistryServer(t, `[{"name":"a"},{"no_name":"b"}]`, nil)

	c := New(context.Background(), Options{ReplicateDir: t.TempDir(), Host: rs.host()})

	require.Equal(t, 1, c.Len())
	d, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", d.Name())
	assert.Equal(t, rs.host()+"datasets_text/", d.URL())

	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestNew_RegistryFailureYieldsEmptyCatalog(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := New(context.Background(), Options{ReplicateDir: t.TempDir(), Host: srv.URL + "/"})
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Datasets())
	assert.Empty(t, c.Names())
}

func TestNew_ListingNotAnArray(t *testing.T) {
	t.Parallel()
	rs := newRegistryServer(t, `{"name":"a"}`, nil)

	c := New(context.Background(), Options{ReplicateDir: t.TempDir(), Host: rs.host()})
	assert.Zero(t, c.Len())
}

func TestNew_ListingCachedPerHour(t *testing.T) {
	t.Parallel()
	rs := newRegistryServer(t, `[{"name":"a"}]`, nil)
	dir := t.TempDir()

	New(context.Background(), Options{ReplicateDir: dir, Host: rs.host()})
	New(context.Background(), Options{ReplicateDir: dir, Host: rs.host()})
	assert.Equal(t, int32(1), rs.listings.Load())
}

func TestNew_Croatian(t *testing.T) {
	t.Parallel()
	rs := newRegistryServer(t, `[]`, nil)

	c := New(context.Background(), Options{ReplicateDir: t.TempDir(), Host: rs.host(), Lang: LangHR})
	assert.Equal(t, []string{"hrwac"}, c.Names())
	assert.Equal(t, LangHR, c.Lang())
}

func TestGet_FirstMatchWins(t *testing.T) {
	t.Parallel()
	rs := newRegistryServer(t, `[{"name":"dup"},{"name":"other"},{"name":"dup"}]`, nil)

	c := New(context.Background(), Options{ReplicateDir: t.TempDir(), Host: rs.host()})
	d, ok := c.Get("dup")
	require.True(t, ok)
	assert.Same(t, c.Datasets()[0], d)
}

func TestQueries(t *testing.T) {
	t.Parallel()
	rs := newRegistryServer(t,
		`[{"name":"wiki_pl"},{"name":"news_portal"},{"name":"wiki_forum"}]`,
		map[string]string{
			"wiki_pl":     `{"stats":{"characters":100,"documents":3},"category":{"Encyklopedia":0.99}}`,
			"news_portal": `{"stats":{"characters":50,"documents":2},"category":{"Wiadomości":0.97}}`,
			"wiki_forum":  `{"stats":{"characters":5,"documents":1},"category":{"Encyklopedia":0.40}}`,
		})
	c := New(context.Background(), Options{ReplicateDir: t.TempDir(), Host: rs.host()})

	t.Run("names sorted", func(t *testing.T) {
		assert.Equal(t, []string{"news_portal", "wiki_forum", "wiki_pl"}, c.Names())
	})

	t.Run("match", func(t *testing.T) {
		got, err := c.Match("wiki_*")
		require.NoError(t, err)
		assert.Equal(t, []string{"wiki_pl", "wiki_forum"}, names(got))

		_, err = c.Match("[")
		assert.Error(t, err)
	})

	t.Run("filter", func(t *testing.T) {
		got := c.Filter(func(d *dataset.Dataset) bool { return d.Documents() >= 2 })
		assert.Equal(t, []string{"wiki_pl", "news_portal"}, names(got))
	})

	t.Run("by category", func(t *testing.T) {
		r := category.NewResolverFromLabels(
			[]string{"Encyklopedia", "Wiadomości"},
			[]string{"Encyclopedia", "News"},
		)
		got := c.ByCategory(r, []string{"Encyclopedia"}, 0.95, category.LangEN)
		assert.Equal(t, []string{"wiki_pl"}, names(got))

		got = c.ByCategory(r, []string{"Encyklopedia", "Wiadomości"}, 0.3, category.LangPL)
		assert.Len(t, got, 3)
	})

	t.Run("totals", func(t *testing.T) {
		assert.Equal(t, int64(155), c.TotalCharacters())
		assert.Equal(t, int64(6), c.TotalDocuments())
	})

	t.Run("json", func(t *testing.T) {
		raw, err := json.Marshal(c)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"name":"wiki_pl"},{"name":"news_portal"},{"name":"wiki_forum"}]`, string(raw))
	})
}

func TestFromDatasets(t *testing.T) {
	t.Parallel()
	d := dataset.NewWithManifest("x", nil, dataset.Options{})
	c := FromDatasets(RegistryFor("", LangPL), LangPL, d)

	got, ok := c.Get("x")
	require.True(t, ok)
	assert.Same(t, d, got)
}

func names(ds []*dataset.Dataset) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name())
	}
	return out
}
