package category

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
	"github.com/jamesainslie/speakleash/pkg/speakleash/manifest"
)

type labelFetcher struct {
	texts map[string]string
	calls int
}

func (f *labelFetcher) GetJSON(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("not used")
}

func (f *labelFetcher) GetText(_ context.Context, url, _ string) (string, error) {
	f.calls++
	text, ok := f.texts[url]
	if !ok {
		return "", &fetch.StatusError{URL: url, Code: 404, Status: "404 Not Found"}
	}
	return text, nil
}

func (f *labelFetcher) Download(context.Context, string, string, fetch.ProgressFunc) (int64, error) {
	return 0, errors.New("not used")
}

const testBase = "https://labels.test/"

func newLabelFetcher() *labelFetcher {
	return &labelFetcher{texts: map[string]string{
		testBase + "categories_pl.txt": "Wiadomości\n Sport \nKultura\n\n",
		testBase + "categories_en.txt": "News\r\nSport\r\nCulture\r\n",
	}}
}

func TestNewResolver_FetchesAndTrims(t *testing.T) {
	t.Parallel()
	f := newLabelFetcher()

	r, err := NewResolver(context.Background(), Options{Fetcher: f, LabelsURL: testBase})
	require.NoError(t, err)

	assert.Equal(t, []string{"Wiadomości", "Sport", "Kultura"}, r.Categories(LangPL))
	assert.Equal(t, []string{"News", "Sport", "Culture"}, r.Categories(LangEN))
	assert.Equal(t, r.Categories(LangPL), r.Categories("hr"))
	assert.Equal(t, 2, f.calls)
}

func TestNewResolver_StoreReusedWithoutExpiry(t *testing.T) {
	t.Parallel()
	store := NewDirStore(filepath.Join(t.TempDir(), "labels"))

	f := newLabelFetcher()
	_, err := NewResolver(context.Background(), Options{Fetcher: f, Store: store, LabelsURL: testBase})
	require.NoError(t, err)
	require.Equal(t, 2, f.calls)

	again := newLabelFetcher()
	r, err := NewResolver(context.Background(), Options{Fetcher: again, Store: store, LabelsURL: testBase})
	require.NoError(t, err)
	assert.Equal(t, 0, again.calls)
	assert.Equal(t, []string{"News", "Sport", "Culture"}, r.Categories(LangEN))
}

func TestNewResolver_FetchFailure(t *testing.T) {
	t.Parallel()
	f := &labelFetcher{texts: map[string]string{}}

	_, err := NewResolver(context.Background(), Options{Fetcher: f, LabelsURL: testBase})
	assert.ErrorIs(t, err, fetch.ErrStatus)
}

func TestNewResolver_NoFetcherNoStore(t *testing.T) {
	t.Parallel()
	_, err := NewResolver(context.Background(), Options{})
	assert.Error(t, err)
}

func TestSplitLabels_KeepsInteriorBlanks(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "", "c"}, splitLabels("a\n\n c \n\n"))
	assert.Empty(t, splitLabels("\n\n"))
}

func TestLabelsURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"https://speakleash.space/datasets_text/categories_en.txt",
		LabelsURL(DefaultLabelsURL, LangEN))
}

func TestCheckCategory(t *testing.T) {
	t.Parallel()
	r := NewResolverFromLabels(
		[]string{"Wiadomości", "Sport", "Kultura"},
		[]string{"News", "Sport", "Culture"},
	)
	news := &manifest.Manifest{Category: manifest.Scores{"wiadomości": 0.97, "Sport": 0.10}}

	tests := []struct {
		name       string
		meta       *manifest.Manifest
		categories []string
		cf         float64
		lang       string
		want       bool
	}{
		{name: "polish above threshold", meta: news, categories: []string{"Wiadomości"}, cf: 0.95, lang: LangPL, want: true},
		{name: "polish below threshold", meta: news, categories: []string{"Wiadomości"}, cf: 0.99, lang: LangPL, want: false},
		{name: "case insensitive", meta: news, categories: []string{"WIADOMOŚCI"}, cf: 0.5, lang: LangPL, want: true},
		{name: "english translated by position", meta: news, categories: []string{"News"}, cf: 0.95, lang: LangEN, want: true},
		{name: "english unknown label skipped", meta: news, categories: []string{"Weather", "News"}, cf: 0.95, lang: LangEN, want: true},
		{name: "english label not scored", meta: news, categories: []string{"Culture"}, cf: 0.01, lang: LangEN, want: false},
		{name: "unsupported language", meta: news, categories: []string{"Sport"}, cf: 0.01, lang: "hr", want: false},
		{name: "any category suffices", meta: news, categories: []string{"Kultura", "Sport"}, cf: 0.1, lang: LangPL, want: true},
		{name: "equal to threshold", meta: news, categories: []string{"Sport"}, cf: 0.10, lang: LangPL, want: true},
		{name: "nil manifest", meta: nil, categories: []string{"Sport"}, cf: 0, lang: LangPL, want: false},
		{name: "no categories", meta: news, categories: nil, cf: 0, lang: LangPL, want: false},
		{name: "empty manifest", meta: &manifest.Manifest{}, categories: []string{"Sport"}, cf: 0, lang: LangPL, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.CheckCategory(tt.meta, tt.categories, tt.cf, tt.lang))
		})
	}
}

func TestTranslate_ShortPolishList(t *testing.T) {
	t.Parallel()
	r := NewResolverFromLabels([]string{"Wiadomości"}, []string{"News", "Sport"})

	got, ok := r.Translate("News", LangEN)
	assert.True(t, ok)
	assert.Equal(t, "Wiadomości", got)

	_, ok = r.Translate("Sport", LangEN)
	assert.False(t, ok)
}
