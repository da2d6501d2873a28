package output

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/speakleash/pkg/speakleash/dataset"
	"github.com/jamesainslie/speakleash/pkg/speakleash/manifest"
)

func sampleResult() *Result {
	return &Result{
		Source: "https://speakleash.space/datasets_text/speakleash.json",
		Lang:   "pl",
		Datasets: []DatasetInfo{
			{
				Name:        "plwiki",
				URL:         "https://speakleash.space/datasets_text/plwiki.jsonl.zst",
				Description: "Polish Wikipedia",
				Characters:  1_500_000,
				Documents:   1200,
				Size:        2 * 1024 * 1024,
				SizeHuman:   "2.0 MiB",
				Categories:  []string{"Encyklopedia"},
				Downloaded:  true,
			},
			{
				Name:       "forum|pipes",
				Characters: 500,
				Documents:  3,
				Size:       1024,
				SizeHuman:  "1.0 KiB",
			},
		},
	}
}

func TestResult_Totals(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, int64(2*1024*1024+1024), r.TotalSize())
	assert.Equal(t, int64(1_500_500), r.TotalCharacters())
	assert.Equal(t, int64(1203), r.TotalDocuments())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("plain", func() Formatter { return &PlainFormatter{} })

	f, err := reg.Get("plain")
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, f)

	_, err = reg.Get("missing")
	assert.ErrorContains(t, err, "unknown formatter")

	assert.Equal(t, []string{"plain"}, reg.Available())
}

func TestDefaultRegistry(t *testing.T) {
	for _, name := range []string{"csv", "json", "jsonl", "markdown", "plain", "pretty", "template", "yaml"} {
		assert.Contains(t, Available(), name)
		_, err := Get(name)
		assert.NoError(t, err, name)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, sampleResult()))

	var got jsonOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Datasets, 2)
	assert.Equal(t, "plwiki", got.Datasets[0].Name)
	assert.True(t, got.Datasets[0].Downloaded)
	assert.Equal(t, 2, got.Meta.TotalDatasets)
	assert.Equal(t, int64(1203), got.Meta.TotalDocuments)
	assert.Equal(t, "pl", got.Meta.Lang)
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, &Result{}))
	assert.Contains(t, buf.String(), `"datasets": []`)
}

func TestJSONLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLFormatter{}).Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first DatasetInfo
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "plwiki", first.Name)
	assert.Equal(t, []string{"Encyklopedia"}, first.Categories)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleResult()))

	var got yamlOutput
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Datasets, 2)
	assert.Equal(t, "forum|pipes", got.Datasets[1].Name)
	assert.Equal(t, int64(1_500_500), got.Meta.TotalCharacters)
}

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "plwiki")
	assert.Contains(t, lines[1], "2.0 MiB")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVFormatter{}).Format(&buf, sampleResult()))

	assert.Equal(t,
		"NAME,DOCUMENTS,CHARACTERS,SIZE,CATEGORIES\n"+
			"plwiki,1200,1500000,2.0 MiB,Encyklopedia\n"+
			"forum|pipes,3,500,1.0 KiB,\n",
		buf.String())
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Format(&buf, sampleResult()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| NAME | DOCUMENTS | CHARACTERS | SIZE | CATEGORIES |", lines[0])
	assert.Equal(t, "|------|------|------|------|------|", lines[1])
	assert.Contains(t, lines[3], `forum\|pipes`)
}

func TestTemplateFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTemplateFormatter("{{range .Datasets}}{{.Name}}={{bytes .Size}};{{end}}{{count .TotalCharacters}}")
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "plwiki=2.0 MiB;forum|pipes=1.0 KiB;1,500,500", buf.String())

	f.SetTemplate("{{.Lang}}")
	buf.Reset()
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "pl", buf.String())

	f.SetTemplate("{{")
	assert.Error(t, f.Format(&buf, sampleResult()))
}

func TestTemplateFormatter_Default(t *testing.T) {
	f, err := Get("template")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "plwiki\t1,500,000\nforum|pipes\t500\n", buf.String())
}

func TestPrettyFormatter(t *testing.T) {
	r := sampleResult()
	r.Warnings = []string{"labels unavailable"}

	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "Registry:")
	assert.Contains(t, out, "plwiki")
	assert.Contains(t, out, "Polish Wikipedia")
	assert.Contains(t, out, "1,500,000")
	assert.Contains(t, out, "Datasets:")
	assert.Contains(t, out, "labels unavailable")
}

func TestPrettyFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, &Result{}))
	assert.Contains(t, buf.String(), "No datasets found")
}

func TestNewDatasetInfo(t *testing.T) {
	dir := t.TempDir()
	m := &manifest.Manifest{
		Description: "news",
		FileSize:    4,
		Category95:  manifest.Scores{"Sport": 0, "Wiadomości": 1, "Kultura": 1},
		Stats:       manifest.Stats{Characters: 10, Documents: 2},
	}
	d := dataset.NewWithManifest("news", m, dataset.Options{BaseURL: "https://r/", ReplicateDir: dir})

	info := NewDatasetInfo(d)
	assert.Equal(t, "news", info.Name)
	assert.Equal(t, "https://r/news.jsonl.zst", info.URL)
	assert.Equal(t, "4 B", info.SizeHuman)
	assert.Equal(t, []string{"Kultura", "Wiadomości"}, info.Categories)
	assert.False(t, info.Downloaded)

	require.NoError(t, os.WriteFile(d.LocalPath(), []byte("abcd"), 0o644))
	assert.True(t, NewDatasetInfo(d).Downloaded)

	r := NewResult("src", "pl", []*dataset.Dataset{d})
	assert.Len(t, r.Datasets, 1)
	assert.Equal(t, int64(10), r.TotalCharacters())
}
