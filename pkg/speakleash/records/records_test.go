package records

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl.zst")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = io.WriteString(zw, strings.Join(lines, "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestZstdDecoder_Open(t *testing.T) {
	t.Parallel()
	path := writeArchive(t,
		`{"text":"Ala ma kota.","meta":{"url":"https://a.pl","length":12}}`,
		``,
		`{"text":"Kot ma Alę.","meta":{"url":"https://b.pl"}}`,
	)

	s, err := (&ZstdDecoder{}).Open(path, false)
	require.NoError(t, err)
	defer s.Close()

	recs, err := Collect(s, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Ala ma kota.", recs[0].Text)
	assert.Nil(t, recs[0].Meta)
	assert.Equal(t, "Kot ma Alę.", recs[1].Text)
}

func TestZstdDecoder_WithMeta(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, `{"text":"x","meta":{"url":"https://a.pl"}}`)

	s, err := (&ZstdDecoder{}).Open(path, true)
	require.NoError(t, err)
	defer s.Close()

	require.True(t, s.Next())
	assert.Equal(t, "https://a.pl", s.Record().Meta["url"])
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestZstdDecoder_LongLine(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("słowo ", 100_000)
	path := writeArchive(t, `{"text":"`+long+`"}`)

	s, err := (&ZstdDecoder{}).Open(path, false)
	require.NoError(t, err)
	defer s.Close()

	require.True(t, s.Next())
	assert.Equal(t, long, s.Record().Text)
}

func TestZstdDecoder_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := (&ZstdDecoder{}).Open(filepath.Join(t.TempDir(), "absent.jsonl.zst"), false)
	assert.Error(t, err)
}

func TestZstdDecoder_NotZstd(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plain.jsonl.zst")
	require.NoError(t, os.WriteFile(path, []byte(`{"text":"uncompressed"}`+"\n"), 0o644))

	s, err := (&ZstdDecoder{}).Open(path, false)
	if err != nil {
		return
	}
	defer s.Close()
	assert.False(t, s.Next())
	assert.Error(t, s.Err())
}

func TestJSONLStream_MalformedLineStops(t *testing.T) {
	t.Parallel()
	s := NewJSONLStream(io.NopCloser(strings.NewReader("{\"text\":\"ok\"}\n{broken\n{\"text\":\"never\"}\n")), false)

	recs, err := Collect(s, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Len(t, recs, 1)
	assert.False(t, s.Next())
}

func TestJSONLStream_NotRestartable(t *testing.T) {
	t.Parallel()
	s := NewJSONLStream(io.NopCloser(strings.NewReader("{\"text\":\"a\"}\n{\"text\":\"b\"}\n")), false)

	first, err := Collect(s, 1)
	require.NoError(t, err)
	rest, err := Collect(s, 0)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, rest, 1)
	assert.Equal(t, "b", rest[0].Text)
	assert.False(t, s.Next())
}

type closeRecorder struct{ closed int }

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestJSONLStream_Close(t *testing.T) {
	t.Parallel()
	extra := &closeRecorder{}
	s := NewJSONLStream(io.NopCloser(strings.NewReader("{\"text\":\"a\"}\n")), false, extra)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, extra.closed)

	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), ErrClosed)
}
