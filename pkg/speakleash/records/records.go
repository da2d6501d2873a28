// Package records decodes dataset archives into a forward-only stream of
// documents.
//
// Archives are zstd-compressed JSON Lines in the lm_dataformat layout: one
// object per line with a "text" field and an optional "meta" object.
package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/jamesainslie/speakleash/pkg/speakleash/logging"
)

var logger = logging.Get("records")

// ErrClosed is returned by a stream used after Close.
var ErrClosed = errors.New("record stream closed")

// Record is one document from a dataset archive.
type Record struct {
	// Text is the document body.
	Text string `json:"text"`

	// Meta holds per-document metadata. It is nil unless the stream was
	// opened with metadata.
	Meta map[string]any `json:"meta,omitempty"`
}

// Stream iterates over records. It cannot be rewound; open the archive
// again to restart.
//
//	for s.Next() {
//	    rec := s.Record()
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Decoder opens a dataset archive as a record stream.
type Decoder interface {
	Open(path string, withMeta bool) (Stream, error)
}

// ZstdDecoder reads zstd-compressed JSON Lines archives.
type ZstdDecoder struct {
	// MaxMemory caps the zstd decoder window. Zero uses the library default.
	MaxMemory uint64
}

// Ensure ZstdDecoder implements Decoder.
var _ Decoder = (*ZstdDecoder)(nil)

// Open opens the archive at path. The returned stream owns the file.
func (d *ZstdDecoder) Open(path string, withMeta bool) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if d.MaxMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(d.MaxMemory))
	}
	zr, err := zstd.NewReader(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd reader for %s: %w", path, err)
	}

	logger.Debug("archive opened", "path", path, "meta", withMeta)
	return NewJSONLStream(zr.IOReadCloser(), withMeta, f), nil
}

// JSONLStream decodes JSON Lines from a reader.
type JSONLStream struct {
	r        *bufio.Reader
	closers  []io.Closer
	withMeta bool

	rec    Record
	err    error
	line   int
	done   bool
	closed bool
}

// NewJSONLStream returns a stream over the JSON Lines in r. Closing the
// stream closes r and then every extra closer in order.
func NewJSONLStream(r io.ReadCloser, withMeta bool, closers ...io.Closer) *JSONLStream {
	return &JSONLStream{
		r:        bufio.NewReaderSize(r, 64*1024),
		closers:  append([]io.Closer{r}, closers...),
		withMeta: withMeta,
	}
}

// Next advances to the next record. It returns false at the end of the
// archive or on the first error; blank lines are skipped.
func (s *JSONLStream) Next() bool {
	if s.done {
		return false
	}
	if s.closed {
		s.err = ErrClosed
		s.done = true
		return false
	}

	for {
		line, err := s.r.ReadBytes('\n')
		if len(line) > 0 {
			s.line++
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				return s.decode(trimmed)
			}
		}
		if errors.Is(err, io.EOF) {
			s.done = true
			return false
		}
		if err != nil {
			s.err = fmt.Errorf("read line %d: %w", s.line+1, err)
			s.done = true
			return false
		}
	}
}

func (s *JSONLStream) decode(line []byte) bool {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		s.err = fmt.Errorf("decode line %d: %w", s.line, err)
		s.done = true
		logger.Warn("malformed record", "line", s.line, "error", err)
		return false
	}
	if !s.withMeta {
		rec.Meta = nil
	}
	s.rec = rec
	return true
}

// Record returns the current record.
func (s *JSONLStream) Record() Record {
	return s.rec
}

// Err returns the first error encountered, if any.
func (s *JSONLStream) Err() error {
	return s.err
}

// Close releases the archive. It is safe to call more than once.
func (s *JSONLStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collect drains up to limit records from s (all when limit <= 0).
func Collect(s Stream, limit int) ([]Record, error) {
	var out []Record
	for (limit <= 0 || len(out) < limit) && s.Next() {
		out = append(out, s.Record())
	}
	return out, s.Err()
}
