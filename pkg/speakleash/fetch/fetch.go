// Package fetch retrieves JSON documents, text resources and binary files
// from the dataset registry over HTTP.
//
// Failures are returned as errors wrapping one of the kind sentinels
// (ErrTransport, ErrStatus, ErrDecode, ErrTruncated, ErrWrite) and are also
// logged through the "fetch" component logger.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/jamesainslie/speakleash/pkg/speakleash/logging"
)

var logger = logging.Get("fetch")

var (
	// ErrTransport is returned when the request could not be completed.
	ErrTransport = errors.New("transport failure")

	// ErrStatus is returned for non-2xx responses. The concrete error is a *StatusError.
	ErrStatus = errors.New("unexpected http status")

	// ErrDecode is returned when a response body cannot be decoded.
	ErrDecode = errors.New("malformed response")

	// ErrTruncated is returned when a download ends before the declared length.
	ErrTruncated = errors.New("truncated transfer")

	// ErrWrite is returned when a download cannot be written to disk.
	ErrWrite = errors.New("local write failure")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Is makes errors.Is(err, ErrStatus) match any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// ChunkSize is the buffer size used when streaming downloads to disk.
const ChunkSize = 32 * 1024

// DefaultTimeout bounds JSON and text requests. Downloads are bounded only
// by the caller's context.
const DefaultTimeout = 60 * time.Second

// DefaultUserAgent identifies the client to the registry.
const DefaultUserAgent = "speakleash-go"

// ProgressFunc receives the bytes written so far and the declared total
// (-1 when the server sent no Content-Length).
type ProgressFunc func(written, total int64)

// Fetcher is the transport used by the structure cache, the category
// resolver and dataset handles.
type Fetcher interface {
	// GetJSON returns the raw JSON body at url after validating it parses.
	GetJSON(ctx context.Context, url string) (json.RawMessage, error)

	// GetText returns the body at url decoded from the named charset.
	GetText(ctx context.Context, url, encoding string) (string, error)

	// Download streams the body at url into path and returns the byte count.
	Download(ctx context.Context, url, path string, progress ProgressFunc) (int64, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	// Timeout bounds GetJSON and GetText. Zero uses DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent with every request. Empty uses DefaultUserAgent.
	UserAgent string

	// Client overrides the underlying HTTP client.
	Client *http.Client
}

// HTTPFetcher implements Fetcher on net/http.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// New returns an HTTPFetcher configured by opts.
func New(opts Options) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    opts.Client,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	return f
}

// Ensure HTTPFetcher implements Fetcher.
var _ Fetcher = (*HTTPFetcher)(nil)

// GetJSON fetches url and returns its body if it is valid JSON.
func (f *HTTPFetcher) GetJSON(ctx context.Context, url string) (json.RawMessage, error) {
	body, err := f.getBody(ctx, url)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		err := fmt.Errorf("%w: GET %s: body is not valid JSON", ErrDecode, url)
		logger.Warn("invalid json response", "url", url)
		return nil, err
	}
	return json.RawMessage(body), nil
}

// GetText fetches url and decodes the body from encoding (utf-8 when empty).
func (f *HTTPFetcher) GetText(ctx context.Context, url, encoding string) (string, error) {
	body, err := f.getBody(ctx, url)
	if err != nil {
		return "", err
	}
	return decodeText(body, encoding, url)
}

func decodeText(body []byte, encoding, url string) (string, error) {
	if encoding == "" || strings.EqualFold(encoding, "utf-8") || strings.EqualFold(encoding, "utf8") {
		return string(body), nil
	}

	enc, err := htmlindex.Get(encoding)
	if err != nil {
		logger.Warn("unknown text encoding", "url", url, "encoding", encoding)
		return "", fmt.Errorf("%w: GET %s: unknown encoding %q: %w", ErrDecode, url, encoding, err)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		logger.Warn("text decode failed", "url", url, "encoding", encoding, "error", err)
		return "", fmt.Errorf("%w: GET %s: decode %s: %w", ErrDecode, url, encoding, err)
	}
	return string(decoded), nil
}

func (f *HTTPFetcher) getBody(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("reading response failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: GET %s: read body: %w", ErrTransport, url, err)
	}
	return body, nil
}

// do issues the GET and rejects non-2xx responses. The caller owns the body
// of a successful response.
func (f *HTTPFetcher) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", ErrTransport, url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Warn("request failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		logger.Warn("unexpected status", "url", url, "status", resp.StatusCode)
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}

// Download streams url into path in ChunkSize pieces. The body lands in a
// temporary sibling file that only replaces path once the byte count
// matches the declared Content-Length, so a truncated transfer never
// leaves a file that looks complete. A non-2xx response writes nothing.
func (f *HTTPFetcher) Download(ctx context.Context, url, path string, progress ProgressFunc) (int64, error) {
	resp, err := f.do(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".part")

	out, err := os.Create(tmpPath)
	if err != nil {
		logger.Error("cannot create download file", "path", tmpPath, "error", err)
		return 0, fmt.Errorf("%w: create %s: %w", ErrWrite, tmpPath, err)
	}

	written, copyErr := copyChunks(out, resp.Body, total, progress)
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(tmpPath)
		logger.Error("download interrupted", "url", url, "written", written, "error", copyErr)
		return written, copyErr
	case closeErr != nil:
		_ = os.Remove(tmpPath)
		return written, fmt.Errorf("%w: close %s: %w", ErrWrite, tmpPath, closeErr)
	case total >= 0 && written != total:
		_ = os.Remove(tmpPath)
		logger.Error("download size mismatch", "url", url, "written", written, "declared", total)
		return written, fmt.Errorf("%w: GET %s: wrote %d of %d bytes", ErrTruncated, url, written, total)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return written, fmt.Errorf("%w: rename to %s: %w", ErrWrite, path, err)
	}

	logger.Debug("download complete", "url", url, "path", path, "bytes", written)
	return written, nil
}

func copyChunks(dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, fmt.Errorf("%w: %w", ErrWrite, werr)
			}
			if progress != nil {
				progress(written, total)
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			if errors.Is(rerr, io.ErrUnexpectedEOF) {
				return written, fmt.Errorf("%w: %w", ErrTruncated, rerr)
			}
			return written, fmt.Errorf("%w: read body: %w", ErrTransport, rerr)
		}
	}
}
