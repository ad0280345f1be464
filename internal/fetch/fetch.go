// Package fetch downloads the raw WDI archive and GISTEMP table. Each request
// is a single attempt bounded by a timeout and a body size cap.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cropdata/internal/table"
)

// Defaults used by NewDownloader.
const (
	DefaultTimeout  = 10 * time.Minute
	DefaultMaxBytes = 1 << 30
	userAgent       = "cropdata/1.0 (+https://github.com/cropdata)"
)

var (
	// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrBodyTooLarge indicates a response body above the configured cap.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Result describes one completed download.
type Result struct {
	Bytes      int64
	StatusCode int
	Duration   time.Duration
}

// Downloader fetches URLs over HTTP.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader creates a downloader. Zero values select the defaults.
func NewDownloader(timeout time.Duration, maxBytes int64) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// NewDownloaderWithClient creates a downloader around an existing client.
func NewDownloaderWithClient(client *http.Client, maxBytes int64) *Downloader {
	d := NewDownloader(0, maxBytes)
	d.client = client

	return d
}

// Fetch returns the whole response body.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer

	if _, err := d.copy(ctx, url, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Download writes the response body to path. The file only appears once the
// body has been read completely.
func (d *Downloader) Download(ctx context.Context, url, path string) (Result, error) {
	var res Result

	err := table.WriteFileAtomic(path, func(w io.Writer) error {
		var err error

		res, err = d.copy(ctx, url, w)

		return err
	})
	if err != nil {
		return res, fmt.Errorf("download %s: %w", url, err)
	}

	return res, nil
}

func (d *Downloader) copy(ctx context.Context, url string, w io.Writer) (Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{Duration: time.Since(start)}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	res := Result{StatusCode: resp.StatusCode}

	if resp.StatusCode != http.StatusOK {
		res.Duration = time.Since(start)

		return res, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	if resp.ContentLength > d.maxBytes {
		res.Duration = time.Since(start)

		return res, fmt.Errorf("%w: content length %d exceeds %d", ErrBodyTooLarge, resp.ContentLength, d.maxBytes)
	}

	// One byte past the cap tells a body of exactly maxBytes from a longer one.
	n, err := io.Copy(w, io.LimitReader(resp.Body, d.maxBytes+1))
	res.Bytes = n
	res.Duration = time.Since(start)

	if err != nil {
		return res, fmt.Errorf("failed to read response body: %w", err)
	}

	if n > d.maxBytes {
		return res, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, d.maxBytes)
	}

	return res, nil
}
