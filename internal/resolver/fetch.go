package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/t3m8ch/checkrunner/internal/filesctl"
)

// DefaultMaxBytes caps a single reference download.
const DefaultMaxBytes int64 = 256 << 20

var ErrTooLarge = errors.New("reference exceeds size limit")

type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL, w io.Writer) error
}

type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	_, err = io.Copy(&limitWriter{w: w, remaining: f.maxBytes}, resp.Body)
	return err
}

// ObjectFetcher downloads s3://bucket/key locations from object storage.
type ObjectFetcher struct {
	files    filesctl.Manager
	maxBytes int64
}

func NewObjectFetcher(files filesctl.Manager, maxBytes int64) *ObjectFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ObjectFetcher{files: files, maxBytes: maxBytes}
}

func (f *ObjectFetcher) Fetch(ctx context.Context, u *url.URL, w io.Writer) error {
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return fmt.Errorf("no object key in %s", u.Redacted())
	}
	_, err := f.files.DownloadFile(ctx, u.Host, key, &limitWriter{w: w, remaining: f.maxBytes})
	return err
}

type limitWriter struct {
	w         io.Writer
	remaining int64
}

func (l *limitWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.remaining {
		return 0, ErrTooLarge
	}
	n, err := l.w.Write(p)
	l.remaining -= int64(n)
	return n, err
}
