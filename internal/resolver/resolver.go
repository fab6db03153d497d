// Package resolver turns reference locations into loaded references.
//
// A location is either a URL (http, https or s3 with a host) or a local path.
// URLs are downloaded to a temporary file that is removed once the engine
// has loaded it. A location that loads as a list contributes its references
// in place, so the output order follows the input order.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/t3m8ch/checkrunner/internal/model"
)

const tempPattern = "reference-*.ref"

type ReferenceLoadError struct {
	Location string
	Err      error
}

func (e *ReferenceLoadError) Error() string {
	return fmt.Sprintf("failed to load reference %q: %v", e.Location, e.Err)
}

func (e *ReferenceLoadError) Unwrap() error {
	return e.Err
}

type Loader interface {
	Load(path string) (model.Loaded, error)
	PrependSearchPath(dir string)
}

type Resolver struct {
	loader          Loader
	workDir         string
	tempDir         string
	downloadTimeout time.Duration
	fetchers        map[string]Fetcher

	initOnce sync.Once
}

type Option func(*Resolver)

func WithFetcher(scheme string, f Fetcher) Option {
	return func(r *Resolver) {
		r.fetchers[strings.ToLower(scheme)] = f
	}
}

func WithTempDir(dir string) Option {
	return func(r *Resolver) {
		r.tempDir = dir
	}
}

// WithDownloadTimeout bounds each download. It is unrelated to the grading
// timeout.
func WithDownloadTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.downloadTimeout = d
	}
}

func New(loader Loader, workDir string, opts ...Option) *Resolver {
	httpFetcher := NewHTTPFetcher(nil, DefaultMaxBytes)
	r := &Resolver{
		loader:  loader,
		workDir: workDir,
		fetchers: map[string]Fetcher{
			"http":  httpFetcher,
			"https": httpFetcher,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var urlSchemes = map[string]bool{"http": true, "https": true, "s3": true}

// IsURL reports whether location is structurally a URL with a recognized
// scheme and a host. It never touches the network or the filesystem.
func IsURL(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return urlSchemes[strings.ToLower(u.Scheme)] && u.Host != ""
}

// InitSearchPath puts the working directory in front of the loader's search
// path. Only the first call has an effect; the change is never reverted.
func (r *Resolver) InitSearchPath() {
	r.initOnce.Do(func() {
		r.loader.PrependSearchPath(r.workDir)
		log.Debug().Str("dir", r.workDir).Msg("Search path initialized")
	})
}

func (r *Resolver) Resolve(ctx context.Context, locations []string) ([]model.Reference, error) {
	r.InitSearchPath()

	var refs []model.Reference
	for _, location := range locations {
		loaded, err := r.resolveOne(ctx, location)
		if err != nil {
			return nil, &ReferenceLoadError{Location: location, Err: err}
		}
		refs = append(refs, loaded.Flatten()...)
	}
	return refs, nil
}

func (r *Resolver) resolveOne(ctx context.Context, location string) (model.Loaded, error) {
	if IsURL(location) {
		return r.download(ctx, location)
	}

	p := location
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.workDir, p)
	}
	if _, err := os.Stat(p); err != nil {
		return model.Loaded{}, err
	}
	log.Debug().Str("path", p).Msg("Loading reference from file")
	return r.loader.Load(p)
}

func (r *Resolver) download(ctx context.Context, location string) (model.Loaded, error) {
	u, err := url.Parse(location)
	if err != nil {
		return model.Loaded{}, err
	}
	fetcher, ok := r.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return model.Loaded{}, fmt.Errorf("no fetcher configured for scheme %q", u.Scheme)
	}

	if r.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.downloadTimeout)
		defer cancel()
	}

	tmp, err := os.CreateTemp(r.tempDir, tempPattern)
	if err != nil {
		return model.Loaded{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	log.Info().Str("url", u.Redacted()).Msg("Downloading reference")
	fetchErr := fetcher.Fetch(ctx, u, tmp)
	closeErr := tmp.Close()
	if fetchErr != nil {
		return model.Loaded{}, fetchErr
	}
	if closeErr != nil {
		return model.Loaded{}, closeErr
	}

	return r.loader.Load(tmp.Name())
}
