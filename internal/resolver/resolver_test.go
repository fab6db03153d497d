package resolver_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/t3m8ch/checkrunner/internal/filesctl"
	"github.com/t3m8ch/checkrunner/internal/grading/gradingtest"
	"github.com/t3m8ch/checkrunner/internal/model"
	"github.com/t3m8ch/checkrunner/internal/resolver"
)

func writeRef(t *testing.T, dir, name string, refNames ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(refNames, "\n")), 0644))
	return p
}

func serveRefs(t *testing.T, hits *atomic.Int32, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "temporary downloads should be removed")
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://example.com/refs/q1.ref": true,
		"http://localhost:8080/r.ref":     true,
		"HTTPS://example.com/x":           true,
		"s3://references/hw1/q1.ref":      true,
		"refs/q1.ref":                     false,
		"/abs/path/q1.ref":                false,
		"./q1.ref":                        false,
		"http:///no-host":                 false,
		"file:///etc/passwd":              false,
		"ftp://example.com/r.ref":         false,
		`C:\refs\q1.ref`:                  false,
		"":                                false,
	}
	for in, want := range cases {
		require.Equal(t, want, resolver.IsURL(in), "input %q", in)
	}
}

func TestResolve_FlattensListsInPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeRef(t, dir, "a.ref", "a")
	list := writeRef(t, dir, "list.ref", "b1", "b2", "b3")
	c := writeRef(t, dir, "c.ref", "c")

	engine := gradingtest.New()
	r := resolver.New(engine, dir)

	refs, err := r.Resolve(context.Background(), []string{a, list, c})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b1", "b2", "b3", "c"}, model.ReferenceNames(refs))
}

func TestResolve_RelativePathsUseWorkDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRef(t, dir, "q1.ref", "q1")

	engine := gradingtest.New()
	refs, err := resolver.New(engine, dir).Resolve(context.Background(), []string{"q1.ref"})
	require.NoError(t, err)
	require.Equal(t, []string{"q1"}, model.ReferenceNames(refs))
	require.Equal(t, []string{filepath.Join(dir, "q1.ref")}, engine.Loaded())
}

func TestResolve_DownloadsURLsAndRemovesTempFile(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serveRefs(t, &hits, map[string]string{
		"/one.ref":  "remote",
		"/many.ref": "r1\nr2",
	})

	dir := t.TempDir()
	local := writeRef(t, dir, "local.ref", "local")
	tmp := t.TempDir()

	engine := gradingtest.New()
	r := resolver.New(engine, dir, resolver.WithTempDir(tmp))

	refs, err := r.Resolve(context.Background(), []string{srv.URL + "/one.ref", local, srv.URL + "/many.ref"})
	require.NoError(t, err)
	require.Equal(t, []string{"remote", "local", "r1", "r2"}, model.ReferenceNames(refs))
	require.EqualValues(t, 2, hits.Load())

	loaded := engine.Loaded()
	require.True(t, strings.HasPrefix(loaded[0], tmp))
	require.True(t, strings.HasSuffix(loaded[0], ".ref"))
	requireEmptyDir(t, tmp)
}

func TestResolve_TempFileRemovedWhenLoadFails(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serveRefs(t, &hits, map[string]string{"/bad.ref": "corrupt"})
	tmp := t.TempDir()

	engine := gradingtest.New()
	engine.LoadErr = errors.New("incompatible artifact")
	r := resolver.New(engine, t.TempDir(), resolver.WithTempDir(tmp))

	_, err := r.Resolve(context.Background(), []string{srv.URL + "/bad.ref"})

	var loadErr *resolver.ReferenceLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, srv.URL+"/bad.ref", loadErr.Location)
	require.ErrorContains(t, err, "incompatible artifact")
	require.Len(t, engine.Loaded(), 1)
	requireEmptyDir(t, tmp)
}

func TestResolve_FailsFast(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serveRefs(t, &hits, map[string]string{"/ok.ref": "ok"})
	dir := t.TempDir()
	tmp := t.TempDir()

	engine := gradingtest.New()
	r := resolver.New(engine, dir, resolver.WithTempDir(tmp))

	missing := filepath.Join(dir, "missing.ref")
	refs, err := r.Resolve(context.Background(), []string{missing, srv.URL + "/ok.ref"})
	require.Nil(t, refs)

	var loadErr *resolver.ReferenceLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, missing, loadErr.Location)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Zero(t, hits.Load())
	require.Empty(t, engine.Loaded())
}

func TestResolve_HTTPErrorStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serveRefs(t, &hits, nil)
	tmp := t.TempDir()

	engine := gradingtest.New()
	_, err := resolver.New(engine, t.TempDir(), resolver.WithTempDir(tmp)).
		Resolve(context.Background(), []string{srv.URL + "/gone.ref"})

	var loadErr *resolver.ReferenceLoadError
	require.ErrorAs(t, err, &loadErr)
	require.ErrorContains(t, err, "404")
	require.Empty(t, engine.Loaded())
	requireEmptyDir(t, tmp)
}

func TestResolve_EnforcesSizeLimit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := serveRefs(t, &hits, map[string]string{"/big.ref": strings.Repeat("x", 1024)})
	tmp := t.TempDir()

	engine := gradingtest.New()
	r := resolver.New(engine, t.TempDir(),
		resolver.WithTempDir(tmp),
		resolver.WithFetcher("http", resolver.NewHTTPFetcher(srv.Client(), 100)),
	)

	_, err := r.Resolve(context.Background(), []string{srv.URL + "/big.ref"})
	require.ErrorIs(t, err, resolver.ErrTooLarge)
	requireEmptyDir(t, tmp)
}

func TestResolve_ObjectStorage(t *testing.T) {
	t.Parallel()

	files := filesctl.NewMemoryManager()
	require.NoError(t, files.PutFile(context.Background(), "references", "hw1/q.ref", bytes.NewReader([]byte("q1\nq2")), 5))
	tmp := t.TempDir()

	engine := gradingtest.New()
	r := resolver.New(engine, t.TempDir(),
		resolver.WithTempDir(tmp),
		resolver.WithFetcher("s3", resolver.NewObjectFetcher(files, 0)),
	)

	refs, err := r.Resolve(context.Background(), []string{"s3://references/hw1/q.ref"})
	require.NoError(t, err)
	require.Equal(t, []string{"q1", "q2"}, model.ReferenceNames(refs))
	requireEmptyDir(t, tmp)
}

func TestResolve_ObjectStorageNotConfigured(t *testing.T) {
	t.Parallel()

	engine := gradingtest.New()
	_, err := resolver.New(engine, t.TempDir()).Resolve(context.Background(), []string{"s3://references/q.ref"})
	require.ErrorContains(t, err, `no fetcher configured for scheme "s3"`)
}

func TestResolve_InitializesSearchPathOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeRef(t, dir, "a.ref", "a")

	engine := gradingtest.New()
	r := resolver.New(engine, dir)
	r.InitSearchPath()

	_, err := r.Resolve(context.Background(), []string{a})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), []string{a})
	require.NoError(t, err)

	path, calls := engine.SearchPath()
	require.Equal(t, 1, calls)
	require.Equal(t, []string{dir}, path)
}
