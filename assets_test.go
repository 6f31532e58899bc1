package epub

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// stubFetcher serves fixed bodies by URL and records requests.
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  []string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func newTestResolver(t *testing.T, f Fetcher) (*assetResolver, string) {
	t.Helper()
	contentDir := t.TempDir()
	return &assetResolver{
		fetcher:    f,
		contentDir: contentDir,
		baseDir:    t.TempDir(),
		logger:     slog.New(slog.DiscardHandler),
	}, contentDir
}

func TestResolve_LocalRemoteAndFileURL(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "pics/rel.png", tinyPNG)
	abs := writeTestFile(t, src, "abs.png", tinyPNG)
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()

	f := &stubFetcher{bodies: map[string][]byte{"https://example.com/r.png": tinyPNG}}
	r, contentDir := newTestResolver(t, f)

	images := []ImageAsset{
		{ID: "a", Source: "pics/rel.png", Dir: src, MediaType: "image/png", Extension: "png"},
		{ID: "b", Source: "https://example.com/r.png", MediaType: "image/png", Extension: "png"},
		{ID: "c", Source: fileURL, MediaType: "image/png", Extension: "png"},
		{ID: "d", Source: abs, Dir: "/elsewhere", MediaType: "image/png", Extension: "png"},
	}
	if err := r.resolve(context.Background(), images, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, img := range images {
		data, err := os.ReadFile(filepath.Join(contentDir, filepath.FromSlash(img.Href())))
		if err != nil {
			t.Errorf("image %s not staged: %v", img.ID, err)
			continue
		}
		if !bytes.Equal(data, tinyPNG) {
			t.Errorf("image %s content differs", img.ID)
		}
	}
	if len(f.calls) != 1 {
		t.Errorf("fetcher calls = %q; want one remote fetch", f.calls)
	}
}

func TestResolve_EscapedRelativePath(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "my pic.png", tinyPNG)
	r, contentDir := newTestResolver(t, &stubFetcher{})

	images := []ImageAsset{{ID: "a", Source: "my%20pic.png", Dir: src, MediaType: "image/png", Extension: "png"}}
	if err := r.resolve(context.Background(), images, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := os.Stat(filepath.Join(contentDir, "images", "a.png")); err != nil {
		t.Errorf("image not staged: %v", err)
	}
}

func TestResolve_SniffsUnknownType(t *testing.T) {
	f := &stubFetcher{bodies: map[string][]byte{"https://example.com/img": tinyPNG}}
	r, _ := newTestResolver(t, f)

	images := []ImageAsset{{ID: "a", Source: "https://example.com/img", MediaType: octetStream}}
	if err := r.resolve(context.Background(), images, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if images[0].MediaType != "image/png" {
		t.Errorf("MediaType = %q; want image/png", images[0].MediaType)
	}
}

func TestResolve_FailureNamesSource(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "ok.png", tinyPNG)
	r, _ := newTestResolver(t, &stubFetcher{})

	images := []ImageAsset{
		{ID: "a", Source: "ok.png", Dir: src, MediaType: "image/png", Extension: "png"},
		{ID: "b", Source: "missing.png", Dir: src, MediaType: "image/png", Extension: "png"},
	}
	err := r.resolve(context.Background(), images, nil)
	var assetErr *AssetError
	if !errors.As(err, &assetErr) {
		t.Fatalf("resolve() error = %v; want *AssetError", err)
	}
	if assetErr.Source != "missing.png" {
		t.Errorf("AssetError.Source = %q", assetErr.Source)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error does not wrap fs.ErrNotExist: %v", err)
	}
	if !strings.Contains(err.Error(), "missing.png") {
		t.Errorf("message lacks source: %v", err)
	}
}

func TestResolve_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, _ := newTestResolver(t, NewHTTPFetcher(srv.Client()))
	images := []ImageAsset{{ID: "a", Source: srv.URL + "/x.png", MediaType: "image/png", Extension: "png"}}
	err := r.resolve(context.Background(), images, nil)
	var assetErr *AssetError
	if !errors.As(err, &assetErr) || assetErr.Source != srv.URL+"/x.png" {
		t.Errorf("resolve() error = %v; want *AssetError for remote source", err)
	}
}

func TestResolve_UnsupportedScheme(t *testing.T) {
	r, _ := newTestResolver(t, &stubFetcher{})
	images := []ImageAsset{{ID: "a", Source: "ftp://example.com/a.png", MediaType: "image/png", Extension: "png"}}
	err := r.resolve(context.Background(), images, nil)
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("resolve() error = %v; want ErrUnsupportedSource", err)
	}
}

func TestResolve_NothingToDo(t *testing.T) {
	r, contentDir := newTestResolver(t, &stubFetcher{})
	if err := r.resolve(context.Background(), nil, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	assertNoEntries(t, contentDir)
}

func TestFileURLPath(t *testing.T) {
	got, err := fileURLPath("file:///tmp/a%20b.png")
	if err != nil {
		t.Fatalf("fileURLPath: %v", err)
	}
	if filepath.ToSlash(got) != "/tmp/a b.png" && !strings.HasSuffix(filepath.ToSlash(got), "/tmp/a b.png") {
		t.Errorf("fileURLPath = %q", got)
	}
}

func TestBaseMediaType(t *testing.T) {
	if got := baseMediaType("text/plain; charset=utf-8"); got != "text/plain" {
		t.Errorf("baseMediaType = %q", got)
	}
	if got := baseMediaType("image/png"); got != "image/png" {
		t.Errorf("baseMediaType = %q", got)
	}
}
