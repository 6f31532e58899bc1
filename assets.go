package epub

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// assetResolver copies or downloads images and the cover into the staging
// tree.
type assetResolver struct {
	fetcher    Fetcher
	contentDir string // staging OEBPS directory
	baseDir    string // resolves a relative cover reference
	logger     *slog.Logger
}

// resolve places every image and the optional cover in the staging tree.
// All transfers run concurrently; the first failure cancels the rest and
// is returned as an *AssetError naming its source.
func (r *assetResolver) resolve(ctx context.Context, images []ImageAsset, cover *CoverAsset) error {
	if len(images) > 0 {
		if err := os.MkdirAll(filepath.Join(r.contentDir, "images"), 0o755); err != nil {
			return fmt.Errorf("create images directory: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range images {
		g.Go(func() error {
			if err := r.resolveImage(ctx, &images[i]); err != nil {
				return &AssetError{Source: images[i].Source, Err: err}
			}
			return nil
		})
	}
	if cover != nil {
		g.Go(func() error {
			if err := r.resolveCover(ctx, cover); err != nil {
				return &AssetError{Source: cover.Source, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// resolveImage copies one image to images/<id>.<ext>. An image whose type
// could not be derived from its name is sniffed from its content.
func (r *assetResolver) resolveImage(ctx context.Context, img *ImageAsset) error {
	src, err := r.open(ctx, img.Source, img.Dir)
	if err != nil {
		return err
	}
	defer src.Close()

	dst := filepath.Join(r.contentDir, filepath.FromSlash(img.Href()))
	if err := writeFile(dst, src); err != nil {
		return err
	}
	if img.MediaType == octetStream {
		if mt, err := mimetype.DetectFile(dst); err == nil {
			img.MediaType = baseMediaType(mt.String())
		}
	}
	r.logger.Debug("image resolved", "source", img.Source, "href", img.Href())
	return nil
}

// open resolves ref: file: URLs and absolute paths are read from disk,
// http(s) URLs are fetched, other schemes are rejected, and anything else
// is a path relative to dir.
func (r *assetResolver) open(ctx context.Context, ref, dir string) (io.ReadCloser, error) {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "file:"):
		p, err := fileURLPath(ref)
		if err != nil {
			return nil, err
		}
		return os.Open(p)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return r.fetcher.Fetch(ctx, ref)
	case hasURIScheme(ref):
		return nil, ErrUnsupportedSource
	}

	p := ref
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return os.Open(p)
}

// fileURLPath converts a file: URL to a local path. A host part, as in
// "file://images/a.png", is joined in front of the path.
func fileURLPath(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse file URL: %w", err)
	}
	p := u.Path
	if u.Opaque != "" {
		p = u.Opaque
	}
	if u.Host != "" && u.Host != "localhost" {
		p = u.Host + "/" + strings.TrimPrefix(p, "/")
	}
	return filepath.Abs(filepath.FromSlash(p))
}

// writeFile copies src into a new file at dst.
func writeFile(dst string, src io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dst), err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}
	return f.Close()
}

// baseMediaType drops parameters such as "; charset=utf-8".
func baseMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		return strings.TrimSpace(mt[:i])
	}
	return mt
}
