package epub

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// newCoverAsset derives the media type and extension of a cover reference.
// It returns nil when no cover was requested.
func newCoverAsset(ref string) *CoverAsset {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	mediaType := mediaTypeOf(ref)
	return &CoverAsset{
		Source:    ref,
		MediaType: mediaType,
		Extension: extensionFor(mediaType, ref),
	}
}

// resolveCover copies the cover to cover.<ext>. When the reference has no
// recognisable extension, the type and extension come from the content.
func (r *assetResolver) resolveCover(ctx context.Context, cover *CoverAsset) error {
	src, err := r.open(ctx, cover.Source, r.baseDir)
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read cover: %w", err)
	}
	if cover.MediaType == octetStream {
		mt := mimetype.Detect(data)
		cover.MediaType = baseMediaType(mt.String())
		cover.Extension = strings.TrimPrefix(mt.Extension(), ".")
	}

	dst := filepath.Join(r.contentDir, cover.Href())
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}
	r.logger.Debug("cover resolved", "source", cover.Source, "href", cover.Href())
	return nil
}
