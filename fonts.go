package epub

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// newFontAssets checks that every font path exists and derives its archive
// name and media type. Two fonts may not share a base name.
func newFontAssets(paths []string) ([]fontAsset, error) {
	fonts := make([]fontAsset, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFontNotFound, p)
		}
		if err != nil {
			return nil, fmt.Errorf("epub: stat font %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrFontNotFound, p)
		}
		name := filepath.Base(p)
		if seen[name] {
			return nil, fmt.Errorf("epub: duplicate font file name %q", name)
		}
		seen[name] = true
		fonts = append(fonts, fontAsset{source: p, filename: name, mediaType: fontMediaType(name)})
	}
	return fonts, nil
}

// copyFonts copies fonts into contentDir/fonts.
func copyFonts(contentDir string, fonts []fontAsset) error {
	if len(fonts) == 0 {
		return nil
	}
	dir := filepath.Join(contentDir, "fonts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fonts directory: %w", err)
	}
	for _, f := range fonts {
		src, err := os.Open(f.source)
		if err != nil {
			return fmt.Errorf("open font %s: %w", f.source, err)
		}
		err = writeFile(filepath.Join(dir, f.filename), src)
		src.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
