package epub

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// mimetypeName and mimetypeData form the mandatory first archive entry.
const (
	mimetypeName = "mimetype"
	mimetypeData = "application/epub+zip"
)

// archiveDirs are added after the mimetype entry, in this order.
var archiveDirs = []string{"META-INF", contentRoot}

// maxDecompressSize is the maximum allowed decompressed size for a single ZIP entry.
// This guards against zip bomb attacks. Defaults to 256 MB.
const maxDecompressSize int64 = 256 * 1024 * 1024

// writeArchive zips the staging tree into output: the staged mimetype file
// as the first, uncompressed entry, then META-INF and OEBPS deflated. The archive is written to a
// temporary file next to output and renamed on success, so a failed build
// never leaves a file at output.
func writeArchive(stagingDir, output string) (err error) {
	mt, err := os.ReadFile(filepath.Join(stagingDir, mimetypeName))
	if err != nil {
		return fmt.Errorf("read mimetype: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	if err := writeStored(zw, mimetypeName, mt); err != nil {
		return err
	}
	for _, dir := range archiveDirs {
		if err := addDir(zw, stagingDir, dir); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}
	return nil
}

// writeStored adds an uncompressed entry without a data descriptor or extra
// fields, as ePub requires for mimetype.
func writeStored(zw *zip.Writer, name string, data []byte) error {
	fh := &zip.FileHeader{
		Name:               name,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	w, err := zw.CreateRaw(fh)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// addDir adds every regular file below root/dir, in lexical order, as a
// deflated entry named by its slash-separated path relative to root.
func addDir(zw *zip.Writer, root, dir string) error {
	return filepath.WalkDir(filepath.Join(root, dir), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fh, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		fh.Name = filepath.ToSlash(rel)
		fh.Method = zip.Deflate

		w, err := zw.CreateHeader(fh)
		if err != nil {
			return fmt.Errorf("add %s: %w", fh.Name, err)
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("write %s: %w", fh.Name, err)
		}
		return nil
	})
}

// findFileInsensitive looks up a ZIP entry by path, first trying an exact match,
// then falling back to a case-insensitive comparison.
// Returns nil if no match is found.
func findFileInsensitive(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	lower := strings.ToLower(name)
	for _, f := range zr.File {
		if strings.ToLower(f.Name) == lower {
			return f
		}
	}
	return nil
}

// resolveRelativePath resolves href relative to the directory of basePath
// inside the archive. It returns "" for absolute or escaping references.
func resolveRelativePath(basePath, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	cleaned := path.Clean(path.Join(path.Dir(basePath), href))
	if !isSafePath(cleaned) {
		return ""
	}
	return cleaned
}

// isSafePath checks whether p is a relative path that does not escape its
// root via traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readZipFile reads the full contents of a ZIP entry, refusing entries
// larger than maxDecompressSize.
func readZipFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > uint64(maxDecompressSize) {
		return nil, fmt.Errorf("epub: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, maxDecompressSize)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDecompressSize+1))
	if err != nil {
		return nil, fmt.Errorf("epub: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxDecompressSize {
		return nil, fmt.Errorf("epub: zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, maxDecompressSize)
	}
	return data, nil
}
