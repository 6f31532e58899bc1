package epub

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tinyPNG is a 1x1 transparent PNG.
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

// fixedTime is the clock used by builds in tests.
var fixedTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns a *zip.Reader over the resulting bytes.
// It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := buildTestZipBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// buildTestZipBytes writes files into a ZIP archive. A "mimetype" entry, if
// present, is written first and stored uncompressed.
func buildTestZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	if mt, ok := files["mimetype"]; ok {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("buildTestZip: create mimetype: %v", err)
		}
		if _, err := io.WriteString(fw, mt); err != nil {
			t.Fatalf("buildTestZip: write mimetype: %v", err)
		}
	}
	for name, content := range files {
		if name == "mimetype" {
			continue
		}
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

// sequentialIDs returns an id generator yielding "id-0", "id-1", ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		id := fmt.Sprintf("id-%d", n)
		n++
		return id
	}
}

// testOptions returns minimal valid options writing into a temporary
// directory. Staging happens below its own temporary directory so tests can
// check that it is cleaned up.
func testOptions(t *testing.T, chapters ...Chapter) Options {
	t.Helper()
	if len(chapters) == 0 {
		chapters = []Chapter{
			{Title: "Intro", Data: "<p>Hello</p>"},
			{Title: "End", Data: "<p>Bye</p>"},
		}
	}
	return Options{
		Title:   "My Book",
		Content: chapters,
		Output:  filepath.Join(t.TempDir(), "book.epub"),
		TempDir: t.TempDir(),
		BaseDir: t.TempDir(),
	}
}

// testBuildOptions are the collaborators used by builds in tests.
func testBuildOptions(extra ...Option) []Option {
	return append([]Option{WithClock(func() time.Time { return fixedTime }), withIDGenerator(sequentialIDs())}, extra...)
}

// writeTestFile writes data to dir/name, creating parent directories.
func writeTestFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("writeTestFile: %v", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("writeTestFile: %v", err)
	}
	return p
}

// openArchive opens the ZIP at path and closes it when the test ends.
func openArchive(t *testing.T, path string) *zip.Reader {
	t.Helper()
	zrc, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { zrc.Close() })
	return &zrc.Reader
}

// readArchiveFile returns the content of name in zr.
func readArchiveFile(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	f := findFileInsensitive(zr, name)
	if f == nil {
		t.Fatalf("archive has no %s", name)
	}
	data, err := readZipFile(f)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// assertNoEntries fails when dir contains anything.
func assertNoEntries(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("%s not empty: %v", dir, names)
	}
}
