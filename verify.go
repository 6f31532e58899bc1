package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Report summarises the structure of an ePub archive checked by Verify.
type Report struct {
	// Version is the package version attribute, e.g. "3.0".
	Version string

	// Title is the first dc:title, if any.
	Title string

	// Identifier is the first dc:identifier, if any.
	Identifier string

	// OPFPath is the archive path of the package document.
	OPFPath string

	// ManifestItems is the number of manifest items.
	ManifestItems int

	// Spine lists the spine idrefs in reading order.
	Spine []string

	// NavLabels lists the NCX navPoint labels in play order.
	NavLabels []string

	// Warnings lists non-fatal findings.
	Warnings []string
}

// Verify opens the archive at path and checks the structure a reading
// system relies on: a stored mimetype as first entry, a container pointing
// at the OPF, manifest items present in the archive, spine items declared in
// the manifest, and strictly increasing NCX play orders. Any defect is
// reported as an error wrapping ErrInvalidEPub.
//
// Verify is a self-check for archives this package produces, not a general
// ePub validator.
func Verify(path string) (*Report, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", path, err)
	}
	defer zrc.Close()
	return verifyArchive(&zrc.Reader)
}

// VerifyReader is Verify for an archive held in r.
func VerifyReader(r io.ReaderAt, size int64) (*Report, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epub: open zip: %w", err)
	}
	return verifyArchive(zr)
}

func verifyArchive(zr *zip.Reader) (*Report, error) {
	if err := checkMimetype(zr); err != nil {
		return nil, err
	}

	opfPath, err := parseContainer(zr)
	if err != nil {
		return nil, err
	}
	opfFile := findFileInsensitive(zr, opfPath)
	if opfFile == nil {
		return nil, fmt.Errorf("epub: OPF file not found in archive: %s: %w", opfPath, ErrInvalidEPub)
	}
	opfData, err := readZipFile(opfFile)
	if err != nil {
		return nil, fmt.Errorf("epub: read OPF file: %w", err)
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Version:       pkg.Version,
		OPFPath:       opfPath,
		ManifestItems: len(pkg.Manifest.Items),
	}
	if len(pkg.Metadata.Titles) > 0 {
		r.Title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}
	if len(pkg.Metadata.Identifiers) > 0 {
		r.Identifier = strings.TrimSpace(pkg.Metadata.Identifiers[0])
	}

	items, err := checkManifest(zr, opfPath, pkg.Manifest.Items)
	if err != nil {
		return nil, err
	}

	for _, ref := range pkg.Spine.ItemRefs {
		if _, ok := items[ref.IDRef]; !ok {
			return nil, fmt.Errorf("epub: spine references undeclared item %q: %w", ref.IDRef, ErrInvalidEPub)
		}
		r.Spine = append(r.Spine, ref.IDRef)
	}
	if len(r.Spine) == 0 {
		return nil, fmt.Errorf("epub: empty spine: %w", ErrInvalidEPub)
	}

	if strings.HasPrefix(pkg.Version, "3") && !hasNavItem(pkg.Manifest.Items) {
		r.Warnings = append(r.Warnings, "ePub 3 package has no manifest item with the nav property")
	}

	ncxItem, ok := items[pkg.Spine.Toc]
	if pkg.Spine.Toc == "" || !ok {
		r.Warnings = append(r.Warnings, "spine does not reference an NCX document")
		return r, nil
	}
	labels, err := checkNCX(zr, resolveRelativePath(opfPath, ncxItem.Href))
	if err != nil {
		return nil, err
	}
	r.NavLabels = labels
	return r, nil
}

// checkMimetype requires the first entry to be an uncompressed "mimetype"
// holding exactly "application/epub+zip".
func checkMimetype(zr *zip.Reader) error {
	if len(zr.File) == 0 {
		return fmt.Errorf("epub: empty ZIP archive: %w", ErrInvalidEPub)
	}
	first := zr.File[0]
	if first.Name != mimetypeName {
		return fmt.Errorf("epub: first ZIP entry is %q, not %q: %w", first.Name, mimetypeName, ErrInvalidEPub)
	}
	if first.Method != zip.Store {
		return fmt.Errorf("epub: mimetype entry is compressed: %w", ErrInvalidEPub)
	}
	data, err := readZipFile(first)
	if err != nil {
		return err
	}
	if string(data) != mimetypeData {
		return fmt.Errorf("epub: unexpected mimetype %q: %w", string(data), ErrInvalidEPub)
	}
	return nil
}

// checkManifest indexes the manifest by id, rejecting duplicate ids and
// items whose file is missing from the archive.
func checkManifest(zr *zip.Reader, opfPath string, manifest []opfManifestItem) (map[string]opfManifestItem, error) {
	items := make(map[string]opfManifestItem, len(manifest))
	targets := make(map[string]string, len(manifest))
	for _, item := range manifest {
		if _, dup := items[item.ID]; dup {
			return nil, fmt.Errorf("epub: duplicate manifest id %q: %w", item.ID, ErrInvalidEPub)
		}
		items[item.ID] = item

		target := resolveRelativePath(opfPath, item.Href)
		if target == "" || findFileInsensitive(zr, target) == nil {
			return nil, fmt.Errorf("epub: manifest item %q: %s not in archive: %w", item.ID, item.Href, ErrInvalidEPub)
		}
		if other, dup := targets[strings.ToLower(target)]; dup {
			return nil, fmt.Errorf("epub: manifest items %q and %q share href %s: %w",
				other, item.ID, item.Href, ErrInvalidEPub)
		}
		targets[strings.ToLower(target)] = item.ID
	}
	return items, nil
}

func hasNavItem(manifest []opfManifestItem) bool {
	for _, item := range manifest {
		for _, p := range strings.Fields(item.Properties) {
			if p == "nav" {
				return true
			}
		}
	}
	return false
}

// checkNCX parses the NCX at ncxPath and returns its navPoint labels. Play
// orders must be integers that strictly increase in document order.
func checkNCX(zr *zip.Reader, ncxPath string) ([]string, error) {
	f := findFileInsensitive(zr, ncxPath)
	if f == nil {
		return nil, fmt.Errorf("epub: NCX %s not in archive: %w", ncxPath, ErrInvalidEPub)
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil, err
	}
	doc, err := parseNCX(data)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(doc.NavMap.NavPoints))
	last := -1
	for i, np := range doc.NavMap.NavPoints {
		order, err := strconv.Atoi(strings.TrimSpace(np.PlayOrder))
		if err != nil {
			return nil, fmt.Errorf("epub: navPoint %q has invalid playOrder %q: %w", np.ID, np.PlayOrder, ErrInvalidEPub)
		}
		if i > 0 && order <= last {
			return nil, fmt.Errorf("epub: navPoint %q playOrder %d does not follow %d: %w", np.ID, order, last, ErrInvalidEPub)
		}
		last = order
		labels = append(labels, strings.TrimSpace(np.Label.Text))
	}
	return labels, nil
}
