package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// Fixed manifest entries.
const (
	ncxID       = "ncx"
	ncxHref     = "toc.ncx"
	tocID       = "toc"
	tocHref     = "toc.xhtml"
	cssID       = "css"
	cssHref     = "style.css"
	coverID     = "image_cover"
	opfHref     = "content.opf"
	xhtmlType   = "application/xhtml+xml"
	ncxType     = "application/x-dtbncx+xml"
	cssType     = "text/css"
	opfType     = "application/oebps-package+xml"
	contentRoot = "OEBPS"
)

// manifestItem is an <item> of the generated OPF manifest.
type manifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// packageData is everything the OPF, NCX and TOC templates render.
// Identical inputs produce identical documents; Modified and Year are the
// only clock-derived values.
type packageData struct {
	bookMetadata
	Version    Version
	Cover      *CoverAsset
	Manifest   []manifestItem
	Spine      []string
	NavPoints  []navPoint
	TocEntries []tocEntry
}

// buildPackage assembles the template data for one book.
func buildPackage(md bookMetadata, v Version, chapters []*chapterEntry, images []ImageAsset, fonts []fontAsset, cover *CoverAsset) packageData {
	return packageData{
		bookMetadata: md,
		Version:      v,
		Cover:        cover,
		Manifest:     buildManifest(v, chapters, images, fonts, cover),
		Spine:        buildSpine(chapters),
		NavPoints:    buildNavPoints(chapters, md.TocTitle),
		TocEntries:   buildTocEntries(chapters),
	}
}

// buildManifest lists the NCX, TOC, stylesheet, cover, images, chapters and
// fonts, in that order. Ids are unique across the manifest.
func buildManifest(v Version, chapters []*chapterEntry, images []ImageAsset, fonts []fontAsset, cover *CoverAsset) []manifestItem {
	items := make([]manifestItem, 0, 4+len(images)+len(chapters)+len(fonts))

	toc := manifestItem{ID: tocID, Href: tocHref, MediaType: xhtmlType}
	if v == Version3 {
		toc.Properties = "nav"
	}
	items = append(items,
		manifestItem{ID: ncxID, Href: ncxHref, MediaType: ncxType},
		toc,
		manifestItem{ID: cssID, Href: cssHref, MediaType: cssType},
	)

	if cover != nil {
		item := manifestItem{ID: coverID, Href: cover.Href(), MediaType: cover.MediaType}
		if v == Version3 {
			item.Properties = "cover-image"
		}
		items = append(items, item)
	}
	for i, img := range images {
		items = append(items, manifestItem{ID: "image_" + strconv.Itoa(i), Href: img.Href(), MediaType: img.MediaType})
	}
	for _, c := range chapters {
		items = append(items, manifestItem{ID: c.manifestID(), Href: c.href, MediaType: xhtmlType})
	}
	for i, f := range fonts {
		items = append(items, manifestItem{ID: "font_" + strconv.Itoa(i), Href: "fonts/" + f.filename, MediaType: f.mediaType})
	}
	return items
}

// partitionChapters splits the chapters listed in the navigation into those
// placed before the TOC and those after it, both in input order. Chapters
// excluded from the TOC belong to neither.
func partitionChapters(chapters []*chapterEntry) (before, after []*chapterEntry) {
	for _, c := range chapters {
		switch {
		case c.excludeFromToc:
		case c.beforeToc:
			before = append(before, c)
		default:
			after = append(after, c)
		}
	}
	return before, after
}

// buildSpine returns the itemref ids of the reading order: the before-TOC
// chapters, the TOC document, then the remaining listed chapters.
func buildSpine(chapters []*chapterEntry) []string {
	before, after := partitionChapters(chapters)
	spine := make([]string, 0, len(before)+len(after)+1)
	for _, c := range before {
		spine = append(spine, c.manifestID())
	}
	spine = append(spine, tocID)
	for _, c := range after {
		spine = append(spine, c.manifestID())
	}
	return spine
}

// --- OPF decoding structs, used by Verify ---

// opfPackage represents the root <package> element of an OPF file.
type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
}

// opfMetadata holds the Dublin Core elements Verify reports.
type opfMetadata struct {
	Titles      []string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Identifiers []string `xml:"http://purl.org/dc/elements/1.1/ identifier"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	Toc      string            `xml:"toc,attr"`
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// parseOPF parses the OPF file content and returns the parsed package structure.
func parseOPF(data []byte) (*opfPackage, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(data), &pkg); err != nil {
		return nil, fmt.Errorf("epub: parse OPF: %w", err)
	}
	return &pkg, nil
}
