package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// navPoint is one entry of the NCX navMap.
type navPoint struct {
	ID        string
	PlayOrder int
	Label     string
	Src       string
}

// tocEntry is one entry of the XHTML table of contents.
type tocEntry struct {
	Href    string
	Label   string
	Authors string
}

// playOrder hands out NCX play orders. Each build owns one counter.
type playOrder struct {
	next int
}

func (p *playOrder) take() int {
	n := p.next
	p.next++
	return n
}

// navLabel is the displayed label of a chapter: "<n>. <title>", or
// "Chapter <n>" for an untitled chapter.
func navLabel(c *chapterEntry) string {
	n := strconv.Itoa(c.index + 1)
	if c.title == "" {
		return "Chapter " + n
	}
	return n + ". " + c.title
}

// buildNavPoints returns the NCX entries: before-TOC chapters, the TOC
// document itself, then the remaining listed chapters. Play orders start at
// zero and increase in emission order.
func buildNavPoints(chapters []*chapterEntry, tocTitle string) []navPoint {
	before, after := partitionChapters(chapters)
	var order playOrder
	points := make([]navPoint, 0, len(before)+len(after)+1)
	for _, c := range before {
		points = append(points, chapterNavPoint(c, order.take()))
	}
	points = append(points, navPoint{ID: tocID, PlayOrder: order.take(), Label: tocTitle, Src: tocHref})
	for _, c := range after {
		points = append(points, chapterNavPoint(c, order.take()))
	}
	return points
}

func chapterNavPoint(c *chapterEntry, order int) navPoint {
	return navPoint{ID: c.manifestID(), PlayOrder: order, Label: navLabel(c), Src: c.href}
}

// buildTocEntries returns the XHTML TOC entries in the same before/after
// order as the spine.
func buildTocEntries(chapters []*chapterEntry) []tocEntry {
	before, after := partitionChapters(chapters)
	entries := make([]tocEntry, 0, len(before)+len(after))
	for _, c := range append(before, after...) {
		entries = append(entries, tocEntry{
			Href:    c.href,
			Label:   navLabel(c),
			Authors: strings.Join(c.authors, ", "),
		})
	}
	return entries
}

// --- NCX decoding structs, used by Verify ---

// ncxDocument represents the root <ncx> element of an NCX file.
type ncxDocument struct {
	XMLName xml.Name  `xml:"ncx"`
	NavMap  ncxNavMap `xml:"navMap"`
}

// ncxNavMap represents the <navMap> element containing top-level navPoints.
type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

// ncxNavPoint represents a <navPoint> element.
type ncxNavPoint struct {
	ID        string      `xml:"id,attr"`
	PlayOrder string      `xml:"playOrder,attr"`
	Label     ncxNavLabel `xml:"navLabel"`
	Content   ncxContent  `xml:"content"`
}

// ncxNavLabel represents the <navLabel> element containing the display text.
type ncxNavLabel struct {
	Text string `xml:"text"`
}

// ncxContent represents the <content> element with its src attribute.
type ncxContent struct {
	Src string `xml:"src,attr"`
}

// parseNCX decodes NCX data.
func parseNCX(data []byte) (*ncxDocument, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(stripBOM(data), &doc); err != nil {
		return nil, fmt.Errorf("epub: parse NCX: %w", err)
	}
	return &doc, nil
}
