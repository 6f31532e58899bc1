package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// containerPath is the well-known location of container.xml in an ePub archive.
const containerPath = "META-INF/container.xml"

// appleDisplayOptionsPath tells iBooks to honour embedded fonts (ePub 2 only).
const appleDisplayOptionsPath = "META-INF/com.apple.ibooks.display-options.xml"

// containerXMLData points reading systems at OEBPS/content.opf.
const containerXMLData = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + contentRoot + "/" + opfHref + `" media-type="` + opfType + `"/>
  </rootfiles>
</container>
`

const appleDisplayOptionsData = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<display_options>
  <platform name="*">
    <option name="specified-fonts">true</option>
  </platform>
</display_options>
`

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// parseContainer reads META-INF/container.xml from zr and returns the
// full-path of the OPF rootfile.
func parseContainer(zr *zip.Reader) (string, error) {
	f := findFileInsensitive(zr, containerPath)
	if f == nil {
		return "", fmt.Errorf("epub: %s missing: %w", containerPath, ErrInvalidEPub)
	}
	data, err := readZipFile(f)
	if err != nil {
		return "", fmt.Errorf("epub: read container.xml: %w", err)
	}

	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w", err)
	}

	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath != "" && strings.EqualFold(strings.TrimSpace(rf.MediaType), opfType) {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("epub: container.xml has no OPF rootfile: %w", ErrInvalidEPub)
}
