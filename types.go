package epub

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is the ePub specification version of the generated book.
type Version int

// Supported ePub versions.
const (
	Version2 Version = 2
	Version3 Version = 3
)

// Options describes the book to build. Title, Content and Output are required.
type Options struct {
	// Title is the book title (dc:title).
	Title string `validate:"required"`

	// Author is the book-level creator list. Defaults to "anonymous".
	Author Authors

	// Publisher is the dc:publisher value. Defaults to "anonymous".
	Publisher string

	// Description is the dc:description value. Defaults to Title.
	Description string

	// Date is the publication date as written to dc:date.
	// Defaults to the build time in RFC 3339 form.
	Date string

	// Lang is a BCP 47 language tag. Defaults to "en".
	Lang string

	// Cover is an optional cover image: a local path, a file: URL or an
	// http(s) URL.
	Cover string

	// CSS replaces the default stylesheet when non-empty.
	CSS string

	// Fonts are local paths of fonts copied into OEBPS/fonts.
	Fonts []string

	// TocTitle is the heading of the table of contents.
	// Defaults to "Table Of Contents".
	TocTitle string

	// HideChapterTitles suppresses the <h1> heading written at the top
	// of every chapter.
	HideChapterTitles bool

	// Version selects ePub 2 or 3. Zero means 3.
	Version Version `validate:"oneof=2 3"`

	// Verbose enables debug logging to stderr when no logger is supplied.
	Verbose bool

	// Content is the ordered list of chapters.
	Content []Chapter `validate:"required,min=1"`

	// Output is the path of the archive to write.
	Output string `validate:"required"`

	// Custom template paths override the embedded OPF, NCX and HTML TOC
	// templates. They receive the same data as the embedded ones.
	CustomOpfTemplatePath     string
	CustomNcxTocTemplatePath  string
	CustomHTMLTocTemplatePath string

	// TempDir is the parent of the per-build staging directory.
	// Defaults to os.TempDir().
	TempDir string

	// BaseDir resolves relative image and cover references when a chapter
	// does not set its own Dir. Defaults to the working directory.
	BaseDir string
}

// Chapter is a single HTML fragment of the book.
type Chapter struct {
	// Title labels the chapter in the table of contents and heading.
	Title string

	// Data is the chapter HTML. Only the inner markup of <body> is kept
	// when a full document is supplied.
	Data string

	// Filename overrides the derived "<index>_<slug>.xhtml" name.
	// ".xhtml" is appended when missing.
	Filename string

	// ExcludeFromToc keeps the chapter out of the navigation and spine.
	// Its file is still packaged.
	ExcludeFromToc bool

	// BeforeToc places the chapter ahead of the table of contents.
	BeforeToc bool

	// Author is printed under the chapter heading.
	Author Authors

	// URL is printed as a source link under the chapter heading.
	URL string

	// Dir resolves relative image references of this chapter.
	Dir string
}

// Authors is a list of author names that may be given as a single name or
// as a sequence at the input boundary.
type Authors struct {
	names []string
}

// Single returns Authors holding one name. A blank name yields no authors.
func Single(name string) Authors {
	if isBlank(name) {
		return Authors{}
	}
	return Authors{names: []string{name}}
}

// Many returns Authors holding the given names in order.
func Many(names ...string) Authors {
	return Authors{names: append([]string(nil), names...)}
}

// AuthorsFrom converts an untyped author value: a string becomes one
// author, a sequence of strings passes through, anything else is empty.
func AuthorsFrom(v any) Authors {
	if isString(v) {
		return Single(v.(string))
	}
	switch vv := v.(type) {
	case Authors:
		return Many(vv.names...)
	case []string:
		return Many(vv...)
	case []any:
		names := make([]string, 0, len(vv))
		for _, n := range vv {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		return Authors{names: names}
	}
	return Authors{}
}

// Names returns a copy of the author names.
func (a Authors) Names() []string {
	return append([]string(nil), a.names...)
}

// Len returns the number of authors.
func (a Authors) Len() int { return len(a.names) }

// String joins the names with ", ".
func (a Authors) String() string {
	return strings.Join(a.names, ", ")
}

// UnmarshalYAML accepts either a scalar or a sequence of scalars.
func (a *Authors) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	*a = AuthorsFrom(v)
	return nil
}

// ImageAsset is an image discovered in chapter content. Assets are unique
// by Source; the first chapter referencing a source owns its Dir.
type ImageAsset struct {
	// ID is the generated identifier used as the archive file name.
	ID string

	// Source is the src attribute exactly as written in the chapter.
	Source string

	// Dir resolves a relative Source.
	Dir string

	// MediaType is the resolved MIME type (e.g., "image/png").
	MediaType string

	// Extension is the file extension without a leading dot.
	Extension string
}

// Href returns the archive path of the image relative to the OPF.
func (a ImageAsset) Href() string {
	if a.Extension == "" {
		return "images/" + a.ID
	}
	return "images/" + a.ID + "." + a.Extension
}

// CoverAsset is the optional cover image of the book.
type CoverAsset struct {
	Source    string
	MediaType string
	Extension string
}

// Href returns the archive path of the cover relative to the OPF.
func (c CoverAsset) Href() string {
	if c.Extension == "" {
		return "cover"
	}
	return "cover." + c.Extension
}

// chapterEntry is a Chapter with its derived archive fields. It is filled
// once by the sanitizer and read-only afterwards.
type chapterEntry struct {
	index          int
	title          string
	url            string
	href           string // relative to OEBPS
	id             string // item_<index>
	dir            string
	authors        []string
	excludeFromToc bool
	beforeToc      bool
	body           string // sanitized XHTML body markup
}

// manifestID returns the OPF manifest id of the chapter.
func (c *chapterEntry) manifestID() string {
	return "content_" + strconv.Itoa(c.index) + "_" + c.id
}

// fontAsset is a custom font copied into OEBPS/fonts.
type fontAsset struct {
	source    string
	filename  string
	mediaType string
}
