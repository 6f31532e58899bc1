package epub

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// imagePlaceholderAlt is set on <img> elements without an alt attribute;
// the XHTML 1.1 DTD requires one.
const imagePlaceholderAlt = "image-placeholder"

// allowedAttributes is the set of attribute names kept on chapter elements.
// Namespaced attributes are matched as "prefix:name".
var allowedAttributes = setOf(
	"content", "alt", "id", "title", "src", "href", "about", "accesskey",
	"aria-activedescendant", "aria-atomic", "aria-autocomplete", "aria-busy",
	"aria-checked", "aria-controls", "aria-describedat", "aria-describedby",
	"aria-disabled", "aria-dropeffect", "aria-expanded", "aria-flowto",
	"aria-grabbed", "aria-haspopup", "aria-hidden", "aria-invalid",
	"aria-label", "aria-labelledby", "aria-level", "aria-live",
	"aria-multiline", "aria-multiselectable", "aria-orientation", "aria-owns",
	"aria-posinset", "aria-pressed", "aria-readonly", "aria-relevant",
	"aria-required", "aria-selected", "aria-setsize", "aria-sort",
	"aria-valuemax", "aria-valuemin", "aria-valuenow", "aria-valuetext",
	"class", "contenteditable", "contextmenu", "datatype", "dir", "draggable",
	"dropzone", "hidden", "hreflang", "inlist", "itemid", "itemref",
	"itemscope", "itemtype", "lang", "media", "prefix", "property", "rel",
	"resource", "rev", "role", "spellcheck", "style", "tabindex", "target",
	"type", "typeof", "vocab", "xml:base", "xml:lang", "xml:space",
	"colspan", "rowspan", "width", "height", "epub:type", "epub:prefix",
)

// epub2Tags is the set of elements permitted by the XHTML 1.1 DTD used in
// ePub 2 content documents.
var epub2Tags = setOf(
	"div", "p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "dl",
	"dt", "dd", "address", "hr", "pre", "blockquote", "center", "ins", "del",
	"a", "span", "bdo", "br", "em", "strong", "dfn", "code", "samp", "kbd",
	"bar", "cite", "abbr", "acronym", "q", "sub", "sup", "tt", "i", "b", "big",
	"small", "u", "s", "strike", "basefont", "font", "object", "param", "img",
	"table", "caption", "colgroup", "col", "thead", "tfoot", "tbody", "tr",
	"th", "td", "embed", "applet", "iframe", "map", "noscript", "script",
	"var",
)

// rawTextElements are the elements whose text children Render writes
// without escaping.
var rawTextElements = setOf(
	"iframe", "noembed", "noframes", "noscript", "plaintext", "script", "style", "xmp",
)

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// imageIndex is the build-wide, order-preserving list of discovered images.
type imageIndex struct {
	list     []ImageAsset
	bySource map[string]int
}

func newImageIndex() *imageIndex {
	return &imageIndex{bySource: make(map[string]int)}
}

// sanitizer rewrites chapter HTML into the XHTML dialect of one ePub version.
type sanitizer struct {
	version Version
	images  *imageIndex
	newID   func() string
	logger  *slog.Logger
}

// sanitize fills c.body with the canonical XHTML of raw and registers any
// images it references.
func (s *sanitizer) sanitize(c *chapterEntry, raw string) error {
	body, err := parseBody(raw)
	if err != nil {
		return err
	}

	// Post-order rewrite over a snapshot of the elements: descendants are
	// handled before the ancestor that may be replaced.
	nodes := body.Find("*").Nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		s.rewriteElement(c, nodes[i])
	}

	body.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		img.SetAttr("src", relativeTo(c.href, s.registerImage(src, c.dir).Href()))
	})

	out, err := body.Html()
	if err != nil {
		return err
	}
	c.body = out
	return nil
}

// parseBody parses raw and returns the <body> of a document built from the
// inner markup of raw's body. Anything outside <body> is discarded.
func parseBody(raw string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if body := doc.Find("body"); body.Length() > 0 {
		inner, err := body.First().Html()
		if err != nil {
			return nil, err
		}
		if doc, err = goquery.NewDocumentFromReader(strings.NewReader(inner)); err != nil {
			return nil, err
		}
	}
	return doc.Find("body").First(), nil
}

// rewriteElement applies the attribute whitelist to n and, for ePub 2,
// replaces an element outside the XHTML 1.1 set with a <div>.
func (s *sanitizer) rewriteElement(c *chapterEntry, n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	n.Attr = filterAttributes(s.version, n.Data, n.Attr)
	if n.DataAtom == atom.Img && !hasAttribute(n, "alt") {
		n.Attr = append(n.Attr, html.Attribute{Key: "alt", Val: imagePlaceholderAlt})
	}
	if s.version == Version2 && !allowedInEPUB2(n.Data) {
		s.logger.Warn("tag not allowed in ePub 2 / XHTML 1.1, replaced with div",
			"chapter", c.index, "tag", n.Data)
		replaceWithDiv(n)
		return
	}
	if rawTextElements[n.Data] {
		protectRawText(n)
	}
}

// filterAttributes returns the attributes of a tag element that survive the
// whitelist. "type" is kept on <script> only. ePub 2 documents do not declare
// the epub namespace, so epub:* attributes are dropped there.
func filterAttributes(v Version, tag string, attrs []html.Attribute) []html.Attribute {
	kept := make([]html.Attribute, 0, len(attrs))
	for _, a := range attrs {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		if !allowedAttributes[key] {
			continue
		}
		if key == "type" && tag != "script" {
			continue
		}
		if v == Version2 && strings.HasPrefix(key, "epub:") {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// protectRawText makes the text of a raw-text element well-formed XML.
// Render writes such text verbatim, so markup characters in it would break
// the XHTML. Script and style text goes into a CDATA section hidden behind
// comments; any other raw text is escaped.
func protectRawText(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode || (!strings.ContainsAny(c.Data, "<&") && !strings.Contains(c.Data, "]]>")) {
			continue
		}
		switch n.DataAtom {
		case atom.Script, atom.Style:
			c.Data = "/*<![CDATA[*/" + strings.ReplaceAll(c.Data, "]]>", "]]]]><![CDATA[>") + "/*]]>*/"
		default:
			c.Data = html.EscapeString(c.Data)
		}
	}
}

// allowedInEPUB2 reports whether tag may appear in an ePub 2 content document.
func allowedInEPUB2(tag string) bool {
	return epub2Tags[tag]
}

// replaceWithDiv swaps n for a <div> that takes over n's children.
func replaceWithDiv(n *html.Node) {
	if n.Parent == nil {
		return
	}
	div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		div.AppendChild(c)
	}
	n.Parent.InsertBefore(div, n)
	n.Parent.RemoveChild(n)
}

func hasAttribute(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

// registerImage returns the asset for src, creating it on first sight.
func (s *sanitizer) registerImage(src, dir string) ImageAsset {
	if i, ok := s.images.bySource[src]; ok {
		return s.images.list[i]
	}
	mediaType := mediaTypeOf(src)
	asset := ImageAsset{
		ID:        s.newID(),
		Source:    src,
		Dir:       dir,
		MediaType: mediaType,
		Extension: extensionFor(mediaType, src),
	}
	s.images.bySource[src] = len(s.images.list)
	s.images.list = append(s.images.list, asset)
	return asset
}

// hasURIScheme reports whether s starts with a URI scheme like "file:" or
// "https:". Single-letter schemes are treated as Windows drive letters.
func hasURIScheme(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	// RFC 3986: URI scheme must start with a letter.
	if !((s[0] >= 'A' && s[0] <= 'Z') || (s[0] >= 'a' && s[0] <= 'z')) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ':' {
			return i > 1
		}
		if !(c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
			return false
		}
	}
	return false
}
