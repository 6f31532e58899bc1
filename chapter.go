package epub

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Document preambles of chapter and TOC files, per ePub version.
const (
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	epub2Doctype   = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">` + "\n"
	epub3Doctype   = `<!DOCTYPE html>` + "\n"
)

// newChapterEntry derives the archive fields of the chapter at index.
func newChapterEntry(index int, ch Chapter, baseDir string) (*chapterEntry, error) {
	href, err := chapterHref(index, ch)
	if err != nil {
		return nil, err
	}
	dir := ch.Dir
	if dir == "" {
		dir = baseDir
	}
	return &chapterEntry{
		index:          index,
		title:          ch.Title,
		url:            ch.URL,
		href:           href,
		id:             "item_" + strconv.Itoa(index),
		dir:            dir,
		authors:        ch.Author.Names(),
		excludeFromToc: ch.ExcludeFromToc,
		beforeToc:      ch.BeforeToc,
	}, nil
}

// chapterHref returns the file name of a chapter relative to OEBPS:
// "<index>_<slug>.xhtml" or the explicit Filename with ".xhtml" ensured.
func chapterHref(index int, ch Chapter) (string, error) {
	if ch.Filename == "" {
		return strconv.Itoa(index) + "_" + titleSlug(ch.Title) + ".xhtml", nil
	}
	name := path.Clean(strings.ReplaceAll(ch.Filename, `\`, "/"))
	if !isSafePath(name) || name == "." {
		return "", fmt.Errorf("epub: chapter %d: unsafe filename %q", index, ch.Filename)
	}
	if !strings.HasSuffix(name, ".xhtml") {
		name += ".xhtml"
	}
	return name, nil
}

// hrefClaims tracks the owners of content document names. Names are compared
// case-insensitively since the staging tree may live on a case-insensitive
// file system.
type hrefClaims map[string]string

func newHrefClaims() hrefClaims {
	return hrefClaims{strings.ToLower(tocHref): "the table of contents"}
}

// claim records c's href, failing when it is already taken.
func (h hrefClaims) claim(c *chapterEntry) error {
	key := strings.ToLower(c.href)
	if owner, ok := h[key]; ok {
		return fmt.Errorf("epub: chapter %d: %q is already used by %s: %w",
			c.index, c.href, owner, ErrDuplicateFilename)
	}
	h[key] = "chapter " + strconv.Itoa(c.index)
	return nil
}

// documentHead returns the XML declaration, doctype and opening <html> tag
// for version.
func documentHead(v Version, lang string) string {
	lang = html.EscapeString(lang)
	if v == Version2 {
		return xmlDeclaration + epub2Doctype +
			`<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="` + lang + `">` + "\n"
	}
	return xmlDeclaration + epub3Doctype +
		`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" xml:lang="` +
		lang + `" lang="` + lang + `">` + "\n"
}

// renderChapter wraps the sanitized body of c in a complete XHTML document.
// The title heading, author line and source link are only written for
// chapters with a title.
func renderChapter(c *chapterEntry, v Version, lang string, appendTitle bool) string {
	var sb strings.Builder
	sb.WriteString(documentHead(v, lang))
	sb.WriteString("<head>\n")
	if v == Version2 {
		sb.WriteString(`<meta http-equiv="Content-Type" content="application/xhtml+xml; charset=utf-8" />` + "\n")
	} else {
		sb.WriteString(`<meta charset="UTF-8" />` + "\n")
	}
	sb.WriteString("<title>" + html.EscapeString(c.title) + "</title>\n")
	sb.WriteString(`<link rel="stylesheet" type="text/css" href="` + relativeTo(c.href, "style.css") + `" />` + "\n")
	sb.WriteString("</head>\n<body>\n")

	if c.title != "" {
		if appendTitle {
			sb.WriteString("<h1>" + html.EscapeString(c.title) + "</h1>\n")
		}
		if len(c.authors) > 0 {
			sb.WriteString(`<p class="epub-author">` + html.EscapeString(strings.Join(c.authors, ", ")) + "</p>\n")
		}
		if c.url != "" {
			u := html.EscapeString(c.url)
			sb.WriteString(`<p class="epub-link"><a href="` + u + `">` + u + "</a></p>\n")
		}
	}

	sb.WriteString(c.body)
	sb.WriteString("\n</body>\n</html>\n")
	return sb.String()
}

// relativeTo rewrites target, a path relative to OEBPS, so that it resolves
// from the document at href.
func relativeTo(href, target string) string {
	return strings.Repeat("../", strings.Count(href, "/")) + target
}
