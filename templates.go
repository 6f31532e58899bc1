package epub

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"golang.org/x/net/html"
)

//go:embed templates
var templateFS embed.FS

// Embedded template and stylesheet paths.
const (
	ncxTemplate     = "templates/toc.ncx.tmpl"
	defaultCSSAsset = "templates/style.css"
)

// templateFuncs are available to embedded and custom templates.
var templateFuncs = template.FuncMap{
	"xml":  html.EscapeString,
	"join": strings.Join,
}

func opfTemplate(v Version) string {
	return fmt.Sprintf("templates/epub%d/content.opf.tmpl", v)
}

func tocTemplate(v Version) string {
	return fmt.Sprintf("templates/epub%d/toc.xhtml.tmpl", v)
}

// loadTemplate parses the custom template at customPath, or the embedded
// template name when customPath is empty.
func loadTemplate(name, customPath string) (*template.Template, error) {
	var (
		src []byte
		err error
	)
	if customPath != "" {
		src, err = os.ReadFile(customPath)
		name = customPath
	} else {
		src, err = fs.ReadFile(templateFS, name)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("epub: read template %s: %w", name, err)
	}
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("epub: parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// renderTemplate executes tmpl with data.
func renderTemplate(tmpl *template.Template, data packageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("epub: render %s: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// templateSet holds the three document templates of a build.
type templateSet struct {
	opf, ncx, toc *template.Template
}

// loadTemplates resolves the OPF, NCX and TOC templates for o.
func loadTemplates(o Options) (templateSet, error) {
	var (
		ts  templateSet
		err error
	)
	if ts.opf, err = loadTemplate(opfTemplate(o.Version), o.CustomOpfTemplatePath); err != nil {
		return ts, err
	}
	if ts.ncx, err = loadTemplate(ncxTemplate, o.CustomNcxTocTemplatePath); err != nil {
		return ts, err
	}
	if ts.toc, err = loadTemplate(tocTemplate(o.Version), o.CustomHTMLTocTemplatePath); err != nil {
		return ts, err
	}
	return ts, nil
}

// defaultCSS returns the embedded stylesheet.
func defaultCSS() []byte {
	data, err := fs.ReadFile(templateFS, defaultCSSAsset)
	if err != nil {
		panic("epub: embedded stylesheet missing: " + err.Error())
	}
	return data
}

// generatedDocument is a file written to the staging tree.
type generatedDocument struct {
	name string // slash-separated, relative to its staging root
	data []byte
}

// generateDocuments renders the OPF, NCX and TOC documents.
func (ts templateSet) generateDocuments(data packageData) ([]generatedDocument, error) {
	docs := []struct {
		name string
		tmpl *template.Template
	}{
		{opfHref, ts.opf},
		{ncxHref, ts.ncx},
		{tocHref, ts.toc},
	}
	out := make([]generatedDocument, 0, len(docs))
	for _, d := range docs {
		b, err := renderTemplate(d.tmpl, data)
		if err != nil {
			return nil, err
		}
		out = append(out, generatedDocument{name: d.name, data: b})
	}
	return out, nil
}
