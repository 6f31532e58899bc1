package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	epub "github.com/simp-lee/epubgen"
)

// bookFile is the YAML description of a book. Relative paths are resolved
// against the directory of the file.
type bookFile struct {
	Title             string        `yaml:"title"`
	Author            epub.Authors  `yaml:"author"`
	Publisher         string        `yaml:"publisher"`
	Description       string        `yaml:"description"`
	Date              string        `yaml:"date"`
	Lang              string        `yaml:"lang"`
	Version           int           `yaml:"version"`
	Cover             string        `yaml:"cover"`
	CSSFile           string        `yaml:"css_file"`
	Fonts             []string      `yaml:"fonts"`
	TocTitle          string        `yaml:"toc_title"`
	HideChapterTitles bool          `yaml:"hide_chapter_titles"`
	Templates         bookTemplates `yaml:"templates"`
	Chapters          []bookChapter `yaml:"chapters"`
}

type bookTemplates struct {
	OPF string `yaml:"opf"`
	NCX string `yaml:"ncx"`
	TOC string `yaml:"toc"`
}

// bookChapter holds inline HTML in Data or a path to an HTML file in File.
type bookChapter struct {
	Title          string       `yaml:"title"`
	File           string       `yaml:"file"`
	Data           string       `yaml:"data"`
	Filename       string       `yaml:"filename"`
	ExcludeFromToc bool         `yaml:"exclude_from_toc"`
	BeforeToc      bool         `yaml:"before_toc"`
	Author         epub.Authors `yaml:"author"`
	URL            string       `yaml:"url"`
}

// loadBook reads the book file at path and converts it to build options.
func loadBook(path string) (epub.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return epub.Options{}, fmt.Errorf("read book file: %w", err)
	}
	var b bookFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return epub.Options{}, fmt.Errorf("parse book file %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return epub.Options{}, err
	}
	return b.options(dir)
}

// options converts b to build options, resolving file references against dir.
func (b bookFile) options(dir string) (epub.Options, error) {
	opts := epub.Options{
		Title:                     b.Title,
		Author:                    b.Author,
		Publisher:                 b.Publisher,
		Description:               b.Description,
		Date:                      b.Date,
		Lang:                      b.Lang,
		Version:                   epub.Version(b.Version),
		Cover:                     b.Cover,
		TocTitle:                  b.TocTitle,
		HideChapterTitles:         b.HideChapterTitles,
		CustomOpfTemplatePath:     resolvePath(dir, b.Templates.OPF),
		CustomNcxTocTemplatePath:  resolvePath(dir, b.Templates.NCX),
		CustomHTMLTocTemplatePath: resolvePath(dir, b.Templates.TOC),
		BaseDir:                   dir,
	}
	for _, f := range b.Fonts {
		opts.Fonts = append(opts.Fonts, resolvePath(dir, f))
	}
	if b.CSSFile != "" {
		css, err := os.ReadFile(resolvePath(dir, b.CSSFile))
		if err != nil {
			return opts, fmt.Errorf("read stylesheet: %w", err)
		}
		opts.CSS = string(css)
	}

	for i, ch := range b.Chapters {
		c := epub.Chapter{
			Title:          ch.Title,
			Data:           ch.Data,
			Filename:       ch.Filename,
			ExcludeFromToc: ch.ExcludeFromToc,
			BeforeToc:      ch.BeforeToc,
			Author:         ch.Author,
			URL:            ch.URL,
			Dir:            dir,
		}
		if ch.File != "" {
			p := resolvePath(dir, ch.File)
			html, err := os.ReadFile(p)
			if err != nil {
				return opts, fmt.Errorf("read chapter %d: %w", i, err)
			}
			c.Data = string(html)
			c.Dir = filepath.Dir(p)
		}
		opts.Content = append(opts.Content, c)
	}
	return opts, nil
}

// resolvePath joins a relative p to dir. Empty and absolute paths are
// returned unchanged.
func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
