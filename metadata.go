package epub

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied to unset Options fields.
const (
	defaultPublisher = "anonymous"
	defaultAuthor    = "anonymous"
	defaultTocTitle  = "Table Of Contents"
	defaultLang      = "en"
)

// fieldErrors maps the struct fields checked by validate to the sentinel
// error reported for them.
var fieldErrors = map[string]error{
	"Title":   ErrMissingTitle,
	"Content": ErrNoContent,
	"Output":  ErrNoOutput,
	"Version": ErrInvalidVersion,
}

var validate = validator.New()

// applyDefaults returns a copy of o with every unset optional field filled.
func applyDefaults(o Options, now time.Time) Options {
	if o.Version == 0 {
		o.Version = Version3
	}
	if o.Description == "" {
		o.Description = o.Title
	}
	if o.Publisher == "" {
		o.Publisher = defaultPublisher
	}
	if o.Author.Len() == 0 {
		o.Author = Single(defaultAuthor)
	}
	if o.TocTitle == "" {
		o.TocTitle = defaultTocTitle
	}
	if o.Lang == "" {
		o.Lang = defaultLang
	}
	if o.Date == "" {
		o.Date = now.UTC().Format(time.RFC3339)
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	if o.BaseDir == "" {
		o.BaseDir = "."
	}
	o.Content = append([]Chapter(nil), o.Content...)
	o.Fonts = append([]string(nil), o.Fonts...)
	return o
}

// validateOptions checks the required fields of o. The first failing field
// is reported through its sentinel error.
func validateOptions(o Options) error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("epub: validate options: %w", err)
	}
	for _, fe := range verrs {
		if sentinel, ok := fieldErrors[fe.StructField()]; ok {
			return sentinel
		}
	}
	return fmt.Errorf("epub: validate options: %w", err)
}

// bookMetadata is the metadata block shared by the OPF, NCX and TOC
// templates.
type bookMetadata struct {
	ID          string
	Title       string
	Description string
	Publisher   string
	Authors     []string
	Lang        string
	Date        string
	Modified    string // dcterms:modified, second precision UTC
	Year        int
	TocTitle    string
}

func newBookMetadata(id string, o Options, now time.Time) bookMetadata {
	now = now.UTC()
	return bookMetadata{
		ID:          id,
		Title:       o.Title,
		Description: o.Description,
		Publisher:   o.Publisher,
		Authors:     o.Author.Names(),
		Lang:        o.Lang,
		Date:        o.Date,
		Modified:    now.Format("2006-01-02T15:04:05Z"),
		Year:        now.Year(),
		TocTitle:    o.TocTitle,
	}
}
