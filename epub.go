package epub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// EPub is a validated book whose chapters have been sanitized. Use New to
// create one and Render to write the archive.
//
// An EPub is not safe for concurrent use by multiple goroutines. Separate
// EPub values may be rendered concurrently; each stages into its own
// directory.
type EPub struct {
	opts       Options
	id         string
	stagingDir string
	chapters   []*chapterEntry
	images     []ImageAsset
	fonts      []fontAsset
	cover      *CoverAsset
	templates  templateSet
	logger     *slog.Logger
	fetcher    Fetcher
	now        func() time.Time
	removeAll  func(string) error
}

// Option configures the collaborators of a build.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	fetcher Fetcher
	now       func() time.Time
	newID     func() string
	removeAll func(string) error
}

// WithLogger sets the logger for build diagnostics. Without it, Verbose
// selects a debug logger on stderr and otherwise nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithFetcher sets the fetcher used for http and https asset references.
func WithFetcher(f Fetcher) Option {
	return func(c *config) { c.fetcher = f }
}

// WithHTTPClient fetches remote assets with client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.fetcher = NewHTTPFetcher(client) }
}

// WithClock sets the time source for the default date and the
// modification timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// withIDGenerator replaces uuid generation of the book and image ids.
func withIDGenerator(gen func() string) Option {
	return func(c *config) { c.newID = gen }
}

// withRemoveAll replaces os.RemoveAll for the staging directory cleanup.
func withRemoveAll(fn func(string) error) Option {
	return func(c *config) { c.removeAll = fn }
}

// New validates opts, fills defaults, and sanitizes every chapter in input
// order. Images referenced by the chapters are collected but not yet read.
func New(opts Options, options ...Option) (*EPub, error) {
	cfg := config{now: time.Now, newID: uuid.NewString, removeAll: os.RemoveAll}
	for _, o := range options {
		o(&cfg)
	}

	opts = applyDefaults(opts, cfg.now())
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = newLogger(opts.Verbose)
	}
	fetcher := cfg.fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}

	templates, err := loadTemplates(opts)
	if err != nil {
		return nil, err
	}
	fonts, err := newFontAssets(opts.Fonts)
	if err != nil {
		return nil, err
	}

	e := &EPub{
		opts:      opts,
		id:        cfg.newID(),
		fonts:     fonts,
		cover:     newCoverAsset(opts.Cover),
		templates: templates,
		fetcher:   fetcher,
		now:       cfg.now,
		removeAll: cfg.removeAll,
	}
	e.stagingDir = filepath.Join(opts.TempDir, e.id)
	e.logger = logger.With("book_id", e.id)

	s := &sanitizer{
		version: opts.Version,
		images:  newImageIndex(),
		newID:   cfg.newID,
		logger:  e.logger,
	}
	e.chapters = make([]*chapterEntry, 0, len(opts.Content))
	hrefs := newHrefClaims()
	for i, ch := range opts.Content {
		c, err := newChapterEntry(i, ch, opts.BaseDir)
		if err != nil {
			return nil, &StageError{Stage: StageSanitize, Err: err}
		}
		if err := hrefs.claim(c); err != nil {
			return nil, &StageError{Stage: StageSanitize, Err: err}
		}
		if err := s.sanitize(c, ch.Data); err != nil {
			return nil, &StageError{Stage: StageSanitize, Err: fmt.Errorf("chapter %d: %w", i, err)}
		}
		e.chapters = append(e.chapters, c)
	}
	e.images = s.images.list

	e.logger.Debug("chapters sanitized", "stage", StageSanitize,
		"chapters", len(e.chapters), "images", len(e.images), "version", int(opts.Version))
	return e, nil
}

// Generate builds the book described by opts and writes it to opts.Output.
func Generate(ctx context.Context, opts Options, options ...Option) error {
	e, err := New(opts, options...)
	if err != nil {
		return err
	}
	return e.Render(ctx)
}

// ID returns the generated book identifier.
func (e *EPub) ID() string { return e.id }

// Images returns the discovered images in first-appearance order.
func (e *EPub) Images() []ImageAsset {
	return append([]ImageAsset(nil), e.images...)
}

// Render stages the book, resolves its assets, generates the package
// documents and writes the archive to Options.Output. The staging directory
// is removed whatever the outcome; a removal failure is reported as a
// *CleanupError alongside any primary error. No file is left at Output
// when Render fails before the archive is complete.
func (e *EPub) Render(ctx context.Context) (err error) {
	defer func() {
		if rmErr := e.removeAll(e.stagingDir); rmErr != nil {
			cleanupErr := &CleanupError{Dir: e.stagingDir, Err: rmErr}
			if err == nil {
				err = cleanupErr
			} else {
				err = errors.Join(err, cleanupErr)
			}
			return
		}
		e.logger.Debug("staging directory removed", "stage", "cleanup", "dir", e.stagingDir)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	contentDir := filepath.Join(e.stagingDir, contentRoot)
	if err := e.stage(contentDir); err != nil {
		return &StageError{Stage: StageStage, Err: err}
	}
	e.logger.Debug("staging tree written", "stage", StageStage, "dir", e.stagingDir)

	resolver := &assetResolver{
		fetcher:    e.fetcher,
		contentDir: contentDir,
		baseDir:    e.opts.BaseDir,
		logger:     e.logger,
	}
	if err := resolver.resolve(ctx, e.images, e.cover); err != nil {
		return &StageError{Stage: StageAssets, Err: err}
	}
	e.logger.Debug("assets resolved", "stage", StageAssets, "images", len(e.images), "cover", e.cover != nil)

	if err := e.writeDocuments(contentDir); err != nil {
		return &StageError{Stage: StageDocuments, Err: err}
	}
	e.logger.Debug("package documents generated", "stage", StageDocuments)

	if err := writeArchive(e.stagingDir, e.opts.Output); err != nil {
		return &StageError{Stage: StagePackage, Err: err}
	}
	e.logger.Debug("archive written", "stage", StagePackage, "output", e.opts.Output)
	return nil
}

// stage lays out the staging tree: mimetype, META-INF, the stylesheet,
// every chapter document and the custom fonts.
func (e *EPub) stage(contentDir string) error {
	if err := os.MkdirAll(filepath.Join(e.stagingDir, "META-INF"), 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	files := []generatedDocument{
		{name: mimetypeName, data: []byte(mimetypeData)},
		{name: containerPath, data: []byte(containerXMLData)},
	}
	if e.opts.Version == Version2 {
		files = append(files, generatedDocument{name: appleDisplayOptionsPath, data: []byte(appleDisplayOptionsData)})
	}
	for _, f := range files {
		if err := writeStagedFile(e.stagingDir, f.name, f.data); err != nil {
			return err
		}
	}

	css := defaultCSS()
	if e.opts.CSS != "" {
		css = []byte(e.opts.CSS)
	}
	if err := writeStagedFile(contentDir, cssHref, css); err != nil {
		return err
	}

	for _, c := range e.chapters {
		doc := renderChapter(c, e.opts.Version, e.opts.Lang, !e.opts.HideChapterTitles)
		if err := writeStagedFile(contentDir, c.href, []byte(doc)); err != nil {
			return err
		}
	}

	return copyFonts(contentDir, e.fonts)
}

// writeDocuments renders the OPF, NCX and TOC into the staging tree. It runs
// after asset resolution so sniffed media types reach the manifest.
func (e *EPub) writeDocuments(contentDir string) error {
	md := newBookMetadata(e.id, e.opts, e.now())
	data := buildPackage(md, e.opts.Version, e.chapters, e.images, e.fonts, e.cover)
	docs, err := e.templates.generateDocuments(data)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := writeStagedFile(contentDir, d.name, d.data); err != nil {
			return err
		}
	}
	return nil
}

// writeStagedFile writes data to the slash-separated name below root,
// creating parent directories as needed.
func writeStagedFile(root, name string, data []byte) error {
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// newLogger returns the logger used when none is supplied.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
