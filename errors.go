package epub

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the epub package.
var (
	// ErrMissingTitle indicates the book has no title.
	ErrMissingTitle = errors.New("epub: title is required")

	// ErrNoContent indicates the book has no chapters.
	ErrNoContent = errors.New("epub: content is required")

	// ErrNoOutput indicates no output path was given.
	ErrNoOutput = errors.New("epub: output path is required")

	// ErrInvalidVersion indicates an ePub version other than 2 or 3.
	ErrInvalidVersion = errors.New("epub: version must be 2 or 3")

	// ErrTemplateNotFound indicates a custom OPF, NCX or TOC template
	// could not be located.
	ErrTemplateNotFound = errors.New("epub: template not found")

	// ErrFontNotFound indicates a custom font path does not exist.
	ErrFontNotFound = errors.New("epub: custom font not found")

	// ErrDuplicateFilename indicates two chapters, or a chapter and a
	// generated document, resolve to the same file name.
	ErrDuplicateFilename = errors.New("epub: duplicate chapter filename")

	// ErrUnsupportedSource indicates an image or cover reference uses a
	// URI scheme that cannot be resolved (e.g. "ftp:").
	ErrUnsupportedSource = errors.New("epub: unsupported asset source")

	// ErrInvalidEPub indicates Verify found a structural defect in an archive.
	ErrInvalidEPub = errors.New("epub: invalid ePub file")
)

// Build stages reported by StageError.
const (
	StageSanitize  = "sanitize"
	StageStage     = "stage"
	StageAssets    = "assets"
	StageDocuments = "documents"
	StagePackage   = "package"
)

// StageError reports which pipeline stage of a build failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("epub: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// AssetError reports a failure to resolve a single image or cover.
// Source is the reference exactly as it appeared in the chapter or options.
type AssetError struct {
	Source string
	Err    error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("epub: resolve asset %q: %v", e.Source, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// CleanupError reports a failure to remove the staging directory.
// It never replaces the primary result of a build.
type CleanupError struct {
	Dir string
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("epub: remove staging directory %s: %v", e.Dir, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
