// Package epub builds ePub 2 and ePub 3 books from HTML fragments.
//
// Each chapter is sanitized into the XHTML dialect of the requested version:
// only the inner markup of <body> is kept, attributes outside a fixed
// whitelist are dropped, and for ePub 2 any element outside the XHTML 1.1
// set is replaced by a <div>. Images referenced by chapters are collected
// once per source, copied or downloaded into the archive, and their src
// attributes rewritten to images/<id>.<ext>.
//
// # Building a book
//
// Describe the book with [Options] and call [Generate], or [New] followed
// by [EPub.Render]:
//
//	err := epub.Generate(ctx, epub.Options{
//	    Title:  "My Book",
//	    Author: epub.Single("Jane Doe"),
//	    Output: "my-book.epub",
//	    Content: []epub.Chapter{
//	        {Title: "Intro", Data: "<p>Hello</p>"},
//	        {Title: "End", Data: "<p>Bye</p>"},
//	    },
//	})
//
// The spine lists chapters flagged [Chapter.BeforeToc], then the table of
// contents, then the remaining chapters. Chapters flagged
// [Chapter.ExcludeFromToc] are packaged and listed in the manifest but kept
// out of the spine and navigation.
//
// # Collaborators
//
// Remote images and covers are fetched through a [Fetcher]; the default is
// an [HTTPFetcher]. Use [WithFetcher], [WithHTTPClient], [WithLogger] and
// [WithClock] to replace the defaults.
//
// # Error Handling
//
// Invalid options are reported with sentinel errors:
//   - [ErrMissingTitle], [ErrNoContent], [ErrNoOutput], [ErrInvalidVersion]
//   - [ErrTemplateNotFound] – a custom template path does not exist
//   - [ErrFontNotFound] – a custom font path does not exist
//
// A failed build returns a [*StageError] naming the stage; an image or
// cover that cannot be read is reported as an [*AssetError] carrying its
// source reference. The staging directory is removed after every build, and
// a failure to remove it is reported as a [*CleanupError].
//
// # Checking output
//
// [Verify] reopens a generated archive and checks its container structure.
package epub
