package epub

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// octetStream is recorded for references whose type cannot be determined
// from their name.
const octetStream = "application/octet-stream"

// imageMediaTypes maps lowercase file extensions to the media types ePub
// reading systems accept for images.
var imageMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".avif": "image/avif",
}

// fontMediaTypes maps font extensions to manifest media types.
var fontMediaTypes = map[string]string{
	".ttf":   "application/x-font-ttf",
	".otf":   "application/vnd.ms-opentype",
	".woff":  "application/font-woff",
	".woff2": "font/woff2",
}

// referencePath returns the path component of ref with any query string
// and fragment removed. It accepts both URLs and plain file paths.
func referencePath(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if hasURIScheme(ref) {
		if u, err := url.Parse(ref); err == nil {
			return u.Path
		}
	}
	return ref
}

// referenceExt returns the lowercase extension of ref, including the dot.
func referenceExt(ref string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(referencePath(ref), `\`, "/")))
}

// mediaTypeOf resolves the media type of an image reference from its
// extension. Unknown extensions yield octetStream.
func mediaTypeOf(ref string) string {
	ext := referenceExt(ref)
	if ext == "" {
		return octetStream
	}
	if mt, ok := imageMediaTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
	}
	return octetStream
}

// extensionFor derives a file extension (without dot) for mediaType.
// When the media type is unknown the extension of ref is used as written.
func extensionFor(mediaType, ref string) string {
	if mediaType != octetStream {
		if mt := mimetype.Lookup(mediaType); mt != nil && mt.Extension() != "" {
			return strings.TrimPrefix(mt.Extension(), ".")
		}
	}
	return strings.TrimPrefix(referenceExt(ref), ".")
}

// fontMediaType resolves the manifest media type of a font file.
func fontMediaType(name string) string {
	if mt, ok := fontMediaTypes[strings.ToLower(path.Ext(name))]; ok {
		return mt
	}
	return fontMediaTypes[".ttf"]
}
