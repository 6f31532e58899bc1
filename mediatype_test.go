package epub

import "testing"

func TestMediaTypeOf(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"photo.jpg", "image/jpeg"},
		{"photo.JPEG", "image/jpeg"},
		{"images/diagram.png", "image/png"},
		{"https://example.com/a/b.gif?size=large#frag", "image/gif"},
		{"file:///tmp/vector.svg", "image/svg+xml"},
		{"pic.webp", "image/webp"},
		{"https://example.com/image", octetStream},
		{"noext", octetStream},
		{"", octetStream},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := mediaTypeOf(tt.ref); got != tt.want {
				t.Errorf("mediaTypeOf(%q) = %q; want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		mediaType string
		ref       string
		want      string
	}{
		{"image/jpeg", "photo.jpeg", "jpg"},
		{"image/png", "a.png", "png"},
		{"image/gif", "a.gif?x=1", "gif"},
		{octetStream, "blob.xyz", "xyz"},
		{octetStream, "blob", ""},
	}
	for _, tt := range tests {
		if got := extensionFor(tt.mediaType, tt.ref); got != tt.want {
			t.Errorf("extensionFor(%q, %q) = %q; want %q", tt.mediaType, tt.ref, got, tt.want)
		}
	}
}

func TestFontMediaType(t *testing.T) {
	tests := map[string]string{
		"Serif.ttf":   "application/x-font-ttf",
		"Serif.OTF":   "application/vnd.ms-opentype",
		"Serif.woff":  "application/font-woff",
		"Serif.woff2": "font/woff2",
		"Serif":       "application/x-font-ttf",
	}
	for name, want := range tests {
		if got := fontMediaType(name); got != want {
			t.Errorf("fontMediaType(%q) = %q; want %q", name, got, want)
		}
	}
}
