package epub

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

// benchChapters builds numChapters chapters of a few paragraphs each, with
// a shared image and a section per chapter.
func benchChapters(numChapters int) []Chapter {
	chapters := make([]Chapter, numChapters)
	for i := range chapters {
		var sb strings.Builder
		fmt.Fprintf(&sb, `<section id="s%d"><h2 class="title">Chapter %d</h2>`, i, i+1)
		for p := 0; p < 5; p++ {
			fmt.Fprintf(&sb, `<p onclick="x()" style="margin:0">Paragraph %d of chapter %d. `+
				`Lorem ipsum dolor sit amet, consectetur adipiscing elit.</p>`, p+1, i+1)
		}
		sb.WriteString(`<img src="pics/shared.png"></section>`)
		chapters[i] = Chapter{Title: fmt.Sprintf("Chapter %d", i+1), Data: sb.String()}
	}
	return chapters
}

func BenchmarkSanitize(b *testing.B) {
	chapters := benchChapters(50)
	for _, v := range []Version{Version2, Version3} {
		b.Run(fmt.Sprintf("epub%d", v), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				s := &sanitizer{version: v, images: newImageIndex(), newID: sequentialIDs(), logger: slog.New(slog.DiscardHandler)}
				for i, ch := range chapters {
					c, err := newChapterEntry(i, ch, ".")
					if err != nil {
						b.Fatal(err)
					}
					if err := s.sanitize(c, ch.Data); err != nil {
						b.Fatal(err)
					}
				}
			}
		})
	}
}

func BenchmarkGenerate(b *testing.B) {
	base := b.TempDir()
	writeTestFile(b, base, "pics/shared.png", tinyPNG)
	opts := Options{
		Title:   "Benchmark Book",
		Content: benchChapters(20),
		Output:  filepath.Join(b.TempDir(), "bench.epub"),
		TempDir: b.TempDir(),
		BaseDir: base,
	}

	b.ReportAllocs()
	for b.Loop() {
		if err := Generate(context.Background(), opts); err != nil {
			b.Fatal(err)
		}
	}
}
