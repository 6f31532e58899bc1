package epub

import (
	"fmt"
	"reflect"
	"testing"
)

// testChapters builds entries from (beforeToc, excludeFromToc) flag pairs.
func testChapters(flags ...[2]bool) []*chapterEntry {
	chapters := make([]*chapterEntry, len(flags))
	for i, f := range flags {
		chapters[i] = &chapterEntry{
			index:          i,
			title:          fmt.Sprintf("C%d", i),
			href:           fmt.Sprintf("%d_c%d.xhtml", i, i),
			id:             fmt.Sprintf("item_%d", i),
			beforeToc:      f[0],
			excludeFromToc: f[1],
		}
	}
	return chapters
}

func TestBuildSpine(t *testing.T) {
	// 0: before, 1: after, 2: excluded, 3: before+excluded, 4: before, 5: after
	chapters := testChapters(
		[2]bool{true, false},
		[2]bool{false, false},
		[2]bool{false, true},
		[2]bool{true, true},
		[2]bool{true, false},
		[2]bool{false, false},
	)
	got := buildSpine(chapters)
	want := []string{"content_0_item_0", "content_4_item_4", "toc", "content_1_item_1", "content_5_item_5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildSpine() = %q; want %q", got, want)
	}
}

func TestBuildSpine_PartitionInvariant(t *testing.T) {
	// Every combination of flags over four chapters.
	for mask := 0; mask < 1<<8; mask++ {
		flags := make([][2]bool, 4)
		for i := range flags {
			flags[i] = [2]bool{mask&(1<<(2*i)) != 0, mask&(1<<(2*i+1)) != 0}
		}
		chapters := testChapters(flags...)
		spine := buildSpine(chapters)

		pos := make(map[string]int, len(spine))
		for i, id := range spine {
			pos[id] = i
		}
		tocPos, ok := pos[tocID]
		if !ok {
			t.Fatalf("mask %08b: spine %q has no toc", mask, spine)
		}
		for _, c := range chapters {
			p, in := pos[c.manifestID()]
			switch {
			case c.excludeFromToc:
				if in {
					t.Errorf("mask %08b: excluded %s in spine", mask, c.manifestID())
				}
			case c.beforeToc:
				if !in || p >= tocPos {
					t.Errorf("mask %08b: %s not before toc in %q", mask, c.manifestID(), spine)
				}
			default:
				if !in || p <= tocPos {
					t.Errorf("mask %08b: %s not after toc in %q", mask, c.manifestID(), spine)
				}
			}
		}
		for i := 1; i < len(spine); i++ {
			if spine[i-1] != tocID && spine[i] != tocID {
				a, b := chapterIndex(t, chapters, spine[i-1]), chapterIndex(t, chapters, spine[i])
				if a >= b {
					t.Errorf("mask %08b: spine out of input order: %q", mask, spine)
				}
			}
		}
	}
}

func chapterIndex(t *testing.T, chapters []*chapterEntry, id string) int {
	t.Helper()
	for _, c := range chapters {
		if c.manifestID() == id {
			return c.index
		}
	}
	t.Fatalf("unknown spine id %q", id)
	return -1
}

func TestBuildManifest(t *testing.T) {
	chapters := testChapters([2]bool{false, false}, [2]bool{false, true})
	images := []ImageAsset{
		{ID: "a", MediaType: "image/png", Extension: "png"},
		{ID: "b", MediaType: "image/jpeg", Extension: "jpg"},
	}
	fonts := []fontAsset{{filename: "Serif.ttf", mediaType: "application/x-font-ttf"}}
	cover := &CoverAsset{MediaType: "image/jpeg", Extension: "jpg"}

	t.Run("epub3", func(t *testing.T) {
		items := buildManifest(Version3, chapters, images, fonts, cover)
		want := []manifestItem{
			{ID: "ncx", Href: "toc.ncx", MediaType: ncxType},
			{ID: "toc", Href: "toc.xhtml", MediaType: xhtmlType, Properties: "nav"},
			{ID: "css", Href: "style.css", MediaType: cssType},
			{ID: "image_cover", Href: "cover.jpg", MediaType: "image/jpeg", Properties: "cover-image"},
			{ID: "image_0", Href: "images/a.png", MediaType: "image/png"},
			{ID: "image_1", Href: "images/b.jpg", MediaType: "image/jpeg"},
			{ID: "content_0_item_0", Href: "0_c0.xhtml", MediaType: xhtmlType},
			{ID: "content_1_item_1", Href: "1_c1.xhtml", MediaType: xhtmlType},
			{ID: "font_0", Href: "fonts/Serif.ttf", MediaType: "application/x-font-ttf"},
		}
		if !reflect.DeepEqual(items, want) {
			t.Errorf("buildManifest() =\n%+v\nwant\n%+v", items, want)
		}
	})

	t.Run("epub2 has no properties", func(t *testing.T) {
		for _, item := range buildManifest(Version2, chapters, images, fonts, cover) {
			if item.Properties != "" {
				t.Errorf("item %s has properties %q", item.ID, item.Properties)
			}
		}
	})

	t.Run("unique ids", func(t *testing.T) {
		seen := map[string]bool{}
		for _, item := range buildManifest(Version3, chapters, images, fonts, cover) {
			if seen[item.ID] {
				t.Errorf("duplicate id %s", item.ID)
			}
			seen[item.ID] = true
		}
	})

	t.Run("no cover", func(t *testing.T) {
		for _, item := range buildManifest(Version3, chapters, nil, nil, nil) {
			if item.ID == coverID {
				t.Errorf("cover item without cover")
			}
		}
	})
}

func TestParseOPF(t *testing.T) {
	data := []byte("\xEF\xBB\xBF" + `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="BookId">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="BookId">urn:uuid:1</dc:identifier>
    <dc:title>T</dc:title>
  </metadata>
  <manifest><item id="a" href="a.xhtml" media-type="application/xhtml+xml" properties="nav"/></manifest>
  <spine toc="ncx"><itemref idref="a"/></spine>
</package>`)
	pkg, err := parseOPF(data)
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if pkg.Version != "3.0" || pkg.Spine.Toc != "ncx" || len(pkg.Spine.ItemRefs) != 1 {
		t.Errorf("package = %+v", pkg)
	}
	if len(pkg.Metadata.Titles) != 1 || pkg.Metadata.Titles[0] != "T" {
		t.Errorf("titles = %q", pkg.Metadata.Titles)
	}
	if pkg.Manifest.Items[0].Properties != "nav" {
		t.Errorf("manifest = %+v", pkg.Manifest.Items)
	}

	if _, err := parseOPF([]byte("<package><broken")); err == nil {
		t.Error("parseOPF accepted malformed XML")
	}
}
