package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse html: %v", err)
	}
	return doc
}

func TestExtractSections(t *testing.T) {
	doc := parseHTML(t, `
		<html><head><title>Elden Ring - ProtonDB</title></head><body>
		<section id="report-1">
			<h2>Great on Deck</h2>
			<p>Runs well.</p>
			<p>Minor stutter.</p>
			<a href="/users/1">someuser</a>
			<img src="/avatar.png" alt="avatar">
			<ul><li>40 fps cap</li><li>8W TDP</li></ul>
			<div>Steam Deck LCD</div>
			<span>2 days ago</span>
		</section>
		<section id="report-2"><div>OLED</div></section>
		</body></html>`)

	content := Extract(doc, "https://example.com/app/1245620")
	if content.Title != "Elden Ring - ProtonDB" {
		t.Fatalf("unexpected title: %q", content.Title)
	}
	if content.URL != "https://example.com/app/1245620" {
		t.Fatalf("unexpected url: %q", content.URL)
	}
	if len(content.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(content.Sections))
	}

	section := content.Sections[0]
	if section.ID != "report-1" {
		t.Fatalf("unexpected section id: %q", section.ID)
	}
	if section.Title == nil || *section.Title != "Great on Deck" {
		t.Fatalf("unexpected section title: %v", section.Title)
	}
	if len(section.Paragraphs) != 2 || section.Paragraphs[0] != "Runs well." {
		t.Fatalf("unexpected paragraphs: %v", section.Paragraphs)
	}
	if len(section.Links) != 1 || section.Links[0].Href != "/users/1" || section.Links[0].Text != "someuser" {
		t.Fatalf("unexpected links: %v", section.Links)
	}
	if len(section.Images) != 1 || section.Images[0].Src != "/avatar.png" {
		t.Fatalf("unexpected images: %v", section.Images)
	}
	if len(section.Lists) != 1 || section.Lists[0].Type != "ul" || len(section.Lists[0].Items) != 2 {
		t.Fatalf("unexpected lists: %v", section.Lists)
	}
	if len(section.OtherText) != 2 || section.OtherText[0] != "Steam Deck LCD" || section.OtherText[1] != "2 days ago" {
		t.Fatalf("unexpected other text: %v", section.OtherText)
	}
}

func TestExtractWithoutSectionsUsesBody(t *testing.T) {
	doc := parseHTML(t, `<html><head><title>Page</title></head><body><p>Hello.</p></body></html>`)

	content := Extract(doc, "https://example.com/")
	if len(content.Sections) != 1 {
		t.Fatalf("expected 1 body section, got %d", len(content.Sections))
	}
	if content.Sections[0].ID != "" {
		t.Fatalf("body section must have no id, got %q", content.Sections[0].ID)
	}
	if len(content.Sections[0].Paragraphs) != 1 || content.Sections[0].Paragraphs[0] != "Hello." {
		t.Fatalf("unexpected paragraphs: %v", content.Sections[0].Paragraphs)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	doc := parseHTML(t, `<html><head><title>Empty</title></head><body>  </body></html>`)

	content := Extract(doc, "https://example.com/")
	if len(content.Sections) != 0 {
		t.Fatalf("expected no sections, got %d", len(content.Sections))
	}
}

func TestExtractPreservesEmptyOtherTextEntries(t *testing.T) {
	doc := parseHTML(t, `
		<html><body><section id="r">
		<div>45fps</div><div></div><div></div><div>60hz</div>
		</section></body></html>`)

	content := Extract(doc, "https://example.com/")
	got := content.Sections[0].OtherText
	if len(got) != 4 {
		t.Fatalf("empty entries must keep their slots, got %v", got)
	}
	if got[0] != "45fps" || got[1] != "" || got[3] != "60hz" {
		t.Fatalf("unexpected other text: %v", got)
	}
}
