// Package segment groups extracted page texts into logical sections using
// heading heuristics.
package segment

import (
	"strings"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/pdfx"
)

// minSectionWords is the smallest body a section must reach before a new
// heading is allowed to close it. Keeps back-to-back headings (title pages,
// stacked chapter headers) from producing empty sections.
const minSectionWords = 20

// maxTitleLen caps derived titles.
const maxTitleLen = 120

// Section is a logically coherent chunk of document text.
// StartPage/EndPage are 0-based and inclusive.
type Section struct {
	Title      string `json:"title"`
	StartPage  int    `json:"start_page"`
	EndPage    int    `json:"end_page"`
	Text       string `json:"text"`
	WordCount  int    `json:"word_count"`
	HasTable   bool   `json:"has_table"`
	TableCount int    `json:"table_count"`
}

// Segment groups pages into sections. Section boundaries are heading lines;
// pages without a heading continue the open section. A document with no
// detectable headings yields exactly one section spanning every page.
// No content is dropped: every input line lands in exactly one section.
func Segment(pages []pdfx.PageText) []Section {
	if len(pages) == 0 {
		return nil
	}

	tablePages := make(map[int]bool, len(pages))
	for _, p := range pages {
		if p.HasTable {
			tablePages[p.Index] = true
		}
	}

	var sections []Section
	cur := newBuilder(pages[0].Index)

	for _, page := range pages {
		cur.touchPage(page.Index)
		for _, line := range strings.Split(page.Text, "\n") {
			if isHeading(line) {
				if cur.wordCount() >= minSectionWords {
					sections = append(sections, cur.build(tablePages))
					cur = newBuilder(page.Index)
				}
				if cur.title == "" {
					cur.title = truncateTitle(line)
				}
			}
			cur.addLine(line, page.Index)
		}
	}
	sections = append(sections, cur.build(tablePages))

	// Untitled sections (typically the opener of a heading-less document)
	// borrow their first non-empty line as a title.
	for i := range sections {
		if sections[i].Title == "" {
			sections[i].Title = deriveTitle(sections[i].Text)
		}
	}
	return sections
}

// builder accumulates one section's lines and page span.
type builder struct {
	title     string
	lines     []string
	startPage int
	endPage   int
	words     int
}

func newBuilder(page int) *builder {
	return &builder{startPage: page, endPage: page}
}

func (b *builder) addLine(line string, page int) {
	b.lines = append(b.lines, line)
	b.words += len(strings.Fields(line))
	b.touchPage(page)
}

func (b *builder) touchPage(page int) {
	if page < b.startPage {
		b.startPage = page
	}
	if page > b.endPage {
		b.endPage = page
	}
}

func (b *builder) wordCount() int { return b.words }

func (b *builder) build(tablePages map[int]bool) Section {
	text := strings.TrimSpace(strings.Join(b.lines, "\n"))
	tableCount := 0
	for p := b.startPage; p <= b.endPage; p++ {
		if tablePages[p] {
			tableCount++
		}
	}
	return Section{
		Title:      b.title,
		StartPage:  b.startPage,
		EndPage:    b.endPage,
		Text:       text,
		WordCount:  len(strings.Fields(text)),
		HasTable:   tableCount > 0,
		TableCount: tableCount,
	}
}

func truncateTitle(line string) string {
	title := strings.TrimSpace(line)
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	return title
}

func deriveTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return truncateTitle(line)
		}
	}
	return "Untitled"
}
