// Package document builds the printable layout of a record.
// This is part of the Functional Core - no I/O, only pure functions.
//
// A layout is a list of styled text lines split into pages. Renderers turn it
// into bytes; identical input always yields an identical layout.
package document

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/gendbuntu/internal/core/record"
)

// Style selects the typography of a line.
type Style int

const (
	StyleTitle Style = iota
	StyleSubtitle
	StyleSection
	StyleBody
	StyleBlank
)

// Line is one printed line.
type Line struct {
	Text  string
	Style Style
}

// Page is a numbered group of lines.
type Page struct {
	Number int
	Lines  []Line
}

// Entry is one labelled value of the metadata block.
type Entry struct {
	Label string
	Value string
}

// Document is the printable content of a record.
type Document struct {
	Kind       record.Kind
	Title      string
	Identifier string
	Subtype    string // PV or PVE, legal PVs only
	Headline   string
	Metadata   []Entry
	Paragraphs []string
}

// Source is the record data a document is built from.
type Source struct {
	Kind       record.Kind
	Identifier string
	Status     string
	CreatedBy  string
	CreatedAt  time.Time
	Fields     record.Fields
}

const (
	dateFormat     = "02/01/2006"
	dateTimeFormat = "02/01/2006 15:04"
)

// Build assembles the document of a record.
func Build(src Source) (Document, error) {
	spec, ok := record.Lookup(src.Kind)
	if !ok {
		return Document{}, fmt.Errorf("unknown record kind %q", src.Kind)
	}

	doc := Document{
		Kind:       src.Kind,
		Title:      spec.Title,
		Identifier: src.Identifier,
	}
	if src.Kind == record.KindLegalPV {
		doc.Subtype = strings.ToUpper(src.Fields["type"])
	}
	if spec.HeadlineField != "" {
		doc.Headline = src.Fields[spec.HeadlineField]
	}
	if spec.BodyField != "" {
		doc.Paragraphs = SplitParagraphs(src.Fields[spec.BodyField])
	}

	if !src.CreatedAt.IsZero() {
		doc.Metadata = append(doc.Metadata, Entry{Label: "Date de rédaction", Value: src.CreatedAt.Format(dateTimeFormat)})
	}
	if src.CreatedBy != "" {
		doc.Metadata = append(doc.Metadata, Entry{Label: "Rédigé par", Value: src.CreatedBy})
	}
	if src.Status != "" {
		doc.Metadata = append(doc.Metadata, Entry{Label: "Statut", Value: src.Status})
	}
	for _, f := range spec.Fields {
		if f.Name == spec.HeadlineField || f.Name == spec.BodyField {
			continue
		}
		if doc.Subtype != "" && f.Name == "type" {
			continue
		}
		v := strings.TrimSpace(src.Fields[f.Name])
		if v == "" {
			continue
		}
		if f.Date {
			v = formatDate(v)
		}
		doc.Metadata = append(doc.Metadata, Entry{Label: f.Label, Value: v})
	}
	return doc, nil
}

func formatDate(v string) string {
	t, err := record.ParseDate(v)
	if err != nil {
		return v
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(dateFormat)
	}
	return t.Format(dateTimeFormat)
}

// SplitParagraphs splits free text on newlines.
// Empty lines are kept as blank paragraphs, never collapsed.
func SplitParagraphs(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// Wrap breaks a paragraph into lines of at most width runes.
// A blank paragraph yields a single empty line. Words longer than width are cut.
// Widths below one are treated as one.
func Wrap(paragraph string, width int) []string {
	if width < 1 {
		width = 1
	}
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curLen = 0
	}

	for _, w := range words {
		for utf8.RuneCountInString(w) > width {
			if curLen > 0 {
				flush()
			}
			r := []rune(w)
			lines = append(lines, string(r[:width]))
			w = string(r[width:])
		}
		n := utf8.RuneCountInString(w)
		if n == 0 {
			continue
		}
		if curLen > 0 && curLen+1+n > width {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += n
	}
	if curLen > 0 {
		flush()
	}
	return lines
}

// LayoutOptions controls line width and page length.
type LayoutOptions struct {
	Width        int
	LinesPerPage int
}

// DefaultLayout fits an A4 page with 50pt margins at 11pt body text.
var DefaultLayout = LayoutOptions{Width: 90, LinesPerPage: 52}

// Lines flattens the document into styled lines.
func (d Document) Lines(width int) []Line {
	lines := []Line{{Text: d.Title, Style: StyleTitle}}
	lines = append(lines, Line{Text: "N° " + d.Identifier, Style: StyleSubtitle})
	if d.Subtype != "" {
		lines = append(lines, Line{Text: "Type: " + d.Subtype, Style: StyleSubtitle})
	}
	lines = append(lines, Line{Style: StyleBlank})

	if len(d.Metadata) > 0 {
		lines = append(lines, Line{Text: "Informations", Style: StyleSection})
		for _, e := range d.Metadata {
			for _, l := range Wrap(e.Label+": "+e.Value, width) {
				lines = append(lines, Line{Text: l, Style: StyleBody})
			}
		}
		lines = append(lines, Line{Style: StyleBlank})
	}

	if d.Headline != "" {
		for _, l := range Wrap(d.Headline, width) {
			lines = append(lines, Line{Text: l, Style: StyleSection})
		}
		lines = append(lines, Line{Style: StyleBlank})
	}

	for _, p := range d.Paragraphs {
		for _, l := range Wrap(p, width) {
			style := StyleBody
			if l == "" {
				style = StyleBlank
			}
			lines = append(lines, Line{Text: l, Style: style})
		}
	}
	return lines
}

// Layout wraps and paginates the document. It always returns at least one page.
func Layout(d Document, opts LayoutOptions) []Page {
	if opts.Width <= 0 {
		opts.Width = DefaultLayout.Width
	}
	if opts.LinesPerPage <= 0 {
		opts.LinesPerPage = DefaultLayout.LinesPerPage
	}
	return Paginate(d.Lines(opts.Width), opts.LinesPerPage)
}

// Paginate groups lines into pages of at most perPage lines.
func Paginate(lines []Line, perPage int) []Page {
	var pages []Page
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, Page{Number: len(pages) + 1, Lines: lines[start:end]})
	}
	if len(pages) == 0 {
		pages = append(pages, Page{Number: 1})
	}
	return pages
}

// FileName is the persisted file name of a rendering. The timestamp keeps
// regenerated documents from overwriting earlier ones.
func FileName(prefix, identifier string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d.pdf", prefix, identifier, at.UnixMilli())
}

// DownloadName is the attachment name of an on-demand rendering.
func DownloadName(kind record.Kind, identifier string) string {
	prefix := "pv"
	if spec, ok := record.Lookup(kind); ok && spec.Prefix != "" {
		prefix = strings.ToLower(spec.Prefix)
	}
	return fmt.Sprintf("%s-%s.pdf", prefix, identifier)
}

// ContentType is the media type of rendered documents.
const ContentType = "application/pdf"

// Caption is the message sent with a notified document.
func Caption(identifier, title string) string {
	return fmt.Sprintf("Nouveau compte-rendu: %s\n%s", identifier, title)
}
