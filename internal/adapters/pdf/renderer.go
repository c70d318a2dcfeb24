// Package pdf renders document layouts with pdfcpu.
//
// Layouts are translated into pdfcpu's JSON page description and handed to
// api.Create. Only the standard Helvetica fonts are used, so no font files
// need to be shipped.
package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/semaphore"

	"github.com/example/gendbuntu/internal/core/document"
	"github.com/example/gendbuntu/internal/ports/secondary"
)

// Page geometry in points (A4 portrait).
const (
	marginLeft = 50.0
	marginTop  = 60.0
	lineHeight = 14.0
	footerY    = 810.0
)

type fontSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

var fonts = map[document.Style]fontSpec{
	document.StyleTitle:    {Name: "Helvetica-Bold", Size: 16},
	document.StyleSubtitle: {Name: "Helvetica", Size: 12},
	document.StyleSection:  {Name: "Helvetica-Bold", Size: 11},
	document.StyleBody:     {Name: "Helvetica", Size: 10},
}

type textBox struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  fontSpec   `json:"font"`
}

type pageContent struct {
	Content struct {
		Text []textBox `json:"text"`
	} `json:"content"`
}

// createSpec is the pdfcpu JSON description of a whole document.
type createSpec struct {
	Paper  string                 `json:"paper"`
	Origin string                 `json:"origin"`
	Pages  map[string]pageContent `json:"pages"`
}

// buildSpec translates pages into a pdfcpu create description.
func buildSpec(pages []document.Page) createSpec {
	spec := createSpec{Paper: "A4P", Origin: "UpperLeft", Pages: make(map[string]pageContent, len(pages))}
	for _, p := range pages {
		var pc pageContent
		for i, line := range p.Lines {
			if line.Style == document.StyleBlank || line.Text == "" {
				continue
			}
			pc.Content.Text = append(pc.Content.Text, textBox{
				Value: Sanitize(line.Text),
				Pos:   [2]float64{marginLeft, marginTop + float64(i)*lineHeight},
				Font:  fonts[line.Style],
			})
		}
		pc.Content.Text = append(pc.Content.Text, textBox{
			Value: fmt.Sprintf("Page %d/%d", p.Number, len(pages)),
			Pos:   [2]float64{marginLeft, footerY},
			Font:  fontSpec{Name: "Helvetica", Size: 8},
		})
		spec.Pages[strconv.Itoa(p.Number)] = pc
	}
	return spec
}

// Renderer implements secondary.DocumentRenderer.
// At most workers renderings run at the same time.
type Renderer struct {
	sem    *semaphore.Weighted
	layout document.LayoutOptions
	create func(rd io.Reader, w io.Writer) error
}

// NewRenderer creates a Renderer with a pool of workers.
func NewRenderer(workers int) *Renderer {
	if workers < 1 {
		workers = 1
	}
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	return &Renderer{
		sem:    semaphore.NewWeighted(int64(workers)),
		layout: document.DefaultLayout,
		create: func(rd io.Reader, w io.Writer) error {
			return api.Create(nil, rd, w, conf)
		},
	}
}

// Render lays out doc and produces PDF bytes.
func (r *Renderer) Render(ctx context.Context, doc document.Document) ([]byte, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire render slot: %w", err)
	}
	defer r.sem.Release(1)

	desc, err := json.Marshal(buildSpec(document.Layout(doc, r.layout)))
	if err != nil {
		return nil, fmt.Errorf("failed to encode page description: %w", err)
	}

	var buf bytes.Buffer
	if err := r.create(bytes.NewReader(desc), &buf); err != nil {
		return nil, fmt.Errorf("failed to create PDF for %s: %w", doc.Identifier, err)
	}
	return buf.Bytes(), nil
}

var _ secondary.DocumentRenderer = (*Renderer)(nil)
