package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/hyperjump/rfqrocket/internal/models"
)

// Run and paragraph measures, in half-points and twips.
const (
	titleSize      = 32
	headingSize    = 28
	headingSpacing = 240
	bulletIndent   = 360
)

// DOCXRenderer writes a WordprocessingML document: a centered title, the
// generation date, then one heading per section with "Key: Value" lines for
// mappings and bullets for lists.
type DOCXRenderer struct{}

// Ext returns "docx".
func (DOCXRenderer) Ext() string { return FormatDOCX }

// Render writes the .docx package for rec to w.
func (DOCXRenderer) Render(w io.Writer, rec models.Record, meta Meta) error {
	doc := docx.New().WithDefaultTheme().WithA4Page()

	title := doc.AddParagraph().Justification("center")
	addText(title, DocumentTitle).Bold().Size(strconv.Itoa(titleSize))
	if !meta.GeneratedAt.IsZero() {
		p := doc.AddParagraph().Justification("center")
		addText(p, "Generated on "+meta.GeneratedAt.Format("January 02, 2006"))
	}
	if meta.SourceName != "" {
		p := doc.AddParagraph().Justification("center")
		addText(p, "Source: "+meta.SourceName)
	}

	sections(rec, func(f models.Field, entries []Entry, items []string) {
		heading := doc.AddParagraph()
		heading.Properties = &docx.ParagraphProperties{Spacing: &docx.Spacing{Before: headingSpacing}}
		addText(heading, f.Title()).Bold().Size(strconv.Itoa(headingSize))
		if len(entries) == 0 && len(items) == 0 {
			addText(doc.AddParagraph(), "Not specified").Italic()
			return
		}
		for _, e := range entries {
			p := doc.AddParagraph()
			addText(p, e.Key+": ").Bold()
			addText(p, e.Value)
		}
		for _, item := range items {
			p := doc.AddParagraph()
			p.Properties = &docx.ParagraphProperties{Ind: &docx.Ind{Left: bulletIndent}}
			addText(p, "• "+item)
		}
	})

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

// addText appends a run holding text to p with whitespace preserved.
func addText(p *docx.Paragraph, text string) *docx.Run {
	r := p.AddText(text)
	for _, c := range r.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	return r
}
