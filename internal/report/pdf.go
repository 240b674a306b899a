package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// PDFRenderer lays an artifact out as an A4 document.
//
// Core PDF fonts only cover Windows-1252, so characters outside it are
// replaced. Translations into non-Latin scripts should be exported as text.
type PDFRenderer struct {
	pageWidth    float64
	margin       float64
	contentWidth float64
}

// NewPDFRenderer creates a renderer with A4 portrait dimensions in mm.
func NewPDFRenderer() *PDFRenderer {
	margin := 15.0
	pageWidth := 210.0
	return &PDFRenderer{
		pageWidth:    pageWidth,
		margin:       margin,
		contentWidth: pageWidth - 2*margin,
	}
}

func (g *PDFRenderer) Extension(domain.StoredArtifact) string {
	return ".pdf"
}

// Render writes the PDF to w.
func (g *PDFRenderer) Render(ctx context.Context, a domain.StoredArtifact, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := Title(a.Kind)
	pdf.SetTitle(title+" - "+a.FileName, true)
	pdf.SetCreator("Clever Video Summarizer", true)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		r, gr, b := HexToRGB(palette.Muted)
		pdf.SetTextColor(r, gr, b)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s  |  Page %d", a.FileName, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	g.addHeader(pdf, a, title)
	g.addBody(pdf, a, tr)

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (g *PDFRenderer) addHeader(pdf *fpdf.Fpdf, a domain.StoredArtifact, title string) {
	r, gr, b := HexToRGB(palette.Header)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 32, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(g.margin, 10)
	pdf.Cell(0, 10, title)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(g.margin, 20)
	pdf.Cell(0, 6, a.CreatedAt.UTC().Format("January 2, 2006 15:04 MST"))

	r, gr, b = HexToRGB(palette.TextDark)
	pdf.SetTextColor(r, gr, b)
	pdf.SetXY(g.margin, 42)
}

func (g *PDFRenderer) addBody(pdf *fpdf.Fpdf, a domain.StoredArtifact, tr func(string) string) {
	if a.Kind == domain.ArtifactSubtitles {
		g.addCues(pdf, a.Content, tr)
		return
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, para := range strings.Split(strings.ReplaceAll(a.Content, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pdf.MultiCell(g.contentWidth, 5.5, tr(para), "", "L", false)
		pdf.Ln(3)
	}
}

// addCues prints SRT cues with the timing line muted.
func (g *PDFRenderer) addCues(pdf *fpdf.Fpdf, srt string, tr func(string) string) {
	mr, mg, mb := HexToRGB(palette.Muted)
	tr2, tg, tb := HexToRGB(palette.TextDark)

	for _, block := range strings.Split(strings.ReplaceAll(srt, "\r\n", "\n"), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}

		pdf.SetFont("Courier", "", 8)
		pdf.SetTextColor(mr, mg, mb)
		pdf.CellFormat(g.contentWidth, 4, lines[0]+"   "+lines[1], "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(tr2, tg, tb)
		pdf.MultiCell(g.contentWidth, 5.5, tr(strings.Join(lines[2:], "\n")), "", "L", false)
		pdf.Ln(2)
	}
}
