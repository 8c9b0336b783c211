package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// pageBreakY is where a detail row forces a new page (Letter is ~280mm tall).
const pageBreakY = 250.0

// Renderer writes PDF reports into a directory, one timestamped file per run.
type Renderer struct {
	dir string
}

func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Render writes the report PDF and returns its path. The file name embeds
// generatedAt so successive runs never clobber each other.
func (r *Renderer) Render(rep Report, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, "Hermes Feed Analysis Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 8, "Generated on: "+generatedAt.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	r.feedSummary(pdf, tr, rep)
	pdf.Ln(8)
	r.detailTable(pdf, tr, rep)

	name := fmt.Sprintf("report_%s.pdf", generatedAt.Format("20060102_150405"))
	path := filepath.Join(r.dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

// feedSummary renders the per-source entry counts.
func (r *Renderer) feedSummary(pdf *fpdf.Fpdf, tr func(string) string, rep Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Feed Summary", "", 1, "L", false, 0, "")

	counts := map[string]int{}
	for _, row := range rep.Rows {
		counts[row.Source]++
	}
	sources := make([]string, 0, len(counts))
	for s := range counts {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	const nameW, countW = 140.0, 56.0
	pdf.SetFillColor(44, 62, 80)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(nameW, 8, "Feed Name", "1", 0, "C", true, 0, "")
	pdf.CellFormat(countW, 8, "Number of Entries", "1", 1, "C", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	for _, s := range sources {
		name := s
		if name == "" {
			name = "Unknown Feed"
		}
		pdf.CellFormat(nameW, 7, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(countW, 7, fmt.Sprintf("%d", counts[s]), "1", 1, "C", false, 0, "")
	}
}

// detailTable renders one bordered multi-line row per report entry.
func (r *Renderer) detailTable(pdf *fpdf.Fpdf, tr func(string) string, rep Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Detailed Entries", "", 1, "L", false, 0, "")

	widths := []float64{49, 29, 29, 59, 30}
	headers := []string{"Title", "Published", "Deadline", "Analysis", "Link"}

	pdf.SetFillColor(44, 62, 80)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 8, h, "1", ln, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)

	for _, row := range rep.Rows {
		deadline := row.Analysis.Deadline
		if deadline == "No deadline" {
			deadline = ""
		}
		cells := []string{
			row.Title,
			row.Published,
			deadline,
			formatAnalysis(row),
			row.Link,
		}

		if pdf.GetY() > pageBreakY {
			pdf.AddPage()
		}
		left, _ := pdf.GetXY()
		startY := pdf.GetY()
		maxY := startY
		x := left
		for i, text := range cells {
			pdf.SetXY(x, startY)
			pdf.MultiCell(widths[i], 5, tr(text), "1", "L", false)
			if y := pdf.GetY(); y > maxY {
				maxY = y
			}
			x += widths[i]
		}
		pdf.SetXY(left, maxY)
	}
}

// formatAnalysis flattens a row's analysis into the table cell body.
func formatAnalysis(row Row) string {
	var parts []string
	if s := row.Analysis.Summary; s != "" {
		parts = append(parts, "Summary: "+s)
	}
	if s := row.Analysis.Impact; s != "" {
		parts = append(parts, "Impact: "+s)
	}
	if len(row.Analysis.Actions) > 0 {
		parts = append(parts, "Actions:")
		for _, a := range row.Analysis.Actions {
			parts = append(parts, "- "+a)
		}
	}
	return strings.Join(parts, "\n")
}
