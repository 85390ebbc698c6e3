package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/pkg/money"
	"corp-tax-agent-be/pkg/retrieval"
	"corp-tax-agent-be/pkg/tax/evaluator"

	"github.com/go-pdf/fpdf"
)

// Renderer turns an accepted result into document bytes.
type Renderer interface {
	Render(result *entity.CalcResult, facts *entity.FinancialFacts, comparison *retrieval.Comparison) ([]byte, error)
}

// PDFRenderer lays the report out on A4 with the core Helvetica font.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(result *entity.CalcResult, facts *entity.FinancialFacts, comparison *retrieval.Comparison) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(result.CreatedAt)
	pdf.SetModificationDate(result.CreatedAt)
	pdf.SetTitle("Corporate tax calculation", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Corporate tax calculation", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	subject := result.Subject
	if result.SubjectName != "" && result.SubjectName != result.Subject {
		subject = fmt.Sprintf("%s (%s)", result.SubjectName, result.Subject)
	}
	meta := [][2]string{
		{"Subject", subject},
		{"Period", result.Period},
		{"Snapshot", fmt.Sprintf("%s (%s)", result.SnapshotVersion, result.Formula)},
		{"Provenance", string(result.Provenance)},
		{"Calculated at", result.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	for _, kv := range meta {
		pdf.CellFormat(40, 6, kv[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if facts != nil && len(facts.Items) > 0 {
		section(pdf, "Financial facts")
		names := make([]string, 0, len(facts.Items))
		for name := range facts.Items {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			row(pdf, name, money.Group(facts.Items[name]))
		}
		pdf.Ln(4)
	}

	section(pdf, "Line items")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(100, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(80, 7, "Amount (KRW)", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, li := range result.LineItems {
		pdf.CellFormat(100, 7, li.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(80, 7, money.Group(li.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(100, 7, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(80, 7, money.Group(result.Total), "1", 1, "R", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Assessment")
	row(pdf, "Effective rate", money.Percent(evaluator.EffectiveRate(result))+"%")
	row(pdf, "Confidence", fmt.Sprintf("%.4f", result.Confidence))
	concerns := "none"
	if len(result.Concerns) > 0 {
		concerns = strings.Join(result.Concerns, "\n")
	}
	pdf.CellFormat(60, 6, "Concerns", "", 0, "L", false, 0, "")
	pdf.MultiCell(0, 6, tr(concerns), "", "L", false)

	if !comparison.Empty() {
		pdf.Ln(4)
		section(pdf, "Comparison with past calculations")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(235, 235, 235)
		for _, h := range []struct {
			w     float64
			label string
		}{{30, "Period"}, {45, "Snapshot"}, {25, "Provenance"}, {45, "Total"}, {35, "Change %"}} {
			pdf.CellFormat(h.w, 7, h.label, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, cr := range comparison.Rows {
			change := "n/a"
			if cr.ChangePct != nil {
				change = cr.ChangePct.StringFixed(2) + "%"
			}
			pdf.CellFormat(30, 7, cr.Period, "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 7, cr.SnapshotVersion, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, string(cr.Provenance), "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 7, money.Group(cr.Total), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, change, "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func row(pdf *fpdf.Fpdf, label, value string) {
	pdf.CellFormat(60, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}
