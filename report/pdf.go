package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/workx/transition-engine/severance"
)

// PDF writes a single A4 page with the calculation breakdown in Helvetica.
type PDF struct {
	FontSize int
	Leading  int
}

// NewPDF returns the exporter with default typography.
func NewPDF() *PDF {
	return &PDF{FontSize: 10, Leading: 15}
}

// Export renders doc. Output is deterministic for identical documents.
func (p *PDF) Export(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	content, err := p.content(Lines(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%EOF\n", len(objects)+1, xref)

	return buf.Bytes(), nil
}

var winAnsi = encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

func (p *PDF) content(lines []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "BT\n/F1 %d Tf\n%d TL\n50 790 Td\n", p.FontSize, p.Leading)
	for _, line := range lines {
		encoded, err := winAnsi.String(line)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "(%s) Tj T*\n", escapeText(encoded))
	}
	b.WriteString("ET")
	return b.String(), nil
}

// escapeText escapes the PDF string delimiters.
func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", " ", "\n", " ")
	return r.Replace(s)
}

// Lines is the printed breakdown, one entry per text line.
func Lines(doc Document) []string {
	r := doc.Result
	in := doc.Inputs
	money := func(label string, v decimal.Decimal) string {
		return fmt.Sprintf("  %-34s EUR %s", label, severance.FormatMoney(v))
	}

	lines := []string{
		"Transitievergoeding - berekening",
	}
	if doc.Branding.FirmName != "" {
		lines = append(lines, doc.Branding.FirmName)
	}
	lines = append(lines, "")
	if doc.ID != "" {
		lines = append(lines, "Referentie: "+doc.ID)
	}
	lines = append(lines,
		"Werkgever: "+orDash(doc.Party.EmployerName),
		"Werknemer: "+orDash(doc.Party.EmployeeName),
		fmt.Sprintf("Dienstverband: %s t/m %s", doc.Period.Start, doc.Period.End),
		fmt.Sprintf("Diensttijd: %d jaar en %d maanden (%d maanden)", r.TenureYears, r.TenureMonths, r.TenureTotalMonths),
		"",
		"Maandsalaris",
		money("Bruto maandsalaris", in.MonthlyBaseSalary.Decimal),
		money(fmt.Sprintf("Vakantiegeld (%s%%)", in.VacationAllowancePercent), r.VacationAllowance),
	)
	if in.IncludesThirteenthMonth {
		lines = append(lines, money(fmt.Sprintf("13e maand (%s%%)", in.ThirteenthMonthPercent), r.ThirteenthMonth))
	}
	switch b := in.Bonus.(type) {
	case severance.FixedBonus:
		lines = append(lines, money("Vaste bonus", r.BonusMonthly))
	case severance.AveragedBonus:
		for _, y := range b.Years {
			lines = append(lines, money(fmt.Sprintf("  Bonus %d", y.Year), y.Total))
		}
		lines = append(lines, money("Gemiddelde bonus per maand", r.BonusMonthly))
	}
	lines = append(lines,
		money("Overwerk", in.OvertimeMonthlyAmount),
		money("Overige emolumenten", in.OtherMonthlyAmount),
		money("Totaal maandsalaris", r.TotalMonthlySalary),
		money("Jaarsalaris", r.YearlySalary),
		"",
		"Berekening",
		money("Transitievergoeding (ongemaximeerd)", r.RawAmount),
		money(fmt.Sprintf("Wettelijk maximum %d", r.CapYear), r.StatutoryCap),
		money("Toegepast maximum", r.CapValueUsed),
	)
	if r.CapApplied {
		lines = append(lines, "  Maximum toegepast: ja")
	} else {
		lines = append(lines, "  Maximum toegepast: nee")
	}
	lines = append(lines,
		money("Transitievergoeding", r.CappedAmount),
		"",
	)
	if in.PensionConsidered {
		lines = append(lines, "Pensioen is meegewogen (informatief, geen invloed op de berekening).")
	}
	if doc.Branding.Footer != "" {
		lines = append(lines, doc.Branding.Footer)
	}
	return lines
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
