package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/minvoker/tariff-calculator/internal/billing"
)

// Invoice renders a calculation as a printable PDF invoice.
func Invoice(w io.Writer, customerID string, period billing.Period, result *billing.CalcResult) error {
	if result == nil {
		return errors.New("export: nil result")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Electricity Statement", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Customer: %s", customerID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Billing period: %s to %s (end exclusive)",
		period.Start.Format("2006-01-02"), period.End.Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{80, 30, 25, 35}
	headers := []string{"Component", "Units used", "Unit", fmt.Sprintf("Cost (%s)", result.Units)}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, id := range sortedComponentIDs(result) {
		line := result.Breakdown[id]
		pdf.CellFormat(widths[0], 6, id, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%.4f", line.UnitsUsed), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, line.UnitLabel, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.4f", line.Cost), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[3], 7, fmt.Sprintf("%.4f", result.TotalCost), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	return pdf.Output(w)
}
