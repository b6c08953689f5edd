package interfaces

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	billing "community-ledger/internal/billing/domain"
	period "community-ledger/internal/period/domain"
)

// TargetLabeler resolves a display label for a bill target. A nil labeler
// falls back to kind plus id.
type TargetLabeler func(target billing.BillTarget) string

func labelTarget(labeler TargetLabeler, target billing.BillTarget) string {
	if labeler != nil {
		if label := labeler(target); label != "" {
			return label
		}
	}
	return fmt.Sprintf("%s %d", target.Kind, target.ID)
}

func totalsByType(bills []billing.Bill) map[billing.BillType]decimal.Decimal {
	totals := make(map[billing.BillType]decimal.Decimal)
	for _, bill := range bills {
		totals[bill.Type] = totals[bill.Type].Add(bill.Amount)
	}
	return totals
}

var statementTypes = []billing.BillType{
	billing.TypeMain,
	billing.TypeConservation,
	billing.TypeElectricity,
	billing.TypeSharedElectricity,
}

// BuildPeriodStatementPDF renders a minimal PDF for a period's bills.
func BuildPeriodStatementPDF(p *period.ServicePeriod, bills []billing.Bill, labeler TargetLabeler) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Period Billing Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", p.Name))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("From: %s", p.StartDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("To: %s", p.EndDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", p.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Bills: %d", len(bills)))
	pdf.Ln(8)

	totals := totalsByType(bills)
	grand := decimal.Zero
	for _, billType := range statementTypes {
		total, ok := totals[billType]
		if !ok {
			continue
		}
		grand = grand.Add(total)
		pdf.Cell(0, 6, fmt.Sprintf("Total %s: %s", billType, total.StringFixed(2)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Total: %s", grand.StringFixed(2)))
	pdf.Ln(8)

	// Bills table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Target", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, bill := range bills {
		pdf.CellFormat(60, 6, labelTarget(labeler, bill.Target), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, string(bill.Type), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, bill.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPeriodStatementXLSX renders a minimal XLSX for a period's bills.
func BuildPeriodStatementXLSX(p *period.ServicePeriod, bills []billing.Bill, labeler TargetLabeler) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	billsSheet := "bills"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(billsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Period Billing Statement")
	_ = f.SetCellValue(summarySheet, "A3", "Period")
	_ = f.SetCellValue(summarySheet, "B3", p.Name)
	_ = f.SetCellValue(summarySheet, "A4", "From")
	_ = f.SetCellValue(summarySheet, "B4", p.StartDate.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "To")
	_ = f.SetCellValue(summarySheet, "B5", p.EndDate.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Status")
	_ = f.SetCellValue(summarySheet, "B6", string(p.Status))
	_ = f.SetCellValue(summarySheet, "A7", "Bills")
	_ = f.SetCellValue(summarySheet, "B7", len(bills))

	totals := totalsByType(bills)
	row := 9
	grand := decimal.Zero
	for _, billType := range statementTypes {
		total, ok := totals[billType]
		if !ok {
			continue
		}
		grand = grand.Add(total)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("Total %s", billType))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), total.StringFixed(2))
		row++
	}
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Total")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), grand.StringFixed(2))

	_ = f.SetCellValue(billsSheet, "A1", "Target")
	_ = f.SetCellValue(billsSheet, "B1", "Type")
	_ = f.SetCellValue(billsSheet, "C1", "Amount")
	_ = f.SetCellValue(billsSheet, "D1", "Created")
	for i, bill := range bills {
		row := i + 2
		_ = f.SetCellValue(billsSheet, fmt.Sprintf("A%d", row), labelTarget(labeler, bill.Target))
		_ = f.SetCellValue(billsSheet, fmt.Sprintf("B%d", row), string(bill.Type))
		_ = f.SetCellValue(billsSheet, fmt.Sprintf("C%d", row), bill.Amount.StringFixed(2))
		_ = f.SetCellValue(billsSheet, fmt.Sprintf("D%d", row), bill.CreatedAt.Format("2006-01-02"))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
