package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	monitoring "solarwatch/internal/monitoring/domain"
)

// BuildAlertReportPDF renders a minimal PDF alert report for a tenant.
func BuildAlertReportPDF(tenantID string, alerts []monitoring.Alert) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alert Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Tenant: %s", tenantID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Alerts: %d", len(alerts)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(35, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Plant", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Open", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Started", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Resolved", "1", 0, "C", false, 0, "")
	pdf.CellFormat(85, 6, "Message", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, alert := range alerts {
		resolved := ""
		if !alert.ResolvedAt.IsZero() {
			resolved = alert.ResolvedAt.Format("2006-01-02 15:04")
		}
		open := "no"
		if alert.IsOpen {
			open = "yes"
		}
		pdf.CellFormat(35, 6, string(alert.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, string(alert.Severity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, alert.PlantID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, open, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, alert.StartsAt.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, resolved, "1", 0, "C", false, 0, "")
		pdf.CellFormat(85, 6, alert.Message, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertReportXLSX renders a minimal XLSX alert report for a tenant.
func BuildAlertReportXLSX(tenantID string, alerts []monitoring.Alert) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "alerts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Type", "Severity", "Plant", "Channel", "Fingerprint", "Open", "Started", "Resolved", "Message"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for row, alert := range alerts {
		resolved := ""
		if !alert.ResolvedAt.IsZero() {
			resolved = alert.ResolvedAt.Format(time.RFC3339)
		}
		values := []any{
			string(alert.Type),
			string(alert.Severity),
			alert.PlantID,
			alert.ChannelID,
			alert.Fingerprint,
			alert.IsOpen,
			alert.StartsAt.Format(time.RFC3339),
			resolved,
			alert.Message,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	_ = f.SetCellValue(sheet, "K1", "Tenant")
	_ = f.SetCellValue(sheet, "L1", tenantID)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
