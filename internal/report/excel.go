// Package report renders admin booking reports as Excel workbooks.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"courtside/internal/models"
)

var bookingColumns = []string{
	"ID", "Status", "Court", "Coach", "User ID",
	"Start", "End", "Equipment", "Total Price", "Created",
}

// WriteBookings writes the bookings as a single-sheet workbook to w.
func WriteBookings(w io.Writer, sheetName string, bookings []models.Booking) error {
	if sheetName == "" {
		sheetName = "Bookings"
	}
	// Excel caps sheet names at 31 chars.
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	for i, col := range bookingColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(bookingColumns), 1)
		_ = f.SetCellStyle(sheetName, startCell, endCell, style)
	}

	for rowIdx, b := range bookings {
		row := []any{
			b.ID,
			string(b.Status),
			b.CourtName,
			b.CoachName,
			b.UserID,
			b.StartTime.Format(time.RFC3339),
			b.EndTime.Format(time.RFC3339),
			formatEquipment(b.Equipment),
			b.TotalPrice,
			b.CreatedAt.Format(time.RFC3339),
		}
		for colIdx, val := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("write row %d: %w", rowIdx+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return f.Close()
}

func formatEquipment(lines []models.EquipmentLine) string {
	if len(lines) == 0 {
		return ""
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%d x%d", l.EquipmentID, l.Quantity)
	}
	return strings.Join(parts, ", ")
}
