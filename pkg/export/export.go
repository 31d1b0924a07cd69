package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/models"
)

const (
	SheetName   = "Notifications"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var Headers = []string{
	"Created At", "Title", "Message", "Type", "Priority", "Category", "Source",
	"Status", "Read At", "Starred", "Action Required", "Rule", "Correlation", "Expires At", "ID",
}

var columnWidths = []float64{20, 36, 60, 12, 10, 14, 18, 14, 20, 9, 16, 22, 36, 20, 38}

func row(n models.Notification) []any {
	rule := ""
	if n.RuleID != nil {
		rule = *n.RuleID
	}
	return []any{
		n.CreatedAt.UTC().Format(time.RFC3339),
		n.Title,
		n.Message,
		string(n.Type),
		string(n.Priority),
		string(n.Category),
		n.Source,
		string(n.Status),
		formatTime(n.ReadAt),
		yesNo(n.Starred),
		yesNo(n.ActionRequired),
		rule,
		n.CorrelationID,
		formatTime(n.ExpiresAt),
		n.ID,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// NotificationsXLSX renders an inbox history as a single-sheet workbook with a
// frozen header row.
func NotificationsXLSX(items []models.Notification) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("export: create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export: drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("export: header row: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("export: column width: %w", err)
		}
	}

	for i, values := range common.Mapper(items, row) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("export: freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
