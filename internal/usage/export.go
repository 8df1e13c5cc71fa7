package usage

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/xuri/excelize/v2"

	"newsflash-bot/internal/storage"
)

const exportSheet = "Usage"

var exportHeader = []interface{}{"ID", "User ID", "Username", "Command", "Time (UTC)"}

// ExportXLSX renders the interaction log as a spreadsheet.
func ExportXLSX(ctx context.Context, repo storage.Repository) ([]byte, error) {
	interactions, err := repo.ListInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, in := range interactions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			in.ID,
			in.UserID,
			in.Username,
			in.Command,
			in.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "E", 22); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// Authorized reports whether given matches the configured export password.
// An unset password disables export.
func Authorized(given, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
