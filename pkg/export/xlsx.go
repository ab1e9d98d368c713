// Package export renders data sets into downloadable spreadsheet files.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"unistock/internal/domain/ledger"
)

const ledgerSheet = "Ledger"

// WriteLedgerXLSX renders ledger entries as an XLSX workbook to w.
func WriteLedgerXLSX(w io.Writer, entries []ledger.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", ledgerSheet)

	headers := []string{"ID", "Item", "Variant", "Lot", "Qty Delta", "Kind", "Ref Type", "Ref ID", "Notes", "Created By", "Created At"}
	for i, head := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(ledgerSheet, cell, head); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}

	for row, e := range entries {
		values := []any{
			e.ID.String(),
			e.ItemID.String(),
			e.VariantID.String(),
			string(e.Lot),
			int64(e.QtyDelta),
			string(e.Kind),
			e.RefType,
			e.RefID.String(),
			e.Notes,
			e.CreatedBy,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(ledgerSheet, cell, v); err != nil {
				return fmt.Errorf("set cell: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
