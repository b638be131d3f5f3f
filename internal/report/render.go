package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rpattn/cagetrack/internal/divergence"
	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DateLayout is the day-first layout used for dates in exported files.
const DateLayout = "02/01/2006 15:04"

// ExpeditionSheet names the single worksheet of the XLSX export.
const ExpeditionSheet = "Expedition"

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

var expeditionHeaders = []string{
	"Cage ID",
	"Code",
	"Hospital",
	"Departure Weight (kg)",
	"Arrival Weight (kg)",
	"Dispatch Weight (kg)",
	"Divergence (%)",
	"Stage",
	"Created At",
}

func optionalDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func expeditionRecord(row ExpeditionRow) []string {
	return []string{
		row.CageID.String(),
		row.Code,
		row.HospitalName,
		optionalDecimal(row.DepartureWeight),
		optionalDecimal(row.ArrivalWeight),
		optionalDecimal(row.DispatchWeight),
		optionalDecimal(row.Divergence),
		row.Stage.String(),
		row.CreatedAt.UTC().Format(DateLayout),
	}
}

// WriteCSV writes the expedition rows as UTF-8 CSV prefixed with a byte order mark.
func WriteCSV(w io.Writer, rows []ExpeditionRow) error {
	if _, err := w.Write(byteOrderMark); err != nil {
		return fmt.Errorf("failed to write byte order mark: %w", err)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(expeditionHeaders); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(expeditionRecord(row)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes the expedition rows as a single-sheet workbook. Weights are numeric cells.
func WriteXLSX(w io.Writer, rows []ExpeditionRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ExpeditionSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(expeditionHeaders))
	for i, h := range expeditionHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ExpeditionSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.CageID.String(),
			row.Code,
			row.HospitalName,
			numericCell(row.DepartureWeight, domain.WeightPlaces),
			numericCell(row.ArrivalWeight, domain.WeightPlaces),
			numericCell(row.DispatchWeight, domain.WeightPlaces),
			numericCell(row.Divergence, divergence.Places),
			row.Stage.String(),
			row.CreatedAt.UTC().Format(DateLayout),
		}
		if err := f.SetSheetRow(ExpeditionSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write xlsx row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// numericCell rounds d to places before the float64 conversion, so the cell
// holds the nearest double to the stored value. Spreadsheets keep 15
// significant digits, enough for any weight up to domain.MaxWeight.
func numericCell(d *decimal.Decimal, places int32) any {
	if d == nil {
		return ""
	}
	return d.Round(places).InexactFloat64()
}
