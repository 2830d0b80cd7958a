package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/salesdash/internal/models"
	"github.com/xuri/excelize/v2"
)

const ExcelSheet = "Dashboard Data"

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []models.SalesRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(recordFields(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExcel writes rows as a single-sheet workbook.
func WriteExcel(w io.Writer, rows []models.SalesRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExcelSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(ExcelSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.Date.Format(models.DateLayout), r.Region, r.Product, r.Sales, r.Revenue}
		if err := f.SetSheetRow(ExcelSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadExcel parses a workbook produced by WriteExcel.
func ReadExcel(r io.Reader) ([]models.SalesRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := ExcelSheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	rows := make([]models.SalesRecord, 0)
	if len(grid) == 0 {
		return rows, nil
	}
	cols, err := columnIndex(grid[0])
	if err != nil {
		return nil, err
	}
	for i, line := range grid[1:] {
		row, err := parseRecord(line, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func recordFields(r models.SalesRecord) []string {
	return []string{
		r.Date.Format(models.DateLayout),
		r.Region,
		r.Product,
		strconv.FormatInt(r.Sales, 10),
		strconv.FormatFloat(r.Revenue, 'f', -1, 64),
	}
}
