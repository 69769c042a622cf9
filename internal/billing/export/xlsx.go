// Package export renders stored calculation results as statement files.
package export

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/minvoker/tariff-calculator/internal/billing"
)

const statementSheet = "Statement"

// Workbook renders a calculation breakdown as a spreadsheet. Rows are
// ordered by component id so equal results export byte-equal workbooks.
func Workbook(customerID string, period billing.Period, result *billing.CalcResult) (*excelize.File, error) {
	if result == nil {
		return nil, errors.New("export: nil result")
	}
	f := excelize.NewFile()
	index, err := f.NewSheet(statementSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	cells := [][]any{
		{"Customer", customerID},
		{"Period start", period.Start.Format("2006-01-02")},
		{"Period end", period.End.Format("2006-01-02")},
		{},
		{"Component", "Units used", "Unit", fmt.Sprintf("Cost (%s)", result.Units)},
	}
	for _, id := range sortedComponentIDs(result) {
		line := result.Breakdown[id]
		cells = append(cells, []any{id, line.UnitsUsed, line.UnitLabel, line.Cost})
	}
	cells = append(cells, []any{}, []any{"Total", "", "", result.TotalCost})

	for rowIdx, row := range cells {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(statementSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func sortedComponentIDs(result *billing.CalcResult) []string {
	ids := make([]string, 0, len(result.Breakdown))
	for id := range result.Breakdown {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
