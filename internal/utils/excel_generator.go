package utils

import (
	"fmt"
	"sort"

	"chemtrack/internal/models"

	"github.com/xuri/excelize/v2"
)

// BuildExcelReport renders the same report data as BuildPDFReport as a
// workbook: a Summary sheet with batch metadata, aggregates and the type
// distribution, plus an Equipment Data sheet with every record.
func BuildExcelReport(batch *models.EquipmentBatch, records []models.EquipmentRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	const dataSheet = "Equipment Data"

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(dataSheet); err != nil {
		return nil, err
	}

	// Summary sheet
	f.SetCellValue(summarySheet, "A1", "Chemical Equipment Report")
	f.SetCellValue(summarySheet, "A3", "Batch ID")
	f.SetCellValue(summarySheet, "B3", batch.ID)
	f.SetCellValue(summarySheet, "A4", "Uploaded")
	f.SetCellValue(summarySheet, "B4", batch.UploadedAt.Format("2006-01-02 15:04"))
	f.SetCellValue(summarySheet, "A5", "Filename")
	f.SetCellValue(summarySheet, "B5", batch.Filename)

	f.SetCellValue(summarySheet, "A7", "Total Equipment Count")
	f.SetCellValue(summarySheet, "B7", len(records))
	f.SetCellValue(summarySheet, "A8", "Average Flowrate")
	f.SetCellValue(summarySheet, "B8", fmt.Sprintf("%.2f", averageOf(records, func(r models.EquipmentRecord) float64 { return r.Flowrate })))
	f.SetCellValue(summarySheet, "A9", "Average Pressure")
	f.SetCellValue(summarySheet, "B9", fmt.Sprintf("%.2f", averageOf(records, func(r models.EquipmentRecord) float64 { return r.Pressure })))
	f.SetCellValue(summarySheet, "A10", "Average Temperature")
	f.SetCellValue(summarySheet, "B10", fmt.Sprintf("%.2f", averageOf(records, func(r models.EquipmentRecord) float64 { return r.Temperature })))

	f.SetCellValue(summarySheet, "A12", "Type")
	f.SetCellValue(summarySheet, "B12", "Count")
	counts := typeCounts(records)
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for i, t := range types {
		rowNum := 13 + i
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", rowNum), t)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", rowNum), counts[t])
	}

	f.SetColWidth(summarySheet, "A", "A", 26)
	f.SetColWidth(summarySheet, "B", "B", 20)

	// Equipment data sheet
	headers := []string{"Name", "Type", "Flowrate", "Pressure", "Temperature"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(dataSheet, cell, header)
	}

	for rowIdx, record := range records {
		rowNum := rowIdx + 2

		f.SetCellValue(dataSheet, fmt.Sprintf("A%d", rowNum), truncate(record.EquipmentName, 20))
		f.SetCellValue(dataSheet, fmt.Sprintf("B%d", rowNum), record.Type)
		f.SetCellValue(dataSheet, fmt.Sprintf("C%d", rowNum), fmt.Sprintf("%.2f", record.Flowrate))
		f.SetCellValue(dataSheet, fmt.Sprintf("D%d", rowNum), fmt.Sprintf("%.2f", record.Pressure))
		f.SetCellValue(dataSheet, fmt.Sprintf("E%d", rowNum), fmt.Sprintf("%.2f", record.Temperature))
	}

	for i := 1; i <= len(headers); i++ {
		colName, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth(dataSheet, colName, colName, 20)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
