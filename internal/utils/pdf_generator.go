package utils

import (
	"bytes"
	"fmt"
	"sort"

	"chemtrack/internal/models"

	"github.com/go-pdf/fpdf"
)

// BuildPDFReport renders the latest-batch report: title block, batch
// metadata, summary statistics, type distribution and the full record table.
func BuildPDFReport(batch *models.EquipmentBatch, records []models.EquipmentRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Title
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 12, "Chemical Equipment Report", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	// Batch metadata
	pdf.SetFont("Helvetica", "", 11)
	writeMetaLine(pdf, "Batch ID", fmt.Sprintf("%d", batch.ID))
	writeMetaLine(pdf, "Uploaded", batch.UploadedAt.Format("2006-01-02 15:04"))
	writeMetaLine(pdf, "Filename", batch.Filename)
	pdf.Ln(6)

	// Summary statistics
	writeSectionHeading(pdf, "Summary Statistics")
	summaryRows := [][2]string{
		{"Total Equipment Count", fmt.Sprintf("%d", len(records))},
		{"Average Flowrate", fmt.Sprintf("%.2f", averageOf(records, func(r models.EquipmentRecord) float64 { return r.Flowrate }))},
		{"Average Pressure", fmt.Sprintf("%.2f", averageOf(records, func(r models.EquipmentRecord) float64 { return r.Pressure }))},
		{"Average Temperature", fmt.Sprintf("%.2f", averageOf(records, func(r models.EquipmentRecord) float64 { return r.Temperature }))},
	}
	writeTwoColTable(pdf, "Metric", "Value", summaryRows, headerBlue, fillGray)
	pdf.Ln(6)

	// Type distribution, sorted for a stable layout
	writeSectionHeading(pdf, "Equipment Type Distribution")
	counts := typeCounts(records)
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	typeRows := make([][2]string, 0, len(types))
	for _, t := range types {
		typeRows = append(typeRows, [2]string{t, fmt.Sprintf("%d", counts[t])})
	}
	writeTwoColTable(pdf, "Type", "Count", typeRows, headerGreen, fillGreen)
	pdf.Ln(6)

	// Full record listing
	writeSectionHeading(pdf, "Equipment Data")
	writeRecordTable(pdf, records)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type rgb struct{ r, g, b int }

var (
	headerBlue   = rgb{37, 99, 235}
	fillGray     = rgb{243, 244, 246}
	headerGreen  = rgb{5, 150, 105}
	fillGreen    = rgb{236, 253, 245}
	headerPurple = rgb{124, 58, 237}
	fillPurple   = rgb{250, 245, 255}
)

func writeMetaLine(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(28, 6, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func writeSectionHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func writeTwoColTable(pdf *fpdf.Fpdf, leftHeader, rightHeader string, rows [][2]string, header, fill rgb) {
	const leftW, rightW = 76.0, 50.0

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(header.r, header.g, header.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(leftW, 8, leftHeader, "1", 0, "C", true, 0, "")
	pdf.CellFormat(rightW, 8, rightHeader, "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetFillColor(fill.r, fill.g, fill.b)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range rows {
		pdf.CellFormat(leftW, 7, row[0], "1", 0, "C", true, 0, "")
		pdf.CellFormat(rightW, 7, row[1], "1", 1, "C", true, 0, "")
	}
}

func writeRecordTable(pdf *fpdf.Fpdf, records []models.EquipmentRecord) {
	headers := []string{"Name", "Type", "Flowrate", "Pressure", "Temp"}
	widths := []float64{48, 36, 26, 26, 22}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(headerPurple.r, headerPurple.g, headerPurple.b)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		last := i == len(headers)-1
		ln := 0
		if last {
			ln = 1
		}
		pdf.CellFormat(widths[i], 8, h, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetFillColor(fillPurple.r, fillPurple.g, fillPurple.b)
	pdf.SetTextColor(0, 0, 0)
	for _, r := range records {
		cells := []string{
			truncate(r.EquipmentName, 20),
			r.Type,
			fmt.Sprintf("%.2f", r.Flowrate),
			fmt.Sprintf("%.2f", r.Pressure),
			fmt.Sprintf("%.2f", r.Temperature),
		}
		for i, cell := range cells {
			last := i == len(cells)-1
			ln := 0
			if last {
				ln = 1
			}
			pdf.CellFormat(widths[i], 6, cell, "1", ln, "C", true, 0, "")
		}
	}
}

func averageOf(records []models.EquipmentRecord, field func(models.EquipmentRecord) float64) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += field(r)
	}
	return sum / float64(len(records))
}

func typeCounts(records []models.EquipmentRecord) map[string]int64 {
	counts := make(map[string]int64)
	for _, r := range records {
		counts[r.Type]++
	}
	return counts
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
