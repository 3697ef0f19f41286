package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
)

const (
	resultSheet    = "Results"
	summarySheet   = "Summary"
	patternType    = "pattern"
	patternValue   = 1
	failBgColor    = "FFC7CE"
	skipBgColor    = "FFEB9C"
	slowRequestMs  = 300
	defaultColumns = 12
)

var xlsxHeaders = []string{
	"Folder", "Request", "Testcase", "Method", "URL", "Status Code",
	"Elapsed (ms)", "Status", "Tests", "Failures", "Error", "Log",
}

// XLSXFormatter writes an Excel workbook with a result sheet and a summary
// sheet.
type XLSXFormatter struct {
	writer io.Writer
}

type XLSXOption func(*XLSXFormatter)

func NewXLSXFormatter(opts ...XLSXOption) *XLSXFormatter {
	f := &XLSXFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func XLSXWithWriter(w io.Writer) XLSXOption {
	return func(f *XLSXFormatter) {
		f.writer = w
	}
}

func (f *XLSXFormatter) Format(r *Report) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", resultSheet); err != nil {
		return err
	}
	if err := writeResults(book, r); err != nil {
		return fmt.Errorf("write results sheet: %w", err)
	}
	if _, err := book.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := writeSummary(book, r); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}

	_, err := book.WriteTo(f.writer)
	return err
}

func writeResults(book *excelize.File, r *Report) error {
	failStyle, err := book.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{failBgColor}},
	})
	if err != nil {
		return err
	}
	skipStyle, err := book.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{skipBgColor}},
	})
	if err != nil {
		return err
	}
	headerStyle, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := book.SetColWidth(resultSheet, "A", "L", defaultColumns); err != nil {
		return err
	}
	header := make([]any, len(xlsxHeaders))
	for i, h := range xlsxHeaders {
		header[i] = h
	}
	if err := book.SetSheetRow(resultSheet, "A1", &header); err != nil {
		return err
	}
	if err := book.SetRowStyle(resultSheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, row := range Rows(r.Tree) {
		n := i + 2
		var tests []string
		for _, t := range row.Tests {
			tests = append(tests, fmt.Sprintf("%s [%s]", t.Name, t.Status))
		}
		cells := []any{
			row.ClassName,
			row.Name,
			row.Testcase,
			row.Method,
			row.URL,
			row.StatusCode,
			row.ElapsedMs,
			string(row.Status),
			strings.Join(tests, "\n"),
			strings.Join(row.Failures(), "\n"),
			row.Error,
			strings.Join(row.Logs, "\n"),
		}
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(resultSheet, cell, &cells); err != nil {
			return err
		}

		style := 0
		switch {
		case row.Status == assertions.StatusFail:
			style = failStyle
		case row.Status == assertions.StatusSkip, row.ElapsedMs > slowRequestMs:
			style = skipStyle
		}
		if style != 0 {
			last, _ := excelize.CoordinatesToCellName(len(cells), n)
			if err := book.SetCellStyle(resultSheet, cell, last, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSummary(book *excelize.File, r *Report) error {
	s := r.Summary
	rows := [][]any{
		{"Collection", r.Collection},
		{"Environment", r.Environment},
		{"Status", string(r.Tree.Status)},
		{"Begin", s.Begin.Format("2006-01-02 15:04:05")},
		{"Total time (ms)", s.Duration.Milliseconds()},
		{"Requests", s.Total},
		{"Passed", s.Passed},
		{"Failed", s.Failed},
		{"Errors", s.Errors},
		{"Skipped", s.Skipped},
		{"p50 (ms)", s.P50.Milliseconds()},
		{"p95 (ms)", s.P95.Milliseconds()},
		{"p99 (ms)", s.P99.Milliseconds()},
	}
	if err := book.SetColWidth(summarySheet, "A", "B", 20); err != nil {
		return err
	}
	for i, row := range rows {
		if err := book.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	return nil
}
