// Package report renders attendance matrices as spreadsheets.
package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"attendly/internal/attendance"
)

// SheetName is the single sheet of an attendance workbook.
const SheetName = "Attendance Report"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook lays the matrix out as header row plus one row per student.
func Workbook(m attendance.Matrix) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "rename sheet")
	}

	rows := append([][]string{m.Header()}, m.Values()...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "write row %d", i+1)
		}
	}
	if err := applyDefaultFormatting(f, SheetName, rows); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Bytes renders the matrix as an in-memory xlsx document.
func Bytes(m attendance.Matrix) ([]byte, error) {
	f, err := Workbook(m)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "write workbook")
	}
	return buf.Bytes(), nil
}

// Filename is the download name of a course's report.
func Filename(code string) string {
	return sanitizeFileName(fmt.Sprintf("%s-Attendance-Report.xlsx", code))
}

// applyDefaultFormatting bolds the header, adds an autofilter and sizes columns to their content.
func applyDefaultFormatting(f *excelize.File, sheet string, rows [][]string) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	cols := len(rows[0])
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return errors.Wrap(err, "apply header style")
	}
	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s1", last), nil); err != nil {
		return errors.Wrap(err, "autofilter")
	}

	for c := 0; c < cols; c++ {
		width := 10.0
		for r, row := range rows {
			if c >= len(row) {
				continue
			}
			w := float64(len([]rune(row[c]))) * 1.1
			if r == 0 {
				w += 1.5
			}
			if w > width {
				width = w
			}
		}
		if width > 60 {
			width = 60
		}
		name, _ := excelize.ColumnNumberToName(c + 1)
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return errors.Wrap(err, "column width")
		}
	}
	return nil
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

func sanitizeFileName(s string) string {
	s = strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}
