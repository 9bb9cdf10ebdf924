// Package parser reads raw punch dumps exported by biometric devices.
//
// The canonical export is tab- or space-separated text with columns
// `No DevNo UserId Name Mode DateTime`; some vendor consoles export the
// same columns as .xls/.xlsx workbooks instead, so both are accepted.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Row is one raw punch line. Name is kept exactly as the device rendered
// it; mode is the device's in/out marker when the model reports one.
type Row struct {
	No        string
	DeviceNo  string
	UserID    string
	Name      string
	Mode      string
	Timestamp time.Time
}

type Result struct {
	Rows     []Row
	Warnings []string
}

var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
}

// Parse reads a punch dump. Malformed lines are skipped and reported as
// warnings; only an unreadable file is an error.
func Parse(r io.Reader, filename string) (Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls", ".xlsx":
		cells, err := readSpreadsheet(r, filename)
		if err != nil {
			return Result{}, err
		}
		return fromCells(cells), nil
	default:
		return parseText(r)
	}
}

func parseText(r io.Reader) (Result, error) {
	var res Result
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line == "" || isHeader(line) {
			continue
		}

		row, err := parseLine(line)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("reading punch file: %w", err)
	}
	return res, nil
}

func parseLine(line string) (Row, error) {
	if strings.Contains(line, "\t") {
		cols := strings.Split(line, "\t")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		return rowFromColumns(cols)
	}

	// Space-separated: the name column itself may contain spaces, so take
	// the three leading fields, mode, and the trailing date+time pair by
	// position and treat everything between as the name.
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return Row{}, fmt.Errorf("expected at least 6 columns, got %d", len(fields))
	}
	n := len(fields)
	name := strings.Join(fields[3:n-3], " ")
	cols := []string{fields[0], fields[1], fields[2], name, fields[n-3], fields[n-2] + " " + fields[n-1]}
	return rowFromColumns(cols)
}

func rowFromColumns(cols []string) (Row, error) {
	if len(cols) < 6 {
		return Row{}, fmt.Errorf("expected at least 6 columns, got %d", len(cols))
	}
	// Some exports split date and time into separate columns.
	datetime := cols[5]
	if len(cols) >= 7 && cols[6] != "" && !strings.Contains(datetime, " ") {
		datetime = datetime + " " + cols[6]
	}
	ts, err := parseTimestamp(datetime)
	if err != nil {
		return Row{}, err
	}
	if cols[3] == "" {
		return Row{}, fmt.Errorf("empty name column")
	}
	return Row{
		No:        cols[0],
		DeviceNo:  cols[1],
		UserID:    cols[2],
		Name:      cols[3],
		Mode:      cols[4],
		Timestamp: ts,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	// Excel numeric date serial shows up in workbook exports.
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 20000 {
		if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return ts, nil
		}
	}

	for _, format := range timestampFormats {
		if ts, err := time.Parse(format, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "name") && strings.Contains(lower, "datetime") ||
		strings.HasPrefix(lower, "no\t") || strings.HasPrefix(lower, "no ")
}

func readSpreadsheet(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if strings.ToLower(filepath.Ext(filename)) == ".xls" {
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		rows := workbook.ReadAllCells(100000)
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}
	return rows, nil
}

func fromCells(cells [][]string) Result {
	var res Result
	for i, row := range cells {
		trimmed := make([]string, len(row))
		empty := true
		for j, c := range row {
			trimmed[j] = strings.TrimSpace(c)
			if trimmed[j] != "" {
				empty = false
			}
		}
		if empty || isHeader(strings.Join(trimmed, "\t")) {
			continue
		}
		parsed, err := rowFromColumns(trimmed)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		res.Rows = append(res.Rows, parsed)
	}
	return res
}
