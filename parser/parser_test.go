package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseTabSeparated(t *testing.T) {
	input := "No\tDevNo\tUserId\tName\tMode\tDateTime\n" +
		"1\t1\t101\tJUAN CABARLIZA\t0\t2024-03-05 06:55:00\n" +
		"2\t1\t102\tSANTOS\t1\t2024-03-05 16:05:00\n"

	res, err := Parse(strings.NewReader(input), "punches.txt")
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, "JUAN CABARLIZA", res.Rows[0].Name)
	assert.Equal(t, "0", res.Rows[0].Mode)
	assert.Equal(t, time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC), res.Rows[0].Timestamp)
	assert.Equal(t, "102", res.Rows[1].UserID)
}

func TestParseSpaceSeparatedMultiTokenName(t *testing.T) {
	input := "1 1 101 DELA CRUZ 0 2024-03-05 06:55:00\n"

	res, err := Parse(strings.NewReader(input), "punches.txt")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "DELA CRUZ", res.Rows[0].Name)
	assert.Equal(t, time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC), res.Rows[0].Timestamp)
}

func TestParseSplitDateTimeColumns(t *testing.T) {
	input := "1\t1\t101\tSANTOS\t0\t2024-03-05\t06:55:00\n"

	res, err := Parse(strings.NewReader(input), "punches.txt")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC), res.Rows[0].Timestamp)
}

func TestParseExcelSerialTimestamp(t *testing.T) {
	input := "1\t1\t101\tSANTOS\t0\t45356.5\n"

	res, err := Parse(strings.NewReader(input), "punches.txt")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC), res.Rows[0].Timestamp)
}

func TestParseMalformedLinesBecomeWarnings(t *testing.T) {
	input := "1\t1\t101\tSANTOS\t0\tnot-a-date\n" +
		"2\t1\t102\t\t0\t2024-03-05 06:55:00\n" +
		"3\t1\t103\tCABARLIZA\t0\t2024-03-05 06:56:00\n" +
		"garbage\n"

	res, err := Parse(strings.NewReader(input), "punches.txt")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "CABARLIZA", res.Rows[0].Name)
	require.Len(t, res.Warnings, 3)
	assert.Contains(t, res.Warnings[0], "line 1")
	assert.Contains(t, res.Warnings[0], "unparseable timestamp")
	assert.Contains(t, res.Warnings[1], "empty name")
}

func TestParseSkipsHeaderAndBlankLines(t *testing.T) {
	input := "No DevNo UserId Name Mode DateTime\n" +
		"\n" +
		"1 1 101 SANTOS 0 2024-03-05 06:55:00\n"

	res, err := Parse(strings.NewReader(input), "punches.txt")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Empty(t, res.Warnings)
}

func TestParseXLSXWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"No", "DevNo", "UserId", "Name", "Mode", "DateTime"},
		{"1", "1", "101", "JUAN CABARLIZA", "0", "2024-03-05 06:55:00"},
		{"2", "1", "102", "SANTOS", "1", "2024-03-05 16:05:00"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := Parse(buf, "punches.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "JUAN CABARLIZA", res.Rows[0].Name)
	assert.Equal(t, time.Date(2024, time.March, 5, 16, 5, 0, 0, time.UTC), res.Rows[1].Timestamp)
}
