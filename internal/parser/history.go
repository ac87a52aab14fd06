package parser

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/miradorstack/mirador-thermal/internal/utils"
)

const (
	headerMarker    = "Date"
	headerSignature = "Date,Time,UpTime,CPU"
	// firstSensorColumn skips Date, Time and UpTime.
	firstSensorColumn = 3
)

var decimalCell = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?$`)

// SensorSamples is every usable temperature collected for one column.
type SensorSamples struct {
	Name    string
	Samples []float64
}

// History is the result of a multi-row parse.
type History struct {
	Headers []string
	// Sensors is in first-appearance order.
	Sensors []SensorSamples
	// All is the flat list of every sample across all sensors.
	All []float64
	// LastDate and LastTime are the Date/Time cells of the last contributing row.
	LastDate string
	LastTime string
}

// ParseHistory finds the AIDA64 header anywhere in content, skips the units
// row beneath it and collects every positive numeric temperature below.
func ParseHistory(content string) (History, error) {
	rows, err := readRecords(strings.TrimPrefix(content, byteOrderMark))
	if err != nil {
		return History{}, utils.NewAppError("parser.ParseHistory", "failed to tokenize log", err)
	}

	headerIdx := findHeader(rows)
	if headerIdx < 0 {
		return History{}, utils.NewAppError("parser.ParseHistory", "header not found in file", ErrHeaderNotFound)
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	out := History{Headers: headers}
	index := make(map[string]int)

	for _, row := range rows[min(headerIdx+2, len(rows)):] {
		if len(row) <= firstSensorColumn {
			continue
		}
		contributed := false
		for col := firstSensorColumn; col < len(headers) && col < len(row); col++ {
			name := headers[col]
			if name == "" {
				continue
			}
			value, ok := numericCell(row[col])
			if !ok || value <= 0 {
				continue
			}

			pos, seen := index[name]
			if !seen {
				pos = len(out.Sensors)
				index[name] = pos
				out.Sensors = append(out.Sensors, SensorSamples{Name: name})
			}
			out.Sensors[pos].Samples = append(out.Sensors[pos].Samples, value)
			out.All = append(out.All, value)
			contributed = true
		}
		if contributed {
			out.LastDate = strings.TrimSpace(row[0])
			out.LastTime = strings.TrimSpace(row[1])
		}
	}

	if len(out.All) == 0 {
		return History{}, utils.NewAppError("parser.ParseHistory", "no valid temperature data found", ErrNoValidSamples)
	}
	return out, nil
}

func readRecords(content string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, err
		}
		rows = append(rows, record)
	}
}

// findHeader returns the index of the first row whose first cell is text and
// that carries the header marker or the full signature.
func findHeader(rows [][]string) int {
	for i, row := range rows {
		if len(row) == 0 || !isText(row[0]) {
			continue
		}
		if strings.Contains(row[0], headerMarker) || strings.Contains(strings.Join(row, ","), headerSignature) {
			return i
		}
	}
	return -1
}

// isText reports whether a cell would stay a string under dynamic typing:
// non-empty, not a number and not a boolean literal.
func isText(cell string) bool {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return false
	}
	if _, ok := numericCell(trimmed); ok {
		return false
	}
	switch trimmed {
	case "true", "TRUE", "false", "FALSE":
		return false
	}
	return true
}

// numericCell accepts only plain decimals with an optional exponent. Forms
// such as "+50", "0x1p5", "Inf" or "1_000" stay text.
func numericCell(cell string) (float64, bool) {
	trimmed := strings.TrimSpace(cell)
	if !decimalCell.MatchString(trimmed) {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
