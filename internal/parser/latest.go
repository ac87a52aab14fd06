// Package parser turns AIDA64 CSV text into column mappings (latest-row mode)
// or per-sensor sample lists (multi-row mode).
package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/miradorstack/mirador-thermal/internal/utils"
)

var (
	// ErrInsufficientData is returned when the text has no header or no data row.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrHeaderNotFound is returned when no row matches the AIDA64 header signature.
	ErrHeaderNotFound = errors.New("header not found")
	// ErrNoValidSamples is returned when a header was found but no row yielded a usable temperature.
	ErrNoValidSamples = errors.New("no valid samples")
)

// byteOrderMark is dropped from the start of a log before parsing.
const byteOrderMark = "\ufeff"

// TimeColumn is the column whose value is reported as the reading timestamp.
const TimeColumn = "Time"

// Latest is the most recent row of a log keyed by column name.
type Latest struct {
	// Columns lists header names in file order, restricted to those that had a cell.
	Columns []string
	Fields  map[string]string
	// Timestamp is the Time cell when present, else the parse time in RFC3339.
	Timestamp string
}

// ParseLatest extracts the header and the last non-empty row of content.
// now supplies the fallback timestamp and may be nil.
func ParseLatest(content string, now func() time.Time) (Latest, error) {
	if now == nil {
		now = time.Now
	}

	lines := nonEmptyLines(strings.TrimPrefix(content, byteOrderMark))
	if len(lines) < 2 {
		return Latest{}, utils.NewAppError("parser.ParseLatest", "log file does not contain enough data", ErrInsufficientData)
	}

	headers := splitTrimmed(lines[0])
	values := splitTrimmed(lines[len(lines)-1])

	out := Latest{Fields: make(map[string]string, len(headers))}
	for i, h := range headers {
		if i >= len(values) {
			break
		}
		if _, seen := out.Fields[h]; !seen {
			out.Columns = append(out.Columns, h)
		}
		out.Fields[h] = values[i]
	}

	if ts, ok := out.Fields[TimeColumn]; ok && ts != "" {
		out.Timestamp = ts
	} else {
		out.Timestamp = utils.FormatRFC3339(now())
	}
	return out, nil
}

func nonEmptyLines(content string) []string {
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func splitTrimmed(line string) []string {
	cells := strings.Split(line, ",")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
