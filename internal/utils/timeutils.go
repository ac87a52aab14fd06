package utils

import (
	"fmt"
	"strings"
	"time"
)

// aidaLayouts are the Date/Time column shapes AIDA64 writes depending on the
// Windows locale.
var aidaLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"2/1/2006 15:04:05",
	"2006-01-02 15:04:05",
}

// ParseLogTime joins a Date and a Time cell from the log and parses them as local time.
func ParseLogTime(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	value := date + " " + clock
	for _, layout := range aidaLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse log time %q: unrecognised layout", value)
}

// FormatRFC3339 renders t in UTC the way the JSON surfaces expect.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
