package parser

import (
	"errors"
	"testing"
)

func TestParseHistorySample(t *testing.T) {
	h, err := ParseHistory(SampleLog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Sensors) != 5 {
		t.Fatalf("expected 5 sensors, got %d", len(h.Sensors))
	}
	want := []string{"CPU", "CPU Package", "CPU IA Cores", "CPU GT Cores", "HDD1"}
	for i, s := range h.Sensors {
		if s.Name != want[i] {
			t.Fatalf("sensor %d: expected %q, got %q", i, want[i], s.Name)
		}
		if len(s.Samples) != 7 {
			t.Fatalf("sensor %s: expected 7 samples, got %d", s.Name, len(s.Samples))
		}
	}
	if len(h.All) != 35 {
		t.Fatalf("expected 35 flat samples, got %d", len(h.All))
	}
	if h.LastDate != "6/5/2025" || h.LastTime != "4:36:43 PM" {
		t.Fatalf("unexpected last row time %q %q", h.LastDate, h.LastTime)
	}
}

func TestParseHistoryMatchesSignatureWithoutMarkerInFirstCell(t *testing.T) {
	content := "Log,Date,Time,UpTime,CPU,HDD1\nunits\nx,6/5/2025,1:00:00 PM,00:00:01,50,30\n"
	h, err := ParseHistory(content)
	if err != nil {
		t.Fatalf("expected signature match to locate the header, got %v", err)
	}
	if len(h.Sensors) != 2 || h.Sensors[0].Name != "CPU" || h.Sensors[1].Name != "HDD1" {
		t.Fatalf("unexpected sensors: %+v", h.Sensors)
	}
}

func TestParseHistoryHeaderNotFound(t *testing.T) {
	inputs := []string{
		"",
		"CPU,Time\n50,12:00",
		"Version,AIDA64\n1,2,3,4,5\n",
		",Date,Time,UpTime,CPU\n,,,°C\n1,2,3,40\n",
	}
	for _, in := range inputs {
		if _, err := ParseHistory(in); !errors.Is(err, ErrHeaderNotFound) {
			t.Fatalf("input %q: expected ErrHeaderNotFound, got %v", in, err)
		}
	}
}

func TestParseHistoryNoValidSamples(t *testing.T) {
	content := `Date,Time,UpTime,CPU,HDD1
,,,°C,°C
6/5/2025,4:36:36 PM,05:04:42,0,-3
6/5/2025,4:36:37 PM,05:04:43,n/a,
6/5/2025,4:36:38 PM`
	if _, err := ParseHistory(content); !errors.Is(err, ErrNoValidSamples) {
		t.Fatalf("expected ErrNoValidSamples, got %v", err)
	}
}

func TestParseHistorySkipsUnitsRowAndShortRows(t *testing.T) {
	content := `Date,Time,UpTime,CPU
99,99,99,99
short,row
6/5/2025,4:36:36 PM,05:04:42,42.5`
	h, err := ParseHistory(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.All) != 1 || h.All[0] != 42.5 {
		t.Fatalf("expected units row skipped and one sample, got %v", h.All)
	}
}

func TestParseHistoryRaggedRows(t *testing.T) {
	content := `Date,Time,UpTime,CPU,HDD1
,,,°C,°C
6/5/2025,4:36:36 PM,05:04:42,50
6/5/2025,4:36:37 PM,05:04:43,51,35,99`
	h, err := ParseHistory(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Sensors) != 2 {
		t.Fatalf("expected 2 sensors, got %+v", h.Sensors)
	}
	if len(h.Sensors[0].Samples) != 2 || len(h.Sensors[1].Samples) != 1 {
		t.Fatalf("unexpected sample counts: %+v", h.Sensors)
	}
}

func TestParseHistoryStripsByteOrderMark(t *testing.T) {
	h, err := ParseHistory("\ufeff" + SampleLog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Sensors) != 5 {
		t.Fatalf("expected 5 sensors, got %d", len(h.Sensors))
	}
}

func TestParseHistoryOnlyPlainDecimalsCount(t *testing.T) {
	content := "Date,Time,UpTime,CPU,HDD1,GPU,SSD\n,,,°C,°C,°C,°C\n" +
		"6/5/2025,1:00:00 PM,00:00:01,+50,0x1p5,4.5e1,.5\n" +
		"6/5/2025,1:00:01 PM,00:00:02,Inf,1_000,-3,51.\n"
	h, err := ParseHistory(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := map[string][]float64{}
	for _, s := range h.Sensors {
		got[s.Name] = s.Samples
	}
	if _, ok := got["CPU"]; ok {
		t.Fatalf("signed or non-finite cells must not count: %v", got["CPU"])
	}
	if _, ok := got["HDD1"]; ok {
		t.Fatalf("hex or underscored cells must not count: %v", got["HDD1"])
	}
	if len(got["GPU"]) != 1 || got["GPU"][0] != 45 {
		t.Fatalf("expected exponent form to parse, got %v", got["GPU"])
	}
	if len(got["SSD"]) != 2 || got["SSD"][0] != 0.5 || got["SSD"][1] != 51 {
		t.Fatalf("expected .5 and 51. to parse, got %v", got["SSD"])
	}
}

func TestNumericCell(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"50", true}, {" 36 ", true}, {"-1.5", true}, {"4.5e1", true}, {".5", true},
		{"+50", false}, {"0x1p5", false}, {"Inf", false}, {"NaN", false}, {"1_000", false}, {"", false}, {"50C", false},
	}
	for _, tc := range cases {
		if _, ok := numericCell(tc.in); ok != tc.ok {
			t.Fatalf("numericCell(%q): expected %v, got %v", tc.in, tc.ok, ok)
		}
	}
}
