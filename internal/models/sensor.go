package models

import (
	"strings"
	"time"
)

// CelsiusUnit is the only unit the log format carries.
const CelsiusUnit = "°C"

// Provenance tags where a snapshot's values came from.
type Provenance string

const (
	// SourceLog marks values read from the configured AIDA64 log file.
	SourceLog Provenance = "AIDA64 CSV Log"
	// SourceUpload marks values parsed from an uploaded file or the bundled sample.
	SourceUpload Provenance = "AIDA64 CSV"
	// SourceMock marks synthesized placeholder values.
	SourceMock Provenance = "Mock Data"
)

// Status classifies a temperature against a threshold policy.
type Status string

const (
	StatusCool     Status = "Cool"
	StatusNormal   Status = "Normal"
	StatusWarning  Status = "Warning"
	StatusCritical Status = "Critical"
)

// SensorReading is a single named temperature value.
type SensorReading struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// SensorAggregate is the per-sensor view derived from one parse pass.
type SensorAggregate struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	CurrentTemperature float64 `json:"temperature"`
	AverageTemperature float64 `json:"averageTemperature"`
	MaxTemperature     float64 `json:"maxTemp"`
	Samples            int     `json:"samples"`
	Cores              int     `json:"cores"`
	Usage              int     `json:"usage"`
	UsageSynthetic     bool    `json:"usageSynthetic"`
	Status             Status  `json:"status"`
	Action             string  `json:"action,omitempty"`
}

// Summary holds aggregate statistics across every sensor in a snapshot.
type Summary struct {
	MaxTemp       float64 `json:"maxTemp"`
	MinTemp       float64 `json:"minTemp"`
	AvgTemp       float64 `json:"avgTemp"`
	CriticalCount int     `json:"criticalCount"`
	WarningCount  int     `json:"warningCount"`
	SensorCount   int     `json:"sensorCount"`
}

// Snapshot is one complete, timestamped result. It is built in a single pass
// and never mutated afterwards; consumers replace it wholesale.
type Snapshot struct {
	Timestamp time.Time         `json:"timestamp"`
	LogTime   string            `json:"logTime,omitempty"`
	Source    Provenance        `json:"source"`
	Connected bool              `json:"connected"`
	Synthetic bool              `json:"synthetic"`
	Policy    string            `json:"policy"`
	Readings  []SensorReading   `json:"readings"`
	Sensors   []SensorAggregate `json:"sensors"`
	Summary   Summary           `json:"summary"`
}

// SensorID derives the stable identifier used by the UI: lowercase name with
// every character outside [a-z0-9] replaced by a dash.
func SensorID(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
