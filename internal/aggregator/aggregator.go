// Package aggregator turns parsed log data into sensor readings, per-sensor
// aggregates and summary statistics under an explicit threshold policy.
package aggregator

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/parser"
	"github.com/miradorstack/mirador-thermal/internal/utils"
)

// ErrNoTemperatureColumns is returned when nothing survives temperature filtering.
var ErrNoTemperatureColumns = errors.New("no temperature columns")

// temperatureKeywords select the columns treated as temperature sensors.
var temperatureKeywords = []string{"temp", "cpu", "hdd"}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// UsageSource fabricates a usage percentage for sensors that have no usage
// signal. Values it returns are always flagged as synthetic.
type UsageSource interface {
	Usage(sensor string) int
}

// Aggregator derives aggregates and summaries. It holds no per-call state.
type Aggregator struct {
	policy   ThresholdPolicy
	profiles *ProfileTable
	usage    UsageSource
}

// New constructs an Aggregator. profiles may be nil for the built-in table and
// usage may be nil to leave usage unset.
func New(policy ThresholdPolicy, profiles *ProfileTable, usage UsageSource) *Aggregator {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Aggregator{policy: policy, profiles: profiles, usage: usage}
}

// Policy returns the threshold policy in use.
func (a *Aggregator) Policy() ThresholdPolicy {
	return a.policy
}

// WithPolicy returns a copy of a classifying with p.
func (a *Aggregator) WithPolicy(p ThresholdPolicy) *Aggregator {
	clone := *a
	clone.policy = p
	return &clone
}

// FilterTemperatures keeps columns whose name mentions temp, cpu or hdd and
// whose value starts with a finite number. Column order is preserved.
func FilterTemperatures(columns []string, fields map[string]string) []models.SensorReading {
	readings := make([]models.SensorReading, 0, len(columns))
	for _, name := range columns {
		if !isTemperatureColumn(name) {
			continue
		}
		value, ok := leadingFloat(fields[name])
		if !ok {
			continue
		}
		readings = append(readings, models.SensorReading{Name: name, Value: value, Unit: models.CelsiusUnit})
	}
	return readings
}

// Summarize computes max, min, one-decimal mean and status counts.
func (a *Aggregator) Summarize(readings []models.SensorReading) (models.Summary, error) {
	if len(readings) == 0 {
		return models.Summary{}, utils.NewAppError("aggregator.Summarize", "no temperature columns in log", ErrNoTemperatureColumns)
	}

	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}
	summary := stats(values)
	for _, r := range readings {
		a.count(&summary, a.policy.Classify(r.Value))
	}
	summary.SensorCount = len(readings)
	return summary, nil
}

// FromReadings treats each reading as a single-sample sensor.
func (a *Aggregator) FromReadings(readings []models.SensorReading) ([]models.SensorAggregate, models.Summary, error) {
	summary, err := a.Summarize(readings)
	if err != nil {
		return nil, models.Summary{}, err
	}

	sensors := make([]models.SensorAggregate, 0, len(readings))
	for _, r := range readings {
		sensors = append(sensors, a.aggregate(r.Name, []float64{r.Value}, r.Value))
	}
	return sensors, summary, nil
}

// FromHistory aggregates multi-row samples. Per-sensor status is classified on
// the average; the summary spans every sample of every sensor.
func (a *Aggregator) FromHistory(h parser.History) ([]models.SensorAggregate, models.Summary, error) {
	if len(h.All) == 0 || len(h.Sensors) == 0 {
		return nil, models.Summary{}, utils.NewAppError("aggregator.FromHistory", "no valid temperature data found", parser.ErrNoValidSamples)
	}

	sensors := make([]models.SensorAggregate, 0, len(h.Sensors))
	for _, s := range h.Sensors {
		avg := Round1(mean(s.Samples))
		sensors = append(sensors, a.aggregate(s.Name, s.Samples, avg))
	}

	summary := stats(h.All)
	for _, s := range sensors {
		a.count(&summary, s.Status)
	}
	summary.SensorCount = len(sensors)
	return sensors, summary, nil
}

// Readings returns the current value of each aggregate as a reading.
func Readings(sensors []models.SensorAggregate) []models.SensorReading {
	out := make([]models.SensorReading, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, models.SensorReading{Name: s.Name, Value: s.CurrentTemperature, Unit: models.CelsiusUnit})
	}
	return out
}

func (a *Aggregator) aggregate(name string, samples []float64, classifyOn float64) models.SensorAggregate {
	profile := a.profiles.Lookup(name)
	agg := models.SensorAggregate{
		ID:                 models.SensorID(name),
		Name:               name,
		CurrentTemperature: Round1(samples[len(samples)-1]),
		AverageTemperature: Round1(mean(samples)),
		MaxTemperature:     Round1(maxOf(samples)),
		Samples:            len(samples),
		Cores:              profile.Cores,
		Status:             a.policy.Classify(classifyOn),
		Action:             a.policy.Action(classifyOn),
	}
	if !profile.Storage && a.usage != nil {
		agg.Usage = a.usage.Usage(name)
		agg.UsageSynthetic = true
	}
	return agg
}

func (a *Aggregator) count(s *models.Summary, status models.Status) {
	switch status {
	case models.StatusCritical:
		s.CriticalCount++
	case models.StatusWarning:
		s.WarningCount++
	}
}

// stats fills max/min/avg. The rounded mean is clamped so min <= avg <= max
// holds even when rounding crosses an extreme.
func stats(values []float64) models.Summary {
	hi, lo := maxOf(values), minOf(values)
	avg := Round1(mean(values))
	maxT, minT := Round1(hi), Round1(lo)
	avg = math.Max(minT, math.Min(maxT, avg))
	return models.Summary{MaxTemp: maxT, MinTemp: minT, AvgTemp: avg}
}

// Round1 rounds to one decimal place, half away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

func minOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func isTemperatureColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range temperatureKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// leadingFloat parses the numeric prefix of s ("48°C" is 48) and rejects
// anything that is not a finite number.
func leadingFloat(s string) (float64, bool) {
	match := leadingNumber.FindString(strings.TrimLeft(s, " \t\r\n"))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
