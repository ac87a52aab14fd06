// Package mock synthesizes placeholder temperature readings for when no real
// log is available.
package mock

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/miradorstack/mirador-thermal/internal/models"
	"github.com/miradorstack/mirador-thermal/internal/utils"
)

// Sensors is the fixed set of names every mock reading set carries, in order.
var Sensors = []string{"CPU", "CPU Package", "CPU IA Cores", "CPU GT Cores", "HDD1"}

const (
	cpuBase  = 65.0
	hddBase  = 35.0
	storage  = "HDD1"
	primary  = "CPU"
	maxUsage = 100
)

// Generator draws readings from a random source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New returns a Generator seeded with seed. A zero seed draws from a
// non-deterministic source.
func New(seed uint64) *Generator {
	if seed == 0 {
		return NewWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return NewWithSource(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewWithSource returns a Generator drawing from src.
func NewWithSource(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src), now: time.Now}
}

// Readings returns the five placeholder readings. The CPU family shares one
// base variation in [-10, 10); every non-"CPU" member adds its own offset in
// [-2.5, 2.5). HDD1 lies in [35, 45).
func (g *Generator) Readings() []models.SensorReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	variation := g.uniform(-10, 10)
	out := make([]models.SensorReading, 0, len(Sensors))
	for _, name := range Sensors {
		var v float64
		switch name {
		case primary:
			v = cpuBase + variation
		case storage:
			v = hddBase + g.uniform(0, 10)
		default:
			v = cpuBase + variation + g.uniform(-2.5, 2.5)
		}
		out = append(out, reading(name, v))
	}
	return out
}

// DeviceReadings returns the device-table variant: each sensor independently
// varies by [-7.5, 7.5) around its base.
func (g *Generator) DeviceReadings() []models.SensorReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.SensorReading, 0, len(Sensors))
	for _, name := range Sensors {
		base := cpuBase
		if name == storage {
			base = hddBase
		}
		out = append(out, reading(name, base+g.uniform(-7.5, 7.5)))
	}
	return out
}

// Usage returns a synthetic usage percentage in [0, 100).
func (g *Generator) Usage(string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(maxUsage)
}

// Payload wraps Readings the way failure envelopes embed them.
func (g *Generator) Payload() *models.MockPayload {
	return &models.MockPayload{
		Temperatures: g.Readings(),
		Timestamp:    utils.FormatRFC3339(g.now()),
		Source:       models.SourceMock,
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func reading(name string, v float64) models.SensorReading {
	return models.SensorReading{Name: name, Value: round1(v), Unit: models.CelsiusUnit}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
