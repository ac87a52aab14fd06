// Package scheduler runs snapshot producers on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

// ProduceFunc builds one snapshot.
type ProduceFunc func(ctx context.Context) (models.Snapshot, error)

// Publisher receives produced snapshots.
type Publisher interface {
	Publish(models.Snapshot)
}

// Poller produces a snapshot immediately on Run, then every interval, and
// early whenever Trigger is called. Each Run owns its own cancellation.
type Poller struct {
	name     string
	interval time.Duration
	produce  ProduceFunc
	out      Publisher
	logger   *slog.Logger
	trigger  chan struct{}
	observe  func(feed string, snap models.Snapshot)
}

// NewPoller returns a Poller publishing produce's results to out.
func NewPoller(name string, interval time.Duration, produce ProduceFunc, out Publisher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		name:     name,
		interval: interval,
		produce:  produce,
		out:      out,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// OnSnapshot registers a hook called with each snapshot before it is published.
func (p *Poller) OnSnapshot(fn func(feed string, snap models.Snapshot)) {
	p.observe = fn
}

// Trigger requests an early tick. Requests coalesce while one is pending.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return errors.New("poller interval must be positive")
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started", slog.String("feed", p.name), slog.Duration("interval", p.interval))
	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped", slog.String("feed", p.name))
			return nil
		case <-ticker.C:
			p.tick(ctx)
		case <-p.trigger:
			p.tick(ctx)
			ticker.Reset(p.interval)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	snap, err := p.produce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("snapshot production failed", slog.String("feed", p.name), slog.Any("error", err))
		}
		return
	}
	if p.observe != nil {
		p.observe(p.name, snap)
	}
	p.out.Publish(snap)
}
