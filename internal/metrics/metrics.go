// Package metrics pumps capture statistics from the camera registry
// to exporters. One ticker goroutine polls the source and fans each
// snapshot batch out; exporters translate to their own wire format
// (Prometheus exposition, SSE events).
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camnode/internal/api/models"
)

// DefaultInterval is the snapshot poll period.
const DefaultInterval = 2 * time.Second

// Source supplies one stats snapshot per open camera.
type Source interface {
	Snapshots() []models.StatsData
}

// Exporter receives every snapshot batch the pump collects.
type Exporter interface {
	Name() string
	Export(samples []models.StatsData) error
	Close() error
}

// Pump periodically polls the source and feeds the exporters.
type Pump struct {
	source    Source
	exporters []Exporter
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewPump wires a source to exporters. Interval <= 0 selects
// DefaultInterval.
func NewPump(source Source, interval time.Duration, logger *slog.Logger, exporters ...Exporter) *Pump {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pump{
		source:    source,
		exporters: exporters,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the poll loop. Starting twice is a no-op.
func (p *Pump) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.wg.Add(1)
	go p.run()
	p.logger.Info("Metrics pump started",
		"interval", p.interval, "exporters", len(p.exporters))
}

// Stop halts the loop, performs a final flush and closes the
// exporters.
func (p *Pump) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	for _, exp := range p.exporters {
		if err := exp.Close(); err != nil {
			p.logger.Warn("Exporter close failed", "exporter", exp.Name(), "error", err)
		}
	}
	p.logger.Info("Metrics pump stopped")
}

func (p *Pump) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.flush()
		case <-p.ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *Pump) flush() {
	samples := p.source.Snapshots()
	for _, exp := range p.exporters {
		if err := exp.Export(samples); err != nil {
			p.logger.Warn("Metrics export failed", "exporter", exp.Name(), "error", err)
		}
	}
}
