package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/camnode/internal/api/models"
)

// PrometheusExporter maintains one metric family per capture counter,
// labeled by camera session. Cameras that vanish between flushes have
// their series removed so closed sessions don't linger in scrapes.
type PrometheusExporter struct {
	registry *prometheus.Registry
	handler  http.Handler

	fps         *prometheus.GaugeVec
	bandwidth   *prometheus.GaugeVec
	queued      *prometheus.GaugeVec
	outstanding *prometheus.GaugeVec
	frames      *prometheus.GaugeVec
	bytes       *prometheus.GaugeVec
	drops       *prometheus.GaugeVec
	faults      *prometheus.GaugeVec
	cameras     prometheus.Gauge

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewPrometheusExporter registers the capture metric families on the
// given registry, or on a private one when nil.
func NewPrometheusExporter(registry *prometheus.Registry) *PrometheusExporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	gauge := func(name, help string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "camnode",
			Subsystem: "capture",
			Name:      name,
			Help:      help,
		}, []string{"camera_id"})
		registry.MustRegister(g)
		return g
	}

	e := &PrometheusExporter{
		registry:    registry,
		handler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		fps:         gauge("fps", "Frames per second over the last window"),
		bandwidth:   gauge("bandwidth_bytes_per_second", "Capture bandwidth over the last window"),
		queued:      gauge("queue_depth", "Frames waiting in the output queue"),
		outstanding: gauge("outstanding_buffers", "Buffers currently held by consumers"),
		frames:      gauge("frames_total", "Frames delivered since capture start"),
		bytes:       gauge("bytes_total", "Payload bytes delivered since capture start"),
		drops:       gauge("dropped_frames_total", "Frames recycled because no free buffer was available"),
		faults:      gauge("transfer_faults_total", "Transfer errors, timeouts and length mismatches"),
		seen:        make(map[string]struct{}),
	}

	e.cameras = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "camnode",
		Name:      "cameras",
		Help:      "Open camera sessions",
	})
	registry.MustRegister(e.cameras)

	return e
}

// Name returns the exporter name.
func (e *PrometheusExporter) Name() string { return "prometheus" }

// Handler serves the exposition endpoint for this exporter's registry.
func (e *PrometheusExporter) Handler() http.Handler { return e.handler }

// Export updates every series from the snapshot batch.
func (e *PrometheusExporter) Export(samples []models.StatsData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		current[s.CameraID] = struct{}{}
		e.fps.WithLabelValues(s.CameraID).Set(float64(s.FPS))
		e.bandwidth.WithLabelValues(s.CameraID).Set(float64(s.Bandwidth))
		e.queued.WithLabelValues(s.CameraID).Set(float64(s.Queued))
		e.outstanding.WithLabelValues(s.CameraID).Set(float64(s.Outstanding))
		e.frames.WithLabelValues(s.CameraID).Set(float64(s.Frames))
		e.bytes.WithLabelValues(s.CameraID).Set(float64(s.Bytes))
		e.drops.WithLabelValues(s.CameraID).Set(float64(s.Drops))
		e.faults.WithLabelValues(s.CameraID).Set(float64(s.Faults))
	}
	e.cameras.Set(float64(len(samples)))

	for id := range e.seen {
		if _, ok := current[id]; !ok {
			e.deleteSeries(id)
		}
	}
	e.seen = current
	return nil
}

func (e *PrometheusExporter) deleteSeries(cameraID string) {
	for _, vec := range e.vecs() {
		vec.DeleteLabelValues(cameraID)
	}
}

func (e *PrometheusExporter) vecs() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		e.fps, e.bandwidth, e.queued, e.outstanding,
		e.frames, e.bytes, e.drops, e.faults,
	}
}

// Close removes every series.
func (e *PrometheusExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.seen {
		e.deleteSeries(id)
	}
	e.seen = make(map[string]struct{})
	e.cameras.Set(0)
	return nil
}
