package app

import (
	"sync/atomic"
	"time"

	"github.com/dshills/widgetbus/internal/widget"
)

// Metrics tracks host loop counters. All methods are safe for concurrent use.
type Metrics struct {
	// Frame timing
	frameCount   atomic.Uint64
	frameTotalNs atomic.Int64
	frameMaxNs   atomic.Int64
	lastFrameNs  atomic.Int64

	// Request handling
	batches  atomic.Uint64
	requests atomic.Uint64

	// Message phase
	delivered atomic.Uint64
	discarded atomic.Uint64
	panicked  atomic.Uint64

	// Producers
	ticks        atomic.Uint64
	keys         atomic.Uint64
	scriptErrors atomic.Uint64
	reloads      atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordFrame records one frame: its duration and the message phase result.
func (m *Metrics) RecordFrame(duration time.Duration, res widget.DispatchResult) {
	ns := duration.Nanoseconds()

	m.frameCount.Add(1)
	m.frameTotalNs.Add(ns)
	m.lastFrameNs.Store(ns)

	for {
		old := m.frameMaxNs.Load()
		if ns <= old || m.frameMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}

	m.delivered.Add(uint64(res.Delivered))
	m.discarded.Add(uint64(res.Discarded))
	m.panicked.Add(uint64(res.Panicked))
}

// RecordBatch records a coalesced batch of count requests.
func (m *Metrics) RecordBatch(count int) {
	m.batches.Add(1)
	m.requests.Add(uint64(count))
}

// RecordTick records a clock tick.
func (m *Metrics) RecordTick() { m.ticks.Add(1) }

// RecordKey records a key event.
func (m *Metrics) RecordKey() { m.keys.Add(1) }

// RecordScriptError records a failed script hook.
func (m *Metrics) RecordScriptError() { m.scriptErrors.Add(1) }

// RecordReload records a config or script reload.
func (m *Metrics) RecordReload() { m.reloads.Add(1) }

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	frames := m.frameCount.Load()

	var avgFrameNs int64
	if frames > 0 {
		avgFrameNs = m.frameTotalNs.Load() / int64(frames)
	}

	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		Frames:         frames,
		AvgFrameTimeNs: avgFrameNs,
		MaxFrameTimeNs: m.frameMaxNs.Load(),
		LastFrameNs:    m.lastFrameNs.Load(),
		Batches:        m.batches.Load(),
		Requests:       m.requests.Load(),
		Delivered:      m.delivered.Load(),
		Discarded:      m.discarded.Load(),
		Panicked:       m.panicked.Load(),
		Ticks:          m.ticks.Load(),
		Keys:           m.keys.Load(),
		ScriptErrors:   m.scriptErrors.Load(),
		Reloads:        m.reloads.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime         time.Duration
	Frames         uint64
	AvgFrameTimeNs int64
	MaxFrameTimeNs int64
	LastFrameNs    int64
	Batches        uint64
	Requests       uint64
	Delivered      uint64
	Discarded      uint64
	Panicked       uint64
	Ticks          uint64
	Keys           uint64
	ScriptErrors   uint64
	Reloads        uint64
}

// CoalesceRatio returns the average number of requests merged per batch.
func (s MetricsSnapshot) CoalesceRatio() float64 {
	if s.Batches == 0 {
		return 0
	}
	return float64(s.Requests) / float64(s.Batches)
}

// AvgFPS returns the average frames per second over the frame durations.
func (s MetricsSnapshot) AvgFPS() float64 {
	if s.AvgFrameTimeNs == 0 {
		return 0
	}
	return 1e9 / float64(s.AvgFrameTimeNs)
}
