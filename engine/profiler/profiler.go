package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
)

// Profiler tracks frame rate, memory, and pipeline cache activity for performance monitoring.
// Outputs one structured log record per update interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastStats      renderer.CacheStats

	// stats returns the cache counters to report, nil to report frame and memory data only.
	stats func() renderer.CacheStats
	now   func() time.Time
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets how often statistics are logged. Defaults to 1 second.
func WithUpdateInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithCacheStats reports pipeline cache counters alongside the frame statistics.
//
// Parameters:
//   - stats: called once per update interval on the render goroutine
//
// Returns:
//   - ProfilerOption: option function to apply
func WithCacheStats(stats func() renderer.CacheStats) ProfilerOption {
	return func(p *Profiler) {
		p.stats = stats
	}
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Report is one interval's worth of statistics.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	// Cache holds the counter deltas for the interval.
	Cache renderer.CacheStats
}

// Tick should be called once per frame. Logs a Report when the update interval has elapsed.
//
// Returns:
//   - Report: the statistics logged this tick, zero otherwise
//   - bool: true if stats were logged this tick
func (p *Profiler) Tick() (Report, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Report{}, false
	}

	r := Report{FPS: float64(p.frameCount) / elapsed.Seconds()}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000
		start := p.lastGCCount
		if r.GCCount-start > 256 {
			start = r.GCCount - 256
		}
		for i := start; i < r.GCCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	attrs := []any{
		slog.Float64("fps", r.FPS),
		slog.Float64("heap_mb", r.HeapMB),
		slog.Float64("alloc_rate_mb", r.AllocRateMB),
		slog.Uint64("gc", uint64(r.GCCount)),
		slog.Uint64("gc_last_us", r.LastPauseUs),
		slog.Uint64("gc_max_us", r.MaxPauseUs),
		slog.Float64("sys_mb", r.SysMB),
	}
	if p.stats != nil {
		cur := p.stats()
		r.Cache = renderer.CacheStats{
			Compiles:      cur.Compiles - p.lastStats.Compiles,
			Failures:      cur.Failures - p.lastStats.Failures,
			Allocations:   cur.Allocations - p.lastStats.Allocations,
			BufferWrites:  cur.BufferWrites - p.lastStats.BufferWrites,
			BuiltinWrites: cur.BuiltinWrites - p.lastStats.BuiltinWrites,
		}
		p.lastStats = cur
		attrs = append(attrs, slog.Group("cache",
			slog.Uint64("compiles", r.Cache.Compiles),
			slog.Uint64("failures", r.Cache.Failures),
			slog.Uint64("allocations", r.Cache.Allocations),
			slog.Uint64("writes", r.Cache.BufferWrites),
		))
	}
	common.Logger().Info("profiler", attrs...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r, true
}
