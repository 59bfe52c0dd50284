// Package performance records request and operation timings for the admin
// metrics endpoint.
package performance

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Profiler tracks timing statistics per named operation.
// It is safe for concurrent use.
type Profiler struct {
	mu        sync.RWMutex
	metrics   map[string]*Metric
	enabled   bool
	startTime time.Time
}

// Metric holds statistics for one operation
type Metric struct {
	Name      string
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
	LastTime  time.Duration
	LastCall  time.Time
}

// Operation is a single timed operation started with Start
type Operation struct {
	profiler *Profiler
	name     string
	start    time.Time
}

// NewProfiler creates a new performance profiler
func NewProfiler(enabled bool) *Profiler {
	return &Profiler{
		metrics:   make(map[string]*Metric),
		enabled:   enabled,
		startTime: time.Now(),
	}
}

// Start begins timing an operation. It returns nil when profiling is disabled;
// calling End on a nil operation is a no-op.
func (p *Profiler) Start(name string) *Operation {
	if !p.IsEnabled() {
		return nil
	}
	return &Operation{
		profiler: p,
		name:     name,
		start:    time.Now(),
	}
}

// End completes timing an operation and records the metric
func (o *Operation) End() {
	if o == nil {
		return
	}
	o.profiler.Record(o.name, time.Since(o.start), false)
}

// Fail completes timing an operation and counts it as an error
func (o *Operation) Fail() {
	if o == nil {
		return
	}
	o.profiler.Record(o.name, time.Since(o.start), true)
}

// Record directly records a duration for an operation
func (p *Profiler) Record(name string, duration time.Duration, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}

	metric, exists := p.metrics[name]
	if !exists {
		metric = &Metric{
			Name:    name,
			MinTime: duration,
			MaxTime: duration,
		}
		p.metrics[name] = metric
	}

	metric.Count++
	if failed {
		metric.Errors++
	}
	metric.TotalTime += duration
	metric.LastTime = duration
	metric.LastCall = time.Now()

	if duration < metric.MinTime {
		metric.MinTime = duration
	}
	if duration > metric.MaxTime {
		metric.MaxTime = duration
	}
}

// GetMetric returns a copy of the statistics for an operation, or nil
func (p *Profiler) GetMetric(name string) *Metric {
	p.mu.RLock()
	defer p.mu.RUnlock()
	metric, ok := p.metrics[name]
	if !ok {
		return nil
	}
	copied := *metric
	return &copied
}

// Snapshot returns copies of all metrics sorted by name
func (p *Profiler) Snapshot() []Metric {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]Metric, 0, len(p.metrics))
	for _, metric := range p.metrics {
		result = append(result, *metric)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// AverageTime returns the average time for a metric
func (m Metric) AverageTime() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Count)
}

// Reset clears all metrics
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = make(map[string]*Metric)
	p.startTime = time.Now()
}

// MetricReport is the JSON form of a Metric. Durations are milliseconds.
type MetricReport struct {
	Name     string    `json:"name"`
	Count    int64     `json:"count"`
	Errors   int64     `json:"errors"`
	TotalMS  float64   `json:"total_ms"`
	AvgMS    float64   `json:"avg_ms"`
	MinMS    float64   `json:"min_ms"`
	MaxMS    float64   `json:"max_ms"`
	LastMS   float64   `json:"last_ms"`
	LastCall time.Time `json:"last_call"`
}

// Report is the JSON performance report served to admins
type Report struct {
	StartTime time.Time      `json:"start_time"`
	RuntimeMS float64        `json:"runtime_ms"`
	Enabled   bool           `json:"enabled"`
	Metrics   []MetricReport `json:"metrics"`
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// BuildReport collects the current statistics
func (p *Profiler) BuildReport() Report {
	snapshot := p.Snapshot()

	p.mu.RLock()
	report := Report{
		StartTime: p.startTime,
		RuntimeMS: millis(time.Since(p.startTime)),
		Enabled:   p.enabled,
		Metrics:   make([]MetricReport, 0, len(snapshot)),
	}
	p.mu.RUnlock()

	for _, m := range snapshot {
		report.Metrics = append(report.Metrics, MetricReport{
			Name:     m.Name,
			Count:    m.Count,
			Errors:   m.Errors,
			TotalMS:  millis(m.TotalTime),
			AvgMS:    millis(m.AverageTime()),
			MinMS:    millis(m.MinTime),
			MaxMS:    millis(m.MaxTime),
			LastMS:   millis(m.LastTime),
			LastCall: m.LastCall,
		})
	}
	return report
}

// JSONReport generates a JSON performance report
func (p *Profiler) JSONReport() ([]byte, error) {
	return json.MarshalIndent(p.BuildReport(), "", "  ")
}

// LogReport writes one log entry per metric
func (p *Profiler) LogReport(log *zap.Logger) {
	for _, m := range p.Snapshot() {
		log.Info("Performance metric",
			zap.String("operation", m.Name),
			zap.Int64("count", m.Count),
			zap.Int64("errors", m.Errors),
			zap.Duration("avg", m.AverageTime()),
			zap.Duration("min", m.MinTime),
			zap.Duration("max", m.MaxTime),
		)
	}
}

// Enable enables profiling
func (p *Profiler) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = true
}

// Disable disables profiling
func (p *Profiler) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
}

// IsEnabled returns whether profiling is enabled
func (p *Profiler) IsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}
