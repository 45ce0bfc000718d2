// Package metrics keeps codecd's counters and exports them in the
// Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type collector interface {
	write(sb *strings.Builder)
}

// family holds the shared description of one metric.
type family struct {
	name   string
	help   string
	kind   string
	labels []string
}

func (f family) key(values []string) string {
	if len(values) != len(f.labels) {
		panic(fmt.Sprintf("%s: expected %d labels, got %d", f.name, len(f.labels), len(values)))
	}
	return strings.Join(values, "\x1f")
}

func (f family) header(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
}

// sample writes one line. extra is appended to the label set, as the le
// label of histogram buckets is.
func (f family) sample(sb *strings.Builder, suffix, key, extra, value string) {
	sb.WriteString(f.name)
	sb.WriteString(suffix)
	var pairs []string
	if len(f.labels) > 0 {
		parts := strings.Split(key, "\x1f")
		for i, label := range f.labels {
			pairs = append(pairs, label+"=\""+escapeLabel(parts[i])+"\"")
		}
	}
	if extra != "" {
		pairs = append(pairs, extra)
	}
	if len(pairs) > 0 {
		sb.WriteString("{")
		sb.WriteString(strings.Join(pairs, ","))
		sb.WriteString("}")
	}
	sb.WriteString(" ")
	sb.WriteString(value)
	sb.WriteString("\n")
}

// valueVec backs counters and gauges.
type valueVec struct {
	family
	mu     sync.RWMutex
	values map[string]float64
}

func newCounterVec(name, help string, labels ...string) *valueVec {
	return &valueVec{family: family{name, help, "counter", labels}, values: make(map[string]float64)}
}

func newGaugeVec(name, help string, labels ...string) *valueVec {
	return &valueVec{family: family{name, help, "gauge", labels}, values: make(map[string]float64)}
}

func (v *valueVec) Add(delta float64, values ...string) {
	key := v.key(values)
	v.mu.Lock()
	v.values[key] += delta
	v.mu.Unlock()
}

func (v *valueVec) Inc(values ...string) {
	v.Add(1, values...)
}

func (v *valueVec) Get(values ...string) float64 {
	key := v.key(values)
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

func (v *valueVec) write(sb *strings.Builder) {
	v.header(sb)
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, key := range sortedKeys(v.values) {
		v.sample(sb, "", key, "", fmt.Sprintf("%g", v.values[key]))
	}
}

type histogramVec struct {
	family
	buckets []float64
	mu      sync.RWMutex
	values  map[string]*histogramValue
}

type histogramValue struct {
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogramVec(name, help string, labels ...string) *histogramVec {
	return &histogramVec{
		family:  family{name, help, "histogram", labels},
		buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		values:  make(map[string]*histogramValue),
	}
}

func (h *histogramVec) Observe(sample float64, values ...string) {
	key := h.key(values)
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(h.buckets)+1)}
		h.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	idx := sort.SearchFloat64s(h.buckets, sample)
	entry.counts[idx]++
}

func (h *histogramVec) write(sb *strings.Builder) {
	h.header(sb)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, key := range sortedKeys(h.values) {
		entry := h.values[key]
		var cumulative uint64
		for i, upper := range h.buckets {
			cumulative += entry.counts[i]
			h.sample(sb, "_bucket", key, fmt.Sprintf("le=\"%g\"", upper), fmt.Sprintf("%d", cumulative))
		}
		cumulative += entry.counts[len(h.buckets)]
		h.sample(sb, "_bucket", key, `le="+Inf"`, fmt.Sprintf("%d", cumulative))
		h.sample(sb, "_sum", key, "", fmt.Sprintf("%g", entry.sum))
		h.sample(sb, "_count", key, "", fmt.Sprintf("%d", entry.total))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

var (
	rpcRequests   = newCounterVec("codecs_rpc_requests_total", "Total number of RPC calls handled by codecd.", "method")
	rpcErrors     = newCounterVec("codecs_rpc_errors_total", "Total number of RPC calls that ended with a non-OK status.", "method", "code")
	rpcLatency    = newHistogramVec("codecs_rpc_duration_seconds", "Time spent serving RPC calls, by method and status code.", "method", "code")
	pipelineRuns  = newCounterVec("codecs_pipeline_runs_total", "Pipeline executions by entry point and outcome.", "source", "outcome")
	payloadBytes  = newCounterVec("codecs_payload_bytes_total", "Bytes passed through pipelines, by direction.", "direction")
	activeStreams = newGaugeVec("codecs_active_streams", "Number of open streaming sessions.")

	collectors = []collector{rpcRequests, rpcErrors, rpcLatency, pipelineRuns, payloadBytes, activeStreams}

	totalRequests uint64
)

// Handler exposes the metrics registry as an http.Handler compatible with Prometheus.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, c := range collectors {
			c.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

// ObserveRPC records one finished call. code is the gRPC status code name.
func ObserveRPC(method, code string, dur time.Duration) {
	rpcRequests.Inc(method)
	atomic.AddUint64(&totalRequests, 1)
	if code != "OK" {
		rpcErrors.Inc(method, code)
	}
	rpcLatency.Observe(dur.Seconds(), method, code)
}

// RecordRun counts one pipeline run from source ("execute" or "stream")
// and the bytes it consumed and produced.
func RecordRun(source string, in, out int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	pipelineRuns.Inc(source, outcome)
	payloadBytes.Add(float64(in), "in")
	if err == nil {
		payloadBytes.Add(float64(out), "out")
	}
}

// StreamOpened and StreamClosed track the open stream gauge.
func StreamOpened() { activeStreams.Add(1) }

func StreamClosed() { activeStreams.Add(-1) }

// ActiveStreams returns the current value of the open stream gauge.
func ActiveStreams() int {
	return int(activeStreams.Get())
}

// TotalRequests returns the total number of RPC requests served since process start.
func TotalRequests() uint64 {
	return atomic.LoadUint64(&totalRequests)
}
