package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Hand-rolled Prometheus text-format primitives. Output is sorted by label set
// so scrapes are stable.

type collector interface {
	WritePrometheus(w io.Writer) error
}

func writeHeader(w io.Writer, name, help, kind string) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", name, help); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// vec is a float series keyed by rendered label set, shared by counters and gauges.
type vec struct {
	name       string
	help       string
	kind       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func newVec(name, help, kind string, labels []string) *vec {
	return &vec{name: name, help: help, kind: kind, labelNames: labels, values: map[string]float64{}}
}

func (v *vec) update(fn func(float64) float64, values ...string) {
	lbl := labelString(v.labelNames, values)
	v.mu.Lock()
	v.values[lbl] = fn(v.values[lbl])
	v.mu.Unlock()
}

func (v *vec) get(values ...string) float64 {
	lbl := labelString(v.labelNames, values)
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[lbl]
}

func (v *vec) WritePrometheus(w io.Writer) error {
	if err := writeHeader(w, v.name, v.help, v.kind); err != nil {
		return err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, k := range sortedKeys(v.values) {
		if _, err := fmt.Fprintf(w, "%s%s %g\n", v.name, k, v.values[k]); err != nil {
			return err
		}
	}
	return nil
}

type CounterVec struct{ v *vec }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{v: newVec(name, help, "counter", labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(delta float64, values ...string) {
	if c == nil || delta < 0 {
		return
	}
	c.v.update(func(cur float64) float64 { return cur + delta }, values...)
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.v.get(values...)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.v.WritePrometheus(w)
}

type GaugeVec struct{ v *vec }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{v: newVec(name, help, "gauge", labels)}
}

func (g *GaugeVec) Set(val float64, values ...string) {
	if g == nil {
		return
	}
	g.v.update(func(float64) float64 { return val }, values...)
}

func (g *GaugeVec) Add(delta float64, values ...string) {
	if g == nil {
		return
	}
	g.v.update(func(cur float64) float64 { return cur + delta }, values...)
}

func (g *GaugeVec) Value(values ...string) float64 {
	if g == nil {
		return 0
	}
	return g.v.get(values...)
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.v.WritePrometheus(w)
}

type HistogramVec struct {
	name       string
	help       string
	labelNames []string
	buckets    []float64
	mu         sync.RWMutex
	values     map[string]*histogram
}

type histogram struct {
	counts []uint64 // cumulative per bucket, last slot is +Inf
	sum    float64
	total  uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	}
	return &HistogramVec{name: name, help: help, labelNames: labels, buckets: buckets, values: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	lbl := labelString(h.labelNames, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.values[lbl]
	if !ok {
		hist = &histogram{counts: make([]uint64, len(h.buckets)+1)}
		h.values[lbl] = hist
	}
	hist.sum += v
	hist.total++
	for i, b := range h.buckets {
		if v <= b {
			hist.counts[i]++
		}
	}
	hist.counts[len(h.buckets)]++
}

func (h *HistogramVec) Count(values ...string) uint64 {
	if h == nil {
		return 0
	}
	lbl := labelString(h.labelNames, values)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if hist, ok := h.values[lbl]; ok {
		return hist.total
	}
	return 0
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if err := writeHeader(w, h.name, h.help, "histogram"); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, k := range sortedKeys(h.values) {
		hist := h.values[k]
		for i, b := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", b)), hist.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, "+Inf"), hist.counts[len(h.buckets)]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %g\n%s_count%s %d\n", h.name, k, hist.sum, h.name, k, hist.total); err != nil {
			return err
		}
	}
	return nil
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		parts[i] = name + "=\"" + escapeLabel(val) + "\""
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n")

func escapeLabel(v string) string { return labelEscaper.Replace(v) }

func withLe(labels string, le string) string {
	le = escapeLabel(le)
	if labels == "" || labels == "{}" {
		return "{le=\"" + le + "\"}"
	}
	return strings.TrimSuffix(labels, "}") + ",le=\"" + le + "\"}"
}
