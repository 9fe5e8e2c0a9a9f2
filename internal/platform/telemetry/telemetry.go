// Package telemetry records HTTP and clinic-operation metrics in memory and
// serves them in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Duration buckets in seconds.
var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// operations names the successful requests counted as clinic operations,
// keyed by method and route pattern.
var operations = map[string]string{
	http.MethodPost + " /api/patients":                         "create_patient",
	http.MethodPut + " /api/patients/:id":                      "update_patient",
	http.MethodPut + " /api/patients/:id/archive":              "archive_patient",
	http.MethodDelete + " /api/patients/:id":                   "delete_patient",
	http.MethodPost + " /api/patients/:id/records":             "add_record",
	http.MethodPut + " /api/patients/:id/records/:rid/archive": "archive_record",
	http.MethodGet + " /api/export/records":                    "export_records",
	http.MethodGet + " /api/export/records.csv":                "export_records",
	http.MethodGet + " /api/export/records.xlsx":               "export_records",
}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram stores non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	cum := make([]int64, len(h.bucketCounts))
	var running int64
	for i, c := range h.bucketCounts {
		running += c
		cum[i] = running
	}
	return cum
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(next)) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

// Metrics holds every series the server exports.
type Metrics struct {
	mu         sync.RWMutex
	durations  map[string]*histogram // LabelsKey(method, route, status)
	operations map[string]*int64

	active int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		durations:  make(map[string]*histogram),
		operations: make(map[string]*int64),
	}
}

// LabelsKey builds the key of a request-duration series.
func LabelsKey(method, route, status string) string {
	return method + "|" + route + "|" + status
}

func (m *Metrics) observe(key string, seconds float64) {
	m.mu.RLock()
	h, ok := m.durations[key]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if h, ok = m.durations[key]; !ok {
			h = newHistogram(defaultDurationBuckets)
			m.durations[key] = h
		}
		m.mu.Unlock()
	}
	h.Observe(seconds)
}

// CountOperation increments the clinic operation counter for name.
func (m *Metrics) CountOperation(name string) {
	m.mu.RLock()
	p, ok := m.operations[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if p, ok = m.operations[name]; !ok {
			p = new(int64)
			m.operations[name] = p
		}
		m.mu.Unlock()
	}
	atomic.AddInt64(p, 1)
}

// Operation returns the current count for name.
func (m *Metrics) Operation(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.operations[name]; ok {
		return atomic.LoadInt64(p)
	}
	return 0
}

// Requests returns how many requests were observed for the series.
func (m *Metrics) Requests(method, route, status string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.durations[LabelsKey(method, route, status)]; ok {
		return h.Count()
	}
	return 0
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// Middleware records request duration per route and counts successful
// clinic operations.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&m.active, -1)
			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.observe(LabelsKey(method, route, strconv.Itoa(status)), time.Since(start).Seconds())

			if status < 400 {
				if op, ok := operations[method+" "+route]; ok {
					m.CountOperation(op)
				}
			}
			return err
		}
	}
}

// ---------------------------------------------------------------------------
// Prometheus exposition
// ---------------------------------------------------------------------------

func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, m.render())
	}
}

func (m *Metrics) render() string {
	var b strings.Builder

	m.mu.RLock()
	keys := make([]string, 0, len(m.durations))
	for k := range m.durations {
		keys = append(keys, k)
	}
	ops := make([]string, 0, len(m.operations))
	for k := range m.operations {
		ops = append(ops, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	sort.Strings(ops)

	const name = "http_server_request_duration_seconds"
	fmt.Fprintf(&b, "# HELP %s Duration of HTTP requests in seconds.\n", name)
	fmt.Fprintf(&b, "# TYPE %s histogram\n", name)
	for _, key := range keys {
		parts := strings.SplitN(key, "|", 3)
		m.mu.RLock()
		h := m.durations[key]
		m.mu.RUnlock()
		labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
		writeHistogram(&b, name, labels, h)
	}
	b.WriteByte('\n')

	b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
	b.WriteString("# TYPE http_server_active_requests gauge\n")
	fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&m.active))

	b.WriteString("# HELP clinic_operation_count Successful clinic record operations.\n")
	b.WriteString("# TYPE clinic_operation_count counter\n")
	for _, op := range ops {
		fmt.Fprintf(&b, "clinic_operation_count{operation=%q} %d\n", op, m.Operation(op))
	}
	return b.String()
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	total := h.Count()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}
