package metrics

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "midistream"

// contentType is the media type of the text exposition format.
var contentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

type funcMetric struct {
	name string
	help string
	typ  dto.MetricType
	fn   func() float64
}

// Metrics holds the bridge counters. The zero value is not usable; call New.
type Metrics struct {
	received     atomic.Uint64
	dropped      atomic.Uint64
	broadcast    atomic.Uint64
	sendFailures atomic.Uint64

	mu    sync.Mutex
	funcs []funcMetric
}

// New returns an empty Metrics.
func New() *Metrics {
	return &Metrics{}
}

// EventReceived counts an event accepted from the active device.
func (m *Metrics) EventReceived() { m.received.Add(1) }

// EventDropped counts an event that never reached the bridge queue.
func (m *Metrics) EventDropped() { m.dropped.Add(1) }

// EventBroadcast counts an event dequeued and offered to clients.
func (m *Metrics) EventBroadcast() { m.broadcast.Add(1) }

// SendFailed counts a per-client delivery failure.
func (m *Metrics) SendFailed() { m.sendFailures.Add(1) }

// GaugeFunc registers a gauge whose value is read from fn at scrape time.
// name is prefixed with the namespace.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.register(name, help, dto.MetricType_GAUGE, fn)
}

// CounterFunc registers a counter whose value is read from fn at scrape time.
func (m *Metrics) CounterFunc(name, help string, fn func() float64) {
	m.register(name, help, dto.MetricType_COUNTER, fn)
}

func (m *Metrics) register(name, help string, typ dto.MetricType, fn func() float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, funcMetric{name: namespace + "_" + name, help: help, typ: typ, fn: fn})
}

// Families returns every metric as a Prometheus metric family, sorted by name.
func (m *Metrics) Families() []*dto.MetricFamily {
	out := []*dto.MetricFamily{
		family(namespace+"_events_received_total", "MIDI events accepted from the active device.",
			dto.MetricType_COUNTER, float64(m.received.Load())),
		family(namespace+"_events_dropped_total", "MIDI events dropped before reaching the bridge queue.",
			dto.MetricType_COUNTER, float64(m.dropped.Load())),
		family(namespace+"_events_broadcast_total", "MIDI events dequeued and offered to stream clients.",
			dto.MetricType_COUNTER, float64(m.broadcast.Load())),
		family(namespace+"_client_send_failures_total", "Per-client deliveries that failed and evicted the client.",
			dto.MetricType_COUNTER, float64(m.sendFailures.Load())),
	}

	m.mu.Lock()
	funcs := append([]funcMetric(nil), m.funcs...)
	m.mu.Unlock()
	for _, f := range funcs {
		out = append(out, family(f.name, f.help, f.typ, f.fn()))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// ServeHTTP writes all families in the text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", contentType)
	for _, mf := range m.Families() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return
		}
	}
}

func family(name, help string, typ dto.MetricType, v float64) *dto.MetricFamily {
	metric := &dto.Metric{}
	switch typ {
	case dto.MetricType_GAUGE:
		metric.Gauge = &dto.Gauge{Value: proto.Float64(v)}
	default:
		metric.Counter = &dto.Counter{Value: proto.Float64(v)}
	}
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   typ.Enum(),
		Metric: []*dto.Metric{metric},
	}
}
