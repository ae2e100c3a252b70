package metrics

import (
	"net/http"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/pkg/srne_modbus"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chargectl"

var controlStates = []domain.ControlState{
	domain.ControlStateCharging,
	domain.ControlStateSuspended,
	domain.ControlStateDischargeOnly,
}

// Metrics exposes the controller status fed from the actor event stream.
type Metrics struct {
	registry *prometheus.Registry

	ticks            prometheus.Counter
	telemetryErrors  prometheus.Counter
	throttles        prometheus.Counter
	estimatedSoC     prometheus.Gauge
	rawSoC           prometheus.Gauge
	voltage          prometheus.Gauge
	load             prometheus.Gauge
	chargeCurrent    prometheus.Gauge
	outputPriority   prometheus.Gauge
	targetSoC        prometheus.Gauge
	dailyCurrent     prometheus.Gauge
	controlState     *prometheus.GaugeVec
	gatewayRoundTrip *prometheus.HistogramVec
	gatewayErrors    *prometheus.CounterVec
	modbusRoundTrip  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_ticks_total",
			Help:      "Total control ticks completed.",
		}),
		telemetryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_failures_total",
			Help:      "Total control ticks without telemetry.",
		}),
		throttles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_throttles_total",
			Help:      "Total daily charge current throttles.",
		}),
		estimatedSoC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_estimated_soc_percent",
			Help:      "Fractional battery SoC estimate.",
		}),
		rawSoC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_soc_percent",
			Help:      "Battery SoC as reported by the inverter.",
		}),
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_voltage_volts",
			Help:      "Battery voltage.",
		}),
		load: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_watts",
			Help:      "House plus auxiliary load.",
		}),
		chargeCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "charge_current_amps",
			Help:      "Grid charge current decided on the last tick.",
		}),
		outputPriority: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_priority",
			Help:      "Output priority decided on the last tick (0 solar, 1 grid, 2 battery).",
		}),
		targetSoC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_soc_percent",
			Help:      "Daily target SoC.",
		}),
		dailyCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_charge_current_amps",
			Help:      "Daily charge current cap.",
		}),
		controlState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_state",
			Help:      "1 for the current control state, 0 otherwise.",
		}, []string{"state"}),
		gatewayRoundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_round_trip_seconds",
			Help:      "Histogram of gateway call durations by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_errors_total",
			Help:      "Total failed gateway calls by operation.",
		}, []string{"operation"}),
		modbusRoundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modbus_round_trip_seconds",
			Help:      "Histogram of raw modbus register access durations.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"fn"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks,
		m.telemetryErrors,
		m.throttles,
		m.estimatedSoC,
		m.rawSoC,
		m.voltage,
		m.load,
		m.chargeCurrent,
		m.outputPriority,
		m.targetSoC,
		m.dailyCurrent,
		m.controlState,
		m.gatewayRoundTrip,
		m.gatewayErrors,
		m.modbusRoundTrip,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ModbusInstrument records register access times of a direct modbus gateway.
func (m *Metrics) ModbusInstrument() *srne_modbus.ModbusInstrument {
	return &srne_modbus.ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			m.modbusRoundTrip.WithLabelValues(fnName).Observe(readTime.Seconds())
		},
	}
}

// Subscribe feeds the metrics from the event stream until the returned
// subscription is removed.
func (m *Metrics) Subscribe(es *eventstream.EventStream) *eventstream.Subscription {
	return es.Subscribe(m.Observe)
}

func (m *Metrics) Observe(evt any) {
	switch e := evt.(type) {
	case domain.ControlTickEvent:
		m.observeTick(e.Result)
	case domain.GatewayRoundTripEvent:
		m.gatewayRoundTrip.WithLabelValues(e.Operation).Observe(e.Seconds)
		if e.Failed {
			m.gatewayErrors.WithLabelValues(e.Operation).Inc()
		}
	}
}

func (m *Metrics) observeTick(r domain.TickResult) {
	m.ticks.Inc()
	if r.TargetThrottled {
		m.throttles.Inc()
	}
	if r.Telemetry {
		m.rawSoC.Set(float64(r.RawSoC))
		m.voltage.Set(r.Voltage)
	} else {
		m.telemetryErrors.Inc()
	}
	m.estimatedSoC.Set(r.EstimatedSoC)
	m.load.Set(r.Load)
	m.chargeCurrent.Set(r.ChargeCurrent)
	m.outputPriority.Set(float64(r.Priority))
	m.targetSoC.Set(float64(r.Target.TargetSoC))
	m.dailyCurrent.Set(float64(r.Target.DailyChargeCurrent))
	for _, s := range controlStates {
		v := 0.0
		if s == r.State {
			v = 1
		}
		m.controlState.WithLabelValues(s.String()).Set(v)
	}
}
