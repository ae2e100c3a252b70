package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chargingResult() domain.TickResult {
	return domain.TickResult{
		Telemetry:     true,
		Period:        domain.PeriodCheap,
		State:         domain.ControlStateCharging,
		Priority:      domain.OutputPriorityGridFirst,
		ChargeCurrent: 40,
		EstimatedSoC:  65.3,
		RawSoC:        65,
		Voltage:       53.2,
		Load:          2000,
		Target:        domain.DailyTarget{TargetSoC: 90, DailyChargeCurrent: 40},
	}
}

func TestObserveTick(t *testing.T) {

	assert := assert.New(t)

	m := NewMetrics()
	m.Observe(domain.ControlTickEvent{Result: chargingResult()})

	assert.Equal(1.0, testutil.ToFloat64(m.ticks))
	assert.Equal(65.3, testutil.ToFloat64(m.estimatedSoC))
	assert.Equal(65.0, testutil.ToFloat64(m.rawSoC))
	assert.Equal(40.0, testutil.ToFloat64(m.chargeCurrent))
	assert.Equal(1.0, testutil.ToFloat64(m.outputPriority))
	assert.Equal(90.0, testutil.ToFloat64(m.targetSoC))
	assert.Equal(40.0, testutil.ToFloat64(m.dailyCurrent))
	assert.Equal(1.0, testutil.ToFloat64(m.controlState.WithLabelValues("charging")))
	assert.Equal(0.0, testutil.ToFloat64(m.controlState.WithLabelValues("discharge_only")))

	held := chargingResult()
	held.Telemetry = false
	held.RawSoC = 0
	held.Voltage = 0
	m.Observe(domain.ControlTickEvent{Result: held})

	assert.Equal(2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(1.0, testutil.ToFloat64(m.telemetryErrors))
	// last good telemetry is kept
	assert.Equal(65.0, testutil.ToFloat64(m.rawSoC))
	assert.Equal(53.2, testutil.ToFloat64(m.voltage))
}

func TestObserveGatewayRoundTrip(t *testing.T) {

	m := NewMetrics()
	m.Observe(domain.GatewayRoundTripEvent{Operation: "fetch", Seconds: 0.2})
	m.Observe(domain.GatewayRoundTripEvent{Operation: "fetch", Seconds: 2, Failed: true})
	m.Observe("ignored")

	assert.Equal(t, 1, testutil.CollectAndCount(m.gatewayRoundTrip))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayErrors.WithLabelValues("fetch")))
}

func TestModbusInstrument(t *testing.T) {

	m := NewMetrics()
	inst := m.ModbusInstrument()
	inst.RecordTime("ReadRegisters", 30*time.Millisecond)
	inst.RecordTime("WriteRegister", 10*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.modbusRoundTrip))
}

func TestSubscribeAndServe(t *testing.T) {

	m := NewMetrics()
	es := &eventstream.EventStream{}
	sub := m.Subscribe(es)

	es.Publish(domain.ControlTickEvent{Result: chargingResult()})
	es.Unsubscribe(sub)
	es.Publish(domain.ControlTickEvent{Result: chargingResult()})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ticks) == 1
	}, time.Second, 10*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "chargectl_battery_estimated_soc_percent 65.3"))
	assert.True(t, strings.Contains(string(body), `chargectl_control_state{state="charging"} 1`))
}
