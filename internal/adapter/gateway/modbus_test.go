package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/pkg/srne_modbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityCode(t *testing.T) {

	code, err := PriorityCode(domain.OutputPriorityGridFirst)
	require.NoError(t, err)
	assert.Equal(t, srne_modbus.OutputPriorityUtility, code)

	code, err = PriorityCode(domain.OutputPriorityBatteryFirst)
	require.NoError(t, err)
	assert.Equal(t, srne_modbus.OutputPriorityBattery, code)

	code, err = PriorityCode(domain.OutputPrioritySolarFirst)
	require.NoError(t, err)
	assert.Equal(t, srne_modbus.OutputPrioritySolar, code)

	_, err = PriorityCode(domain.OutputPriority(9))
	assert.Error(t, err)
}

func TestModbusGatewayOverTestInverter(t *testing.T) {

	inv := srne_modbus.CreateTestInverterModbusReader()
	gw := NewModbusGateway(inv)
	ctx := context.Background()

	require.NoError(t, gw.Open())
	defer gw.Close()

	r, err := gw.FetchReading(ctx)
	require.NoError(t, err)
	assert.Equal(t, 65, r.SoC)
	assert.InDelta(t, 2000.0, r.LoadWatt(), 1e-9)

	require.NoError(t, gw.SetOutputPriority(ctx, domain.OutputPriorityBatteryFirst))
	require.NoError(t, gw.SetChargeCurrent(ctx, 35))
	assert.Equal(t, srne_modbus.OutputPriorityBattery, inv.OutputPriority())
	assert.Equal(t, 35.0, inv.ChargeCurrent())

	inv.SetOffline(true)
	_, err = gw.FetchReading(ctx)
	assert.True(t, errors.Is(err, domain.ErrTelemetryUnavailable))
}

func TestModbusGatewayCancelledContext(t *testing.T) {

	gw := NewModbusGateway(srne_modbus.CreateTestInverterModbusReader())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.FetchReading(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeGateway(t *testing.T) {

	gw := NewFakeGateway()

	gw.SetFailWrites(true)
	err := gw.SetChargeCurrent(context.Background(), 20)
	assert.ErrorIs(t, err, domain.ErrActuatorRejected)
	assert.Equal(t, 0, gw.Inverter.Writes())

	gw.SetFailWrites(false)
	gw.SetDelay(200 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gw.FetchReading(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
