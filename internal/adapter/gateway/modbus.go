package gateway

import (
	"context"
	"fmt"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/core/port"
	"github.com/berfenger/chargectl/pkg/srne_modbus"
)

// ModbusGateway drives the inverter registers directly. The modbus client
// enforces its own timeout, ctx is only checked before each round trip.
type ModbusGateway struct {
	reader srne_modbus.InverterModbusReader
}

func NewModbusGateway(reader srne_modbus.InverterModbusReader) *ModbusGateway {
	return &ModbusGateway{reader: reader}
}

func (g *ModbusGateway) Open() error {
	return g.reader.Open()
}

func (g *ModbusGateway) Close() error {
	return g.reader.Close()
}

func (g *ModbusGateway) FetchReading(ctx context.Context) (*domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs, err := g.reader.ReadRegisters()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTelemetryUnavailable, err)
	}
	return domain.ReadingFromRegisters(regs)
}

func (g *ModbusGateway) SetChargeCurrent(ctx context.Context, amps float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.reader.SetChargeCurrent(amps)
}

func (g *ModbusGateway) SetOutputPriority(ctx context.Context, priority domain.OutputPriority) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	code, err := PriorityCode(priority)
	if err != nil {
		return err
	}
	return g.reader.SetOutputPriority(code)
}

func PriorityCode(priority domain.OutputPriority) (uint16, error) {
	switch priority {
	case domain.OutputPrioritySolarFirst:
		return srne_modbus.OutputPrioritySolar, nil
	case domain.OutputPriorityGridFirst:
		return srne_modbus.OutputPriorityUtility, nil
	case domain.OutputPriorityBatteryFirst:
		return srne_modbus.OutputPriorityBattery, nil
	default:
		return 0, fmt.Errorf("unsupported output priority %d", priority)
	}
}

// ensure interface compliance
var _ port.Gateway = (*ModbusGateway)(nil)
