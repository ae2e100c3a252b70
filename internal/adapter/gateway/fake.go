package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/pkg/srne_modbus"
)

// FakeGateway is a ModbusGateway over an in-memory inverter with
// injectable latency and write failures.
type FakeGateway struct {
	*ModbusGateway
	Inverter *srne_modbus.TestInverterModbusReader

	mu         sync.Mutex
	delay      time.Duration
	failWrites bool
}

func NewFakeGateway() *FakeGateway {
	inv := srne_modbus.CreateTestInverterModbusReader()
	return &FakeGateway{
		ModbusGateway: NewModbusGateway(inv),
		Inverter:      inv,
	}
}

func (g *FakeGateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

func (g *FakeGateway) SetFailWrites(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWrites = fail
}

func (g *FakeGateway) wait(ctx context.Context) error {
	g.mu.Lock()
	d := g.delay
	g.mu.Unlock()
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *FakeGateway) writesFailing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failWrites
}

func (g *FakeGateway) FetchReading(ctx context.Context) (*domain.Reading, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return g.ModbusGateway.FetchReading(ctx)
}

func (g *FakeGateway) SetChargeCurrent(ctx context.Context, amps float64) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	if g.writesFailing() {
		return domain.ErrActuatorRejected
	}
	return g.ModbusGateway.SetChargeCurrent(ctx, amps)
}

func (g *FakeGateway) SetOutputPriority(ctx context.Context, priority domain.OutputPriority) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	if g.writesFailing() {
		return domain.ErrActuatorRejected
	}
	return g.ModbusGateway.SetOutputPriority(ctx, priority)
}
