package srne_modbus

import (
	"errors"
	"sync"
)

var ErrTestReaderOffline = errors.New("test reader offline")

func CreateTestInverterModbusReader() *TestInverterModbusReader {
	return &TestInverterModbusReader{
		registers: map[string]int{
			RegisterIdBatterySoC:     65,
			RegisterIdBatteryVoltage: 532,
			RegisterIdBatteryCurrent: 0,
			RegisterIdHouseLoad:      1500,
			RegisterIdAuxLoad:        500,
		},
		priority: OutputPriorityUtility,
	}
}

// TestInverterModbusReader is an in-memory inverter used by tests and by the
// "test" gateway mode.
type TestInverterModbusReader struct {
	mu            sync.Mutex
	registers     map[string]int
	chargeCurrent float64
	priority      uint16
	writes        int
	offline       bool
}

func (inv *TestInverterModbusReader) Open() error {
	return nil
}

func (inv *TestInverterModbusReader) Close() error {
	return nil
}

func (inv *TestInverterModbusReader) ReadRegisters() (map[string]int, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.offline {
		return nil, ErrTestReaderOffline
	}
	regs := make(map[string]int, len(inv.registers))
	for k, v := range inv.registers {
		regs[k] = v
	}
	return regs, nil
}

func (inv *TestInverterModbusReader) SetChargeCurrent(amps float64) error {
	if _, err := ChargeCurrentToRegister(amps); err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.offline {
		return ErrTestReaderOffline
	}
	inv.chargeCurrent = amps
	inv.writes++
	return nil
}

func (inv *TestInverterModbusReader) SetOutputPriority(code uint16) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.offline {
		return ErrTestReaderOffline
	}
	inv.priority = code
	inv.writes++
	return nil
}

func (inv *TestInverterModbusReader) SetRegister(id string, value int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.registers[id] = value
}

func (inv *TestInverterModbusReader) SetOffline(offline bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.offline = offline
}

func (inv *TestInverterModbusReader) ChargeCurrent() float64 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.chargeCurrent
}

func (inv *TestInverterModbusReader) OutputPriority() uint16 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.priority
}

func (inv *TestInverterModbusReader) Writes() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.writes
}
