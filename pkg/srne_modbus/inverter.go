package srne_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type InverterModbusReader interface {
	Open() error
	Close() error
	// ReadRegisters returns the telemetry registers keyed by register id.
	ReadRegisters() (map[string]int, error)
	SetChargeCurrent(amps float64) error
	SetOutputPriority(code uint16) error
}

type SrneInverterModbusReader struct {
	ModbusClient

	logger *zap.Logger
}

func (inv *SrneInverterModbusReader) Open() error {
	return inv.client.Open()
}

func (inv *SrneInverterModbusReader) Close() error {
	return inv.client.Close()
}

func (inv *SrneInverterModbusReader) ReadRegisters() (map[string]int, error) {
	battery, err := inv.readRegisters(RegBatteryBlock, RegBatteryCount, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("read battery block: %w", err)
	}
	if len(battery) < int(RegBatteryCount) {
		return nil, fmt.Errorf("read battery block: short response (%d registers)", len(battery))
	}
	houseLoad, err := inv.readRegister(RegHouseLoad, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("read house load: %w", err)
	}
	auxLoad, err := inv.readRegister(RegAuxLoad, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("read aux load: %w", err)
	}
	return map[string]int{
		RegisterIdBatterySoC:     int(battery[0]),
		RegisterIdBatteryVoltage: int(battery[1]),
		RegisterIdBatteryCurrent: int(battery[2]),
		RegisterIdHouseLoad:      int(houseLoad),
		RegisterIdAuxLoad:        int(auxLoad),
	}, nil
}

func (inv *SrneInverterModbusReader) SetChargeCurrent(amps float64) error {
	value, err := ChargeCurrentToRegister(amps)
	if err != nil {
		return err
	}
	inv.logger.Debug("srne: write charge current", zap.Float64("amps", amps), zap.Uint16("register", value))
	return inv.writeRegister(RegChargeCurrent, value)
}

func (inv *SrneInverterModbusReader) SetOutputPriority(code uint16) error {
	if code > OutputPriorityBattery {
		return fmt.Errorf("invalid output priority code %d", code)
	}
	inv.logger.Debug("srne: write output priority", zap.String("priority", OutputPriorityToString(code)))
	return inv.writeRegister(RegOutputPriority, code)
}

func debugLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus round trip", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

// CreateInverterModbusReader builds a reader for rtu:// (serial) or tcp://
// urls. speed only applies to serial links.
func CreateInverterModbusReader(url string, speed uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (InverterModbusReader, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Speed:   speed,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	inverterLogger := logger.With(zap.String("target", "inverter"), zap.Uint8("unit_id", unitId))

	// instrumentation
	var inst []ModbusInstrument
	inst = append(inst, *debugLoggerInstrumentation(inverterLogger))
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	if unitId > 0 {
		err = client.SetUnitId(unitId)
		if err != nil {
			return nil, err
		}
	}

	return &SrneInverterModbusReader{
		ModbusClient: ModbusClient{
			client:     client,
			instrument: inst,
		},
		logger: inverterLogger,
	}, nil
}
