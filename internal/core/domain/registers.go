package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTelemetryUnavailable = errors.New("telemetry unavailable")
	ErrActuatorRejected     = errors.New("actuator rejected command")
	ErrTargetUnreadable     = errors.New("daily target unreadable")
)

// register ids as exposed by the gateway
const (
	REGISTER_ID_BATTERY_SOC     = "0"
	REGISTER_ID_BATTERY_VOLTAGE = "1"
	REGISTER_ID_BATTERY_CURRENT = "2"
	REGISTER_ID_HOUSE_LOAD      = "44"
	REGISTER_ID_AUX_LOAD        = "68"
)

func RequiredRegisters() []string {
	return []string{
		REGISTER_ID_BATTERY_SOC,
		REGISTER_ID_BATTERY_VOLTAGE,
		REGISTER_ID_BATTERY_CURRENT,
		REGISTER_ID_HOUSE_LOAD,
		REGISTER_ID_AUX_LOAD,
	}
}

// ReadingFromRegisters decodes a gateway register map. Voltage and current
// are in tenths, current is a 16 bit two's complement value.
func ReadingFromRegisters(regs map[string]int) (*Reading, error) {
	for _, id := range RequiredRegisters() {
		if _, ok := regs[id]; !ok {
			return nil, fmt.Errorf("%w: missing register %s", ErrTelemetryUnavailable, id)
		}
	}
	soc := regs[REGISTER_ID_BATTERY_SOC]
	if soc < 0 || soc > 100 {
		return nil, fmt.Errorf("%w: soc out of range: %d", ErrTelemetryUnavailable, soc)
	}
	rawCurrent := regs[REGISTER_ID_BATTERY_CURRENT]
	if rawCurrent > 32767 {
		rawCurrent -= 65536
	}
	return &Reading{
		SoC:          soc,
		CurrentAmps:  float64(rawCurrent) / 10,
		VoltageVolts: float64(regs[REGISTER_ID_BATTERY_VOLTAGE]) / 10,
		HouseLoadW:   float64(regs[REGISTER_ID_HOUSE_LOAD]),
		AuxLoadW:     float64(regs[REGISTER_ID_AUX_LOAD]),
	}, nil
}
