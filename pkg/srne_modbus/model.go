package srne_modbus

import "fmt"

// holding registers
const (
	RegBatteryBlock   uint16 = 0x0100 // soc, voltage x10, current x10 (int16)
	RegBatteryCount   uint16 = 3
	RegHouseLoad      uint16 = 0x021C
	RegAuxLoad        uint16 = 0x0234
	RegOutputPriority uint16 = 0xE204
	RegChargeCurrent  uint16 = 0xE205 // amps x10
)

// register ids in the flat register map, relative to the 0x0100, 0x0200
// and 0x0220 blocks read back to back
const (
	RegisterIdBatterySoC     = "0"
	RegisterIdBatteryVoltage = "1"
	RegisterIdBatteryCurrent = "2"
	RegisterIdHouseLoad      = "44"
	RegisterIdAuxLoad        = "68"
)

// output priority codes
const (
	OutputPrioritySolar   uint16 = 0
	OutputPriorityUtility uint16 = 1
	OutputPriorityBattery uint16 = 2
)

const (
	OutputPrioritySolarStr   = "solar"
	OutputPriorityUtilityStr = "utility"
	OutputPriorityBatteryStr = "battery"
	OutputPriorityUnknownStr = "unknown"
)

func OutputPriorityToString(code uint16) string {
	switch code {
	case OutputPrioritySolar:
		return OutputPrioritySolarStr
	case OutputPriorityUtility:
		return OutputPriorityUtilityStr
	case OutputPriorityBattery:
		return OutputPriorityBatteryStr
	default:
		return fmt.Sprintf("%s(%d)", OutputPriorityUnknownStr, code)
	}
}

// MaxChargeCurrentAmps is the largest value the charge current register accepts.
const MaxChargeCurrentAmps = 6553.5

func ChargeCurrentToRegister(amps float64) (uint16, error) {
	if amps < 0 || amps > MaxChargeCurrentAmps {
		return 0, fmt.Errorf("charge current out of range: %.1f", amps)
	}
	return uint16(amps * 10), nil
}
