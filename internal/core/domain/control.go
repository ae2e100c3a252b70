package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ControlState is the only persisted decision of the controller.
type ControlState uint8

const (
	ControlStateDischargeOnly ControlState = iota
	ControlStateCharging
	ControlStateSuspended
)

const (
	ControlStateChargingStr      = "charging"
	ControlStateSuspendedStr     = "suspended"
	ControlStateDischargeOnlyStr = "discharge_only"
)

func (s ControlState) String() string {
	switch s {
	case ControlStateCharging:
		return ControlStateChargingStr
	case ControlStateSuspended:
		return ControlStateSuspendedStr
	case ControlStateDischargeOnly:
		return ControlStateDischargeOnlyStr
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// OutputPriority is the inverter output source priority.
type OutputPriority uint8

const (
	OutputPrioritySolarFirst OutputPriority = iota
	OutputPriorityGridFirst
	OutputPriorityBatteryFirst
)

const (
	OutputPrioritySolarFirstStr   = "solar_first"
	OutputPriorityGridFirstStr    = "grid_first"
	OutputPriorityBatteryFirstStr = "battery_first"
)

func (p OutputPriority) String() string {
	switch p {
	case OutputPrioritySolarFirst:
		return OutputPrioritySolarFirstStr
	case OutputPriorityGridFirst:
		return OutputPriorityGridFirstStr
	case OutputPriorityBatteryFirst:
		return OutputPriorityBatteryFirstStr
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

func ParseOutputPriority(s string) (OutputPriority, error) {
	switch strings.ToLower(s) {
	case OutputPrioritySolarFirstStr:
		return OutputPrioritySolarFirst, nil
	case OutputPriorityGridFirstStr:
		return OutputPriorityGridFirst, nil
	case OutputPriorityBatteryFirstStr:
		return OutputPriorityBatteryFirst, nil
	}
	return 0, fmt.Errorf("invalid output priority %q", s)
}

// TimePeriod is the charging policy attached to a tariff window.
type TimePeriod uint8

const (
	// PeriodUnknown means no configured window matched.
	PeriodUnknown TimePeriod = iota
	PeriodCheap
	PeriodFixed
	// PeriodOther is a configured window without a grid charging policy.
	PeriodOther
)

const (
	PeriodUnknownStr = "unknown"
	PeriodCheapStr   = "cheap"
	PeriodFixedStr   = "fixed"
	PeriodOtherStr   = "other"
)

func (p TimePeriod) String() string {
	switch p {
	case PeriodCheap:
		return PeriodCheapStr
	case PeriodFixed:
		return PeriodFixedStr
	case PeriodOther:
		return PeriodOtherStr
	case PeriodUnknown:
		return PeriodUnknownStr
	default:
		return fmt.Sprintf("%s(%d)", PeriodUnknownStr, uint8(p))
	}
}

func ParseTimePeriod(s string) (TimePeriod, error) {
	switch strings.ToLower(s) {
	case PeriodCheapStr:
		return PeriodCheap, nil
	case PeriodFixedStr:
		return PeriodFixed, nil
	case PeriodOtherStr:
		return PeriodOther, nil
	}
	return PeriodUnknown, fmt.Errorf("invalid time period %q", s)
}

// Reading is one telemetry snapshot, already converted to engineering units.
type Reading struct {
	SoC int
	// negative while charging
	CurrentAmps  float64
	VoltageVolts float64
	HouseLoadW   float64
	AuxLoadW     float64
}

func (r Reading) LoadWatt() float64 {
	return r.HouseLoadW + r.AuxLoadW
}

// ChargeCurrentAmps returns the battery current with charging as positive.
func (r Reading) ChargeCurrentAmps() float64 {
	return -r.CurrentAmps
}

// DailyTarget is the record shared with the planner.
type DailyTarget struct {
	TargetSoC          int `json:"target_soc"`
	DailyChargeCurrent int `json:"daily_charge_current"`
}

// SoCEstimate is the fractional SoC tracked between integer telemetry steps.
type SoCEstimate struct {
	Value   float64
	LastRaw int
	Valid   bool
}

// AppliedOutputs holds the last values successfully written to hardware.
type AppliedOutputs struct {
	ChargeCurrent    float64
	HasChargeCurrent bool
	Priority         OutputPriority
	HasPriority      bool
}

// PendingWrites lists the actuator commands a tick has to issue. nil means
// the value is already applied.
type PendingWrites struct {
	Priority      *OutputPriority
	ChargeCurrent *float64
}

func (w PendingWrites) Empty() bool {
	return w.Priority == nil && w.ChargeCurrent == nil
}

func (a AppliedOutputs) Diff(priority OutputPriority, chargeCurrent float64) PendingWrites {
	var w PendingWrites
	if !a.HasPriority || a.Priority != priority {
		w.Priority = &priority
	}
	if !a.HasChargeCurrent || a.ChargeCurrent != chargeCurrent {
		w.ChargeCurrent = &chargeCurrent
	}
	return w
}

func (a *AppliedOutputs) ConfirmPriority(priority OutputPriority) {
	a.Priority = priority
	a.HasPriority = true
}

func (a *AppliedOutputs) ConfirmChargeCurrent(current float64) {
	a.ChargeCurrent = current
	a.HasChargeCurrent = true
}

// ControllerState is everything the control loop carries from one tick to
// the next. It is owned by a single actor and mutated only by the tick.
type ControllerState struct {
	SoC     SoCEstimate
	Control ControlState
	Voltage float64
	Load    float64
	Applied AppliedOutputs
	Target  DailyTarget
}

func NewControllerState(target DailyTarget) ControllerState {
	return ControllerState{
		Control: ControlStateDischargeOnly,
		Target:  target,
	}
}

// TickResult is the outcome of one control iteration.
type TickResult struct {
	Telemetry       bool
	Window          string
	Period          TimePeriod
	PreviousState   ControlState
	State           ControlState
	Priority        OutputPriority
	ChargeCurrent   float64
	EstimatedSoC    float64
	RawSoC          int
	Voltage         float64
	Load            float64
	Target          DailyTarget
	TargetThrottled bool
	Writes          PendingWrites
}

// ParseTimeOfDay parses "HH:MM" into minutes after midnight.
func ParseTimeOfDay(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}
