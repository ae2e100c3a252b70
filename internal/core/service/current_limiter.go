package service

import (
	"math"

	"github.com/berfenger/chargectl/internal/core/domain"
)

type CurrentLimiter struct {
	MaxGridPower   float64
	GridVoltageMin float64
	GridVoltageMax float64
	// Step is the hardware granularity of the grid headroom cap.
	Step           float64
	SoCBands       []Band
	SoCTrickle     float64
	VoltageBands   []Band
	VoltageTrickle float64
}

// CurrentCaps holds every component cap next to the binding result.
type CurrentCaps struct {
	Planner float64
	SoC     float64
	Voltage float64
	Grid    float64
	Result  float64
}

func (l CurrentLimiter) Caps(soc, voltage, load, plannerCap float64) CurrentCaps {
	caps := CurrentCaps{
		Planner: plannerCap,
		SoC:     LookupBand(l.SoCBands, math.Trunc(soc), l.SoCTrickle),
		Voltage: LookupBand(l.VoltageBands, voltage, l.VoltageTrickle),
		Grid:    l.GridCap(voltage, load),
	}
	caps.Result = math.Max(0, math.Min(math.Min(caps.Planner, caps.SoC), math.Min(caps.Voltage, caps.Grid)))
	return caps
}

// Limit returns the charge current to command. Only CHARGING draws current.
func (l CurrentLimiter) Limit(state domain.ControlState, soc, voltage, load, plannerCap float64) float64 {
	switch state {
	case domain.ControlStateCharging:
		return l.Caps(soc, voltage, load, plannerCap).Result
	case domain.ControlStateSuspended, domain.ControlStateDischargeOnly:
		return 0
	default:
		return 0
	}
}

// GridCap is the current that keeps house load plus battery charge under
// MaxGridPower, rounded down to Step. Implausible voltages give 0.
func (l CurrentLimiter) GridCap(voltage, load float64) float64 {
	if voltage <= l.GridVoltageMin || voltage >= l.GridVoltageMax {
		return 0
	}
	amps := (l.MaxGridPower - load) / voltage
	if l.Step > 0 {
		amps = math.Floor(amps/l.Step) * l.Step
	}
	return math.Max(0, amps)
}
