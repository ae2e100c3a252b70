package service

import "github.com/berfenger/chargectl/internal/core/domain"

type StateMachine struct {
	// cheap window, in SoC points around the target
	CheapHysteresis float64
	CheapDeadband   float64

	// fixed window, in volts
	VoltageUpper  float64
	VoltageLower  float64
	VoltageFloor  float64
	VoltageResume float64
	SoCCutoff     float64
}

type Transition struct {
	Next domain.ControlState
	// Throttle is set when leaving CHARGING inside the cheap window. The daily
	// charge current cap has to be lowered.
	Throttle bool
}

func (m StateMachine) Next(period domain.TimePeriod, state domain.ControlState, soc float64, target int, voltage float64) Transition {
	switch period {
	case domain.PeriodFixed:
		return Transition{Next: m.nextFixed(state, soc, voltage)}
	case domain.PeriodCheap:
		return m.nextCheap(state, soc, float64(target))
	case domain.PeriodOther, domain.PeriodUnknown:
		return Transition{Next: domain.ControlStateSuspended}
	default:
		return Transition{Next: domain.ControlStateSuspended}
	}
}

func (m StateMachine) nextFixed(state domain.ControlState, soc, voltage float64) domain.ControlState {
	upper := voltage > m.VoltageUpper && soc > m.SoCCutoff
	switch state {
	case domain.ControlStateCharging:
		if upper {
			return domain.ControlStateDischargeOnly
		}
		if voltage > m.VoltageLower {
			return domain.ControlStateSuspended
		}
	case domain.ControlStateSuspended:
		if upper {
			return domain.ControlStateDischargeOnly
		}
		if voltage < m.VoltageResume {
			return domain.ControlStateCharging
		}
	case domain.ControlStateDischargeOnly:
		if voltage < m.VoltageResume {
			return domain.ControlStateCharging
		}
		if voltage < m.VoltageFloor || soc <= m.SoCCutoff {
			return domain.ControlStateSuspended
		}
	default:
		return domain.ControlStateSuspended
	}
	return state
}

func (m StateMachine) nextCheap(state domain.ControlState, soc, target float64) Transition {
	switch state {
	case domain.ControlStateCharging:
		if soc > target+m.CheapHysteresis {
			return Transition{Next: domain.ControlStateDischargeOnly, Throttle: true}
		}
		if soc > target+m.CheapDeadband {
			return Transition{Next: domain.ControlStateSuspended, Throttle: true}
		}
	case domain.ControlStateSuspended:
		if soc > target+m.CheapHysteresis {
			return Transition{Next: domain.ControlStateDischargeOnly}
		}
		if soc < target-m.CheapDeadband {
			return Transition{Next: domain.ControlStateCharging}
		}
	case domain.ControlStateDischargeOnly:
		if soc < target-m.CheapDeadband {
			return Transition{Next: domain.ControlStateCharging}
		}
		if soc <= target+m.CheapDeadband {
			return Transition{Next: domain.ControlStateSuspended}
		}
	default:
		return Transition{Next: domain.ControlStateSuspended}
	}
	return Transition{Next: state}
}
