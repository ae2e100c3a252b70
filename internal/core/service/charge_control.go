package service

import (
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/core/port"

	"go.uber.org/zap"
)

type DefaultChargeControlLogic struct {
	Estimator SoCEstimator
	Tariff    TariffClassifier
	Machine   StateMachine
	Limiter   CurrentLimiter
	// ThrottledChargeCurrent caps the daily charge current once the cheap
	// window target has been reached.
	ThrottledChargeCurrent int
	Logger                 *zap.Logger
}

func (l *DefaultChargeControlLogic) Tick(state *domain.ControllerState, now time.Time, reading *domain.Reading) domain.TickResult {

	window := l.Tariff.Classify(now)

	result := domain.TickResult{
		Telemetry:     reading != nil,
		Window:        window.Name,
		Period:        window.Period,
		PreviousState: state.Control,
	}

	if reading == nil {
		// hold the estimate and the decision, nothing is written
		state.Load = 0
		l.Logger.Warn("charge_control@tick: telemetry unavailable, holding state",
			zap.Stringer("state", state.Control))
		return l.fill(result, state, l.heldPriority(state), state.Applied.ChargeCurrent, domain.PendingWrites{})
	}

	state.SoC = l.Estimator.Update(state.SoC, reading.SoC, reading.ChargeCurrentAmps())
	state.Voltage = reading.VoltageVolts
	state.Load = reading.LoadWatt()

	if window.Period == domain.PeriodUnknown {
		l.Logger.Error("charge_control@tick: no tariff window matches, check tariff.windows. forcing suspended",
			zap.Time("now", now))
	}

	tr := l.Machine.Next(window.Period, state.Control, state.SoC.Value, state.Target.TargetSoC, state.Voltage)
	if tr.Throttle {
		throttled := min(l.ThrottledChargeCurrent, state.Target.DailyChargeCurrent)
		l.Logger.Info("charge_control@tick: target reached, throttling daily charge current",
			zap.Int("from", state.Target.DailyChargeCurrent), zap.Int("to", throttled))
		state.Target.DailyChargeCurrent = throttled
		result.TargetThrottled = true
	}
	if tr.Next != state.Control {
		l.Logger.Info("charge_control@tick: state transition",
			zap.Stringer("from", state.Control), zap.Stringer("to", tr.Next),
			zap.Stringer("period", window.Period), zap.Float64("soc", state.SoC.Value),
			zap.Int("target", state.Target.TargetSoC), zap.Float64("voltage", state.Voltage))
	}
	state.Control = tr.Next

	priority := PriorityFor(state.Control)
	current := l.Limiter.Limit(state.Control, state.SoC.Value, state.Voltage, state.Load, float64(state.Target.DailyChargeCurrent))

	return l.fill(result, state, priority, current, state.Applied.Diff(priority, current))
}

func (l *DefaultChargeControlLogic) heldPriority(state *domain.ControllerState) domain.OutputPriority {
	if state.Applied.HasPriority {
		return state.Applied.Priority
	}
	return PriorityFor(state.Control)
}

func (l *DefaultChargeControlLogic) fill(result domain.TickResult, state *domain.ControllerState,
	priority domain.OutputPriority, current float64, writes domain.PendingWrites) domain.TickResult {
	result.State = state.Control
	result.Priority = priority
	result.ChargeCurrent = current
	result.EstimatedSoC = state.SoC.Value
	result.RawSoC = state.SoC.LastRaw
	result.Voltage = state.Voltage
	result.Load = state.Load
	result.Target = state.Target
	result.Writes = writes
	return result
}

// ensure interface compliance
var _ port.ChargeControlLogic = (*DefaultChargeControlLogic)(nil)
