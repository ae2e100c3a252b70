package service

import (
	"fmt"

	"github.com/berfenger/chargectl/internal/config"
	"github.com/berfenger/chargectl/internal/core/domain"

	"go.uber.org/zap"
)

// NewChargeControlLogic wires the control components from a validated config.
func NewChargeControlLogic(cfg *config.Config, logger *zap.Logger) (*DefaultChargeControlLogic, error) {
	windows, err := TariffWindowsFromConfig(cfg.Tariff.Windows)
	if err != nil {
		return nil, err
	}
	ctl := cfg.Control
	return &DefaultChargeControlLogic{
		Estimator: SoCEstimator{Divisor: ctl.SoCIntegrationDivisor},
		Tariff: TariffClassifier{
			Windows: windows,
			Margin:  cfg.Tariff.MarginMinutes,
		},
		Machine: StateMachine{
			CheapHysteresis: ctl.CheapHysteresis,
			CheapDeadband:   ctl.CheapDeadband,
			VoltageUpper:    ctl.VoltageUpper,
			VoltageLower:    ctl.VoltageLower,
			VoltageFloor:    ctl.VoltageFloor,
			VoltageResume:   ctl.VoltageResume,
			SoCCutoff:       ctl.SoCCutoff,
		},
		Limiter: CurrentLimiter{
			MaxGridPower:   ctl.MaxGridPower,
			GridVoltageMin: ctl.GridVoltageMin,
			GridVoltageMax: ctl.GridVoltageMax,
			Step:           ctl.CurrentStep,
			SoCBands:       BandsFromConfig(ctl.SoCBands),
			SoCTrickle:     ctl.SoCTrickleCurrent,
			VoltageBands:   BandsFromConfig(ctl.VoltageBands),
			VoltageTrickle: ctl.VoltageTrickleCurrent,
		},
		ThrottledChargeCurrent: ctl.ThrottledChargeCurrent,
		Logger:                 logger,
	}, nil
}

func TariffWindowsFromConfig(windows []config.TariffWindowConfig) ([]TariffWindow, error) {
	result := make([]TariffWindow, 0, len(windows))
	for _, w := range windows {
		period, err := domain.ParseTimePeriod(w.Period)
		if err != nil {
			return nil, fmt.Errorf("tariff window %s: %w", w.Name, err)
		}
		start, err := domain.ParseTimeOfDay(w.Start)
		if err != nil {
			return nil, fmt.Errorf("tariff window %s: %w", w.Name, err)
		}
		end, err := domain.ParseTimeOfDay(w.End)
		if err != nil {
			return nil, fmt.Errorf("tariff window %s: %w", w.Name, err)
		}
		result = append(result, TariffWindow{Name: w.Name, Period: period, Start: start, End: end})
	}
	return result, nil
}

// BandsFromConfig expects validated [bound, limit] pairs.
func BandsFromConfig(pairs [][]float64) []Band {
	bands := make([]Band, 0, len(pairs))
	for _, p := range pairs {
		bands = append(bands, Band{Bound: p[0], Limit: p[1]})
	}
	return bands
}
