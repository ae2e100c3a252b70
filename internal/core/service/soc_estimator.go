package service

import (
	"math"

	"github.com/berfenger/chargectl/internal/core/domain"
)

const (
	socRolloverOffset = 0.49
	socClampWidth     = 0.5
)

// SoCEstimator smooths integer SoC telemetry by integrating battery current
// between integer steps.
type SoCEstimator struct {
	// Divisor converts amps sampled once per tick into SoC points.
	Divisor float64
}

func (e SoCEstimator) Update(prev domain.SoCEstimate, raw int, chargeCurrent float64) domain.SoCEstimate {
	if !prev.Valid || absInt(raw-prev.LastRaw) >= 2 {
		return domain.SoCEstimate{Value: float64(raw), LastRaw: raw, Valid: true}
	}

	value := prev.Value
	switch raw {
	case prev.LastRaw - 1:
		value = float64(raw) + socRolloverOffset
	case prev.LastRaw + 1:
		value = float64(raw) - socRolloverOffset
	default:
		if chargeCurrent != 0 && e.Divisor > 0 {
			value += chargeCurrent / e.Divisor
		}
		value = clamp(value, float64(raw)-socClampWidth, float64(raw)+socClampWidth)
	}
	return domain.SoCEstimate{Value: value, LastRaw: raw, Valid: true}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
