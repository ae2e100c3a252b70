package service

import (
	"math"
	"testing"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

var limiter = CurrentLimiter{
	MaxGridPower:   9000,
	GridVoltageMin: 30,
	GridVoltageMax: 70,
	Step:           5,
	SoCBands: []Band{
		{60, 120}, {70, 110}, {80, 90}, {90, 75}, {96, 55}, {99, 40}, {100, 25},
	},
	SoCTrickle: 10,
	VoltageBands: []Band{
		{53.0, 120}, {54.0, 100}, {54.6, 80}, {55.0, 70}, {55.1, 65}, {55.2, 60}, {55.4, 40}, {55.6, 20},
	},
	VoltageTrickle: 5,
}

func TestLookupBand(t *testing.T) {

	assert := assert.New(t)

	bands := limiter.SoCBands
	assert.Equal(120.0, LookupBand(bands, 0, 10))
	assert.Equal(120.0, LookupBand(bands, 59, 10))
	assert.Equal(110.0, LookupBand(bands, 60, 10), "bounds are exclusive")
	assert.Equal(110.0, LookupBand(bands, 65, 10))
	assert.Equal(25.0, LookupBand(bands, 99, 10))
	assert.Equal(10.0, LookupBand(bands, 100, 10), "above every bound uses the fallback")
	assert.Equal(10.0, LookupBand(nil, 1, 10))
}

func TestLimiterScenario(t *testing.T) {

	assert := assert.New(t)

	caps := limiter.Caps(65, 55.15, 2000, 120)
	assert.Equal(120.0, caps.Planner)
	assert.Equal(110.0, caps.SoC)
	assert.Equal(60.0, caps.Voltage)
	// floor((9000-2000)/55.15/5)*5
	assert.Equal(125.0, caps.Grid)
	assert.Equal(60.0, caps.Result)

	assert.Equal(60.0, limiter.Limit(domain.ControlStateCharging, 65, 55.15, 2000, 120))
}

func TestLimiterOnlyCharges(t *testing.T) {
	assert.Equal(t, 0.0, limiter.Limit(domain.ControlStateSuspended, 40, 50, 500, 120))
	assert.Equal(t, 0.0, limiter.Limit(domain.ControlStateDischargeOnly, 40, 50, 500, 120))
	assert.Equal(t, 0.0, limiter.Limit(domain.ControlState(9), 40, 50, 500, 120))
}

func TestLimiterTruncatesSoC(t *testing.T) {
	// 69.9 is looked up as 69
	assert.Equal(t, 110.0, limiter.Caps(69.9, 50, 0, 200).SoC)
	assert.Equal(t, 90.0, limiter.Caps(70.2, 50, 0, 200).SoC)
}

func TestGridCap(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(0.0, limiter.GridCap(30, 0), "voltage band is exclusive")
	assert.Equal(0.0, limiter.GridCap(70, 0), "voltage band is exclusive")
	assert.Equal(0.0, limiter.GridCap(0, 0))
	assert.Equal(165.0, limiter.GridCap(52, 400))
	assert.Equal(0.0, limiter.GridCap(52, 12000), "load above the grid limit gives no headroom")
}

func TestLimiterNeverExceedsCaps(t *testing.T) {

	for soc := 0.0; soc <= 101; soc += 3.7 {
		for v := 25.0; v <= 72; v += 0.55 {
			for _, load := range []float64{0, 800, 4500, 8990, 9500} {
				for _, planner := range []float64{-5, 0, 10, 60, 150} {
					caps := limiter.Caps(soc, v, load, planner)
					assert.GreaterOrEqual(t, caps.Result, 0.0)
					assert.LessOrEqual(t, caps.Result, math.Max(0, caps.Planner))
					assert.LessOrEqual(t, caps.Result, caps.SoC)
					assert.LessOrEqual(t, caps.Result, caps.Voltage)
					assert.LessOrEqual(t, caps.Result, caps.Grid)
					if caps.Result == caps.Grid {
						assert.Equal(t, 0.0, math.Mod(caps.Result, 5), "grid cap is a multiple of 5")
					}
				}
			}
		}
	}
}
