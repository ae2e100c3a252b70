package service

import (
	"testing"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 11, 3, hour, minute, 30, 0, time.Local)
}

func window(t *testing.T, name string, period domain.TimePeriod, start, end string) TariffWindow {
	s, err := domain.ParseTimeOfDay(start)
	require.NoError(t, err)
	e, err := domain.ParseTimeOfDay(end)
	require.NoError(t, err)
	return TariffWindow{Name: name, Period: period, Start: s, End: e}
}

func TestClassifyCheapFirst(t *testing.T) {

	assert := assert.New(t)

	c := TariffClassifier{
		Windows: []TariffWindow{
			window(t, "night", domain.PeriodCheap, "23:00", "06:59"),
			window(t, "day", domain.PeriodFixed, "07:00", "22:59"),
		},
		Margin: 1,
	}

	assert.Equal("night", c.Classify(at(0, 0)).Name, "midnight wrap")
	assert.Equal("night", c.Classify(at(3, 15)).Name)
	assert.Equal("night", c.Classify(at(6, 59)).Name)
	assert.Equal("night", c.Classify(at(7, 0)).Name, "margin keeps the first window")
	assert.Equal("day", c.Classify(at(7, 1)).Name)
	assert.Equal("day", c.Classify(at(12, 0)).Name)
	assert.Equal("day", c.Classify(at(22, 58)).Name)
	assert.Equal("night", c.Classify(at(22, 59)).Name, "margin keeps the first window")
	assert.Equal("night", c.Classify(at(23, 59)).Name)
	assert.Equal(domain.PeriodCheap, c.Classify(at(1, 0)).Period)
	assert.Equal(domain.PeriodFixed, c.Classify(at(15, 0)).Period)
}

func TestClassifyDefaultTable(t *testing.T) {

	assert := assert.New(t)

	// fixed first, margin minutes stay out of the cheap period
	c := TariffClassifier{
		Windows: []TariffWindow{
			window(t, "day", domain.PeriodFixed, "07:00", "22:59"),
			window(t, "night", domain.PeriodCheap, "23:00", "06:59"),
		},
		Margin: 1,
	}

	assert.Equal("day", c.Classify(at(22, 59)).Name)
	assert.Equal("day", c.Classify(at(23, 0)).Name)
	assert.Equal("night", c.Classify(at(23, 1)).Name)
	assert.Equal("night", c.Classify(at(6, 58)).Name)
	assert.Equal("day", c.Classify(at(6, 59)).Name)
	assert.Equal("day", c.Classify(at(7, 0)).Name)
}

func TestClassifyFullDayCoverage(t *testing.T) {

	c := TariffClassifier{
		Windows: []TariffWindow{
			window(t, "day", domain.PeriodFixed, "07:00", "22:59"),
			window(t, "night", domain.PeriodCheap, "23:00", "06:59"),
		},
		Margin: 1,
	}
	for m := 0; m < minutesPerDay; m++ {
		w := c.Classify(at(m/60, m%60))
		assert.NotEqual(t, domain.PeriodUnknown, w.Period, "minute %d", m)
	}
}

func TestClassifyUnknown(t *testing.T) {

	assert := assert.New(t)

	c := TariffClassifier{
		Windows: []TariffWindow{
			window(t, "morning", domain.PeriodCheap, "01:00", "05:00"),
		},
	}
	assert.Equal("morning", c.Classify(at(1, 0)).Name, "start is inclusive")
	assert.Equal("morning", c.Classify(at(5, 0)).Name, "end is inclusive")
	assert.Equal(UnknownWindow, c.Classify(at(5, 1)))
	assert.Equal(UnknownWindow, c.Classify(at(0, 59)))

	c.Margin = 2
	assert.Equal("morning", c.Classify(at(0, 58)).Name)
	assert.Equal("morning", c.Classify(at(5, 2)).Name)
	assert.Equal(UnknownWindow, c.Classify(at(5, 3)))

	assert.Equal(UnknownWindow, TariffClassifier{}.Classify(at(12, 0)))
}
