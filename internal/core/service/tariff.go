package service

import (
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
)

const minutesPerDay = 24 * 60

// TariffWindow is a named time range with an inclusive start and end,
// expressed in minutes after midnight. Start > End wraps past midnight.
type TariffWindow struct {
	Name   string
	Period domain.TimePeriod
	Start  int
	End    int
}

var UnknownWindow = TariffWindow{Name: domain.PeriodUnknownStr, Period: domain.PeriodUnknown}

// TariffClassifier maps wall-clock time to the first matching window. Every
// window is widened by Margin minutes on both ends, so the window listed
// first wins around shared boundaries.
type TariffClassifier struct {
	Windows []TariffWindow
	Margin  int
}

func (c TariffClassifier) Classify(now time.Time) TariffWindow {
	minute := now.Hour()*60 + now.Minute()
	for _, w := range c.Windows {
		if w.contains(minute, c.Margin) {
			return w
		}
	}
	return UnknownWindow
}

// contains widens the window outwards on both ends, so neighbouring windows
// overlap by the margin and the earlier one in the list takes the shared
// minutes. List the fixed window before the cheap one to keep grid charging
// inside the cheap hours.
func (w TariffWindow) contains(minute, margin int) bool {
	length := mod(w.End-w.Start, minutesPerDay) + 2*margin
	if length >= minutesPerDay-1 {
		return true
	}
	offset := mod(minute-(w.Start-margin), minutesPerDay)
	return offset <= length
}

func mod(a, m int) int {
	return ((a % m) + m) % m
}
