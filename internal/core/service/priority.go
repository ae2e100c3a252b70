package service

import "github.com/berfenger/chargectl/internal/core/domain"

func PriorityFor(state domain.ControlState) domain.OutputPriority {
	switch state {
	case domain.ControlStateDischargeOnly:
		return domain.OutputPriorityBatteryFirst
	case domain.ControlStateCharging, domain.ControlStateSuspended:
		return domain.OutputPriorityGridFirst
	default:
		return domain.OutputPriorityGridFirst
	}
}
