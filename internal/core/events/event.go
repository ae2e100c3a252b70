package events

import (
	. "github.com/berfenger/chargectl/internal/core/domain"
)

// TickResultToUpdateEvents maps a control tick into sensor updates. Readings
// are only emitted when telemetry was available for the tick.
func TickResultToUpdateEvents(r TickResult) []any {
	var events []any

	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_TELEMETRY_OK,
		},
		Value: r.Telemetry,
	})

	if r.Telemetry {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_BATTERY_SOC,
			},
			Value:    float64(r.RawSoC),
			Decimals: 0,
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_BATTERY_ESTIMATED_SOC,
			},
			Value:    r.EstimatedSoC,
			Decimals: 2,
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_BATTERY_VOLTAGE,
			},
			Value:    r.Voltage,
			Decimals: 1,
		})
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_HOUSE_LOAD,
			},
			Value:    r.Load,
			Decimals: 0,
		})
	}

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CHARGE_CURRENT,
		},
		Value:    r.ChargeCurrent,
		Decimals: 1,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CONTROL_STATE,
		},
		Value: r.State.String(),
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_OUTPUT_PRIORITY,
		},
		Value: r.Priority.String(),
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_TARIFF_PERIOD,
		},
		Value: r.Window,
	})
	events = append(events, DailyTargetToUpdateEvents(r.Target)...)

	return events
}

func DailyTargetToUpdateEvents(t DailyTarget) []any {
	return []any{
		FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_TARGET_SOC,
			},
			Value:    float64(t.TargetSoC),
			Decimals: 0,
		},
		FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_DAILY_CHARGE_CURRENT,
			},
			Value:    float64(t.DailyChargeCurrent),
			Decimals: 0,
		},
	}
}

func BridgeOnlineUpdateEvent(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
