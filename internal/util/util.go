package util

import (
	"github.com/berfenger/chargectl/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Gateway: config.GatewayConfig{
			Mode:          config.GATEWAY_MODE_TEST,
			URL:           "http://localhost:5004",
			TimeoutMillis: 500,
		},
		Targets: config.TargetsConfig{
			File:             "/targets.json",
			DefaultTargetSoC: 90,
		},
		Control: config.ControlConfig{
			TickMillis:             1000,
			MaxGridPower:           9000,
			SoCIntegrationDivisor:  3744,
			CheapHysteresis:        2,
			CheapDeadband:          0.4,
			ThrottledChargeCurrent: 10,
			VoltageUpper:           52.0,
			VoltageLower:           51.0,
			VoltageFloor:           49.5,
			VoltageResume:          48.5,
			SoCCutoff:              20,
			GridVoltageMin:         30,
			GridVoltageMax:         70,
			CurrentStep:            5,
			SoCTrickleCurrent:      10,
			VoltageTrickleCurrent:  5,
			SoCBands:               [][]float64{{60, 120}, {70, 110}, {80, 90}, {90, 75}, {96, 55}, {99, 40}, {100, 25}},
			VoltageBands:           [][]float64{{53.0, 120}, {54.0, 100}, {54.6, 80}, {55.0, 70}, {55.1, 65}, {55.2, 60}, {55.4, 40}, {55.6, 20}},
		},
		Tariff: config.TariffConfig{
			MarginMinutes: 1,
			// whole day cheap so actor tests charge regardless of wall clock
			Windows: []config.TariffWindowConfig{
				{Name: "all_day", Period: "cheap", Start: "00:00", End: "23:59"},
			},
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "chargectl",
			HADiscoveryTopic: "homeassistant",
		},
		Port: 8080,
	}
}
