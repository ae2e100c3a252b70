package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/berfenger/chargectl/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

const (
	GATEWAY_MODE_HTTP   = "http"
	GATEWAY_MODE_MODBUS = "modbus"
	GATEWAY_MODE_TEST   = "test"
)

type Config struct {
	LogLevel zapcore.Level
	Gateway  GatewayConfig `mapstructure:"gateway"`
	Targets  TargetsConfig `mapstructure:"targets"`
	Control  ControlConfig `mapstructure:"control"`
	Tariff   TariffConfig  `mapstructure:"tariff"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
}

type GatewayConfig struct {
	Mode          string
	URL           string
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
	ModbusURL     string `mapstructure:"modbus_url"`
	ModbusSpeed   uint   `mapstructure:"modbus_speed"`
	ModbusUnitId  uint8  `mapstructure:"modbus_unit_id"`
}

type TargetsConfig struct {
	File                      string
	DefaultTargetSoC          int `mapstructure:"default_target_soc"`
	DefaultDailyChargeCurrent int `mapstructure:"default_daily_charge_current"`
}

type ControlConfig struct {
	TickMillis             uint32  `mapstructure:"tick_millis"`
	MaxGridPower           float64 `mapstructure:"max_grid_power"`
	SoCIntegrationDivisor  float64 `mapstructure:"soc_integration_divisor"`
	CheapHysteresis        float64 `mapstructure:"cheap_hysteresis"`
	CheapDeadband          float64 `mapstructure:"cheap_deadband"`
	ThrottledChargeCurrent int     `mapstructure:"throttled_charge_current"`
	VoltageUpper           float64 `mapstructure:"voltage_upper"`
	VoltageLower           float64 `mapstructure:"voltage_lower"`
	VoltageFloor           float64 `mapstructure:"voltage_floor"`
	VoltageResume          float64 `mapstructure:"voltage_resume"`
	SoCCutoff              float64 `mapstructure:"soc_cutoff"`
	GridVoltageMin         float64 `mapstructure:"grid_voltage_min"`
	GridVoltageMax         float64 `mapstructure:"grid_voltage_max"`
	CurrentStep            float64 `mapstructure:"current_step"`
	SoCTrickleCurrent      float64 `mapstructure:"soc_trickle_current"`
	VoltageTrickleCurrent  float64 `mapstructure:"voltage_trickle_current"`
	// [exclusive upper bound, current limit] pairs, ascending
	SoCBands     [][]float64 `mapstructure:"soc_bands"`
	VoltageBands [][]float64 `mapstructure:"voltage_bands"`
}

type TariffConfig struct {
	MarginMinutes int                  `mapstructure:"margin_minutes"`
	Windows       []TariffWindowConfig `mapstructure:"windows"`
}

type TariffWindowConfig struct {
	Name   string
	Period string
	Start  string
	End    string
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Gateway.Mode {
	case GATEWAY_MODE_HTTP:
		if c.Gateway.URL == "" {
			errs = append(errs, errors.New("config param gateway.url is required in http mode"))
		}
	case GATEWAY_MODE_MODBUS:
		if c.Gateway.ModbusURL == "" {
			errs = append(errs, errors.New("config param gateway.modbus_url is required in modbus mode"))
		}
	case GATEWAY_MODE_TEST:
	default:
		errs = append(errs, fmt.Errorf("config param gateway.mode must be http or modbus, got %q", c.Gateway.Mode))
	}

	ctl := c.Control
	if ctl.TickMillis < 1000 {
		errs = append(errs, errors.New("config param control.tick_millis should be >= 1000"))
	}
	if c.Gateway.TimeoutMillis == 0 || c.Gateway.TimeoutMillis >= ctl.TickMillis {
		errs = append(errs, errors.New("config param gateway.timeout_millis must be > 0 and < control.tick_millis"))
	}
	if ctl.MaxGridPower <= 0 {
		errs = append(errs, errors.New("config param control.max_grid_power should be > 0"))
	}
	if ctl.SoCIntegrationDivisor <= 0 {
		errs = append(errs, errors.New("config param control.soc_integration_divisor should be > 0"))
	}
	if ctl.CheapDeadband < 0 || ctl.CheapHysteresis < ctl.CheapDeadband {
		errs = append(errs, errors.New("config params must satisfy control.cheap_hysteresis >= control.cheap_deadband >= 0"))
	}
	if ctl.ThrottledChargeCurrent < 0 {
		errs = append(errs, errors.New("config param control.throttled_charge_current should be >= 0"))
	}
	if !(ctl.VoltageResume <= ctl.VoltageFloor && ctl.VoltageFloor <= ctl.VoltageLower && ctl.VoltageLower <= ctl.VoltageUpper) {
		errs = append(errs, errors.New("config params must satisfy voltage_resume <= voltage_floor <= voltage_lower <= voltage_upper"))
	}
	if ctl.GridVoltageMin >= ctl.GridVoltageMax {
		errs = append(errs, errors.New("config param control.grid_voltage_min must be < control.grid_voltage_max"))
	}
	if ctl.CurrentStep < 0 {
		errs = append(errs, errors.New("config param control.current_step should be >= 0"))
	}
	if err := checkBands("control.soc_bands", ctl.SoCBands); err != nil {
		errs = append(errs, err)
	}
	if err := checkBands("control.voltage_bands", ctl.VoltageBands); err != nil {
		errs = append(errs, err)
	}

	if c.Tariff.MarginMinutes < 0 || c.Tariff.MarginMinutes > 30 {
		errs = append(errs, errors.New("config param tariff.margin_minutes must be within [0, 30]"))
	}
	if len(c.Tariff.Windows) == 0 {
		errs = append(errs, errors.New("config param tariff.windows must define at least one window"))
	}
	for i, w := range c.Tariff.Windows {
		if _, err := domain.ParseTimePeriod(w.Period); err != nil {
			errs = append(errs, fmt.Errorf("tariff.windows[%d]: %w", i, err))
		}
		if _, err := domain.ParseTimeOfDay(w.Start); err != nil {
			errs = append(errs, fmt.Errorf("tariff.windows[%d].start: %w", i, err))
		}
		if _, err := domain.ParseTimeOfDay(w.End); err != nil {
			errs = append(errs, fmt.Errorf("tariff.windows[%d].end: %w", i, err))
		}
	}

	if c.Targets.File == "" {
		errs = append(errs, errors.New("config param targets.file is required"))
	}

	if c.MQTT.Enable {
		baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid mqtt.base_topic: %w", err))
		}
		c.MQTT.BaseTopic = baseTopic
		haTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid mqtt.ha_discovery_topic: %w", err))
		}
		c.MQTT.HADiscoveryTopic = haTopic
	}

	return errors.Join(errs...)
}

func checkBands(name string, bands [][]float64) error {
	prev := 0.0
	for i, b := range bands {
		if len(b) != 2 {
			return fmt.Errorf("config param %s[%d] must be a [bound, limit] pair", name, i)
		}
		if b[1] < 0 {
			return fmt.Errorf("config param %s[%d] limit must be >= 0", name, i)
		}
		if i > 0 && b[0] <= prev {
			return fmt.Errorf("config param %s bounds must be strictly ascending", name)
		}
		prev = b[0]
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.MQTT.Username != "" {
		c.MQTT.Username = "*redacted*"
	}
	if c.MQTT.Password != "" {
		c.MQTT.Password = "*redacted*"
	}
	return c
}
