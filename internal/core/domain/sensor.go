package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE           = "bridge"
	SENSOR_ID_BATTERY_SOC            = "battery_soc"
	SENSOR_ID_BATTERY_ESTIMATED_SOC  = "battery_estimated_soc"
	SENSOR_ID_BATTERY_VOLTAGE        = "battery_voltage"
	SENSOR_ID_HOUSE_LOAD             = "house_load"
	SENSOR_ID_CONTROL_STATE          = "control_state"
	SENSOR_ID_OUTPUT_PRIORITY        = "output_priority"
	SENSOR_ID_TARIFF_PERIOD          = "tariff_period"
	SENSOR_ID_CHARGE_CURRENT         = "charge_current"
	SENSOR_ID_TARGET_SOC             = "target_soc"
	SENSOR_ID_DAILY_CHARGE_CURRENT   = "daily_charge_current"
	SENSOR_ID_TELEMETRY_OK           = "telemetry_ok"
	STATE_CLASS_MEASUREMENT          = "measurement"
	DEVICE_CLASS_BATTERY             = "battery"
	DEVICE_CLASS_CURRENT             = "current"
	DEVICE_CLASS_POWER               = "power"
	DEVICE_CLASS_VOLTAGE             = "voltage"
	DEVICE_CLASS_CONNECTIVITY        = "connectivity"
	DEVICE_CLASS_PROBLEM             = "problem"
	ENTITY_CLASS_DIAGNOSTIC          = "diagnostic"
	SENSOR_TYPE_SENSOR               = "sensor"
	SENSOR_TYPE_BINARY               = "binary_sensor"
	CONTROLLER_DEVICE_MANUFACTURER   = "chargectl"
	CONTROLLER_DEVICE_MODEL          = "Charge controller"
	CONTROLLER_DEVICE_ID_PREFIX      = "chargectl_controller"
	CONTROLLER_DEVICE_NAME_PREFIX    = "Chargectl"
	CONTROLLER_DEVICE_UNKNOWN_SERIAL = "-"
)

func ControllerDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("%s_%s", CONTROLLER_DEVICE_ID_PREFIX, md5HashShort(baseTopic)),
		Manufacturer: CONTROLLER_DEVICE_MANUFACTURER,
		Model:        CONTROLLER_DEVICE_MODEL,
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("%s %s", CONTROLLER_DEVICE_NAME_PREFIX, md5HashShort(baseTopic)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(device Device) []GenericSensor {
	return []GenericSensor{{
		Device:         device,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

// ControllerSensors lists the sensors published after every control tick.
// Only the first sensor carries the full device description.
func ControllerSensors(device Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_SOC),
	})

	short := IdDevice(device)

	sensors = append(sensors, GenericSensor{
		Device:            short,
		Id:                SENSOR_ID_BATTERY_ESTIMATED_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery estimated SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_ESTIMATED_SOC),
	})
	sensors = append(sensors, GenericSensor{
		Device:            short,
		Id:                SENSOR_ID_BATTERY_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_VOLTAGE),
	})
	sensors = append(sensors, GenericSensor{
		Device:            short,
		Id:                SENSOR_ID_HOUSE_LOAD,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "House load",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_HOUSE_LOAD),
	})
	sensors = append(sensors, GenericSensor{
		Device:            short,
		Id:                SENSOR_ID_CHARGE_CURRENT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid charge current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_CHARGE_CURRENT),
	})
	sensors = append(sensors, GenericSensor{
		Device:     short,
		Id:         SENSOR_ID_CONTROL_STATE,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Control state",
		Icon:       "mdi:battery-charging",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_CONTROL_STATE),
	})
	sensors = append(sensors, GenericSensor{
		Device:     short,
		Id:         SENSOR_ID_OUTPUT_PRIORITY,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Output priority",
		Icon:       "mdi:transmission-tower",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_OUTPUT_PRIORITY),
	})
	sensors = append(sensors, GenericSensor{
		Device:     short,
		Id:         SENSOR_ID_TARIFF_PERIOD,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Tariff period",
		Icon:       "mdi:clock-outline",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_TARIFF_PERIOD),
	})
	sensors = append(sensors, GenericSensor{
		Device:            short,
		Id:                SENSOR_ID_TARGET_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Target SoC",
		UnitOfMeasurement: "%",
		Icon:              "mdi:ticket-percent",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_TARGET_SOC),
	})
	sensors = append(sensors, GenericSensor{
		Device:            short,
		Id:                SENSOR_ID_DAILY_CHARGE_CURRENT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Daily charge current cap",
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:          uniqueId(device.Id, SENSOR_ID_DAILY_CHARGE_CURRENT),
	})
	sensors = append(sensors, GenericSensor{
		Device:           short,
		Id:               SENSOR_ID_TELEMETRY_OK,
		SensorType:       SENSOR_TYPE_BINARY,
		Name:             "Telemetry",
		DeviceClass:      DEVICE_CLASS_CONNECTIVITY,
		EntityCategory:   ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault: optionalBool(false),
		UniqueId:         uniqueId(device.Id, SENSOR_ID_TELEMETRY_OK),
	})

	return sensors
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
