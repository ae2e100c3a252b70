package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/chargectl/internal/adapter/actor"
	"github.com/berfenger/chargectl/internal/adapter/gateway"
	"github.com/berfenger/chargectl/internal/adapter/store"
	"github.com/berfenger/chargectl/internal/config"
	"github.com/berfenger/chargectl/internal/core/actor"
	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/core/port"
	"github.com/berfenger/chargectl/internal/core/service"
	"github.com/berfenger/chargectl/internal/metrics"
	"github.com/berfenger/chargectl/internal/server"
	"github.com/berfenger/chargectl/internal/util/actorutil"
	"github.com/berfenger/chargectl/pkg/srne_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// metrics follow the controller event stream
	es := &eventstream.EventStream{}
	mtr := metrics.NewMetrics()
	sub := mtr.Subscribe(es)
	defer es.Unsubscribe(sub)

	gatewayProv, err := gatewayActorProvider(cfg, mtr, logger)
	if err != nil {
		panic(err)
	}

	chargeControlProv, err := chargeControlActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, es, gatewayProv, chargeControlProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid, mtr.Handler())
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => CHARGECTL_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("CHARGECTL_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("chargectl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func gatewayActorProvider(cfg *config.Config, mtr *metrics.Metrics, logger *zap.Logger) (actor.GatewayActorProvider, error) {

	timeout := time.Duration(cfg.Gateway.TimeoutMillis) * time.Millisecond

	var gw port.Gateway
	switch cfg.Gateway.Mode {
	case config.GATEWAY_MODE_MODBUS:
		inv, err := srne_modbus.CreateInverterModbusReader(cfg.Gateway.ModbusURL, cfg.Gateway.ModbusSpeed,
			cfg.Gateway.ModbusUnitId, timeout, logger, mtr.ModbusInstrument())
		if err != nil {
			return nil, err
		}
		gw = gateway.NewModbusGateway(inv)
	case config.GATEWAY_MODE_TEST:
		logger.Warn("gateway: using in-memory test inverter, nothing is written to hardware")
		gw = gateway.NewFakeGateway()
	default:
		gw = gateway.NewHTTPGateway(cfg.Gateway.URL, timeout, logger)
	}

	return func(es *eventstream.EventStream) *adactor.GatewayActor {
		return adactor.NewGatewayActor(gw, timeout, es, logger)
	}, nil
}

func chargeControlActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ChargeControlActorProvider, error) {

	logic, err := service.NewChargeControlLogic(cfg, logger)
	if err != nil {
		return nil, err
	}
	targetStore := store.NewFileTargetStore(afero.NewOsFs(), cfg.Targets.File)

	params := actor.ChargeControlParams{
		TickPeriod:     time.Duration(cfg.Control.TickMillis) * time.Millisecond,
		GatewayTimeout: time.Duration(cfg.Gateway.TimeoutMillis) * time.Millisecond,
		DefaultTarget: domain.DailyTarget{
			TargetSoC:          cfg.Targets.DefaultTargetSoC,
			DailyChargeCurrent: cfg.Targets.DefaultDailyChargeCurrent,
		},
	}

	return func(gatewayActor *pactor.PID, es *eventstream.EventStream) *actor.ChargeControlActor {
		return actor.NewChargeControlActor(params, gatewayActor, targetStore, logic, es, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTT.Enable {
		return nil
	}
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)

	viper.SetDefault("gateway.mode", config.GATEWAY_MODE_HTTP)
	viper.SetDefault("gateway.url", "http://localhost:5004")
	viper.SetDefault("gateway.timeout_millis", 2000)
	viper.SetDefault("gateway.modbus_url", "rtu:///dev/ttyUSB0")
	viper.SetDefault("gateway.modbus_speed", 9600)
	viper.SetDefault("gateway.modbus_unit_id", 1)

	viper.SetDefault("targets.file", "/opt/modbus_api/targets.json")
	viper.SetDefault("targets.default_target_soc", 90)
	viper.SetDefault("targets.default_daily_charge_current", 0)

	viper.SetDefault("control.tick_millis", 5000)
	viper.SetDefault("control.max_grid_power", 9000)
	viper.SetDefault("control.soc_integration_divisor", 3744)
	viper.SetDefault("control.cheap_hysteresis", 2)
	viper.SetDefault("control.cheap_deadband", 0.4)
	viper.SetDefault("control.throttled_charge_current", 10)
	viper.SetDefault("control.voltage_upper", 52.0)
	viper.SetDefault("control.voltage_lower", 51.0)
	viper.SetDefault("control.voltage_floor", 49.5)
	viper.SetDefault("control.voltage_resume", 48.5)
	viper.SetDefault("control.soc_cutoff", 20)
	viper.SetDefault("control.grid_voltage_min", 30)
	viper.SetDefault("control.grid_voltage_max", 70)
	viper.SetDefault("control.current_step", 5)
	viper.SetDefault("control.soc_trickle_current", 10)
	viper.SetDefault("control.voltage_trickle_current", 5)
	viper.SetDefault("control.soc_bands", [][]float64{{60, 120}, {70, 110}, {80, 90}, {90, 75}, {96, 55}, {99, 40}, {100, 25}})
	viper.SetDefault("control.voltage_bands", [][]float64{{53.0, 120}, {54.0, 100}, {54.6, 80}, {55.0, 70}, {55.1, 65}, {55.2, 60}, {55.4, 40}, {55.6, 20}})

	viper.SetDefault("tariff.margin_minutes", 1)
	viper.SetDefault("tariff.windows", []map[string]string{
		{"name": "day", "period": "fixed", "start": "07:00", "end": "22:59"},
		{"name": "night", "period": "cheap", "start": "23:00", "end": "06:59"},
	})

	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.base_topic", "chargectl")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
}

func safePrintConfig(cfg config.Config) {
	slog.Info("Using", "config", cfg.Redacted())
}
