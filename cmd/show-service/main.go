package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"show-service/internal/clock"
	"show-service/internal/config"
	"show-service/internal/core"
	"show-service/internal/hardware"
	"show-service/internal/logger"
	"show-service/internal/messaging"
	"show-service/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	redisHost := flag.String("redis-host", "", "Redis host (overrides config)")
	redisPort := flag.Int("redis-port", 0, "Redis port (overrides config)")
	httpAddr := flag.String("http", "", "Listen address of the status API (overrides config)")
	logLevel := flag.String("log", "", "Service log level (none, error, warn, info, debug or 0-4)")

	flag.Parse()

	stdLogger := logger.NewStdLogger()
	bootLog := logger.NewLogger(stdLogger, logger.LogLevelInfo)

	cfg, err := config.Load(*configPath, config.Overrides{
		RedisHost:  *redisHost,
		RedisPort:  *redisPort,
		ListenAddr: *httpAddr,
		LogLevel:   *logLevel,
	})
	if err != nil {
		bootLog.Fatalf("Failed to load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		bootLog.Fatalf("Invalid log level: %v", err)
	}
	l := logger.NewLogger(stdLogger, level)

	l.Infof("Starting show service...")

	redisClient := messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, l.WithTag("redis"), messaging.Callbacks{})
	if err := redisClient.Connect(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	bridge := messaging.NewFlightBridge(redisClient.Client(), l.WithTag("flight"), cfg.Hardware.Battery.CriticalLowVoltage)
	if err := bridge.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	collaborators := core.Collaborators{
		Preflight:  bridge,
		Commander:  bridge,
		Lights:     bridge.LightProgramPlayer(),
		Gcs:        bridge.GcsLights(),
		Supervisor: bridge,
		Power:      bridge,
		Publisher:  redisClient,
	}

	ctx, cancel := context.WithCancel(context.Background())

	var rgb *hardware.GpioRgbLed
	if cfg.Hardware.Enabled {
		rgb = hardware.NewGpioRgbLed(cfg.Hardware.Led, l.WithTag("led"))
		if err := rgb.Initialize(); err != nil {
			l.Fatalf("Failed to start system: %v", err)
		}
		collaborators.Led = rgb

		battery := hardware.NewAdcBattery(cfg.Hardware.Battery, l.WithTag("battery"))
		if err := battery.Sample(); err != nil {
			l.Warnf("Initial battery reading failed: %v", err)
		}
		go battery.Run(ctx)
		collaborators.Power = battery
	}

	system, err := core.NewShowSystem(collaborators, cfg.Show, clock.NewMonotonic(), l.WithTag("show"))
	if err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}
	system.Init()
	if !system.IsReady() {
		l.Warnf("Show module is not ready, control loop will idle")
	}

	if err := system.AttachMessaging(redisClient); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	go system.Run(ctx)

	var server *web.Server
	if cfg.HTTP.ListenAddr != "" {
		server = web.NewServer(system, cfg.HTTP.ListenAddr, cfg.HTTP.WebsocketInterval, l.WithTag("web"))
		go func() {
			if err := server.ListenAndServe(); err != nil {
				l.Errorf("Status API stopped: %v", err)
			}
		}()
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)

	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			l.Warnf("Status API shutdown: %v", err)
		}
		done()
	}
	cancel()
	bridge.Close()
	if rgb != nil {
		rgb.Close()
	}
	if err := redisClient.Close(); err != nil {
		l.Warnf("Redis shutdown: %v", err)
	}
	l.Infof("Shutdown complete")
}
