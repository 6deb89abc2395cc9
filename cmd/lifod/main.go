// Command lifod serves a single LIFO device on a unix socket.
//
// Clients connect with lifo.Dial("unix", path). Each connection behaves like
// one open handle on the device. Optionally, lifod reports status over HTTP
// and publishes data-available events to an MQTT broker.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richinsley/lifo"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	socket := flag.String("socket", "", "Unix socket path (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := lifo.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = lifo.LoadConfig(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if *socket != "" {
		cfg.Socket = *socket
	}

	level, err := lifo.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	cfg.Logger = logger

	if err := run(cfg, logger); err != nil {
		logger.Error("lifod stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg lifo.Config, logger *slog.Logger) error {
	dev, err := lifo.NewDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	if cfg.MQTT.Enabled() {
		client, err := lifo.ConnectMQTT(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		if err := dev.Subscribe("mqtt", lifo.NewMQTTNotifier(client, cfg.MQTT.Topic, cfg.Name)); err != nil {
			return err
		}
		logger.Info("publishing events to mqtt", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	}

	// A stale socket from a previous run would make Listen fail.
	if err := os.Remove(cfg.Socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	listener, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		return err
	}
	defer os.Remove(cfg.Socket)

	srv := lifo.NewServer(dev, cfg.SubscriberBuffer, logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()
	logger.Info("serving device", "socket", cfg.Socket, "capacity", cfg.Capacity)

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           lifo.NewStatusHandler(dev),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "addr", cfg.HTTPAddr, "error", err)
			}
		}()
		logger.Info("status endpoint listening", "addr", cfg.HTTPAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warn("status server shutdown", "error", err)
		}
	}
	// Wake blocked readers and writers before waiting for their connections.
	dev.Close()
	return srv.Close()
}
