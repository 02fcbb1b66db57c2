// Command aware-device runs a simulated Aware device with an interactive
// console.
//
// The device attaches a discovery state manager to a simulated radio. By
// default the radio is alone on its medium; with -network the simulated
// medium is bridged over UDP to other aware-device processes on the local
// network, discovered via mDNS, so publishes on one machine produce matches
// on another.
//
// Usage:
//
//	aware-device [flags]
//
// Flags:
//
//	-name string       Device name (default "aware-<pid>")
//	-config string     YAML configuration file path
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-network           Bridge the simulated medium over the local network
//	-capture string    Write a CBOR event capture to this file
//
// Examples:
//
//	# Two devices on one LAN that can discover each other
//	aware-device -name kitchen -network
//	aware-device -name garage -network
//
//	# Single device with protocol tracing
//	aware-device -capture /tmp/aware.trace -log-level debug
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/aware-protocol/aware-go/cmd/aware-device/interactive"
	"github.com/aware-protocol/aware-go/pkg/aware"
	"github.com/aware-protocol/aware-go/pkg/halsim"
	"github.com/aware-protocol/aware-go/pkg/log"
	"github.com/aware-protocol/aware-go/pkg/pairing"
)

// Config holds the device configuration, loadable from YAML and
// overridable by flags.
type Config struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
	Network  bool   `yaml:"network"`
	Capture  string `yaml:"capture"`

	// MasterPreference in [0, 255] for the attach configuration.
	MasterPreference int `yaml:"master_preference"`

	// Band5GHz requests 5 GHz discovery support on attach.
	Band5GHz bool `yaml:"band_5ghz"`
}

func defaultConfig() Config {
	return Config{
		Name:             fmt.Sprintf("aware-%d", os.Getpid()),
		LogLevel:         "info",
		MasterPreference: 2,
		Band5GHz:         true,
	}
}

func loadConfig() (Config, error) {
	cfg := defaultConfig()

	var configFile string
	flag.StringVar(&configFile, "config", "", "YAML configuration file path")
	name := flag.String("name", "", "Device name")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	network := flag.Bool("network", false, "Bridge the simulated medium over the local network")
	capture := flag.String("capture", "", "Write a CBOR event capture to this file")
	flag.Parse()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// Flags override the file.
	if *name != "" {
		cfg.Name = *name
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *network {
		cfg.Network = true
	}
	if *capture != "" {
		cfg.Capture = *capture
	}

	if cfg.MasterPreference < 0 || cfg.MasterPreference > 255 {
		return cfg, fmt.Errorf("master_preference must be 0-255, got %d", cfg.MasterPreference)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "aware-device:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	eventLog := log.Logger(log.NewSlogAdapter(logger))
	var captureFile *os.File
	if cfg.Capture != "" {
		captureFile, err = os.Create(cfg.Capture)
		if err != nil {
			return fmt.Errorf("create capture: %w", err)
		}
		defer captureFile.Close()
		eventLog = log.NewMultiLogger(eventLog, log.NewCaptureLogger(captureFile))
	}

	air := halsim.NewAir()
	var link *halsim.Link
	if cfg.Network {
		link, err = halsim.NewLink(air, logger)
		if err != nil {
			return fmt.Errorf("network link: %w", err)
		}
		defer link.Close()
	}

	radio := air.NewRadio(cfg.Name, halsim.DefaultCapabilities())
	defer radio.Close()

	pairings := pairing.NewManager()
	radio.SetIdentityKey(pairings.NikForCallingPackage(cfg.Name))

	mgr := aware.NewStateManager(aware.Options{
		Hal:      radio,
		Logger:   logger,
		EventLog: eventLog,
		Pairing:  pairings,
	})
	radio.RegisterHandler(mgr.Events())
	mgr.Start()
	defer mgr.Stop()
	mgr.EnableUsage()

	logger.Info("device up", "name", cfg.Name, "network", cfg.Network)

	console, err := interactive.New(mgr, interactive.Config{
		DeviceName:       cfg.Name,
		MasterPreference: cfg.MasterPreference,
		Band5GHz:         cfg.Band5GHz,
	})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		console.Run()
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		console.Close()
	case <-done:
	}
	return nil
}
