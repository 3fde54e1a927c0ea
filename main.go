package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/camnode/cmd"
	"github.com/smazurov/camnode/internal/api"
	"github.com/smazurov/camnode/internal/cameras"
	"github.com/smazurov/camnode/internal/config"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/internal/led"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/smazurov/camnode/internal/metrics"
	"github.com/smazurov/camnode/internal/updater"
	"github.com/smazurov/camnode/pkg/evk"
	"github.com/smazurov/camnode/pkg/evk/evksim"
	"github.com/smazurov/camnode/pkg/evk/evkusb"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"camnode.toml"`

	// Server settings
	Host string `help:"Interface to bind, empty for all" default:"" toml:"server.host" env:"SERVER_HOST"`
	Port int    `help:"Port to listen on" short:"p" default:"8080" toml:"server.port" env:"SERVER_PORT"`

	// Camera settings
	ConfigDir     string `help:"Directory camera description files resolve against" default:"." toml:"cameras.config_dir" env:"CAMERAS_CONFIG_DIR"`
	ProfilesFile  string `help:"Camera profile definitions file" default:"profiles.toml" toml:"cameras.profiles_file" env:"CAMERAS_PROFILES_FILE"`
	AutoOpen      bool   `help:"Open arriving devices that match a profile" default:"true" toml:"cameras.auto_open" env:"CAMERAS_AUTO_OPEN"`
	Simulate      bool   `help:"Serve a simulated board instead of scanning USB" default:"false" toml:"cameras.simulate" env:"CAMERAS_SIMULATE"`
	GrabTimeoutMs int    `help:"Single-frame grab timeout in milliseconds" default:"5000" toml:"cameras.grab_timeout_ms" env:"CAMERAS_GRAB_TIMEOUT_MS"`

	// Metrics settings
	MetricsIntervalMs int `help:"Stats snapshot interval in milliseconds" default:"2000" toml:"metrics.interval_ms" env:"METRICS_INTERVAL_MS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Update settings
	UpdateRepository string `help:"GitHub repository for self-update" default:"smazurov/camnode" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Include prereleases when checking for updates" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Features settings
	LEDControl bool `help:"Enable activity LED control" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingModules string `help:"Per-module levels, e.g. evk=debug,api=warn" default:"" toml:"logging.modules" env:"LOGGING_MODULES"`
	LoggingFile    string `help:"Mirror logs into this file" default:"" toml:"logging.file" env:"LOGGING_FILE"`
}

func main() {
	// Create Huma CLI. The variable is captured by the closure so the
	// config loader can consult the parsed flag set.
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:   opts.LoggingLevel,
			Format:  opts.LoggingFormat,
			Modules: config.ParseModuleLevels(opts.LoggingModules),
		})
		if opts.LoggingFile != "" {
			if err := logging.AddLogFile(opts.LoggingFile); err != nil {
				slog.Warn("Failed to open log file", "path", opts.LoggingFile, "error", err)
			}
		}
		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Mirror new log entries onto the bus so the SSE log stream
		// sees them live, not just from the ring buffer replay.
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Pick the transport backend
		var enumerator evk.Enumerator
		closeEnum := func() error { return nil }
		if opts.Simulate {
			logger.Info("Running against a simulated camera board")
			enumerator = evksim.NewEnumerator(evksim.New())
		} else {
			usbEnum := evkusb.NewEnumerator()
			enumerator = usbEnum
			closeEnum = usbEnum.Close
		}

		// Camera profiles drive auto-open on hotplug
		profiles := config.NewProfileStore(opts.ProfilesFile)
		if err := profiles.Load(); err != nil {
			logger.Warn("Failed to load camera profiles", "path", opts.ProfilesFile, "error", err)
		}

		manager := cameras.NewManager(cameras.Options{
			Enumerator: enumerator,
			Bus:        eventBus,
			Profiles:   profiles,
			ConfigDir:  opts.ConfigDir,
			AutoOpen:   opts.AutoOpen,
			Logger:     logging.GetLogger("cameras"),
		})

		// Metrics pump feeds Prometheus and the SSE stats stream
		promExporter := metrics.NewPrometheusExporter(nil)
		pump := metrics.NewPump(manager,
			time.Duration(opts.MetricsIntervalMs)*time.Millisecond,
			logging.GetLogger("metrics"),
			promExporter,
			metrics.NewSSEExporter(eventBus))

		updateService, updErr := updater.NewService(&updater.Options{
			Repository: opts.UpdateRepository,
			Prerelease: opts.UpdatePrerelease,
			Bus:        eventBus,
		})
		if updErr != nil {
			logger.Warn("Self-update unavailable", "error", updErr)
		}

		// Initialize LED control if enabled
		var ledManager *led.Manager
		if opts.LEDControl {
			logger.Info("LED control enabled, initializing")
			ledManager = led.NewManager(led.New(logger), eventBus, logger)
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			GrabTimeout:       time.Duration(opts.GrabTimeoutMs) * time.Millisecond,
			Cameras:           manager,
			EventBus:          eventBus,
			UpdateService:     updateService,
			PrometheusHandler: promExporter.Handler(),
		})

		hotplugCtx, stopHotplug := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			// Populate the device list before serving so the first
			// API call already sees attached boards.
			if err := manager.Refresh(); err != nil {
				logger.Warn("Initial device scan failed", "error", err)
			}
			go func() {
				if err := manager.WatchHotplug(hotplugCtx); err != nil && hotplugCtx.Err() == nil {
					logger.Warn("Hotplug watch unavailable, attach events need a manual refresh", "error", err)
				}
			}()

			pump.Start()
			if ledManager != nil {
				ledManager.Start()
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			logger.Info("Starting HTTP server", "addr", addr)
			if startErr := server.Start(addr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if updateService != nil && updateService.IsRestartPending() {
				logger.Info("Shutting down for restart")
			} else {
				logger.Info("Shutting down server")
			}
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			stopHotplug()
			pump.Stop()

			// Cameras go last among the data-plane pieces so pending
			// grabs fail fast rather than touch a closed transport.
			manager.CloseAll()

			if ledManager != nil {
				ledManager.Stop()
			}
			if err := closeEnum(); err != nil {
				logger.Warn("USB context close failed", "error", err)
			}
		})
	})

	root := cli.Root()
	root.Use = "camnode"
	root.AddCommand(cmd.CreateListCmd())
	root.AddCommand(cmd.CreateCaptureCmd())
	root.AddCommand(cmd.CreateRegCmd())
	root.AddCommand(cmd.CreatePackCmd())
	root.AddCommand(cmd.CreateInspectCmd())

	// Run the CLI
	cli.Run()
}
