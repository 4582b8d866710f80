package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/padstate/internal/config"
	"codeberg.org/mutker/padstate/internal/errors"
	"codeberg.org/mutker/padstate/internal/gamepad"
	"codeberg.org/mutker/padstate/internal/joystick"
	"codeberg.org/mutker/padstate/internal/logger"
	"codeberg.org/mutker/padstate/internal/pid"
	"codeberg.org/mutker/padstate/internal/poller"
	"codeberg.org/mutker/padstate/internal/recorder"
)

const recordTimeout = time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().
		Str("file", cfg.ConfigFile()).
		Msg("Config loaded")
}

func main() {
	if err := pid.Write(cfg.PIDFile); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handleSignals(cancel)

	err := run(ctx)
	cancel()

	if rmErr := pid.Remove(cfg.PIDFile); rmErr != nil {
		logger.Error().Err(rmErr).Msg("failed to remove PID file")
	}

	if err != nil {
		var coded errors.Error
		if errors.As(err, &coded) {
			logger.FatalWithCode(coded).Msg("padstated stopped")
		}
		logger.Fatal().Err(err).Msg("padstated stopped")
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	errFactory := errors.New()

	device, err := joystick.Open(cfg.Device)
	if err != nil {
		return errFactory.Wrap(errors.ErrOpenDevice, err)
	}
	defer device.Close()

	info := device.Info()
	logger.Info().
		Str("device", info.Path).
		Str("name", info.Name).
		Int("axes", info.Axes).
		Int("buttons", info.Buttons).
		Msg("Device opened")

	rec, err := recorder.NewService(recorder.Config{
		DBPath:      cfg.RecorderDB,
		BatchSize:   cfg.BatchSize,
		BatchPeriod: cfg.BatchPeriod,
		Enabled:     cfg.Recorder,
	}, logger.New("recorder"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitRecorder, err)
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close recorder")
		}
	}()

	layout, err := gamepad.LayoutByName(cfg.Layout)
	if err != nil {
		return errFactory.Wrap(errors.ErrInvalidLayout, err)
	}
	p, err := poller.New(device,
		poller.WithRate(cfg.Rate),
		poller.WithDeadzone(cfg.Deadzone),
		poller.WithLayout(layout),
		poller.WithLogger(logger.New("poller")),
	)
	if err != nil {
		return errFactory.Wrap(errors.ErrStartPoller, err)
	}
	defer p.Close()

	defer p.Subscribe(logEdges(layout))()
	if rec.IsEnabled() {
		defer p.Subscribe(recordStates(ctx, rec))()
	}

	logger.Info().
		Float64("rate", cfg.Rate).
		Str("layout", layout.Name).
		Float64("deadzone", p.Deadzone()).
		Bool("recorder", rec.IsEnabled()).
		Msg("Polling started")

	if cfg.ConfigFile() != "" {
		if err := cfg.Watch(ctx, reload(p), func(err error) {
			logger.Warn().Err(err).Msg("Ignoring invalid configuration change")
		}); err != nil {
			logger.Warn().Err(err).Msg("Config watch unavailable")
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case <-device.Done():
		// Hot-plug is not handled; let the service manager restart us
		return errFactory.Wrap(errors.ErrUnavailable, device.Err())
	}
}

// logEdges logs every control whose press started on this tick.
func logEdges(layout gamepad.Layout) poller.Observer {
	log := logger.New("input")
	return func(state gamepad.DeviceState) {
		fields := layout.JustPressed(state)
		if len(fields) == 0 {
			return
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.String()
		}
		log.Debug().
			Str("pressed", strings.Join(names, ",")).
			Float64("left_trigger", state.Left.Trigger).
			Float64("right_trigger", state.Right.Trigger).
			Msg("Buttons pressed")
	}
}

func recordStates(ctx context.Context, rec recorder.Collector) poller.Observer {
	log := logger.New("recorder")
	return func(state gamepad.DeviceState) {
		rctx, cancel := context.WithTimeout(ctx, recordTimeout)
		defer cancel()
		if err := rec.Record(rctx, &recorder.Sample{Timestamp: time.Now(), State: state}); err != nil {
			log.Warn().Err(err).Msg("Failed to record state")
		}
	}
}

// reload applies the settings that can change without a restart.
func reload(p *poller.Poller) func(*config.Config) {
	return func(next *config.Config) {
		if err := next.Validate(); err != nil {
			logger.Warn().Err(err).Msg("Ignoring invalid configuration change")
			return
		}
		if err := p.SetDeadzone(next.Deadzone); err != nil {
			logger.Warn().Err(err).Msg("Failed to apply deadzone")
		}
		logger.SetLogLevel(logger.ParseLevel(next.LogLevel))

		if next.Rate != cfg.Rate || next.Device != cfg.Device || next.Layout != cfg.Layout || next.Recorder != cfg.Recorder {
			logger.Info().Msg("Changes to rate, device, layout or recorder take effect after restart")
		}
		logger.Info().
			Float64("deadzone", next.Deadzone).
			Str("log_level", next.LogLevel).
			Msg("Configuration reloaded")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
