package config

import (
	"context"
	"os"
	"strings"
	"sync"

	"codeberg.org/mutker/padstate/internal/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultRate        = 60.0
	DefaultDeadzone    = 0.05
	DefaultDevice      = "/dev/input/js0"
	DefaultLayout      = "linux"
	DefaultLogLevel    = "info"
	DefaultRecorderDB  = "/var/lib/padstate/recorder.db"
	DefaultBatchSize   = 120
	DefaultBatchPeriod = 5
	DefaultPIDFile     = "/run/padstate/padstated.pid"

	defaultEnvPrefix  = "PADSTATE"
	defaultConfigName = "padstate"
	defaultConfigDir  = "/etc"
)

type Config struct {
	Rate        float64 `mapstructure:"rate"`
	Deadzone    float64 `mapstructure:"deadzone"`
	Device      string  `mapstructure:"device"`
	Layout      string  `mapstructure:"layout"`
	LogLevel    string  `mapstructure:"log_level"`
	Recorder    bool    `mapstructure:"recorder"`
	RecorderDB  string  `mapstructure:"recorder_db"`
	BatchSize   int     `mapstructure:"batch_size"`
	BatchPeriod int     `mapstructure:"batch_period"`
	PIDFile     string  `mapstructure:"pid_file"`

	v *viper.Viper
}

// Load reads configuration from defaults, the config file, environment
// variables and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}
	if !o.argsSet && len(os.Args) > 1 {
		o.args = os.Args[1:]
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := newFlagSet()
	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Load configuration from file
	configPath := o.configPath
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Override config file values with command line flags
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	config := &Config{v: v}
	if err := config.unmarshal(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rate", DefaultRate)
	v.SetDefault("deadzone", DefaultDeadzone)
	v.SetDefault("device", DefaultDevice)
	v.SetDefault("layout", DefaultLayout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("recorder", false)
	v.SetDefault("recorder_db", DefaultRecorderDB)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("batch_period", DefaultBatchPeriod)
	v.SetDefault("pid_file", DefaultPIDFile)
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("padstated", pflag.ContinueOnError)
	flags.Float64("rate", DefaultRate, "Polling rate in Hz")
	flags.Float64("deadzone", DefaultDeadzone, "Deadzone threshold for sticks and triggers")
	flags.String("device", DefaultDevice, "Joystick device path")
	flags.String("layout", DefaultLayout, "Controller layout (linux, standard)")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("recorder", false, "Record device states to SQLite")
	flags.String("recorder-db", DefaultRecorderDB, "Path to the recorder database")
	flags.Int("batch-size", DefaultBatchSize, "Recorder batch size")
	flags.Int("batch-period", DefaultBatchPeriod, "Recorder flush period in seconds")
	flags.String("pid-file", DefaultPIDFile, "Path to the PID file")

	return flags
}

func (c *Config) unmarshal() error {
	errFactory := errors.New()

	if err := c.v.Unmarshal(c); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Layout = strings.ToLower(c.Layout)

	return c.Validate()
}

// Validate checks every field that has a restricted range
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Rate <= 0 {
		return errFactory.WithData(errors.ErrInvalidRate, c.Rate)
	}
	if c.Deadzone < 0 || c.Deadzone > 1 {
		return errFactory.WithData(errors.ErrInvalidDeadzone, c.Deadzone)
	}
	if c.Device == "" {
		return errFactory.New(errors.ErrInvalidDevice)
	}
	if !Layout(c.Layout).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLayout, c.Layout)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Recorder && c.RecorderDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "recorder enabled without a database path")
	}

	return nil
}

// ConfigFile returns the path of the file the configuration was read from,
// or an empty string when only defaults, environment and flags were used.
func (c *Config) ConfigFile() string {
	if c.v == nil {
		return ""
	}

	return c.v.ConfigFileUsed()
}

// Watch calls callback with a freshly loaded configuration every time the
// config file changes. Invalid updates are passed to onError and skipped.
// Callbacks stop once ctx is done.
func (c *Config) Watch(ctx context.Context, callback func(*Config), onError func(error)) error {
	errFactory := errors.New()

	if c.ConfigFile() == "" {
		return errFactory.WithMessage(errors.ErrWatchConfig, "no configuration file loaded")
	}

	var mu sync.Mutex
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil || !(e.Has(fsnotify.Write) || e.Has(fsnotify.Create)) {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		next := &Config{v: c.v}
		if err := next.unmarshal(); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		callback(next)
	})
	c.v.WatchConfig()

	return nil
}
