package recorder

import (
	"codeberg.org/mutker/padstate/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/padstate/recorder.db"
	defaultBatchSize    = 120
	defaultBatchPeriod  = 5
	backupDirectoryName = "backups"
)

type Config struct {
	DBPath      string
	BatchSize   int
	BatchPeriod int // seconds
	Enabled     bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:      defaultDBPath,
		BatchSize:   defaultBatchSize,
		BatchPeriod: defaultBatchPeriod,
		Enabled:     false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if recording is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchPeriod < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize   int
			BatchPeriod int
		}{c.BatchSize, c.BatchPeriod})
	}

	return nil
}
