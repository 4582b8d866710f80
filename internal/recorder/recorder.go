// Package recorder stores published device states in SQLite.
package recorder

import (
	"context"
	"sync"

	"codeberg.org/mutker/padstate/internal/errors"
	"codeberg.org/mutker/padstate/internal/gamepad"
	"codeberg.org/mutker/padstate/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config

	mu      sync.Mutex
	last    gamepad.DeviceState
	hasLast bool
}

// No-op implementation
type noopCollector struct{}

// NewService returns a collector for cfg, or a no-op collector when
// recording is disabled.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If recording is disabled, return a no-op collector
	if !cfg.Enabled {
		log.Debug().Msg("State recording disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create recorder repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Recorder service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

// Record stores the sample unless its state equals the previously
// recorded one.
func (s *service) Record(ctx context.Context, sample *Sample) error {
	errFactory := errors.New()

	if sample == nil {
		return errFactory.New(ErrInvalidSample)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasLast && s.last == sample.State {
		return nil
	}
	if err := s.repo.Record(sample); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}
	s.last = sample.State
	s.hasLast = true

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*service) IsEnabled() bool {
	return true
}

// No-op implementation
func (*noopCollector) Record(_ context.Context, _ *Sample) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}

func (*noopCollector) IsEnabled() bool {
	return false
}
