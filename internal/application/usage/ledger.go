// Package usage implements the monthly usage ledger: reading a user's
// consumption for the current calendar month and atomically adding to it.
package usage

import (
	"context"
	"errors"
	"time"

	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/domain/usage"
	"go.uber.org/zap"
)

// Strategy selects how IncrementUsage reaches the store
type Strategy string

const (
	// StrategyUpsert relies on a single INSERT ... ON CONFLICT DO UPDATE
	StrategyUpsert Strategy = "upsert"
	// StrategyOptimistic reads the version and retries on a lost race
	StrategyOptimistic Strategy = "optimistic"
)

// Config controls retries and storage deadlines
type Config struct {
	Strategy     Strategy
	MaxRetries   int
	RetryBackoff time.Duration
	StoreTimeout time.Duration
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Strategy:     StrategyUpsert,
		MaxRetries:   5,
		RetryBackoff: 10 * time.Millisecond,
		StoreTimeout: 3 * time.Second,
	}
}

// Recorder receives ledger measurements
type Recorder interface {
	ObserveStore(operation string, elapsed time.Duration, err error)
	ConflictRetry(strategy string)
	Incremented(strategy string, delta int64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStore(string, time.Duration, error) {}
func (nopRecorder) ConflictRetry(string) {}
func (nopRecorder) Incremented(string, int64) {}

// Option configures a Ledger
type Option func(*Ledger)

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) {
		if r != nil {
			l.recorder = r
		}
	}
}

// Ledger tracks quota consumption per user and calendar month.
// It holds no in-process locks: the store's transaction is the only
// serialization point, so any number of goroutines and processes may share it.
type Ledger struct {
	store    usage.Store
	clock    shared.Clock
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
}

// NewLedger creates a new usage ledger
func NewLedger(store usage.Store, clock shared.Clock, cfg Config, logger *zap.Logger, opts ...Option) *Ledger {
	defaults := DefaultConfig()
	if cfg.Strategy == "" {
		cfg.Strategy = defaults.Strategy
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if clock == nil {
		clock = shared.NewSystemClock(time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Ledger{
		store:    store,
		clock:    clock,
		cfg:      cfg,
		logger:   logger.Named("usage_ledger"),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetUsage reports the user's consumption for the current month against limit.
// An absent record reads as zero used. It never substitutes a default when the
// store fails.
func (l *Ledger) GetUsage(ctx context.Context, userID string, limit int64) (usage.Usage, error) {
	if userID == "" {
		return usage.Usage{}, usage.ErrInvalidArgument.WithMessage("user ID cannot be empty")
	}
	if limit <= 0 {
		return usage.Usage{}, usage.ErrInvalidArgument.WithMessage("limit must be positive")
	}

	period := usage.PeriodOf(l.clock.Now())

	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	start := time.Now()
	record, err := l.store.FindByUserAndPeriod(storeCtx, userID, period)
	if errors.Is(err, shared.ErrNotFound) {
		err = nil
	}
	l.recorder.ObserveStore("get", time.Since(start), err)
	if err != nil {
		return usage.Usage{}, l.storageError("get usage", userID, period, err)
	}

	var used int64
	if record != nil {
		used = record.Count
	}
	return usage.NewUsage(used, limit), nil
}

// IncrementUsage adds delta to the user's counter for the current month,
// creating the counter on first use. A zero delta succeeds without writing.
func (l *Ledger) IncrementUsage(ctx context.Context, userID string, delta int64) error {
	if userID == "" {
		return usage.ErrInvalidArgument.WithMessage("user ID cannot be empty")
	}
	if delta < 0 {
		return usage.ErrInvalidArgument.WithMessage("delta cannot be negative")
	}
	if delta == 0 {
		return nil
	}

	now := l.clock.Now()
	period := usage.PeriodOf(now)

	var lastErr error
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		err := l.incrementOnce(ctx, userID, period, delta, now)
		if err == nil {
			l.recorder.Incremented(string(l.cfg.Strategy), delta)
			return nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return l.storageError("increment usage", userID, period, err)
		}

		lastErr = err
		l.recorder.ConflictRetry(string(l.cfg.Strategy))
		l.logger.Debug("usage increment conflicted, retrying",
			zap.String("user_id", userID),
			zap.Stringer("period", period),
			zap.Int("attempt", attempt))

		if attempt == l.cfg.MaxRetries {
			break
		}
		if err := l.backoff(ctx, attempt); err != nil {
			return l.storageError("increment usage", userID, period, err)
		}
	}

	l.logger.Warn("usage increment exceeded retries",
		zap.String("user_id", userID),
		zap.Stringer("period", period),
		zap.Int64("delta", delta),
		zap.Int("max_retries", l.cfg.MaxRetries),
		zap.Error(lastErr))
	return usage.ErrConflictExceededRetries.Wrap(lastErr)
}

// History returns the user's past counters, newest first
func (l *Ledger) History(ctx context.Context, userID string, months int) ([]*usage.UsageRecord, error) {
	if userID == "" {
		return nil, usage.ErrInvalidArgument.WithMessage("user ID cannot be empty")
	}
	if months <= 0 || months > 36 {
		months = 12
	}

	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	start := time.Now()
	records, err := l.store.ListByUser(storeCtx, userID, months)
	l.recorder.ObserveStore("history", time.Since(start), err)
	if err != nil {
		return nil, l.storageError("list usage history", userID, usage.PeriodOf(l.clock.Now()), err)
	}
	return records, nil
}

func (l *Ledger) incrementOnce(ctx context.Context, userID string, period usage.Period, delta int64, now time.Time) error {
	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	start := time.Now()
	var err error
	if l.cfg.Strategy == StrategyOptimistic {
		err = l.store.IncrementWithVersion(storeCtx, userID, period, delta, now)
	} else {
		err = l.store.Upsert(storeCtx, userID, period, delta, now)
	}
	l.recorder.ObserveStore("increment", time.Since(start), err)
	return err
}

func (l *Ledger) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.cfg.StoreTimeout)
}

// backoff waits attempt * RetryBackoff, or until ctx is done
func (l *Ledger) backoff(ctx context.Context, attempt int) error {
	wait := l.cfg.RetryBackoff * time.Duration(attempt)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// storageError classifies a store failure. Validation errors pass through;
// everything else, timeouts included, becomes STORAGE_UNAVAILABLE.
func (l *Ledger) storageError(op, userID string, period usage.Period, err error) error {
	if errors.Is(err, usage.ErrInvalidArgument) {
		return err
	}
	l.logger.Error("usage storage failure",
		zap.String("operation", op),
		zap.String("user_id", userID),
		zap.Stringer("period", period),
		zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
		zap.Error(err))
	return usage.ErrStorageUnavailable.Wrap(err)
}
