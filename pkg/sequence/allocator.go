package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/metrics"
	"github.com/procurio/procurio/pkg/repository"
)

const (
	// DefaultMaxAttempts bounds retries on transient store conflicts.
	DefaultMaxAttempts = 5
	// DefaultBaseBackoff is the first retry delay; it doubles per attempt.
	DefaultBaseBackoff = 25 * time.Millisecond
)

// Config holds allocator tuning parameters. The constants are tuning, not
// correctness: uniqueness and monotonicity come from the row lock.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Allocator issues unique, strictly increasing document numbers per
// (tenant, document type) pair. Each call serializes on the pair's counter
// row via an exclusive row lock; different tenants or document types never
// contend with each other. Numbers are issued in commit order, which may
// differ from request-arrival order under contention.
type Allocator struct {
	db       *sql.DB
	counters *repository.SequencesRepository
	config   Config
	logger   *slog.Logger
}

// NewAllocator creates a sequence allocator.
func NewAllocator(db *sql.DB, counters *repository.SequencesRepository, config Config, logger *slog.Logger) *Allocator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = DefaultBaseBackoff
	}
	return &Allocator{db: db, counters: counters, config: config, logger: logger}
}

// NextNumber returns the next number for the (tenant, document type) pair,
// guaranteed unique and strictly greater than every previously issued value
// even under concurrent callers. Transient serialization failures are
// retried with bounded exponential backoff; an exhausted budget surfaces
// ErrSequenceExhausted, which operators should treat as an alarm.
func (a *Allocator) NextNumber(ctx context.Context, tenantID uuid.UUID, docType domain.DocType) (int64, error) {
	if !docType.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownDocType, docType)
	}

	var lastErr error
	for attempt := 0; attempt < a.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.SequenceRetriesTotal.Inc()
			if err := sleep(ctx, Backoff(a.config.BaseBackoff, attempt)); err != nil {
				return 0, err
			}
		}

		number, err := a.allocate(ctx, tenantID, docType)
		if err == nil {
			metrics.SequenceIssuedTotal.WithLabelValues(string(docType)).Inc()
			return number, nil
		}
		if !Retryable(err) {
			return 0, err
		}
		lastErr = err
		if a.logger != nil {
			a.logger.Debug("sequence allocation conflict, retrying",
				"tenant_id", tenantID,
				"doc_type", docType,
				"attempt", attempt+1,
			)
		}
	}

	metrics.SequenceExhaustedTotal.Inc()
	if a.logger != nil {
		a.logger.Error("sequence allocation retry budget exhausted",
			"tenant_id", tenantID,
			"doc_type", docType,
			"attempts", a.config.MaxAttempts,
			"error", lastErr,
		)
	}
	return 0, fmt.Errorf("%w: %v", domain.ErrSequenceExhausted, lastErr)
}

// allocate runs one lock-increment-commit cycle. The counter row is created
// lazily at zero on first use.
func (a *Allocator) allocate(ctx context.Context, tenantID uuid.UUID, docType domain.DocType) (int64, error) {
	var number int64
	err := repository.Tx(ctx, a.db, func(tx *sql.Tx) error {
		if err := a.counters.EnsureTx(ctx, tx, tenantID, docType); err != nil {
			return err
		}
		value, err := a.counters.LockTx(ctx, tx, tenantID, docType)
		if err != nil {
			return err
		}
		number = value + 1
		return a.counters.SetTx(ctx, tx, tenantID, docType, number)
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

// Retryable reports whether err is a transient Postgres conflict worth
// retrying: serialization failure (40001) or deadlock detected (40P01).
func Retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// Backoff returns the delay before the given retry attempt (1-based for the
// first retry): base doubled per attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
