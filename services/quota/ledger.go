// Package quota meters protected case views for free-tier users.
package quota

import (
	"context"
	"errors"
	"time"

	usageRepo "courtwise/database/repository/usage"
	"courtwise/models"
	"courtwise/utils"

	"go.uber.org/zap"
)

// ErrQuotaExhausted is returned to callers that needed a view the allowance no longer covers.
var ErrQuotaExhausted = errors.New("daily case allowance exhausted")

// Ledger derives and records daily usage. It holds no per-user state; the
// in-memory remaining count lives with the session that owns it.
type Ledger struct {
	usage     usageRepo.UsageRepository
	allowance int
	atomic    bool
	now       func() time.Time
	metrics   *utils.Metrics
	logger    *zap.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithAtomicIncrement replaces the read-modify-write persistence with a
// single upsert-with-increment.
func WithAtomicIncrement(enabled bool) Option {
	return func(l *Ledger) { l.atomic = enabled }
}

// WithClock sets the clock used to pick today's usage date.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithMetrics records quota decisions and usage writes on m.
func WithMetrics(m *utils.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// NewLedger builds a ledger granting allowance views per day. Negative
// allowances are treated as zero.
func NewLedger(usage usageRepo.UsageRepository, allowance int, logger *zap.Logger, opts ...Option) *Ledger {
	if allowance < 0 {
		allowance = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		usage:     usage,
		allowance: allowance,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allowance is the fresh daily allowance of a metered user.
func (l *Ledger) Allowance() Remaining {
	return Remaining(l.allowance)
}

// Today is the usage date the ledger currently reads and writes.
func (l *Ledger) Today() string {
	return models.UsageDate(l.now())
}

// Load computes the remaining allowance for userID. Roles that are not
// metered never touch the store. A missing record means nothing was viewed
// today and is not created here. Read failures fall back to the full allowance.
func (l *Ledger) Load(ctx context.Context, userID string, role models.Role) Remaining {
	if !role.Metered() {
		return Unlimited
	}
	date := l.Today()
	record, err := l.usage.Get(ctx, userID, date)
	if err != nil {
		l.logger.Warn("Failed to load daily usage, granting full allowance",
			zap.String("userID", userID), zap.String("date", date), zap.Error(err))
		return l.Allowance()
	}
	if record == nil {
		return l.Allowance()
	}
	left := l.allowance - record.CasesViewed
	if left < 0 {
		left = 0
	}
	return Remaining(left)
}

// Decrement is the consumption guard. It returns the new remaining count and
// whether a view was consumed; unmetered roles and an exhausted allowance are no-ops.
func (l *Ledger) Decrement(role models.Role, remaining Remaining) (Remaining, bool) {
	if !role.Metered() || remaining.IsUnlimited() {
		return remaining, false
	}
	if remaining <= 0 {
		if l.metrics != nil {
			l.metrics.QuotaBlocked.Inc()
		}
		return 0, false
	}
	if l.metrics != nil {
		l.metrics.QuotaConsumed.WithLabelValues(string(role)).Inc()
	}
	return remaining - 1, true
}

// Persist records one consumed view for userID today. Failures are logged
// and swallowed.
func (l *Ledger) Persist(ctx context.Context, userID string) {
	date := l.Today()
	var err error
	if l.atomic {
		_, err = l.usage.Increment(ctx, userID, date)
	} else {
		err = l.readModifyWrite(ctx, userID, date)
	}

	result := "ok"
	if err != nil {
		result = "error"
		l.logger.Warn("Failed to persist case view",
			zap.String("userID", userID), zap.String("date", date), zap.Error(err))
	}
	if l.metrics != nil {
		l.metrics.UsageWrites.WithLabelValues(result).Inc()
	}
}

// readModifyWrite has no concurrency guard. Two writers racing on the same
// (user, date) both read the same count and the last write wins.
func (l *Ledger) readModifyWrite(ctx context.Context, userID, date string) error {
	record, err := l.usage.Get(ctx, userID, date)
	if err != nil {
		return err
	}
	if record == nil {
		return l.usage.Insert(ctx, &models.UsageRecord{
			UserID:      userID,
			UsageDate:   date,
			CasesViewed: 1,
		})
	}
	return l.usage.UpdateCasesViewed(ctx, record.ID, record.CasesViewed+1)
}
