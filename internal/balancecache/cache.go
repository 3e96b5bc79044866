package balancecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/pkg/logger"
	"github.com/financialpress/fpt-ledger/pkg/metrics"
)

// Store is the slice of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	BalanceKey(accountID string) string
}

// Service mirrors account balances in redis for read-heavy clients. The mirror
// is advisory: debits never consult it, and a stale read self-heals at TTL.
type Service interface {
	Cached(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, bool, error)
	Invalidate(ctx context.Context, accountID uuid.UUID)
}

type service struct {
	store   Store
	ledger  ledger.Service
	ttl     time.Duration
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires the balance cache over the redis store and the ledger.
func NewService(store Store, ledgerSvc ledger.Service, ttl time.Duration, logg *logger.Logger, metr *metrics.LedgerMetrics) (Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	return &service{store: store, ledger: ledgerSvc, ttl: ttl, logg: logg, metrics: metr}, nil
}

// Cached returns the mirrored balance when fresh, falling through to the
// ledger and back-filling on a miss. The second return reports a cache hit.
func (s *service) Cached(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, bool, error) {
	if s.store == nil {
		balance, err := s.ledger.GetBalance(ctx, accountID)
		return balance, false, err
	}

	key := s.store.BalanceKey(accountID.String())
	raw, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		cached, parseErr := decimal.NewFromString(raw)
		if parseErr == nil {
			s.metrics.IncCacheLookup("hit")
			return cached, true, nil
		}
		// A corrupt entry falls through to the ledger and gets rewritten.
		s.warn(ctx, "balance cache entry unreadable", parseErr)
	case errors.Is(err, redis.Nil):
		s.metrics.IncCacheLookup("miss")
	default:
		s.metrics.IncCacheLookup("error")
		s.warn(ctx, "balance cache read failed", err)
	}

	balance, err := s.ledger.GetBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, false, err
	}

	if setErr := s.store.Set(ctx, key, balance.String(), s.ttl); setErr != nil {
		s.warn(ctx, "balance cache backfill failed", setErr)
	}
	return balance, false, nil
}

// Invalidate drops the mirror after a successful mutation. Failures are logged
// and swallowed: the TTL bounds staleness, the write already committed.
func (s *service) Invalidate(ctx context.Context, accountID uuid.UUID) {
	if s.store == nil || accountID == uuid.Nil {
		return
	}
	if err := s.store.Del(ctx, s.store.BalanceKey(accountID.String())); err != nil {
		s.warn(ctx, "balance cache invalidation failed", err)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), msg)
}
