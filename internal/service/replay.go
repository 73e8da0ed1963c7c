package service

import (
	"context"

	"agent-storefront/internal/util"

	"go.uber.org/zap"
)

// ConsumedCache is the redis-backed fast path for consumed payment
// references.
type ConsumedCache interface {
	IsConsumed(ctx context.Context, txRef string) (bool, error)
	MarkConsumed(ctx context.Context, txRef, orderID string) error
}

// ReplayGuard answers "has this payment reference already been
// consumed". It is a pre-check optimization only: the order ledger's
// unique constraint on payment_tx_reference is the sole arbiter under
// concurrency, enforced at commit time.
type ReplayGuard struct {
	cache  ConsumedCache
	ledger Ledger
	logger *zap.Logger
}

// NewReplayGuard creates a replay guard; cache may be nil
func NewReplayGuard(cache ConsumedCache, ledger Ledger) *ReplayGuard {
	return &ReplayGuard{
		cache:  cache,
		ledger: ledger,
		logger: util.GetLogger(),
	}
}

// IsConsumed checks cache first, then the ledger. Cache errors fall
// through to the ledger rather than failing the request.
func (g *ReplayGuard) IsConsumed(ctx context.Context, txRef string) (bool, error) {
	if g.cache != nil {
		consumed, err := g.cache.IsConsumed(ctx, txRef)
		if err != nil {
			g.logger.Warn("Replay cache lookup failed, falling back to ledger", zap.Error(err))
		} else if consumed {
			return true, nil
		}
	}

	order, err := g.ledger.GetOrderByPaymentReference(ctx, txRef)
	if err != nil {
		return false, err
	}
	return order != nil, nil
}

// MarkConsumed records a consumed reference in the cache after a
// successful commit. Best effort: the ledger row already guarantees
// correctness.
func (g *ReplayGuard) MarkConsumed(ctx context.Context, txRef, orderID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.MarkConsumed(ctx, txRef, orderID); err != nil {
		g.logger.Warn("Failed to cache consumed payment reference",
			zap.String("tx_ref", txRef),
			zap.Error(err))
	}
}
