package worker

import (
	"context"
	"fmt"

	"agent-storefront/internal/attest"
	"agent-storefront/internal/broker"
	"agent-storefront/internal/models"
	"agent-storefront/internal/service"
	"agent-storefront/internal/util"

	"go.uber.org/zap"
)

// AttestationWorker retries failed receipt mints out-of-band. Receipts
// are immutable once published; a retry only ever re-attempts
// publishing, never revision.
type AttestationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	ledger       service.Ledger
	minter       service.ReceiptMinter
	logger       *zap.Logger
}

// NewAttestationWorker creates a worker that consumes ReceiptFailed
// events
func NewAttestationWorker(consumer *broker.Consumer, ledger service.Ledger, minter service.ReceiptMinter) *AttestationWorker {
	w := &AttestationWorker{
		consumer: consumer,
		ledger:   ledger,
		minter:   minter,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnReceiptFailed(w.handleReceiptFailed)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *AttestationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting attestation worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AttestationWorker) Stop() error {
	w.logger.Info("Stopping attestation worker")
	return w.consumer.Close()
}

func (w *AttestationWorker) handleReceiptFailed(ctx context.Context, event *models.ReceiptFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "AttestationWorker.handleReceiptFailed")
	defer span.End()

	order, err := w.ledger.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", event.OrderID, err)
	}

	// Already minted by a concurrent retry or redelivered message.
	if order.AttestationRef.Valid {
		return nil
	}

	items, err := w.ledger.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	ref, err := w.minter.Mint(ctx, &attest.Receipt{
		OrderID:   order.ID,
		Buyer:     order.Wallet,
		AgentID:   order.AgentID,
		Amount:    order.TotalAmount,
		OrderedAt: order.CreatedAt,
		Items:     items,
	})
	if err != nil {
		// Leave the message uncommitted-equivalent: log and move on,
		// the reference stays null until an operator or a later event
		// retries.
		w.logger.Warn("Attestation retry failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return nil
	}

	if err := w.ledger.SetAttestationReference(ctx, order.ID, ref); err != nil {
		return fmt.Errorf("failed to record attestation reference: %w", err)
	}

	w.logger.Info("Attestation retry succeeded",
		zap.String("order_id", order.ID),
		zap.String("attestation_ref", ref))
	return nil
}
