package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"agent-storefront/internal/util"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Payment verification errors
var (
	ErrTxNotFound = errors.New("payment transaction not found")
	ErrTxFailed   = errors.New("payment transaction failed on-chain")
	ErrNoTransfer = errors.New("no transfer to storefront wallet found in transaction")
)

// UnderpaidError reports a settled amount below the tolerance band.
// Expected and delivered amounts are both disclosed so an unattended
// caller can correct and resubmit.
type UnderpaidError struct {
	Expected  decimal.Decimal
	Delivered decimal.Decimal
}

func (e *UnderpaidError) Error() string {
	return fmt.Sprintf("insufficient payment: expected %s, delivered %s",
		e.Expected.StringFixed(2), e.Delivered.StringFixed(2))
}

// Settlement is the verifier-derived record of a settled payment. The
// payer address comes from the transfer event, never from any
// client-asserted field.
type Settlement struct {
	Payer       string
	Amount      decimal.Decimal
	TxHash      string
	BlockNumber uint64
	SettledAt   time.Time
}

// ReceiptFetcher is the slice of the chain client the payment verifier
// needs.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// PaymentVerifier confirms that a settled ledger transaction paid the
// expected stablecoin amount to the storefront's receiving address. It is
// side-effect free and idempotent; replay prevention is layered in front
// of it by the orchestrator.
type PaymentVerifier struct {
	fetcher          ReceiptFetcher
	token            common.Address
	receiving        common.Address
	tokenDecimals    int32
	tolerancePercent int64
	timeout          time.Duration
	logger           *zap.Logger
}

// NewPaymentVerifier creates a payment verifier for the configured token
// and receiving address
func NewPaymentVerifier(fetcher ReceiptFetcher, tokenAddress, receivingAddress string, tokenDecimals, tolerancePercent int, timeout time.Duration) (*PaymentVerifier, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid token address: %s", tokenAddress)
	}
	if !common.IsHexAddress(receivingAddress) {
		return nil, fmt.Errorf("invalid receiving address: %s", receivingAddress)
	}
	return &PaymentVerifier{
		fetcher:          fetcher,
		token:            common.HexToAddress(tokenAddress),
		receiving:        common.HexToAddress(receivingAddress),
		tokenDecimals:    int32(tokenDecimals),
		tolerancePercent: int64(tolerancePercent),
		timeout:          timeout,
		logger:           util.GetLogger(),
	}, nil
}

// VerifyPayment checks that txRef settled a transfer of at least
// expected*(1-tolerance) of the payment token to the receiving address.
// Overpayment is always accepted.
func (v *PaymentVerifier) VerifyPayment(ctx context.Context, txRef string, expected decimal.Decimal) (*Settlement, error) {
	ctx, span := util.StartSpan(ctx, "PaymentVerifier.VerifyPayment")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PaymentVerifyLatency.Observe(time.Since(start).Seconds())
	}()

	if len(txRef) != 66 || txRef[:2] != "0x" {
		return nil, fmt.Errorf("%w: malformed reference %q", ErrTxNotFound, txRef)
	}
	txHash := common.HexToHash(txRef)

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	receipt, err := v.fetcher.TransactionReceipt(callCtx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txRef)
		}
		return nil, fmt.Errorf("failed to fetch settlement receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTxFailed, txRef)
	}

	// A transaction can emit any number of unrelated events; scan them
	// all for a token transfer addressed to us.
	transfer := v.findTransfer(receipt.Logs)
	if transfer == nil {
		return nil, fmt.Errorf("%w: token=%s to=%s", ErrNoTransfer, v.token.Hex(), v.receiving.Hex())
	}

	delivered := decimal.NewFromBigInt(new(big.Int).SetBytes(transfer.Data), -v.tokenDecimals)
	minimum := expected.Mul(decimal.NewFromInt(100 - v.tolerancePercent)).Div(decimal.NewFromInt(100))
	if delivered.LessThan(minimum) {
		return nil, &UnderpaidError{Expected: expected, Delivered: delivered}
	}

	payer := common.BytesToAddress(transfer.Topics[1].Bytes())

	settledAt := time.Time{}
	if header, err := v.fetcher.HeaderByNumber(callCtx, receipt.BlockNumber); err != nil {
		v.logger.Warn("Failed to resolve settlement timestamp",
			zap.String("tx", txRef), zap.Error(err))
	} else {
		settledAt = time.Unix(int64(header.Time), 0).UTC()
	}

	return &Settlement{
		Payer:       payer.Hex(),
		Amount:      delivered,
		TxHash:      txRef,
		BlockNumber: receipt.BlockNumber.Uint64(),
		SettledAt:   settledAt,
	}, nil
}

func (v *PaymentVerifier) findTransfer(logs []*types.Log) *types.Log {
	for _, l := range logs {
		if l.Address != v.token {
			continue
		}
		if len(l.Topics) != 3 || l.Topics[0] != transferTopic {
			continue
		}
		to := common.BytesToAddress(l.Topics[2].Bytes())
		if to == v.receiving {
			return l
		}
	}
	return nil
}
