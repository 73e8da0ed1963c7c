package attest

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agent-storefront/internal/models"
	"agent-storefront/internal/util"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Uploader stores supporting documents in the permanent content-addressed
// store.
type Uploader interface {
	Upload(ctx context.Context, name string, doc any) (string, error)
}

// Publisher publishes a signed attestation to the attestation ledger.
type Publisher interface {
	Publish(ctx context.Context, req *PublishRequest) (string, error)
}

// PublishRequest is a signed attestation ready for the gateway.
type PublishRequest struct {
	SchemaUID string          `json:"schema_uid"`
	Attester  string          `json:"attester"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// Receipt is the purchase summary an attestation is minted from.
type Receipt struct {
	OrderID   string
	Buyer     string
	AgentID   string
	Amount    decimal.Decimal
	OrderedAt time.Time
	Items     []models.OrderItem
}

// attestationData is the fixed, versioned payload schema. Amounts are
// fixed-point integer units of the payment token.
type attestationData struct {
	OrderID      string `json:"order_id"`
	Buyer        string `json:"buyer"`
	AgentID      string `json:"agent_id"`
	StoreName    string `json:"store_name"`
	ProviderName string `json:"provider_name"`
	TokenAddress string `json:"token_address"`
	AmountUnits  string `json:"amount_units"`
	OrderedAt    int64  `json:"ordered_at"`
	ItemsRef     string `json:"items_ref"`
	MetadataRef  string `json:"metadata_ref"`
}

// Minter publishes immutable purchase receipts. Both phases (document
// upload, attestation publish) are best-effort from the orchestrator's
// perspective; a failed upload degrades to an inline summary and a failed
// publish leaves the order's attestation reference null.
//
// Schema registration is a one-time bootstrap concern; the minter only
// ever publishes against the already-known schema UID.
type Minter struct {
	uploader      Uploader
	publisher     Publisher
	signer        *ecdsa.PrivateKey
	attester      string
	schemaUID     string
	storeName     string
	providerName  string
	tokenAddress  string
	tokenDecimals int32
	logger        *zap.Logger
}

// NewMinter creates a receipt minter signing with the storefront
// operating key
func NewMinter(uploader Uploader, publisher Publisher, signerKeyHex, schemaUID, storeName, providerName, tokenAddress string, tokenDecimals int) (*Minter, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid attestation signer key: %w", err)
	}
	return &Minter{
		uploader:      uploader,
		publisher:     publisher,
		signer:        key,
		attester:      crypto.PubkeyToAddress(key.PublicKey).Hex(),
		schemaUID:     schemaUID,
		storeName:     storeName,
		providerName:  providerName,
		tokenAddress:  tokenAddress,
		tokenDecimals: int32(tokenDecimals),
		logger:        util.GetLogger(),
	}, nil
}

// Mint publishes a purchase attestation and returns its reference.
func (m *Minter) Mint(ctx context.Context, rec *Receipt) (string, error) {
	ctx, span := util.StartSpan(ctx, "Minter.Mint")
	defer span.End()

	itemsRef := m.uploadOrSummarize(ctx,
		fmt.Sprintf("order-%s-items.json", rec.OrderID),
		map[string]any{"order_id": rec.OrderID, "items": rec.Items},
		summarizeItems(rec.Items))

	metadataRef := m.uploadOrSummarize(ctx,
		fmt.Sprintf("order-%s-metadata.json", rec.OrderID),
		map[string]any{
			"order_id":   rec.OrderID,
			"store":      m.storeName,
			"agent_id":   rec.AgentID,
			"ordered_at": rec.OrderedAt.UTC().Format(time.RFC3339),
		},
		fmt.Sprintf("order %s from %s at %s", rec.OrderID, m.storeName, rec.OrderedAt.UTC().Format(time.RFC3339)))

	data, err := json.Marshal(attestationData{
		OrderID:      rec.OrderID,
		Buyer:        rec.Buyer,
		AgentID:      rec.AgentID,
		StoreName:    m.storeName,
		ProviderName: m.providerName,
		TokenAddress: m.tokenAddress,
		AmountUnits:  rec.Amount.Shift(m.tokenDecimals).Truncate(0).String(),
		OrderedAt:    rec.OrderedAt.Unix(),
		ItemsRef:     itemsRef,
		MetadataRef:  metadataRef,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal attestation data: %w", err)
	}

	digest := crypto.Keccak256(data)
	sig, err := crypto.Sign(digest, m.signer)
	if err != nil {
		return "", fmt.Errorf("failed to sign attestation: %w", err)
	}

	ref, err := m.publisher.Publish(ctx, &PublishRequest{
		SchemaUID: m.schemaUID,
		Attester:  m.attester,
		Data:      data,
		Signature: hexutil.Encode(sig),
	})
	if err != nil {
		util.AttestationMintsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to publish attestation: %w", err)
	}

	util.AttestationMintsTotal.WithLabelValues("success").Inc()
	m.logger.Info("Receipt minted",
		zap.String("order_id", rec.OrderID),
		zap.String("attestation_ref", ref))
	return ref, nil
}

// uploadOrSummarize tries the permanent store and falls back to an
// inline human-readable summary; the mint itself never fails on an
// upload error.
func (m *Minter) uploadOrSummarize(ctx context.Context, name string, doc any, summary string) string {
	ref, err := m.uploader.Upload(ctx, name, doc)
	if err != nil {
		m.logger.Warn("Permanent store upload failed, substituting inline summary",
			zap.String("document", name),
			zap.Error(err))
		return summary
	}
	return ref
}

func summarizeItems(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s @ %s",
			item.Quantity, item.SKU, item.UnitPrice.StringFixed(2)))
	}
	return strings.Join(parts, "; ")
}
