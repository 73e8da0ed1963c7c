package attest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agent-storefront/internal/models"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSignerKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testTokenAddr  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

type fakeUploader struct {
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, name string, doc any) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ar://doc-" + name, nil
}

type fakePublisher struct {
	err  error
	last *PublishRequest
}

func (f *fakePublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	return "0xattestation01", nil
}

func testReceipt() *Receipt {
	return &Receipt{
		OrderID:   "0191e3a4-0000-7000-8000-000000000001",
		Buyer:     "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		AgentID:   "42",
		Amount:    decimal.RequireFromString("7.92"),
		OrderedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{SKU: "sticker-pack-small", Quantity: 2, UnitPrice: decimal.RequireFromString("4.20"), LineTotal: decimal.RequireFromString("8.40")},
		},
	}
}

func newTestMinter(t *testing.T, uploader Uploader, publisher Publisher) *Minter {
	t.Helper()
	m, err := NewMinter(uploader, publisher, testSignerKey, "0xschema01", "Sticker Storefront", "printprovider", testTokenAddr, 6)
	require.NoError(t, err)
	return m
}

func TestMint(t *testing.T) {
	uploader := &fakeUploader{}
	publisher := &fakePublisher{}
	m := newTestMinter(t, uploader, publisher)

	ref, err := m.Mint(context.Background(), testReceipt())
	require.NoError(t, err)
	assert.Equal(t, "0xattestation01", ref)

	require.NotNil(t, publisher.last)
	assert.Equal(t, "0xschema01", publisher.last.SchemaUID)
	assert.Equal(t, testSignerAddr, publisher.last.Attester)

	var data attestationData
	require.NoError(t, json.Unmarshal(publisher.last.Data, &data))
	assert.Equal(t, "7920000", data.AmountUnits)
	assert.Equal(t, "42", data.AgentID)
	assert.Equal(t, testTokenAddr, data.TokenAddress)
	assert.Contains(t, data.ItemsRef, "ar://doc-")
	assert.Contains(t, data.MetadataRef, "ar://doc-")

	// The signature must recover to the attester address.
	sig, err := hexutil.Decode(publisher.last.Signature)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	pub, err := crypto.SigToPub(crypto.Keccak256(publisher.last.Data), sig)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, crypto.PubkeyToAddress(*pub).Hex())
}

func TestMintUploadFailureFallsBackToSummary(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("permanent store unavailable")}
	publisher := &fakePublisher{}
	m := newTestMinter(t, uploader, publisher)

	ref, err := m.Mint(context.Background(), testReceipt())
	require.NoError(t, err)
	assert.Equal(t, "0xattestation01", ref)

	// The mint proceeds with inline summaries instead of document refs.
	var data attestationData
	require.NoError(t, json.Unmarshal(publisher.last.Data, &data))
	assert.Equal(t, "2x sticker-pack-small @ 4.20", data.ItemsRef)
	assert.Contains(t, data.MetadataRef, "Sticker Storefront")
}

func TestMintPublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("gateway timeout")}
	m := newTestMinter(t, &fakeUploader{}, publisher)

	_, err := m.Mint(context.Background(), testReceipt())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish attestation")
}

func TestNewMinterRejectsBadKey(t *testing.T) {
	_, err := NewMinter(&fakeUploader{}, &fakePublisher{}, "not-a-key", "0xschema01", "s", "p", testTokenAddr, 6)
	assert.Error(t, err)
}
