package verify

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	owner common.Address
	err   error
	calls int
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return common.LeftPadBytes(f.owner.Bytes(), 32), nil
}

const (
	ownerWallet = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	otherWallet = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
	registry    = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

func newTestVerifier(t *testing.T, caller ContractCaller) *IdentityVerifier {
	t.Helper()
	v, err := NewIdentityVerifier(caller, registry, time.Second)
	require.NoError(t, err)
	return v
}

func TestVerifyOwnership(t *testing.T) {
	caller := &fakeCaller{owner: common.HexToAddress(ownerWallet)}
	v := newTestVerifier(t, caller)

	owner, err := v.VerifyOwnership(context.Background(), "42", ownerWallet)
	require.NoError(t, err)
	assert.Equal(t, ownerWallet, owner)
}

func TestVerifyOwnershipCaseInsensitive(t *testing.T) {
	caller := &fakeCaller{owner: common.HexToAddress(ownerWallet)}
	v := newTestVerifier(t, caller)

	// Addresses are not case-sensitive identifiers.
	_, err := v.VerifyOwnership(context.Background(), "42", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	assert.NoError(t, err)
}

func TestVerifyOwnershipMismatchDisclosesOwner(t *testing.T) {
	caller := &fakeCaller{owner: common.HexToAddress(ownerWallet)}
	v := newTestVerifier(t, caller)

	_, err := v.VerifyOwnership(context.Background(), "42", otherWallet)
	require.Error(t, err)

	var mismatch *OwnerMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, ownerWallet, mismatch.Owner)
	assert.Equal(t, otherWallet, mismatch.Claimed)
}

func TestVerifyOwnershipUnknownAgent(t *testing.T) {
	// ownerOf reverts for token ids the registry never minted.
	caller := &fakeCaller{err: errors.New("execution reverted: ERC721: invalid token ID")}
	v := newTestVerifier(t, caller)

	_, err := v.VerifyOwnership(context.Background(), "999999", ownerWallet)
	assert.ErrorIs(t, err, ErrAgentNotRegistered)
	// A revert is authoritative, not transient: exactly one call.
	assert.Equal(t, 1, caller.calls)
}

func TestVerifyOwnershipLookupFailureIsNotNotRegistered(t *testing.T) {
	caller := &fakeCaller{err: errors.New("connection refused")}
	v := newTestVerifier(t, caller)

	_, err := v.VerifyOwnership(context.Background(), "42", ownerWallet)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAgentNotRegistered)
	assert.Contains(t, err.Error(), "registry lookup failed")
}

func TestVerifyOwnershipInvalidAgentID(t *testing.T) {
	caller := &fakeCaller{owner: common.HexToAddress(ownerWallet)}
	v := newTestVerifier(t, caller)

	for _, agentID := range []string{"", "not-a-number", "-5", "0x12"} {
		_, err := v.VerifyOwnership(context.Background(), agentID, ownerWallet)
		assert.ErrorIs(t, err, ErrInvalidAgentID, "agent id %q", agentID)
	}
	assert.Zero(t, caller.calls)
}
