package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"agent-storefront/internal/util"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Identity verification errors. ErrAgentNotRegistered means the registry
// authoritatively has no such token; a lookup failure is a separate,
// transient condition. Both deny the request, but callers must not
// conflate them.
var (
	ErrAgentNotRegistered = errors.New("agent is not registered")
	ErrInvalidAgentID     = errors.New("agent id is not a valid token id")
)

// OwnerMismatchError reports that the claimed wallet does not own the
// agent token. The resolved owner is disclosed so legitimate callers can
// self-diagnose wrong-wallet mistakes; it is public chain data anyway.
type OwnerMismatchError struct {
	AgentID string
	Claimed string
	Owner   string
}

func (e *OwnerMismatchError) Error() string {
	return fmt.Sprintf("wallet %s does not own agent %s (owner is %s)", e.Claimed, e.AgentID, e.Owner)
}

const registryABIJSON = `[{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}]`

// ContractCaller is the read-only slice of the chain client the identity
// verifier needs.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// IdentityVerifier resolves the current owner of an agent token against
// the on-chain registry. Resolution is per-request and never cached:
// ownership can change between requests.
type IdentityVerifier struct {
	caller   ContractCaller
	registry common.Address
	abi      abi.ABI
	timeout  time.Duration
	logger   *zap.Logger
}

// NewIdentityVerifier creates an identity verifier against the given
// registry contract
func NewIdentityVerifier(caller ContractCaller, registryAddress string, timeout time.Duration) (*IdentityVerifier, error) {
	parsed, err := abi.JSON(strings.NewReader(registryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry abi: %w", err)
	}
	if !common.IsHexAddress(registryAddress) {
		return nil, fmt.Errorf("invalid registry address: %s", registryAddress)
	}
	return &IdentityVerifier{
		caller:   caller,
		registry: common.HexToAddress(registryAddress),
		abi:      parsed,
		timeout:  timeout,
		logger:   util.GetLogger(),
	}, nil
}

// VerifyOwnership confirms that claimedWallet currently owns the agent
// token agentID. Returns the resolved owner address. Fails closed: any
// error denies the request. A registry revert is treated as an
// authoritative "agent does not exist" and is not retried.
func (v *IdentityVerifier) VerifyOwnership(ctx context.Context, agentID, claimedWallet string) (string, error) {
	ctx, span := util.StartSpan(ctx, "IdentityVerifier.VerifyOwnership")
	defer span.End()

	tokenID, ok := new(big.Int).SetString(agentID, 10)
	if !ok || tokenID.Sign() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAgentID, agentID)
	}

	data, err := v.abi.Pack("ownerOf", tokenID)
	if err != nil {
		return "", fmt.Errorf("failed to pack ownerOf call: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	res, err := v.caller.CallContract(callCtx, ethereum.CallMsg{To: &v.registry, Data: data}, nil)
	if err != nil {
		// ownerOf reverts for unknown token ids (ERC-721 semantics).
		if strings.Contains(err.Error(), "execution reverted") {
			return "", fmt.Errorf("%w: agent %s", ErrAgentNotRegistered, agentID)
		}
		return "", fmt.Errorf("registry lookup failed for agent %s: %w", agentID, err)
	}
	if len(res) == 0 {
		return "", fmt.Errorf("%w: agent %s", ErrAgentNotRegistered, agentID)
	}

	out, err := v.abi.Unpack("ownerOf", res)
	if err != nil {
		return "", fmt.Errorf("failed to decode registry response: %w", err)
	}
	owner := out[0].(common.Address)

	if !strings.EqualFold(owner.Hex(), claimedWallet) {
		v.logger.Warn("Agent ownership mismatch",
			zap.String("agent_id", agentID),
			zap.String("claimed", claimedWallet),
			zap.String("owner", owner.Hex()))
		return owner.Hex(), &OwnerMismatchError{AgentID: agentID, Claimed: claimedWallet, Owner: owner.Hex()}
	}

	return owner.Hex(), nil
}
