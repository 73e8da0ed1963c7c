package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps the JSON-RPC connection to the settlement ledger. It is
// read-only: the storefront never submits transactions through it.
type Client struct {
	eth *ethclient.Client
}

// Dial connects to the ledger RPC endpoint
func Dial(rpcURL string) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}
	return &Client{eth: eth}, nil
}

// TransactionReceipt fetches the settlement receipt for a transaction
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, txHash)
}

// HeaderByNumber fetches a block header (for settlement timestamps)
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.eth.HeaderByNumber(ctx, number)
}

// CallContract executes a read-only contract call
func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, call, blockNumber)
}

// Close closes the RPC connection
func (c *Client) Close() {
	c.eth.Close()
}
