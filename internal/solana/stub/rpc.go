// Package stub provides in-memory Solana clients for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	"solana-token-radar/internal/solana"
)

// ErrNotFound is returned when a transaction is not in the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing. Safe for concurrent use.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.Transaction
	accounts     map[string]*solana.AccountInfo
	signatures   map[string][]solana.SignatureInfo
	txErrors     map[string]error
	calls        map[string]int

	Slot    int64
	SlotErr error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.Transaction),
		accounts:     make(map[string]*solana.AccountInfo),
		signatures:   make(map[string][]solana.SignatureInfo),
		txErrors:     make(map[string]error),
		calls:        make(map[string]int),
		Slot:         1,
	}
}

func (c *RPCClient) record(method string) {
	c.calls[method]++
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getTransaction")

	if err, ok := c.txErrors[signature]; ok {
		return nil, err
	}
	tx, ok := c.transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getSignaturesForAddress")

	sigs, ok := c.signatures[address]
	if !ok {
		return nil, nil
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}
	return append([]solana.SignatureInfo(nil), sigs...), nil
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getAccountInfo")

	return c.accounts[pubkey], nil
}

// GetSlot returns Slot or SlotErr.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getSlot")

	if c.SlotErr != nil {
		return 0, c.SlotErr
	}
	return c.Slot, nil
}

// SetSlotErr makes GetSlot fail (nil restores it).
func (c *RPCClient) SetSlotErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SlotErr = err
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Signature] = tx
}

// FailTransaction makes GetTransaction return err for signature.
func (c *RPCClient) FailTransaction(signature string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txErrors[signature] = err
}

// AddAccount stores account data under pubkey.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[pubkey] = info
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signatures[address] = sigs
}

var _ solana.RPCClient = (*RPCClient)(nil)
