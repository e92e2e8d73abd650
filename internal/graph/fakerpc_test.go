package graph

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cory-btc/ancestry/internal/coreerr"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// fakeRPC is an in-memory stand-in for rpcclient.Client, keyed by txid.
// failing marks txids that GetTransaction/GetTransactions always reject,
// exercising GraphBuilder's ancestor-failure handling without a real node.
type fakeRPC struct {
	mu          sync.Mutex
	nodes       map[chainhash.Hash]*ancestry.TxNode
	failing     map[chainhash.Hash]bool
	calls       int
	batchCalls  int
	txOutsCalls int
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		nodes:   make(map[chainhash.Hash]*ancestry.TxNode),
		failing: make(map[chainhash.Hash]bool),
	}
}

func (f *fakeRPC) add(node *ancestry.TxNode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[node.Txid] = node
}

// failAlways makes every future fetch of txid return TxNotFoundError,
// simulating an ancestor the node cannot supply.
func (f *fakeRPC) failAlways(txid chainhash.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[txid] = true
}

func (f *fakeRPC) GetTransaction(_ context.Context, txid chainhash.Hash) (*ancestry.TxNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing[txid] {
		return nil, &coreerr.TxNotFoundError{Txid: txid}
	}
	node, ok := f.nodes[txid]
	if !ok {
		return nil, &coreerr.TxNotFoundError{Txid: txid}
	}
	return node, nil
}

// GetTransactions mimics rpcclient.Client.GetTransactions' all-or-nothing
// batch contract: if any requested txid fails, the whole call fails.
func (f *fakeRPC) GetTransactions(ctx context.Context, txids []chainhash.Hash) ([]*ancestry.TxNode, error) {
	f.mu.Lock()
	f.batchCalls++
	f.mu.Unlock()

	nodes := make([]*ancestry.TxNode, len(txids))
	for i, txid := range txids {
		node, err := f.GetTransaction(ctx, txid)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return nodes, nil
}

// GetTxOuts resolves outpoints directly against the fake's stored nodes,
// returning a nil entry (matching Bitcoin Core's gettxout semantics) for
// any outpoint it doesn't recognize.
func (f *fakeRPC) GetTxOuts(_ context.Context, ops []ancestry.OutPoint) ([]*ancestry.TxOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txOutsCalls++

	outs := make([]*ancestry.TxOutput, len(ops))
	for i, op := range ops {
		node, ok := f.nodes[op.Txid]
		if !ok || int(op.Vout) >= len(node.Outputs) {
			continue
		}
		out := node.Outputs[op.Vout]
		outs[i] = &out
	}
	return outs, nil
}

func hashOf(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func coinbaseInput() ancestry.TxInput {
	return ancestry.TxInput{Sequence: 0xFFFFFFFF}
}

func spendingInput(txid chainhash.Hash, vout uint32) ancestry.TxInput {
	return ancestry.TxInput{
		Prevout:  &ancestry.OutPoint{Txid: txid, Vout: vout},
		Sequence: 0xFFFFFFFF,
	}
}
