package cache

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// blockHeightCacheCap bounds the block-height memo table. Block heights
// never need to be forgotten for correctness — they're immutable once a
// block is mined — this cap exists purely to bound memory on long-running
// processes that walk many unrelated ancestry graphs.
const blockHeightCacheCap = 10_000

// Cache memoizes the three pieces of RPC-sourced data GraphBuilder and the
// RPC client repeatedly need: decoded transactions, resolved prevout
// outputs, and block heights. Each tier is its own bounded LRU with its own
// lock, so concurrent fetches of unrelated data never contend and a
// pathologically large ancestry walk cannot exhaust memory.
type Cache struct {
	txMu sync.Mutex
	tx   *LRU[chainhash.Hash, *ancestry.TxNode]

	prevoutMu sync.Mutex
	prevout   *LRU[ancestry.OutPoint, *ancestry.TxOutput]

	heightMu sync.Mutex
	height   *LRU[chainhash.Hash, ancestry.BlockHeight]
}

// New builds an empty Cache. txCapacity and prevoutCapacity bound the
// transaction and prevout tiers respectively; both must be positive. The
// block-height tier is fixed at 10,000 entries.
func New(txCapacity, prevoutCapacity int) *Cache {
	return &Cache{
		tx:      NewLRU[chainhash.Hash, *ancestry.TxNode](txCapacity),
		prevout: NewLRU[ancestry.OutPoint, *ancestry.TxOutput](prevoutCapacity),
		height:  NewLRU[chainhash.Hash, ancestry.BlockHeight](blockHeightCacheCap),
	}
}

// GetTx returns the memoized transaction for txid, if any.
func (c *Cache) GetTx(txid chainhash.Hash) (*ancestry.TxNode, bool) {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	return c.tx.Get(txid)
}

// PutTx memoizes node under its own txid.
func (c *Cache) PutTx(node *ancestry.TxNode) {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	c.tx.Put(node.Txid, node)
}

// GetPrevout returns the memoized resolved output at op, if any.
func (c *Cache) GetPrevout(op ancestry.OutPoint) (*ancestry.TxOutput, bool) {
	c.prevoutMu.Lock()
	defer c.prevoutMu.Unlock()
	return c.prevout.Get(op)
}

// PutPrevout memoizes out as the resolved output at op.
func (c *Cache) PutPrevout(op ancestry.OutPoint, out *ancestry.TxOutput) {
	c.prevoutMu.Lock()
	defer c.prevoutMu.Unlock()
	c.prevout.Put(op, out)
}

// GetBlockHeight returns the memoized height of hash, if any.
func (c *Cache) GetBlockHeight(hash chainhash.Hash) (ancestry.BlockHeight, bool) {
	c.heightMu.Lock()
	defer c.heightMu.Unlock()
	return c.height.Get(hash)
}

// PutBlockHeight memoizes height under hash.
func (c *Cache) PutBlockHeight(hash chainhash.Hash, height ancestry.BlockHeight) {
	c.heightMu.Lock()
	defer c.heightMu.Unlock()
	c.height.Put(hash, height)
}
