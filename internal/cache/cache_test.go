package cache

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cory-btc/ancestry/pkg/ancestry"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	l := NewLRU[int, string](2)
	l.Put(1, "a")
	l.Put(2, "b")
	l.Get(1) // touch 1, making 2 the least recently used
	l.Put(3, "c")

	if _, ok := l.Get(2); ok {
		t.Fatal("expected key 2 to be evicted")
	}
	if v, ok := l.Get(1); !ok || v != "a" {
		t.Fatal("expected key 1 to survive eviction")
	}
	if v, ok := l.Get(3); !ok || v != "c" {
		t.Fatal("expected key 3 to be present")
	}
}

func TestCacheTiersAreIndependent(t *testing.T) {
	c := New(10, 10)

	txid := chainhash.Hash{1}
	c.PutTx(&ancestry.TxNode{Txid: txid})
	if _, ok := c.GetTx(txid); !ok {
		t.Fatal("expected tx to be cached")
	}

	op := ancestry.OutPoint{Txid: txid, Vout: 0}
	if _, ok := c.GetPrevout(op); ok {
		t.Fatal("prevout tier must not see the tx tier's entries")
	}

	c.PutBlockHeight(txid, ancestry.BlockHeight(100))
	h, ok := c.GetBlockHeight(txid)
	if !ok || h != 100 {
		t.Fatal("expected block height to be cached")
	}
}

func TestCacheTxTierEvictsAtCapacity(t *testing.T) {
	c := New(2, 2)

	first := chainhash.Hash{1}
	second := chainhash.Hash{2}
	third := chainhash.Hash{3}

	c.PutTx(&ancestry.TxNode{Txid: first})
	c.PutTx(&ancestry.TxNode{Txid: second})
	c.PutTx(&ancestry.TxNode{Txid: third})

	if _, ok := c.GetTx(first); ok {
		t.Fatal("expected oldest tx to be evicted once capacity is exceeded")
	}
	if _, ok := c.GetTx(third); !ok {
		t.Fatal("expected most recently inserted tx to survive")
	}
}

func TestCachePrevoutTierEvictsAtCapacity(t *testing.T) {
	c := New(2, 2)

	txid := chainhash.Hash{1}
	opA := ancestry.OutPoint{Txid: txid, Vout: 0}
	opB := ancestry.OutPoint{Txid: txid, Vout: 1}
	opC := ancestry.OutPoint{Txid: txid, Vout: 2}

	c.PutPrevout(opA, &ancestry.TxOutput{Value: 1})
	c.PutPrevout(opB, &ancestry.TxOutput{Value: 2})
	c.PutPrevout(opC, &ancestry.TxOutput{Value: 3})

	if _, ok := c.GetPrevout(opA); ok {
		t.Fatal("expected oldest prevout to be evicted once capacity is exceeded")
	}
	if _, ok := c.GetPrevout(opC); !ok {
		t.Fatal("expected most recently inserted prevout to survive")
	}
}
