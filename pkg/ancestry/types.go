// Package ancestry holds the data model shared by every layer of the
// ancestry graph builder: the decoded transaction shapes RPC responses are
// parsed into, the graph itself, and the limits that bound a traversal.
package ancestry

import (
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ScriptType classifies a scriptPubKey (or, for inputs, the scriptPubKey of
// the output it spends) into one of the standard templates Cory recognises.
type ScriptType int

const (
	ScriptUnknown ScriptType = iota
	ScriptP2PK
	ScriptP2PKH
	ScriptP2SH
	ScriptP2WPKH
	ScriptP2WSH
	ScriptP2TR
	ScriptOPReturn
)

func (s ScriptType) String() string {
	switch s {
	case ScriptP2PK:
		return "p2pk"
	case ScriptP2PKH:
		return "p2pkh"
	case ScriptP2SH:
		return "p2sh"
	case ScriptP2WPKH:
		return "p2wpkh"
	case ScriptP2WSH:
		return "p2wsh"
	case ScriptP2TR:
		return "p2tr"
	case ScriptOPReturn:
		return "op_return"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the script type as its lowercase name so API
// consumers never see the bare integer.
func (s ScriptType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// OutPoint names one specific output: the transaction that created it and
// its position within that transaction's output list.
type OutPoint struct {
	Txid chainhash.Hash
	Vout uint32
}

// MarshalJSON renders Txid as its hex string — chainhash.Hash has no
// MarshalJSON of its own, so embedding structs render it that way too.
func (o OutPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Txid string `json:"txid"`
		Vout uint32 `json:"vout"`
	}{Txid: o.Txid.String(), Vout: o.Vout})
}

// BlockHeight is the confirmed height of a block. A nil *BlockHeight means
// the owning transaction is unconfirmed (mempool) or the height is unknown.
type BlockHeight uint32

// TxInput is one input of a decoded transaction. Prevout is nil for
// coinbase inputs, which have no funding outpoint. Value and ScriptType are
// populated opportunistically — either inlined by the RPC response's
// `prevout` field, or filled in later by explicit prevout resolution — and
// remain nil until then.
type TxInput struct {
	Prevout    *OutPoint
	Sequence   uint32
	Value      *int64
	ScriptType *ScriptType
}

// IsCoinbase reports whether this input is the synthetic coinbase input
// (no funding outpoint, by construction never resolved further).
func (in TxInput) IsCoinbase() bool {
	return in.Prevout == nil
}

// SignalsRBF reports whether this single input's sequence number opts the
// spending transaction into replace-by-fee signaling (BIP-125).
func (in TxInput) SignalsRBF() bool {
	return in.Sequence < 0xFFFFFFFE
}

// TxOutput is one output of a decoded transaction, addressed by its
// position in Outputs (the vout index) — never by any "n" field the RPC
// response might also carry.
type TxOutput struct {
	Value        int64
	ScriptPubKey []byte
	ScriptType   ScriptType
}

// MarshalJSON renders ScriptPubKey as a hex string, matching the shape
// Bitcoin Core's own JSON-RPC responses use for script bytes.
func (o TxOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value        int64      `json:"value"`
		ScriptPubKey string     `json:"scriptPubKey"`
		ScriptType   ScriptType `json:"scriptType"`
	}{Value: o.Value, ScriptPubKey: hex.EncodeToString(o.ScriptPubKey), ScriptType: o.ScriptType})
}

// TxNode is a fully decoded transaction, memoized in Cache and consumed by
// GraphBuilder and the Enrich functions. Outputs[i] is addressed by vout
// index i; this is an invariant callers may rely on.
type TxNode struct {
	Txid        chainhash.Hash
	Version     int32
	LockTime    uint32
	Size        uint64
	Vsize       uint64
	Weight      uint64
	BlockHash   *chainhash.Hash
	BlockHeight *BlockHeight
	Inputs      []TxInput
	Outputs     []TxOutput
}

// MarshalJSON renders Txid and BlockHash as hex strings.
func (n TxNode) MarshalJSON() ([]byte, error) {
	var blockHash *string
	if n.BlockHash != nil {
		s := n.BlockHash.String()
		blockHash = &s
	}
	return json.Marshal(struct {
		Txid        string       `json:"txid"`
		Version     int32        `json:"version"`
		LockTime    uint32       `json:"lockTime"`
		Size        uint64       `json:"size"`
		Vsize       uint64       `json:"vsize"`
		Weight      uint64       `json:"weight"`
		BlockHash   *string      `json:"blockHash,omitempty"`
		BlockHeight *BlockHeight `json:"blockHeight,omitempty"`
		Inputs      []TxInput    `json:"inputs"`
		Outputs     []TxOutput   `json:"outputs"`
	}{
		Txid:        n.Txid.String(),
		Version:     n.Version,
		LockTime:    n.LockTime,
		Size:        n.Size,
		Vsize:       n.Vsize,
		Weight:      n.Weight,
		BlockHash:   blockHash,
		BlockHeight: n.BlockHeight,
		Inputs:      n.Inputs,
		Outputs:     n.Outputs,
	})
}

// AncestryEdge records that input InputIndex of SpendingTxid is funded by
// output FundingVout of FundingTxid.
type AncestryEdge struct {
	SpendingTxid chainhash.Hash
	InputIndex   int
	FundingTxid  chainhash.Hash
	FundingVout  uint32
}

// MarshalJSON renders SpendingTxid and FundingTxid as hex strings.
func (e AncestryEdge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SpendingTxid string `json:"spendingTxid"`
		InputIndex   int    `json:"inputIndex"`
		FundingTxid  string `json:"fundingTxid"`
		FundingVout  uint32 `json:"fundingVout"`
	}{
		SpendingTxid: e.SpendingTxid.String(),
		InputIndex:   e.InputIndex,
		FundingTxid:  e.FundingTxid.String(),
		FundingVout:  e.FundingVout,
	})
}

// GraphLimits bounds a single traversal. All three fields must be strictly
// positive; GraphBuilder treats them as inclusive upper bounds.
type GraphLimits struct {
	MaxDepth uint32
	MaxNodes uint32
	MaxEdges uint32
}

// GraphStats summarizes a completed (possibly truncated) traversal.
type GraphStats struct {
	NodeCount    int
	EdgeCount    int
	DepthReached uint32
}

// AncestryGraph is the bounded subgraph of ancestors of Root, reachable by
// repeatedly following inputs to their funding transaction.
type AncestryGraph struct {
	Root      chainhash.Hash
	Nodes     map[chainhash.Hash]*TxNode
	Edges     []AncestryEdge
	Truncated bool
	Stats     GraphStats
}

// MarshalJSON renders Nodes keyed by txid hex string — chainhash.Hash
// doesn't implement encoding.TextMarshaler, so the bare map can't be
// marshaled as a JSON object on its own.
func (g AncestryGraph) MarshalJSON() ([]byte, error) {
	nodes := make(map[string]*TxNode, len(g.Nodes))
	for txid, node := range g.Nodes {
		nodes[txid.String()] = node
	}
	return json.Marshal(struct {
		Root      string             `json:"root"`
		Nodes     map[string]*TxNode `json:"nodes"`
		Edges     []AncestryEdge     `json:"edges"`
		Truncated bool               `json:"truncated"`
		Stats     GraphStats         `json:"stats"`
	}{
		Root:      g.Root.String(),
		Nodes:     nodes,
		Edges:     g.Edges,
		Truncated: g.Truncated,
		Stats:     g.Stats,
	})
}

// ChainInfo is the subset of getblockchaininfo the core consumes.
type ChainInfo struct {
	Chain         string
	Blocks        uint64
	BestBlockHash chainhash.Hash
	Pruned        bool
}

// MarshalJSON renders BestBlockHash as a hex string.
func (c ChainInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Chain         string `json:"chain"`
		Blocks        uint64 `json:"blocks"`
		BestBlockHash string `json:"bestBlockHash"`
		Pruned        bool   `json:"pruned"`
	}{
		Chain:         c.Chain,
		Blocks:        c.Blocks,
		BestBlockHash: c.BestBlockHash.String(),
		Pruned:        c.Pruned,
	})
}
