package server

import (
	"encoding/json"

	"github.com/cory-btc/ancestry/internal/enrich"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// ancestryResponse is the wire shape of a successful ancestry build: the
// same graph graph.Build produces, with every node additionally annotated
// with the fee, feerate, locktime interpretation, and RBF signal spec.md §1
// requires the graph to carry. graph.Build itself returns a plain
// *ancestry.AncestryGraph — enrichment is applied here, at the response
// boundary, rather than mutating the domain type.
type ancestryResponse struct {
	Root      string                    `json:"root"`
	Nodes     map[string]*enrichedNode  `json:"nodes"`
	Edges     []ancestry.AncestryEdge   `json:"edges"`
	Truncated bool                      `json:"truncated"`
	Stats     ancestry.GraphStats       `json:"stats"`
}

func newAncestryResponse(g *ancestry.AncestryGraph) *ancestryResponse {
	nodes := make(map[string]*enrichedNode, len(g.Nodes))
	for txid, node := range g.Nodes {
		nodes[txid.String()] = &enrichedNode{node: node}
	}
	return &ancestryResponse{
		Root:      g.Root.String(),
		Nodes:     nodes,
		Edges:     g.Edges,
		Truncated: g.Truncated,
		Stats:     g.Stats,
	}
}

// enrichedNode wraps a decoded transaction with the enrich package's
// derived fields. It is built fresh per response rather than stored on
// ancestry.TxNode, since fee/feerate/locktime/RBF are presentation
// concerns, not facts the cache needs to remember.
type enrichedNode struct {
	node *ancestry.TxNode
}

func (n *enrichedNode) MarshalJSON() ([]byte, error) {
	node := n.node

	var blockHash *string
	if node.BlockHash != nil {
		s := node.BlockHash.String()
		blockHash = &s
	}

	locktime := enrich.InterpretLocktime(node.LockTime)
	fee := enrich.Fee(node)
	var feerate *float64
	if fee != nil {
		feerate = enrich.FeerateSatVB(*fee, node.Vsize)
	}

	return json.Marshal(struct {
		Txid         string                `json:"txid"`
		Version      int32                 `json:"version"`
		LockTime     uint32                `json:"lockTime"`
		Size         uint64                `json:"size"`
		Vsize        uint64                `json:"vsize"`
		Weight       uint64                `json:"weight"`
		BlockHash    *string               `json:"blockHash,omitempty"`
		BlockHeight  *ancestry.BlockHeight `json:"blockHeight,omitempty"`
		Inputs       []ancestry.TxInput    `json:"inputs"`
		Outputs      []ancestry.TxOutput   `json:"outputs"`
		Fee          *int64                `json:"fee"`
		FeerateSatVB *float64              `json:"feerateSatVb"`
		LocktimeKind string                `json:"locktimeKind"`
		Rbf          bool                  `json:"rbf"`
	}{
		Txid:         node.Txid.String(),
		Version:      node.Version,
		LockTime:     node.LockTime,
		Size:         node.Size,
		Vsize:        node.Vsize,
		Weight:       node.Weight,
		BlockHash:    blockHash,
		BlockHeight:  node.BlockHeight,
		Inputs:       node.Inputs,
		Outputs:      node.Outputs,
		Fee:          fee,
		FeerateSatVB: feerate,
		LocktimeKind: locktimeKindName(locktime.Kind),
		Rbf:          enrich.SignalsRBF(node),
	})
}

func locktimeKindName(k enrich.LocktimeKind) string {
	switch k {
	case enrich.LocktimeBlockHeight:
		return "blockHeight"
	case enrich.LocktimeTimestamp:
		return "timestamp"
	default:
		return "none"
	}
}
