package enrich

import (
	"math"

	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// LocktimeKind classifies how a transaction's nLockTime field should be
// interpreted, per Bitcoin Core's consensus rules.
type LocktimeKind int

const (
	// LocktimeNone means the transaction has no locktime restriction.
	LocktimeNone LocktimeKind = iota
	// LocktimeBlockHeight means Value is the minimum block height at
	// which the transaction may be mined.
	LocktimeBlockHeight
	// LocktimeTimestamp means Value is a Unix timestamp before which the
	// transaction may not be mined.
	LocktimeTimestamp
)

// locktimeTimestampThreshold is the boundary Bitcoin Core uses to decide
// whether nLockTime means a block height or a Unix timestamp.
const locktimeTimestampThreshold = 500_000_000

// Locktime is the interpreted form of a transaction's raw nLockTime field.
type Locktime struct {
	Kind  LocktimeKind
	Value uint32
}

// InterpretLocktime classifies a raw nLockTime value.
func InterpretLocktime(rawLockTime uint32) Locktime {
	switch {
	case rawLockTime == 0:
		return Locktime{Kind: LocktimeNone}
	case rawLockTime < locktimeTimestampThreshold:
		return Locktime{Kind: LocktimeBlockHeight, Value: rawLockTime}
	default:
		return Locktime{Kind: LocktimeTimestamp, Value: rawLockTime}
	}
}

// SignalsRBF reports whether any input of node opts into replace-by-fee
// signaling per BIP-125: a sequence number below 0xFFFFFFFE on any single
// input is enough to signal the whole transaction as replaceable.
func SignalsRBF(node *ancestry.TxNode) bool {
	for _, in := range node.Inputs {
		if in.SignalsRBF() {
			return true
		}
	}
	return false
}

// SumOutputs totals the value of every output of node, in satoshis.
func SumOutputs(node *ancestry.TxNode) int64 {
	var total int64
	for _, out := range node.Outputs {
		total += out.Value
	}
	return total
}

// Fee computes node's fee as inputs_total - outputs_total, in satoshis.
// It returns nil if node is a coinbase transaction (which mints value
// rather than paying a fee) or has any non-coinbase input whose funding
// value is not yet known — a partially resolved transaction has an unknown
// fee, not a zero one.
func Fee(node *ancestry.TxNode) *int64 {
	var inTotal int64
	for _, in := range node.Inputs {
		if in.IsCoinbase() {
			return nil
		}
		if in.Value == nil {
			return nil
		}
		inTotal += *in.Value
	}
	fee := inTotal - SumOutputs(node)
	return &fee
}

// FeerateSatVB computes a fee rate in satoshis per virtual byte, rounded
// to two decimal places. It returns nil if vsize is zero.
func FeerateSatVB(feeSats int64, vsize uint64) *float64 {
	if vsize == 0 {
		return nil
	}
	rate := float64(feeSats) / float64(vsize)
	rounded := math.Round(rate*100) / 100
	return &rounded
}
