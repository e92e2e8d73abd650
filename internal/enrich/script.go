// Package enrich derives the per-transaction summary figures: script
// classification, fee, feerate, locktime meaning, and RBF signaling.
// Every function here is pure — no RPC calls, no caching — so callers
// (the wire decoder for script types, the server's ancestry response for
// the rest) can call them freely; the graph builder itself does not.
package enrich

import (
	"github.com/btcsuite/btcd/txscript"

	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// ClassifyScript classifies a scriptPubKey by its opcode structure rather
// than by scanning its hex for recognizable substrings — a hex-substring
// match can misfire on a script that merely happens to contain the right
// bytes at the wrong offset (e.g. inside a pushed data payload).
func ClassifyScript(script []byte) ancestry.ScriptType {
	class := txscript.GetScriptClass(script)
	switch class {
	case txscript.PubKeyTy:
		return ancestry.ScriptP2PK
	case txscript.PubKeyHashTy:
		return ancestry.ScriptP2PKH
	case txscript.ScriptHashTy:
		return ancestry.ScriptP2SH
	case txscript.WitnessV0PubKeyHashTy:
		return ancestry.ScriptP2WPKH
	case txscript.WitnessV0ScriptHashTy:
		return ancestry.ScriptP2WSH
	case txscript.WitnessV1TaprootTy:
		return ancestry.ScriptP2TR
	case txscript.NullDataTy:
		return ancestry.ScriptOPReturn
	default:
		return ancestry.ScriptUnknown
	}
}
