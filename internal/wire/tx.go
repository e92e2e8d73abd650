// Package wire decodes Bitcoin Core's JSON-RPC transaction and output
// shapes into the ancestry package's types. Callers must decode the
// surrounding JSON with a json.Decoder configured via UseNumber so amount
// and integer fields are distinguishable from strings and booleans.
package wire

import (
	"github.com/cory-btc/ancestry/internal/coreerr"
	"github.com/cory-btc/ancestry/internal/enrich"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// ParseVin decodes the "vin" array of a decoderawtransaction/
// getrawtransaction(verbose) response. A coinbase input is recognized by
// the presence of a "coinbase" field and carries no prevout. When the node
// inlines prevout data (as with the `-prevout` getrawtransaction flag or a
// scriptPubKey-expanded block), the value and script type are populated
// opportunistically; otherwise they are left nil for later resolution.
func ParseVin(vin []interface{}) ([]ancestry.TxInput, error) {
	inputs := make([]ancestry.TxInput, len(vin))
	for i, raw := range vin {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &coreerr.InvalidTxDataError{Field: "vin", Msg: "vin entry is not an object"}
		}

		sequence, err := ParseIntegerRequired[uint32](m["sequence"], false, "sequence")
		if err != nil {
			return nil, err
		}

		_, isCoinbase := m["coinbase"]

		var prevout *ancestry.OutPoint
		if !isCoinbase {
			txid, err := ParseTxid(m["txid"], "vin.txid")
			if err != nil {
				return nil, err
			}
			vout, err := ParseIntegerRequired[uint32](m["vout"], false, "vin.vout")
			if err != nil {
				return nil, err
			}
			prevout = &ancestry.OutPoint{Txid: txid, Vout: vout}
		}

		var value *int64
		var scriptType *ancestry.ScriptType
		if prevoutRaw, ok := m["prevout"].(map[string]interface{}); ok {
			if v, ok := prevoutRaw["value"]; ok {
				if sats, err := ParseBTCAmount(v); err == nil {
					value = &sats
				}
			}
			if spk, ok := prevoutRaw["scriptPubKey"].(map[string]interface{}); ok {
				if hexStr, ok := spk["hex"].(string); ok {
					if script, err := scriptFromHex(hexStr); err == nil {
						st := enrich.ClassifyScript(script)
						scriptType = &st
					}
				}
			}
		}

		inputs[i] = ancestry.TxInput{
			Prevout:    prevout,
			Sequence:   sequence,
			Value:      value,
			ScriptType: scriptType,
		}
	}
	return inputs, nil
}

// ParseVout decodes the "vout" array of a getrawtransaction(verbose)
// response. Array position is authoritative for vout indexing — any "n"
// field the node also reports is ignored.
func ParseVout(vout []interface{}) ([]ancestry.TxOutput, error) {
	outputs := make([]ancestry.TxOutput, len(vout))
	for i, raw := range vout {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &coreerr.InvalidTxDataError{Field: "vout", Msg: "vout entry is not an object"}
		}

		valueRaw, ok := m["value"]
		if !ok {
			return nil, &coreerr.InvalidTxDataError{Field: "vout.value", Msg: "missing value in vout"}
		}
		value, err := ParseBTCAmount(valueRaw)
		if err != nil {
			return nil, err
		}

		spkRaw, ok := m["scriptPubKey"]
		if !ok {
			return nil, &coreerr.InvalidTxDataError{Field: "vout.scriptPubKey", Msg: "missing scriptPubKey in vout"}
		}
		script, err := parseScriptPubKeyFromJSON(spkRaw)
		if err != nil {
			return nil, err
		}

		outputs[i] = ancestry.TxOutput{
			Value:        value,
			ScriptPubKey: script,
			ScriptType:   enrich.ClassifyScript(script),
		}
	}
	return outputs, nil
}

// ParseGetTxOutResult decodes a gettxout RPC result. Bitcoin Core returns
// JSON null when the output is spent or unknown; callers get a nil
// *ancestry.TxOutput with no error in that case.
func ParseGetTxOutResult(raw interface{}) (*ancestry.TxOutput, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &coreerr.InvalidTxDataError{Msg: "invalid gettxout result"}
	}

	valueRaw, ok := m["value"]
	if !ok {
		return nil, &coreerr.InvalidTxDataError{Field: "value", Msg: "missing value in gettxout result"}
	}
	value, err := ParseBTCAmount(valueRaw)
	if err != nil {
		return nil, err
	}

	spkRaw, ok := m["scriptPubKey"]
	if !ok {
		return nil, &coreerr.InvalidTxDataError{Field: "scriptPubKey", Msg: "missing scriptPubKey in gettxout result"}
	}
	script, err := parseScriptPubKeyFromJSON(spkRaw)
	if err != nil {
		return nil, err
	}

	return &ancestry.TxOutput{
		Value:        value,
		ScriptPubKey: script,
		ScriptType:   enrich.ClassifyScript(script),
	}, nil
}

// ParseTxNode decodes the fields of a getrawtransaction(verbose) response
// common to confirmed and unconfirmed transactions. BlockHeight is left
// nil even when BlockHash is present — the caller (internal/rpcclient) is
// responsible for backfilling it via a cached getblockheader lookup, since
// that requires an RPC round trip this package does not perform.
func ParseTxNode(raw map[string]interface{}) (*ancestry.TxNode, error) {
	txid, err := ParseTxid(raw["txid"], "txid")
	if err != nil {
		return nil, err
	}
	version, err := ParseIntegerRequired[int32](raw["version"], true, "version")
	if err != nil {
		return nil, err
	}
	lockTime, err := ParseIntegerRequired[uint32](raw["locktime"], false, "locktime")
	if err != nil {
		return nil, err
	}
	size, err := ParseIntegerRequired[uint64](raw["size"], false, "size")
	if err != nil {
		return nil, err
	}
	vsize, err := ParseIntegerRequired[uint64](raw["vsize"], false, "vsize")
	if err != nil {
		return nil, err
	}
	weight, err := ParseIntegerRequired[uint64](raw["weight"], false, "weight")
	if err != nil {
		return nil, err
	}

	blockHash, err := ParseOptBlockHash(raw["blockhash"])
	if err != nil {
		return nil, err
	}

	vinRaw, ok := raw["vin"].([]interface{})
	if !ok {
		return nil, &coreerr.InvalidTxDataError{Field: "vin", Msg: "missing vin"}
	}
	inputs, err := ParseVin(vinRaw)
	if err != nil {
		return nil, err
	}

	voutRaw, ok := raw["vout"].([]interface{})
	if !ok {
		return nil, &coreerr.InvalidTxDataError{Field: "vout", Msg: "missing vout"}
	}
	outputs, err := ParseVout(voutRaw)
	if err != nil {
		return nil, err
	}

	return &ancestry.TxNode{
		Txid:      txid,
		Version:   version,
		LockTime:  lockTime,
		Size:      size,
		Vsize:     vsize,
		Weight:    weight,
		BlockHash: blockHash,
		Inputs:    inputs,
		Outputs:   outputs,
	}, nil
}

// Confirmations reports the "confirmations" field of a getrawtransaction
// response, or 0 if absent — used by the RPC client to decide whether a
// block-height backfill lookup is worthwhile.
func Confirmations(raw map[string]interface{}) int64 {
	n, _ := ParseIntegerOptional[int64](raw["confirmations"], true)
	return n
}
