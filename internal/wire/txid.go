package wire

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// ParseTxid decodes a hex txid string field. field names the JSON field
// for error messages (e.g. "vin.txid").
func ParseTxid(value interface{}, field string) (chainhash.Hash, error) {
	s, ok := value.(string)
	if !ok {
		return chainhash.Hash{}, &coreerr.InvalidTxDataError{Field: field, Msg: "missing " + field}
	}
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return chainhash.Hash{}, &coreerr.InvalidTxDataError{Field: field, Msg: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return *h, nil
}

// ParseOptBlockHash decodes an optional hex block hash field. A missing or
// non-string value is reported as absence rather than an error; a
// malformed hex string is an error.
func ParseOptBlockHash(value interface{}) (*chainhash.Hash, error) {
	s, ok := value.(string)
	if !ok {
		return nil, nil
	}
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return nil, &coreerr.InvalidTxDataError{Field: "blockhash", Msg: fmt.Sprintf("invalid blockhash: %v", err)}
	}
	return h, nil
}
