// Package coreerr defines the typed error taxonomy shared across the RPC
// client, the wire decoder, and the label store. Callers use errors.As to
// recover the concrete type instead of matching on message text.
package coreerr

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TransportError wraps a failure to even reach the RPC endpoint: dial
// failures, timeouts, connection resets.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidResponseError means the endpoint answered but the response did
// not conform to the JSON-RPC envelope Cory expects.
type InvalidResponseError struct {
	Msg string
}

func (e *InvalidResponseError) Error() string {
	return "rpc invalid response: " + e.Msg
}

// ServerError is a well-formed JSON-RPC error object returned by the node.
type ServerError struct {
	Code    int64
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("rpc server error %d: %s", e.Code, e.Message)
}

// TxNotFoundError means getrawtransaction could not locate the txid, most
// commonly because the node is pruned or the transaction was never
// broadcast to it.
type TxNotFoundError struct {
	Txid chainhash.Hash
}

func (e *TxNotFoundError) Error() string {
	return "transaction not found: " + e.Txid.String()
}

// InvalidTxDataError covers malformed transaction JSON: a missing required
// field, a field of the wrong JSON type, or a value outside its valid
// range.
type InvalidTxDataError struct {
	Field string
	Msg   string
}

func (e *InvalidTxDataError) Error() string {
	if e.Field == "" {
		return "invalid transaction data: " + e.Msg
	}
	return fmt.Sprintf("invalid transaction data: field %q: %s", e.Field, e.Msg)
}

// LabelParseError locates a malformed BIP-329 JSONL record by its 1-indexed
// line number. Line is 0 for errors that are not line-specific (such as a
// duplicate file id discovered while walking a directory).
type LabelParseError struct {
	Line int
	Msg  string
}

func (e *LabelParseError) Error() string {
	if e.Line == 0 {
		return "label parse error: " + e.Msg
	}
	return fmt.Sprintf("label parse error at line %d: %s", e.Line, e.Msg)
}

// IOError wraps a filesystem failure encountered while loading or flushing
// label files.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error on %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
