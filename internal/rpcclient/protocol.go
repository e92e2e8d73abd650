package rpcclient

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// batchResponse is the shape of one element of a JSON-RPC batch reply. Its
// ID may come back as a number or a string depending on the server, so it
// is decoded generically and resolved by parseBatchID.
type batchResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

type serverErrorShape struct {
	Code    *int64  `json:"code"`
	Message *string `json:"message"`
}

// parseJSONRPCError turns a JSON-RPC "error" field into a coreerr error.
// A well-formed {code, message} object becomes a *coreerr.ServerError;
// anything else becomes an *coreerr.InvalidResponseError carrying the raw
// text, since a non-standard error shape isn't safe to interpret further.
func parseJSONRPCError(raw json.RawMessage) error {
	var shape serverErrorShape
	if err := json.Unmarshal(raw, &shape); err != nil || shape.Code == nil || shape.Message == nil {
		return &coreerr.InvalidResponseError{Msg: "non-standard JSON-RPC error: " + string(raw)}
	}
	return &coreerr.ServerError{Code: *shape.Code, Message: *shape.Message}
}

// parseBatchID resolves a batch response's id field into a uint64,
// accepting both JSON numbers and numeric strings (some RPC servers echo
// batch ids back as strings).
func parseBatchID(raw json.RawMessage) (uint64, error) {
	var asNumber uint64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		n, err := strconv.ParseUint(asString, 10, 64)
		if err == nil {
			return n, nil
		}
	}
	return 0, &coreerr.InvalidResponseError{Msg: "batch response id is neither a number nor a numeric string: " + string(raw)}
}

func isNullOrEmpty(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeNumberJSON decodes raw into v using a decoder configured with
// UseNumber, so numeric fields land as json.Number instead of a lossy
// float64 — every wire.Parse* helper expects that shape.
func decodeNumberJSON(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

