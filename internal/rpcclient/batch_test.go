package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		Connection:     server.URL,
		BatchChunkSize: 100,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func mustHash(t *testing.T, hex string) chainhash.Hash {
	t.Helper()
	h, err := chainhash.NewHashFromStr(hex)
	if err != nil {
		t.Fatalf("NewHashFromStr(%q): %v", hex, err)
	}
	return *h
}

// TestBatchReassemblesResponsesOutOfOrder builds a server that replies to a
// batch request with its items shuffled into reverse order, and verifies
// the client still returns results matching the original call order.
func TestBatchReassemblesResponsesOutOfOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reqs []jsonrpcRequest
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			t.Errorf("server: decode batch request: %v", err)
			return
		}

		type resp struct {
			ID     uint64          `json:"id"`
			Result json.RawMessage `json:"result"`
		}
		resps := make([]resp, len(reqs))
		for i, req := range reqs {
			resps[i] = resp{ID: req.ID, Result: req.Params}
		}
		// Reverse order to simulate a server that doesn't echo batch items
		// back in request order.
		for i, j := 0, len(resps)-1; i < j; i, j = i+1, j-1 {
			resps[i], resps[j] = resps[j], resps[i]
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resps); err != nil {
			t.Errorf("server: encode batch response: %v", err)
		}
	})

	calls := make([]rpcCall, 5)
	for i := range calls {
		calls[i] = rpcCall{Method: "echo", Params: []interface{}{fmt.Sprintf("call-%d", i)}}
	}

	results, err := c.batch(context.Background(), calls)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != len(calls) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(calls))
	}
	for i, raw := range results {
		var params []string
		if err := json.Unmarshal(raw, &params); err != nil {
			t.Fatalf("result[%d]: unmarshal: %v", i, err)
		}
		want := fmt.Sprintf("call-%d", i)
		if len(params) != 1 || params[0] != want {
			t.Fatalf("result[%d] = %v, want [%q]", i, params, want)
		}
	}
}

// TestBatchFailsWholeBatchOnSingleError mirrors the doc comment on
// (*Client).batch: one erroring item poisons the whole batch.
func TestBatchFailsWholeBatchOnSingleError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reqs []jsonrpcRequest
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			t.Errorf("server: decode batch request: %v", err)
			return
		}

		type resp struct {
			ID     uint64          `json:"id"`
			Result json.RawMessage `json:"result,omitempty"`
			Error  interface{}     `json:"error,omitempty"`
		}
		resps := make([]resp, len(reqs))
		for i, req := range reqs {
			if i == 1 {
				resps[i] = resp{ID: req.ID, Error: map[string]interface{}{"code": -5, "message": "not found"}}
				continue
			}
			resps[i] = resp{ID: req.ID, Result: req.Params}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resps)
	})

	calls := []rpcCall{
		{Method: "echo", Params: []interface{}{"a"}},
		{Method: "echo", Params: []interface{}{"b"}},
		{Method: "echo", Params: []interface{}{"c"}},
	}

	if _, err := c.batch(context.Background(), calls); err == nil {
		t.Fatal("expected the whole batch to fail when one item errors")
	}
}

func minimalTxJSON(txid string) map[string]interface{} {
	return map[string]interface{}{
		"txid":     txid,
		"version":  1,
		"locktime": 0,
		"size":     100,
		"vsize":    100,
		"weight":   400,
		"vin": []interface{}{
			map[string]interface{}{"coinbase": "00", "sequence": 4294967295},
		},
		"vout": []interface{}{
			map[string]interface{}{"value": 1.0, "scriptPubKey": map[string]interface{}{"hex": "6a0401020304"}},
		},
	}
}

// TestGetTransactionsFallsBackToSequentialOnBatchFailure configures a fake
// node whose batch endpoint always errors every item (simulating one bad
// txid poisoning the whole JSON-RPC batch) while its single-call endpoint
// answers normally, and checks GetTransactions still returns every node via
// the sequential fallback path.
func TestGetTransactionsFallsBackToSequentialOnBatchFailure(t *testing.T) {
	txidA := mustHash(t, strings.Repeat("11", 32))
	txidB := mustHash(t, strings.Repeat("22", 32))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("server: read body: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		trimmed := strings.TrimSpace(string(body))
		if strings.HasPrefix(trimmed, "[") {
			var reqs []jsonrpcRequest
			if err := json.Unmarshal(body, &reqs); err != nil {
				t.Errorf("server: decode batch request: %v", err)
				return
			}
			type resp struct {
				ID    uint64      `json:"id"`
				Error interface{} `json:"error"`
			}
			resps := make([]resp, len(reqs))
			for i, req := range reqs {
				resps[i] = resp{ID: req.ID, Error: map[string]interface{}{"code": -32603, "message": "internal error"}}
			}
			_ = json.NewEncoder(w).Encode(resps)
			return
		}

		var req jsonrpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("server: decode single request: %v", err)
			return
		}
		var params []interface{}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			t.Errorf("server: decode single params: %v", err)
			return
		}
		txidStr, _ := params[0].(string)

		result := minimalTxJSON(txidStr)
		resultJSON, _ := json.Marshal(result)
		respEnvelope := struct {
			ID     uint64          `json:"id"`
			Result json.RawMessage `json:"result"`
		}{ID: req.ID, Result: resultJSON}
		_ = json.NewEncoder(w).Encode(respEnvelope)
	})

	nodes, err := c.GetTransactions(context.Background(), []chainhash.Hash{txidA, txidB})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}
	if nodes[0].Txid != txidA || nodes[1].Txid != txidB {
		t.Fatalf("unexpected txids: %v, %v", nodes[0].Txid, nodes[1].Txid)
	}
}
