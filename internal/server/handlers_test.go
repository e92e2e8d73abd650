package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"

	"github.com/cory-btc/ancestry/internal/cache"
	"github.com/cory-btc/ancestry/internal/coreerr"
	"github.com/cory-btc/ancestry/internal/labels"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// stubRPC implements graph.RPC for server-layer integration tests.
type stubRPC struct {
	nodes map[chainhash.Hash]*ancestry.TxNode
}

func newStubRPC() *stubRPC {
	return &stubRPC{nodes: make(map[chainhash.Hash]*ancestry.TxNode)}
}

func (s *stubRPC) add(n *ancestry.TxNode) {
	s.nodes[n.Txid] = n
}

func (s *stubRPC) GetTransaction(_ context.Context, txid chainhash.Hash) (*ancestry.TxNode, error) {
	node, ok := s.nodes[txid]
	if !ok {
		return nil, &coreerr.TxNotFoundError{Txid: txid}
	}
	return node, nil
}

func (s *stubRPC) GetTransactions(ctx context.Context, txids []chainhash.Hash) ([]*ancestry.TxNode, error) {
	nodes := make([]*ancestry.TxNode, len(txids))
	for i, txid := range txids {
		node, err := s.GetTransaction(ctx, txid)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return nodes, nil
}

func (s *stubRPC) GetTxOuts(_ context.Context, ops []ancestry.OutPoint) ([]*ancestry.TxOutput, error) {
	outs := make([]*ancestry.TxOutput, len(ops))
	for i, op := range ops {
		node, ok := s.nodes[op.Txid]
		if !ok || int(op.Vout) >= len(node.Outputs) {
			continue
		}
		out := node.Outputs[op.Vout]
		outs[i] = &out
	}
	return outs, nil
}

func hashOf(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func newIntegrationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := hashOf(1)
	parent := hashOf(2)

	rpc := newStubRPC()
	rpc.add(&ancestry.TxNode{
		Txid:    root,
		Version: 2,
		Inputs: []ancestry.TxInput{
			{Prevout: &ancestry.OutPoint{Txid: parent, Vout: 0}, Sequence: 0xFFFFFFFF},
		},
		Outputs: []ancestry.TxOutput{{Value: 1000}},
	})
	rpc.add(&ancestry.TxNode{
		Txid:    parent,
		Version: 2,
		Inputs:  []ancestry.TxInput{{Sequence: 0xFFFFFFFF}}, // coinbase
		Outputs: []ancestry.TxOutput{{Value: 2000}},
	})

	labelStore := labels.NewStore()
	opts := Options{
		DefaultLimits: ancestry.GraphLimits{MaxDepth: 10, MaxNodes: 10, MaxEdges: 10},
		Concurrency:   4,
	}
	return NewRouter(rpc, cache.New(10, 10), labelStore, nil, opts)
}

func TestHandleAncestryReturnsGraph(t *testing.T) {
	r := newIntegrationRouter(t)

	root := hashOf(1)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ancestry/"+root.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var g struct {
		Root  string                     `json:"root"`
		Nodes map[string]json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(g.Nodes))
	}
	if g.Root != root.String() {
		t.Fatalf("Root = %q, want %q", g.Root, root.String())
	}
}

func TestHandleAncestryRejectsInvalidTxid(t *testing.T) {
	r := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ancestry/not-a-txid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleHealthReportsNoStore(t *testing.T) {
	r := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if storeConnected, _ := body["storeConnected"].(bool); storeConnected {
		t.Fatal("expected storeConnected = false with no DATABASE_URL configured")
	}
}

func TestHandleSetLabelRejectsUnknownFile(t *testing.T) {
	r := newIntegrationRouter(t)

	body, _ := json.Marshal(map[string]string{
		"fileId": "does-not-exist",
		"type":   "tx",
		"label":  "coffee purchase",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/labels/abc123", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown fileId", w.Code)
	}
}

func TestHandleGetLabelsEmptyWhenNoneSet(t *testing.T) {
	r := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/labels/abc123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Labels []interface{} `json:"labels"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Labels) != 0 {
		t.Fatalf("len(Labels) = %d, want 0", len(body.Labels))
	}
}

func TestHandleRecentBuildsEmptyWithoutStore(t *testing.T) {
	r := newIntegrationRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Builds []interface{} `json:"builds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Builds) != 0 {
		t.Fatalf("len(Builds) = %d, want 0", len(body.Builds))
	}
}
