package rpcclient

import (
	"context"
	"log"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cory-btc/ancestry/internal/wire"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// GetTransaction fetches and decodes a single transaction via
// getrawtransaction(verbose=true). A not-found result from the node is
// normalized to *coreerr.TxNotFoundError.
func (c *Client) GetTransaction(ctx context.Context, txid chainhash.Hash) (*ancestry.TxNode, error) {
	var raw map[string]interface{}
	err := c.call(ctx, "getrawtransaction", []interface{}{txid.String(), true}, &raw)
	if err != nil {
		return nil, normalizeGetRawTransactionError(err, txid)
	}
	return c.wireParseTxNode(ctx, raw)
}

// GetTransactions fetches a batch of transactions. It tries a chunked
// batch request first; if that fails for any reason — one bad txid
// poisons the whole JSON-RPC batch — it falls back to fetching every
// transaction sequentially via GetTransaction. The fallback is still
// all-or-nothing: the first txid that fails there fails the whole call.
func (c *Client) GetTransactions(ctx context.Context, txids []chainhash.Hash) ([]*ancestry.TxNode, error) {
	if len(txids) == 0 {
		return nil, nil
	}

	calls := make([]rpcCall, len(txids))
	for i, txid := range txids {
		calls[i] = rpcCall{Method: "getrawtransaction", Params: []interface{}{txid.String(), true}}
	}

	rawResults, err := c.batchChunked(ctx, calls)
	if err == nil {
		nodes := make([]*ancestry.TxNode, len(txids))
		decodeErr := error(nil)
		for i, raw := range rawResults {
			var decoded map[string]interface{}
			if decodeErr = decodeNumberJSON(raw, &decoded); decodeErr != nil {
				break
			}
			node, perr := c.wireParseTxNode(ctx, decoded)
			if perr != nil {
				decodeErr = perr
				break
			}
			nodes[i] = node
		}
		if decodeErr == nil {
			return nodes, nil
		}
		err = decodeErr
	}

	log.Printf("[rpcclient] batch getrawtransaction failed (%v); falling back to sequential fetch for %d txids", err, len(txids))

	nodes := make([]*ancestry.TxNode, len(txids))
	for i, txid := range txids {
		node, ferr := c.GetTransaction(ctx, txid)
		if ferr != nil {
			return nil, normalizeGetRawTransactionError(ferr, txid)
		}
		nodes[i] = node
	}
	return nodes, nil
}

// GetTxOut fetches a single output via gettxout. It returns a nil
// *ancestry.TxOutput (no error) if the output is spent or unknown to the
// node — exactly what Bitcoin Core's JSON null response means.
func (c *Client) GetTxOut(ctx context.Context, op ancestry.OutPoint) (*ancestry.TxOutput, error) {
	var raw interface{}
	if err := c.call(ctx, "gettxout", []interface{}{op.Txid.String(), op.Vout, true}, &raw); err != nil {
		return nil, err
	}
	return wire.ParseGetTxOutResult(raw)
}

// GetTxOuts fetches a batch of outputs via a chunked batch request. Unlike
// GetTransactions, there is no sequential fallback: gettxout has no
// not-found error mode (it returns JSON null instead), so a failing batch
// item means a genuine transport or protocol problem, not a bad argument
// worth retrying one-by-one.
func (c *Client) GetTxOuts(ctx context.Context, ops []ancestry.OutPoint) ([]*ancestry.TxOutput, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	calls := make([]rpcCall, len(ops))
	for i, op := range ops {
		calls[i] = rpcCall{Method: "gettxout", Params: []interface{}{op.Txid.String(), op.Vout, true}}
	}

	rawResults, err := c.batchChunked(ctx, calls)
	if err != nil {
		return nil, err
	}

	outputs := make([]*ancestry.TxOutput, len(ops))
	for i, raw := range rawResults {
		var decoded interface{}
		if err := decodeNumberJSON(raw, &decoded); err != nil {
			return nil, err
		}
		out, perr := wire.ParseGetTxOutResult(decoded)
		if perr != nil {
			return nil, perr
		}
		outputs[i] = out
	}
	return outputs, nil
}
