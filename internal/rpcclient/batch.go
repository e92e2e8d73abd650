package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// rpcCall is one call destined for a batch request.
type rpcCall struct {
	Method string
	Params interface{}
}

// batch performs a single JSON-RPC batch request for calls, returning one
// raw result per call in the same order calls were given. The whole batch
// fails if any single item comes back with a JSON-RPC error or if the
// server's reply omits an id this batch reserved — a partially-decoded
// batch is not a trustworthy basis for an ancestry traversal.
func (c *Client) batch(ctx context.Context, calls []rpcCall) ([]json.RawMessage, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	startID := c.reserveRequestIDs(uint64(len(calls)))

	requests := make([]jsonrpcRequest, len(calls))
	for i, call := range calls {
		paramsJSON, err := json.Marshal(call.Params)
		if err != nil {
			return nil, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("encoding params for %s: %v", call.Method, err)}
		}
		requests[i] = jsonrpcRequest{
			JSONRPC: "2.0",
			ID:      startID + uint64(i),
			Method:  call.Method,
			Params:  paramsJSON,
		}
	}

	body, err := json.Marshal(requests)
	if err != nil {
		return nil, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("encoding batch request: %v", err)}
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var responses []batchResponse
	if err := json.Unmarshal(respBody, &responses); err != nil {
		return nil, &coreerr.InvalidResponseError{Msg: fmt.Sprintf("decoding batch response: %v", err)}
	}

	byID := make(map[uint64]batchResponse, len(responses))
	for _, resp := range responses {
		id, err := parseBatchID(resp.ID)
		if err != nil {
			return nil, err
		}
		byID[id] = resp
	}

	results := make([]json.RawMessage, len(calls))
	for i := range calls {
		id := startID + uint64(i)
		resp, ok := byID[id]
		if !ok {
			return nil, &coreerr.InvalidResponseError{Msg: fmt.Sprintf("missing batch item for id %d", id)}
		}
		if !isNullOrEmpty(resp.Error) {
			return nil, parseJSONRPCError(resp.Error)
		}
		results[i] = resp.Result
	}
	return results, nil
}

// batchChunked splits calls into chunkSize-sized groups and dispatches the
// groups concurrently, preserving overall call order in the result. A
// failure in any chunk fails the whole operation.
func (c *Client) batchChunked(ctx context.Context, calls []rpcCall) ([]json.RawMessage, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	var chunks [][]rpcCall
	for start := 0; start < len(calls); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(calls) {
			end = len(calls)
		}
		chunks = append(chunks, calls[start:end])
	}

	results := make([][]json.RawMessage, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			r, err := c.batch(ctx, chunk)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flat := make([]json.RawMessage, 0, len(calls))
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat, nil
}
