// Package rpcclient talks to a Bitcoin Core node over its JSON-RPC
// interface: single calls, batches, and chunked-concurrent batches, with
// auth resolution, a blocking rate limiter, and a small block-height memo
// table used to backfill confirmed transactions' heights.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cory-btc/ancestry/internal/cache"
	"github.com/cory-btc/ancestry/internal/coreerr"
	"github.com/cory-btc/ancestry/internal/wire"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

const blockHeightCacheCap = 10_000

// Client is a Bitcoin Core JSON-RPC client bound to a single node.
type Client struct {
	http      *http.Client
	url       string
	authUser  string
	authPass  string
	hasAuth   bool
	limiter   *rateLimiter
	chunkSize int
	nextID    atomic.Uint64

	heightMu    sync.Mutex
	heightCache *cache.LRU[chainhash.Hash, ancestry.BlockHeight]
}

// NewClient builds a Client from cfg. It validates the connection scheme,
// resolves authentication (explicit credentials, then a cookie file, then
// none), and seeds the request id counter from the wall clock so ids are
// unlikely to collide with a previous process's in-flight requests.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BatchChunkSize <= 0 {
		return nil, &coreerr.InvalidTxDataError{Field: "BatchChunkSize", Msg: "must be positive"}
	}

	connection, err := parseConnection(cfg.Connection)
	if err != nil {
		return nil, err
	}

	user, pass, hasAuth, err := resolveAuth(cfg)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 32,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}

	c := &Client{
		http:        httpClient,
		url:         connection,
		authUser:    user,
		authPass:    pass,
		hasAuth:     hasAuth,
		limiter:     newRateLimiter(cfg.RateLimitPerSec),
		chunkSize:   cfg.BatchChunkSize,
		heightCache: cache.NewLRU[chainhash.Hash, ancestry.BlockHeight](blockHeightCacheCap),
	}
	c.nextID.Store(initialRequestID())
	return c, nil
}

// initialRequestID seeds the request id counter from the current Unix
// time in nanoseconds, so ids trend upward across process restarts
// instead of always starting from 1.
func initialRequestID() uint64 {
	now := time.Now().UnixNano()
	if now <= 0 {
		return 1
	}
	return uint64(now)
}

// reserveRequestIDs atomically reserves count consecutive request ids and
// returns the first one.
func (c *Client) reserveRequestIDs(count uint64) uint64 {
	return c.nextID.Add(count) - count
}

func (c *Client) applyAuth(req *http.Request) {
	if c.hasAuth {
		req.SetBasicAuth(c.authUser, c.authPass)
	}
}

// call performs a single JSON-RPC request and decodes its result into v.
// If v is nil the result is discarded after error-checking.
func (c *Client) call(ctx context.Context, method string, params interface{}, v interface{}) error {
	raw, err := c.rawCall(ctx, method, params)
	if err != nil {
		return err
	}
	if v == nil || isNullOrEmpty(raw) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &coreerr.InvalidResponseError{Msg: fmt.Sprintf("decoding result of %s: %v", method, err)}
	}
	return nil
}

// rawCall performs a single JSON-RPC request and returns its raw "result"
// field, or an error derived from its "error" field.
func (c *Client) rawCall(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("encoding params for %s: %v", method, err)}
	}

	id := c.reserveRequestIDs(1)
	body, err := json.Marshal(jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsJSON,
	})
	if err != nil {
		return nil, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("encoding request for %s: %v", method, err)}
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &coreerr.InvalidResponseError{Msg: fmt.Sprintf("decoding response envelope for %s: %v", method, err)}
	}
	if !isNullOrEmpty(resp.Error) {
		return nil, parseJSONRPCError(resp.Error)
	}
	return resp.Result, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &coreerr.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &coreerr.TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &coreerr.TransportError{Err: err}
	}
	return respBody, nil
}

// GetBlockchainInfo calls getblockchaininfo.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*ancestry.ChainInfo, error) {
	var result struct {
		Chain         string `json:"chain"`
		Blocks        int64  `json:"blocks"`
		BestBlockHash string `json:"bestblockhash"`
		Pruned        bool   `json:"pruned"`
	}
	if err := c.call(ctx, "getblockchaininfo", []interface{}{}, &result); err != nil {
		return nil, err
	}
	hash, err := chainhash.NewHashFromStr(result.BestBlockHash)
	if err != nil {
		return nil, &coreerr.InvalidTxDataError{Field: "bestblockhash", Msg: err.Error()}
	}
	return &ancestry.ChainInfo{
		Chain:         result.Chain,
		Blocks:        uint64(result.Blocks),
		BestBlockHash: *hash,
		Pruned:        result.Pruned,
	}, nil
}

// getBlockHeight resolves the height of a block hash via getblockheader,
// memoizing the result since heights never change once mined.
func (c *Client) getBlockHeight(ctx context.Context, hash chainhash.Hash) (ancestry.BlockHeight, error) {
	c.heightMu.Lock()
	if h, ok := c.heightCache.Get(hash); ok {
		c.heightMu.Unlock()
		return h, nil
	}
	c.heightMu.Unlock()

	var result struct {
		Height int64 `json:"height"`
	}
	if err := c.call(ctx, "getblockheader", []interface{}{hash.String()}, &result); err != nil {
		return 0, err
	}

	height := ancestry.BlockHeight(result.Height)
	c.heightMu.Lock()
	c.heightCache.Put(hash, height)
	c.heightMu.Unlock()
	return height, nil
}

// normalizeGetRawTransactionError maps a server error that almost
// certainly means "no such transaction" into TxNotFoundError, so callers
// can use errors.As uniformly regardless of how the node phrases it.
func normalizeGetRawTransactionError(err error, txid chainhash.Hash) error {
	var serverErr *coreerr.ServerError
	if ok := asServerError(err, &serverErr); ok {
		// Bitcoin Core: -5 = "No such mempool or blockchain transaction".
		if serverErr.Code == -5 {
			return &coreerr.TxNotFoundError{Txid: txid}
		}
	}
	return err
}

func asServerError(err error, target **coreerr.ServerError) bool {
	se, ok := err.(*coreerr.ServerError)
	if !ok {
		return false
	}
	*target = se
	return true
}

// wireParseTxNode decodes a getrawtransaction(verbose) payload and
// backfills BlockHeight when the node reported a block hash and positive
// confirmations but no height directly.
func (c *Client) wireParseTxNode(ctx context.Context, raw map[string]interface{}) (*ancestry.TxNode, error) {
	node, err := wire.ParseTxNode(raw)
	if err != nil {
		return nil, err
	}
	if h, ok := wire.ParseIntegerOptional[uint32](raw["blockheight"], false); ok {
		height := ancestry.BlockHeight(h)
		node.BlockHeight = &height
		return node, nil
	}
	if node.BlockHash != nil && wire.Confirmations(raw) > 0 {
		height, err := c.getBlockHeight(ctx, *node.BlockHash)
		if err == nil {
			node.BlockHeight = &height
		}
	}
	return node, nil
}
