// Package graph implements the bounded breadth-first ancestor traversal
// that is the core of the whole module: starting from a root transaction,
// follow each non-coinbase input back to the transaction that funds it,
// stopping once any of three independent caps (depth, nodes, edges) is
// hit.
package graph

import (
	"context"
	"log"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cory-btc/ancestry/internal/cache"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// RPC is the capability GraphBuilder needs from a Bitcoin node client. The
// production implementation is *rpcclient.Client; tests supply a fake.
type RPC interface {
	GetTransaction(ctx context.Context, txid chainhash.Hash) (*ancestry.TxNode, error)
	GetTransactions(ctx context.Context, txids []chainhash.Hash) ([]*ancestry.TxNode, error)
	GetTxOuts(ctx context.Context, ops []ancestry.OutPoint) ([]*ancestry.TxOutput, error)
}

// defaultConcurrency bounds simultaneous in-flight RPC calls when no
// explicit concurrency is requested.
const defaultConcurrency = 16

// ProgressFunc is called once per completed BFS level, after that
// level's nodes and edges have been merged into the graph so far.
type ProgressFunc func(depth uint32, nodeCount, edgeCount int)

// Build walks the ancestry of root up to limits, using cache to avoid
// refetching transactions seen in an earlier call and rpc to resolve
// everything not cached. concurrency bounds how many transactions within
// a single BFS level are fetched at once (on the per-txid fallback path
// only — the batch path has no such fan-out); a non-positive value falls
// back to defaultConcurrency. onProgress, if non-nil, is invoked
// synchronously after every completed level so a caller (e.g. a WebSocket
// hub) can stream build progress for long walks.
//
// Node discovery order is deterministic: ancestors are visited in the
// order their funding edges are discovered while walking the current
// level's nodes, not in the order their concurrent RPC fetches complete.
//
// Build fails only if the root transaction itself cannot be fetched or
// ctx is canceled during the walk. A missing or unreachable ancestor
// never fails the walk: it is omitted from
// the returned graph, its incoming edge is kept so the boundary of the
// walk is still visible, and graph.Truncated is set.
func Build(ctx context.Context, rpc RPC, c *cache.Cache, root chainhash.Hash, limits ancestry.GraphLimits, concurrency int64, onProgress ProgressFunc) (*ancestry.AncestryGraph, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	graph := &ancestry.AncestryGraph{
		Root:  root,
		Nodes: make(map[chainhash.Hash]*ancestry.TxNode),
	}

	rootNode, err := fetchNode(ctx, rpc, c, root)
	if err != nil {
		return nil, err
	}
	graph.Nodes[root] = rootNode
	resolvePrevouts(ctx, rpc, c, map[chainhash.Hash]*ancestry.TxNode{root: rootNode})

	visited := map[chainhash.Hash]bool{root: true}
	frontier := []chainhash.Hash{root}
	var depth uint32

	if onProgress != nil {
		onProgress(depth, len(graph.Nodes), len(graph.Edges))
	}

	for len(frontier) > 0 && depth < limits.MaxDepth {
		nextFrontier := collectNextFrontier(graph, visited, frontier, limits)
		if len(nextFrontier) == 0 {
			break
		}

		nodes, levelTruncated, err := fetchLevel(ctx, rpc, c, nextFrontier, concurrency)
		if err != nil {
			return nil, err
		}
		if levelTruncated {
			graph.Truncated = true
		}
		resolvePrevouts(ctx, rpc, c, nodes)

		resolved := nextFrontier[:0:0]
		for _, txid := range nextFrontier {
			if node, ok := nodes[txid]; ok {
				graph.Nodes[txid] = node
				resolved = append(resolved, txid)
			}
		}

		frontier = resolved
		depth++

		if onProgress != nil {
			onProgress(depth, len(graph.Nodes), len(graph.Edges))
		}
	}

	if depth == limits.MaxDepth {
		for _, txid := range frontier {
			for _, in := range graph.Nodes[txid].Inputs {
				if !in.IsCoinbase() && !visited[in.Prevout.Txid] {
					graph.Truncated = true
					break
				}
			}
		}
	}

	graph.Stats = ancestry.GraphStats{
		NodeCount:    len(graph.Nodes),
		EdgeCount:    len(graph.Edges),
		DepthReached: depth,
	}
	return graph, nil
}

// collectNextFrontier walks the current frontier's nodes in order, records
// an AncestryEdge for every non-coinbase input (subject to the edge cap),
// and returns the distinct not-yet-visited funding txids to resolve next
// (subject to the node cap). Both caps set graph.Truncated when they
// suppress something rather than silently dropping it.
func collectNextFrontier(graph *ancestry.AncestryGraph, visited map[chainhash.Hash]bool, frontier []chainhash.Hash, limits ancestry.GraphLimits) []chainhash.Hash {
	var next []chainhash.Hash
	for _, txid := range frontier {
		node := graph.Nodes[txid]
		for i, in := range node.Inputs {
			if in.IsCoinbase() {
				continue
			}

			if uint32(len(graph.Edges)) >= limits.MaxEdges {
				graph.Truncated = true
				continue
			}
			graph.Edges = append(graph.Edges, ancestry.AncestryEdge{
				SpendingTxid: txid,
				InputIndex:   i,
				FundingTxid:  in.Prevout.Txid,
				FundingVout:  in.Prevout.Vout,
			})

			fundingTxid := in.Prevout.Txid
			if visited[fundingTxid] {
				continue
			}
			if uint32(len(graph.Nodes))+uint32(len(next)) >= limits.MaxNodes {
				graph.Truncated = true
				continue
			}
			visited[fundingTxid] = true
			next = append(next, fundingTxid)
		}
	}
	return next
}

// fetchLevel resolves txids, preferring cache hits, then a single batched
// rpc.GetTransactions call for the rest. If the batch call fails outright
// (one poisoned txid can fail the whole JSON-RPC batch, and GetTransactions'
// own sequential fallback is itself all-or-nothing), it falls back to
// fetching the remaining txids individually and concurrently, bounded by
// concurrency. In that fallback, a per-txid failure is swallowed — the
// txid is simply absent from the returned map and the second return value
// is true — rather than failing the whole level; only a context
// cancellation propagates as an error.
func fetchLevel(ctx context.Context, rpc RPC, c *cache.Cache, txids []chainhash.Hash, concurrency int64) (map[chainhash.Hash]*ancestry.TxNode, bool, error) {
	nodes := make(map[chainhash.Hash]*ancestry.TxNode, len(txids))

	var uncached []chainhash.Hash
	for _, txid := range txids {
		if c != nil {
			if node, ok := c.GetTx(txid); ok {
				nodes[txid] = node
				continue
			}
		}
		uncached = append(uncached, txid)
	}
	if len(uncached) == 0 {
		return nodes, false, nil
	}

	fetched, err := rpc.GetTransactions(ctx, uncached)
	if err == nil {
		for i, txid := range uncached {
			if c != nil {
				c.PutTx(fetched[i])
			}
			nodes[txid] = fetched[i]
		}
		return nodes, false, nil
	}

	log.Printf("[graph] batch fetch failed for %d ancestors (%v); falling back to per-txid fetch", len(uncached), err)

	var truncated bool
	var mu sync.Mutex
	sem := semaphore.NewWeighted(concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, txid := range uncached {
		txid := txid
		if aerr := sem.Acquire(gctx, 1); aerr != nil {
			return nil, false, aerr
		}
		g.Go(func() error {
			defer sem.Release(1)
			node, ferr := rpc.GetTransaction(gctx, txid)
			if ferr != nil {
				if gctx.Err() != nil {
					return ferr
				}
				log.Printf("[graph] ancestor %s unreachable, omitting from graph: %v", txid, ferr)
				mu.Lock()
				truncated = true
				mu.Unlock()
				return nil
			}
			if c != nil {
				c.PutTx(node)
			}
			mu.Lock()
			nodes[txid] = node
			mu.Unlock()
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return nil, false, werr
	}
	return nodes, truncated, nil
}

func fetchNode(ctx context.Context, rpc RPC, c *cache.Cache, txid chainhash.Hash) (*ancestry.TxNode, error) {
	if c != nil {
		if node, ok := c.GetTx(txid); ok {
			return node, nil
		}
	}
	node, err := rpc.GetTransaction(ctx, txid)
	if err != nil {
		return nil, err
	}
	if c != nil {
		c.PutTx(node)
	}
	return node, nil
}

// prevoutRef locates one input's unresolved funding output within nodes.
type prevoutRef struct {
	txid chainhash.Hash
	idx  int
	op   ancestry.OutPoint
}

// resolvePrevouts fills in Value and ScriptType for every non-coinbase
// input across nodes whose funding output isn't already known (most
// commonly because the node's own RPC response didn't inline a "prevout"
// hint). Cache is checked first; whatever remains is resolved with a
// single batched rpc.GetTxOuts call. This is best-effort enrichment, not a
// traversal correctness requirement: a failed or partial resolution just
// leaves the affected inputs' Value/ScriptType nil, exactly as if they had
// never been looked up.
func resolvePrevouts(ctx context.Context, rpc RPC, c *cache.Cache, nodes map[chainhash.Hash]*ancestry.TxNode) {
	var missing []prevoutRef
	for txid, node := range nodes {
		for i, in := range node.Inputs {
			if in.IsCoinbase() || in.Value != nil {
				continue
			}
			op := *in.Prevout
			if c != nil {
				if out, ok := c.GetPrevout(op); ok {
					applyPrevout(node, i, out)
					continue
				}
			}
			missing = append(missing, prevoutRef{txid: txid, idx: i, op: op})
		}
	}
	if len(missing) == 0 {
		return
	}

	ops := make([]ancestry.OutPoint, len(missing))
	for i, ref := range missing {
		ops[i] = ref.op
	}

	outs, err := rpc.GetTxOuts(ctx, ops)
	if err != nil {
		log.Printf("[graph] prevout resolution failed for %d outpoints: %v", len(ops), err)
		return
	}
	for i, ref := range missing {
		out := outs[i]
		if out == nil {
			continue
		}
		if c != nil {
			c.PutPrevout(ref.op, out)
		}
		applyPrevout(nodes[ref.txid], ref.idx, out)
	}
}

// applyPrevout copies out's value and script type onto node.Inputs[idx].
func applyPrevout(node *ancestry.TxNode, idx int, out *ancestry.TxOutput) {
	value := out.Value
	scriptType := out.ScriptType
	node.Inputs[idx].Value = &value
	node.Inputs[idx].ScriptType = &scriptType
}
