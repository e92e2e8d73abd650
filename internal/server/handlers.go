package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cory-btc/ancestry/internal/cache"
	"github.com/cory-btc/ancestry/internal/graph"
	"github.com/cory-btc/ancestry/internal/labels"
	"github.com/cory-btc/ancestry/internal/store"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// Handler wires the HTTP surface to the core ancestry engine and its
// optional collaborators (label store, build-history store).
type Handler struct {
	rpc           graph.RPC
	cache         *cache.Cache
	hub           *Hub
	labels        *labels.Store
	store         *store.Store
	defaultLimits ancestry.GraphLimits
	concurrency   int64
}

// NewHandler builds a Handler. historyStore may be nil (no DATABASE_URL
// configured); everything else is required.
func NewHandler(rpc graph.RPC, c *cache.Cache, hub *Hub, labelStore *labels.Store, historyStore *store.Store, defaultLimits ancestry.GraphLimits, concurrency int64) *Handler {
	return &Handler{
		rpc:           rpc,
		cache:         c,
		hub:           hub,
		labels:        labelStore,
		store:         historyStore,
		defaultLimits: defaultLimits,
		concurrency:   concurrency,
	}
}

func requestID(c *gin.Context) string {
	id := uuid.NewString()
	c.Header("X-Request-Id", id)
	return id
}

// handleHealth reports engine status and optional-collaborator presence.
func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "operational",
		"storeConnected": h.store != nil,
	})
}

// handleAncestry runs graph.Build for the requested txid and returns the
// resulting AncestryGraph as JSON. Query params maxDepth/maxNodes/maxEdges
// override the server's default GraphLimits.
func (h *Handler) handleAncestry(c *gin.Context) {
	reqID := requestID(c)

	txidParam := c.Param("txid")
	root, err := chainhash.NewHashFromStr(txidParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid txid", "requestId": reqID})
		return
	}

	limits := h.defaultLimits
	if v, ok := parseUintQuery(c, "maxDepth"); ok {
		limits.MaxDepth = v
	}
	if v, ok := parseUintQuery(c, "maxNodes"); ok {
		limits.MaxNodes = v
	}
	if v, ok := parseUintQuery(c, "maxEdges"); ok {
		limits.MaxEdges = v
	}

	var onProgress graph.ProgressFunc
	if h.hub != nil {
		onProgress = func(depth uint32, nodeCount, edgeCount int) {
			payload, _ := json.Marshal(gin.H{
				"type":      "ancestry_progress",
				"requestId": reqID,
				"txid":      txidParam,
				"depth":     depth,
				"nodeCount": nodeCount,
				"edgeCount": edgeCount,
			})
			h.hub.Broadcast(payload)
		}
	}

	g, err := graph.Build(c.Request.Context(), h.rpc, h.cache, *root, limits, h.concurrency, onProgress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "requestId": reqID})
		return
	}

	if h.store != nil {
		rec := store.BuildRecord{
			RootTxid:  txidParam,
			NodeCount: g.Stats.NodeCount,
			EdgeCount: g.Stats.EdgeCount,
			Truncated: g.Truncated,
			BuiltAt:   time.Now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.store.RecordBuild(ctx, rec); err != nil {
				log.Printf("[server] failed to record build history: %v", err)
			}
		}()
	}

	c.JSON(http.StatusOK, newAncestryResponse(g))
}

// handleRecentBuilds returns the most recent build-history rows, or an
// empty list when no history store is configured.
func (h *Handler) handleRecentBuilds(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"builds": []store.BuildRecord{}})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := h.store.RecentBuilds(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"builds": records})
}

func parseUintQuery(c *gin.Context, key string) (uint32, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// handleGetLabels returns every label attached to ref across all loaded
// label files, in store precedence order.
func (h *Handler) handleGetLabels(c *gin.Context) {
	ref := c.Param("ref")
	labelType := labels.Bip329Type(c.DefaultQuery("type", string(labels.BipTypeTx)))

	matches := h.labels.GetAllLabelsFor(labelType, ref)
	c.JSON(http.StatusOK, gin.H{"ref": ref, "labels": matches})
}

// handleSetLabel creates or overwrites a label on a specific file.
func (h *Handler) handleSetLabel(c *gin.Context) {
	ref := c.Param("ref")

	var req struct {
		FileID string            `json:"fileId" binding:"required"`
		Type   labels.Bip329Type `json:"type" binding:"required"`
		Label  string            `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.labels.SetLabel(req.FileID, req.Type, ref, req.Label); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleDeleteLabel removes a label from a specific file.
func (h *Handler) handleDeleteLabel(c *gin.Context) {
	ref := c.Param("ref")

	var req struct {
		FileID string            `json:"fileId" binding:"required"`
		Type   labels.Bip329Type `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.labels.DeleteLabel(req.FileID, req.Type, ref); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
