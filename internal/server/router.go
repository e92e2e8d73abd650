package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cory-btc/ancestry/internal/cache"
	"github.com/cory-btc/ancestry/internal/graph"
	"github.com/cory-btc/ancestry/internal/labels"
	"github.com/cory-btc/ancestry/internal/store"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

// Options configures NewRouter.
type Options struct {
	AuthToken      string
	AllowedOrigins string
	DefaultLimits  ancestry.GraphLimits
	Concurrency    int64
}

// NewRouter builds the gin.Engine exposing the ancestry, stream, and
// labels endpoints over rpc/cache/labelStore/historyStore. historyStore
// may be nil.
func NewRouter(rpc graph.RPC, c *cache.Cache, labelStore *labels.Store, historyStore *store.Store, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(opts.AllowedOrigins))

	hub := NewHub()
	go hub.Run()

	handler := NewHandler(rpc, c, hub, labelStore, historyStore, opts.DefaultLimits, opts.Concurrency)

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", hub.Subscribe)
	}

	protected := r.Group("/api/v1")
	protected.Use(AuthMiddleware(opts.AuthToken))
	protected.Use(NewRateLimiter(30, 5).Middleware())
	{
		protected.GET("/ancestry/:txid", handler.handleAncestry)
		protected.GET("/history", handler.handleRecentBuilds)
		protected.GET("/labels/:ref", handler.handleGetLabels)
		protected.POST("/labels/:ref", handler.handleSetLabel)
		protected.DELETE("/labels/:ref", handler.handleDeleteLabel)
	}

	return r
}

// corsMiddleware mirrors the teacher's ALLOWED_ORIGINS handling: empty or
// "*" allows any origin, otherwise only an exact match in the
// comma-separated allowlist is reflected back.
func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
