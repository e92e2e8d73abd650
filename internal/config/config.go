// Package config loads cmd/cory's runtime configuration from the
// environment. Nothing is required: Bitcoin RPC credentials may be left
// unset (the RPC client then falls back to a cookie file or no auth), and
// everything else has a safe default so the server degrades gracefully
// instead of refusing to start.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/cory-btc/ancestry/internal/rpcclient"
)

// Config is the fully resolved set of knobs cmd/cory needs to start.
type Config struct {
	RPC                  rpcclient.Config
	Port                 string
	AuthToken            string
	AllowedOrigins       string
	DatabaseURL          string
	LabelsRWDir          string
	LabelsRODir          string
	LabelsPackDir        string
	MaxDepth             uint32
	MaxNodes             uint32
	MaxEdges             uint32
	BuildConcurrency     int64
	TxCacheCapacity      int
	PrevoutCacheCapacity int
}

// Load reads Config from the process environment. A missing value takes
// its default; a malformed numeric value is logged and also replaced by
// its default.
func Load() Config {
	cfg := Config{
		RPC: rpcclient.Config{
			Connection:      getEnvOrDefault("BTC_RPC_CONNECTION", "http://localhost:8332"),
			User:            os.Getenv("BTC_RPC_USER"),
			Pass:            os.Getenv("BTC_RPC_PASS"),
			CookieFile:      os.Getenv("BTC_RPC_COOKIE_FILE"),
			RateLimitPerSec: getEnvFloat("BTC_RPC_RATE_LIMIT", 0),
			BatchChunkSize:  int(getEnvInt("BTC_RPC_BATCH_CHUNK_SIZE", 100)),
		},
		Port:                 getEnvOrDefault("PORT", "8420"),
		AuthToken:            os.Getenv("API_AUTH_TOKEN"),
		AllowedOrigins:       os.Getenv("ALLOWED_ORIGINS"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		LabelsRWDir:          os.Getenv("LABELS_RW_DIR"),
		LabelsRODir:          os.Getenv("LABELS_RO_DIR"),
		LabelsPackDir:        os.Getenv("LABELS_PACK_DIR"),
		MaxDepth:             uint32(getEnvInt("GRAPH_MAX_DEPTH", 25)),
		MaxNodes:             uint32(getEnvInt("GRAPH_MAX_NODES", 5000)),
		MaxEdges:             uint32(getEnvInt("GRAPH_MAX_EDGES", 20000)),
		BuildConcurrency:     getEnvInt("GRAPH_BUILD_CONCURRENCY", 16),
		TxCacheCapacity:      int(getEnvInt("TX_CACHE_CAPACITY", 50_000)),
		PrevoutCacheCapacity: int(getEnvInt("PREVOUT_CACHE_CAPACITY", 50_000)),
	}

	if os.Getenv("API_AUTH_TOKEN") == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("[SECURITY WARNING] API_AUTH_TOKEN is not set in release mode. " +
			"All protected endpoints are publicly accessible.")
	}

	return cfg
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Printf("[config] invalid integer for %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s=%q, using default %g", key, val, fallback)
		return fallback
	}
	return f
}
