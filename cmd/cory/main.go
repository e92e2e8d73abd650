package main

import (
	"log"

	"github.com/cory-btc/ancestry/internal/cache"
	"github.com/cory-btc/ancestry/internal/config"
	"github.com/cory-btc/ancestry/internal/labels"
	"github.com/cory-btc/ancestry/internal/rpcclient"
	"github.com/cory-btc/ancestry/internal/server"
	"github.com/cory-btc/ancestry/internal/store"
	"github.com/cory-btc/ancestry/pkg/ancestry"
)

func main() {
	log.Println("Starting Cory ancestry service...")

	cfg := config.Load()

	rpcClient, err := rpcclient.NewClient(cfg.RPC)
	if err != nil {
		log.Fatalf("FATAL: failed to configure Bitcoin RPC client: %v", err)
	}

	c := cache.New(cfg.TxCacheCapacity, cfg.PrevoutCacheCapacity)

	labelStore := labels.NewStore()
	if cfg.LabelsRWDir != "" {
		if err := labelStore.LoadRWDir(cfg.LabelsRWDir); err != nil {
			log.Printf("Warning: failed to load --labels-rw directory %s: %v", cfg.LabelsRWDir, err)
		}
	}
	if cfg.LabelsRODir != "" {
		if err := labelStore.LoadRODir(cfg.LabelsRODir); err != nil {
			log.Printf("Warning: failed to load --labels-ro directory %s: %v", cfg.LabelsRODir, err)
		}
	}
	if cfg.LabelsPackDir != "" {
		if err := labelStore.LoadPackDir(cfg.LabelsPackDir); err != nil {
			log.Printf("Warning: failed to load label pack directory %s: %v", cfg.LabelsPackDir, err)
		}
	}

	var historyStore *store.Store
	if cfg.DatabaseURL != "" {
		historyStore, err = store.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without build-history persistence: %v", err)
		} else {
			defer historyStore.Close()
		}
	}

	opts := server.Options{
		AuthToken:      cfg.AuthToken,
		AllowedOrigins: cfg.AllowedOrigins,
		DefaultLimits: ancestry.GraphLimits{
			MaxDepth: cfg.MaxDepth,
			MaxNodes: cfg.MaxNodes,
			MaxEdges: cfg.MaxEdges,
		},
		Concurrency: cfg.BuildConcurrency,
	}

	r := server.NewRouter(rpcClient, c, labelStore, historyStore, opts)

	log.Printf("Cory ancestry service listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: server exited: %v", err)
	}
}
