package main

import (
	"context"
	"log"
	"os"

	"sevensons/internal/api"
	"sevensons/internal/config"
	"sevensons/internal/conversation"
	"sevensons/internal/orchestrator"
	"sevensons/internal/redis"
	"sevensons/internal/registry"
	"sevensons/internal/storage"
	"sevensons/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("SEVENSONS_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("SEVENSONS_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// The cache is optional: replies must keep flowing when redis is down.
	rdb, err := redis.NewClient(cfg)
	if err != nil {
		log.Printf("redis unavailable, continuing without cache: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	roleRegistry := registry.New(db, cfg)
	if err := roleRegistry.Seed(context.Background()); err != nil {
		log.Fatalf("seed roles: %v", err)
	}

	store := conversation.NewStore(db, rdb)
	orch := orchestrator.New(roleRegistry, store, cfg.Orchestrator)
	rounds := worker.NewManager(orch, 0)
	handlers := api.NewHandler(roleRegistry, store, rounds)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
