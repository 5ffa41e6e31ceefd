package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/meur/tierdeck/internal/api"
	"github.com/meur/tierdeck/internal/auth"
	"github.com/meur/tierdeck/internal/blob"
	"github.com/meur/tierdeck/internal/events"
	"github.com/meur/tierdeck/internal/ratelimit"
	"github.com/meur/tierdeck/internal/storage"
)

func main() {
	// Parse flags
	port := flag.String("port", getEnv("PORT", "8080"), "Server port")
	dbPath := flag.String("db", getEnv("DB_PATH", "./tierdeck.db"), "SQLite database path")
	dataDir := flag.String("data", getEnv("DATA_DIR", "./data"), "Image blob directory")
	flag.Parse()

	// Required configuration: missing values are a startup error, never a
	// runtime fallback.
	jwtSecret := mustEnv("AUTH_JWT_SECRET")
	redisURL := mustEnv("REDIS_URL")
	siteURL := mustEnv("SITE_URL")

	// Initialize storage
	store, err := storage.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	blobs := blob.NewOS(*dataDir)

	// Rate-limit backing store
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	// Create router
	srv := api.New(api.Config{
		Store:   store,
		Blobs:   blobs,
		Auth:    auth.NewJWTProvider([]byte(jwtSecret)),
		Global:  ratelimit.NewGlobal(rdb),
		Limits:  ratelimit.NewSet(rdb),
		Bus:     events.NewBus(),
		SiteURL: siteURL,
	})

	log.Printf("🚀 TierDeck API starting on http://localhost:%s", *port)
	log.Printf("📦 Database: %s", *dbPath)

	if err := http.ListenAndServe(":"+*port, srv); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Missing required environment variable %s", key)
	}
	return value
}
