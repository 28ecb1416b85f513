package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/lbj0223/AI/internal/api"
	"github.com/lbj0223/AI/internal/config"
	"github.com/lbj0223/AI/internal/service/ai"
	"github.com/lbj0223/AI/internal/service/companion"
	"github.com/lbj0223/AI/internal/service/exercise"
	"github.com/lbj0223/AI/internal/service/ocr"
	"github.com/lbj0223/AI/internal/session"
	"github.com/lbj0223/AI/internal/storage"
)

func main() {
	// .env is optional; real deployments export the variables directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("AI_PARTNER_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("AI_PARTNER_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	provider := os.Getenv("AI_PARTNER_PROVIDER")
	if provider == "" {
		provider = "deepseek"
	}
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		log.Fatalf("provider %s not configured", provider)
	}
	aiService, err := ai.NewService(context.Background(), provider, provCfg)
	if err != nil {
		log.Fatalf("init ai service: %v", err)
	}

	store := session.NewStore(cfg.BasicConfig.SessionsDir)
	companionService := companion.NewService(store)
	exerciseStore := exercise.NewStore(db, dbType)
	analyzer := exercise.NewAnalyzer(aiService)
	recognizer := ocr.NewClient(cfg.OCR.BaseURL, time.Duration(cfg.OCR.TimeoutSeconds)*time.Second)

	handlers := api.NewHandler(companionService, aiService, recognizer, analyzer, exerciseStore, ai.PartnerPrompt)

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
