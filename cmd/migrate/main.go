package main

import (
	"flag"
	"log"

	"github.com/silai-boutique/api/internal/config"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/logger"
	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", "migrations", "Directory holding the SQL migration files")
	down := flag.Bool("down", false, "Roll back every migration instead of applying")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, "console", "migrate")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := database.Migrate(cfg.DatabaseURL, *dir, *down); err != nil {
		zlog.Fatal("migrate", zap.String("dir", *dir), zap.Bool("down", *down), zap.Error(err))
	}
	zlog.Info("migrations applied", zap.String("dir", *dir), zap.Bool("down", *down))
}
