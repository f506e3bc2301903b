package main

import (
	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/internal/repository"
	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/database"
	"github.com/gafferbot/gaffer/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.InitLogger("", cfg.IsDevelopment())

	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := repository.NewGormRepository(db.DB).Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Info("Database migration completed")
}
