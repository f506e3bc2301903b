package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/internal/api"
	"github.com/gafferbot/gaffer/internal/api/websocket"
	"github.com/gafferbot/gaffer/internal/intel"
	"github.com/gafferbot/gaffer/internal/predictor"
	"github.com/gafferbot/gaffer/internal/repository"
	"github.com/gafferbot/gaffer/internal/services"
	"github.com/gafferbot/gaffer/internal/workflow"
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

	repo := repository.NewGormRepository(db.DB)
	if err := repo.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	cache, err := services.NewCacheServiceFromURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to configure redis: %v", err)
	}
	if err := cache.Ping(context.Background()); err != nil {
		log.WithError(err).Warn("Redis unreachable, running without cache")
		cache = services.NewCacheService(nil)
	}

	model := predictor.NewModel("gbm-1")
	if err := model.Load(cfg.ModelDir); err != nil {
		log.Fatalf("Failed to load model artifacts: %v", err)
	}

	league := services.NewFPLClient(cfg)

	var sources []intel.IntelligenceSource
	if cfg.IntelSignalsFile != "" {
		sources = append(sources, intel.NewFileSource("curated-feed", cfg.IntelSignalsFile))
	}

	wf := workflow.New(cfg, repo, league, sources, model, nil)

	hub := websocket.NewHub()
	if cfg.EnableWebsocket {
		go hub.Run()
	}

	if cfg.EnableScheduler {
		scheduler := services.NewScheduler(services.SchedulerJobs{
			DailyRefresh: wf.RefreshData,
			IntelSweep: func(ctx context.Context) error {
				_, err := wf.IntelSweep(ctx)
				return err
			},
			DecisionRun: func(ctx context.Context) error {
				decision, err := wf.Run(ctx)
				if err != nil {
					return err
				}
				hub.Announce("decision", decision)
				return nil
			},
			PostGameweekLearn: func(ctx context.Context) error {
				current, err := repo.CurrentGameweek(ctx)
				if err != nil {
					return err
				}
				if !current.Finished {
					return nil
				}
				return wf.Learn(ctx, current.ID)
			},
			PurgeSignals: wf.PurgeSignals,
		}, cfg.WorkflowDeadline)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := api.NewRouter(cfg, repo, league, cache, hub, model.Version())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Info("Server stopped")
}
