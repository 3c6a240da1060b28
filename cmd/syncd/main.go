package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parksync/internal/checkpoint"
	"parksync/internal/client/ake"
	"parksync/internal/client/well"
	"parksync/internal/config"
	cronrunner "parksync/internal/cron"
	"parksync/internal/db"
	"parksync/internal/handler"
	"parksync/internal/logger"
	gormrepository "parksync/internal/repository/gorm"
	"parksync/internal/service"
)

func main() {
	cfgPath := os.Getenv("PS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	wellHTTP := &http.Client{Timeout: cfg.Well.Timeout}
	wellClient := well.NewClient(wellHTTP, cfg.Well.BaseURL, cfg.Well.AppKey, cfg.Well.Sign, cfg.Well.Version)
	akeHTTP := &http.Client{Timeout: cfg.Ake.Timeout}
	akeClient := ake.NewClient(akeHTTP, cfg.Ake.BaseURL, cfg.Ake.AppKey, cfg.Ake.DefaultOperator)

	store := gormrepository.New(dbConn.Gorm)

	resolver := service.NewRuleResolver(wellClient, cfg.TimeRules.PermanentRuleName, logger)
	if err := resolver.RefreshCache(context.Background()); err != nil {
		logger.Warn("initial rule cache load failed, will retry on first sync", zap.Error(err))
	}

	grouper := service.NewGrouper(logger)
	pusher := service.NewPusher(wellClient, akeClient, resolver, parseDoorIDs(cfg.Sync.DefaultDoorIDs, logger), logger)
	tracker := service.NewTracker(cfg.Sync.HistoryFile, cfg.Sync.MaxHistory, logger)
	lastSync := checkpoint.NewTimeFile(cfg.Sync.LastSyncFile)
	orchestrator := service.NewOrchestrator(store, grouper, pusher, wellClient, tracker, lastSync, logger)

	gateCheckpoint := checkpoint.NewMillisFile(cfg.GatePoll.CheckpointFile, cfg.GatePoll.Lookback, logger)
	poller := service.NewGateRecordPoller(wellClient, store, gateCheckpoint, cfg.GatePoll.PageSize, logger)

	akeRecords := service.NewAkeRecordService(store, cfg.AkeInbound.ImageBaseURL, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	syncHandler := &handler.SyncHandler{Orchestrator: orchestrator, Tracker: tracker}
	syncHandler.Register(engine)
	akeHandler := &handler.AkeRecordHandler{Service: akeRecords, Logger: logger}
	akeHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Sync.Enabled {
		_, err = cronRunner.Add(cfg.Sync.Cron, func(ctx context.Context) {
			result := orchestrator.RunFullSync(ctx)
			if result.Skipped {
				return
			}
			if !result.Success {
				logger.Warn("cron full sync failed", zap.String("message", result.Message))
				return
			}
			logger.Info("cron full sync ok",
				zap.Int("persons", result.Persons.Total),
				zap.Int("vehicles", result.Vehicles.Total),
				zap.Int("blacklists", result.Blacklists.Total),
				zap.Int("failed", len(result.Failed)))
			if cfg.Sync.HistoryRetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -cfg.Sync.HistoryRetentionDays)
				if removed := tracker.CleanupBefore(cutoff); removed > 0 {
					logger.Info("trimmed old sync history", zap.Int("removed", removed))
				}
			}
		})
		if err != nil {
			logger.Fatal("failed to schedule full sync", zap.Error(err))
		}
	}
	if cfg.GatePoll.Enabled {
		_, err = cronRunner.Add(cfg.GatePoll.Cron, func(ctx context.Context) {
			written, err := poller.Poll(ctx)
			if err != nil {
				logger.Warn("cron gate record poll failed", zap.Error(err))
				return
			}
			if written > 0 {
				logger.Info("cron gate record poll ok", zap.Int("written", written))
			}
		})
		if err != nil {
			logger.Fatal("failed to schedule gate record poll", zap.Error(err))
		}
	}
	cronRunner.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	cronRunner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func parseDoorIDs(raw string, logger *zap.Logger) []int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			logger.Warn("ignoring malformed default door id", zap.String("value", part))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
