package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ByteArrayGo/internal/cache/lru"
	"ByteArrayGo/internal/cache/snapshot"
	"ByteArrayGo/internal/handler"
	"ByteArrayGo/internal/middleware"
	"ByteArrayGo/internal/repository"
	"ByteArrayGo/internal/service"
	"ByteArrayGo/pkg/common"
	"ByteArrayGo/pkg/config"
	"ByteArrayGo/pkg/etcd"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

var (
	configPath = flag.StringP("config", "c", "conf/server.ini", "Config file path")
	debug      = flag.BoolP("debug", "d", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// 设置日志级别
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(cfg.Log.LogLevel())
	}

	logrus.Info("===========================================")
	logrus.Info("  ByteArray Buffer Service")
	logrus.Info("===========================================")
	logrus.Infof("Port: %s, Driver: %s", cfg.Server.Port, cfg.Database.Driver)

	repo, snapshotMgr, cacheSize, err := openRepository(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	bufferService := service.NewBufferService(repo, cacheSize, cfg.Cache.CacheTTL())
	bufferHandler := handler.NewBufferHandler(bufferService)
	limiters := middleware.NewRateLimiters(cfg.RateLimit)
	breakers := middleware.NewCircuitBreakers(cfg.Breaker)

	router := setupRouter(bufferHandler, limiters, breakers, snapshotMgr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 如果配置了etcd，注册服务
	var etcdClient *etcd.Client
	if endpoints := cfg.Etcd.EndpointList(); len(endpoints) > 0 {
		etcdClient, err = etcd.NewClient(endpoints)
		if err != nil {
			logrus.Errorf("Failed to connect to etcd: %v", err)
		} else if err = etcdClient.Register(ctx, cfg.Server.ServiceName, cfg.Server.ServiceAddr, cfg.Etcd.TTL); err != nil {
			logrus.Errorf("Failed to register service: %v", err)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logrus.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if etcdClient != nil {
		if err := etcdClient.Deregister(shutdownCtx, cfg.Server.ServiceName, cfg.Server.ServiceAddr); err != nil {
			logrus.Warnf("Failed to deregister service: %v", err)
		}
		etcdClient.Close()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// 保存快照
	if snapshotMgr != nil {
		snapshotMgr.Stop()
	}

	logrus.Info("Server stopped")
}

// openRepository 按驱动创建仓库
// 内存仓库自带快照，不再叠加热缓存；sqlite仓库使用配置的热缓存大小
func openRepository(cfg *config.Config) (repository.Repository, *snapshot.Manager, int64, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		repo, err := repository.NewSQLiteRepository(cfg.Database.Path)
		if err != nil {
			return nil, nil, 0, err
		}
		logrus.Infof("SQLite repository initialized (DB: %s)", cfg.Database.Path)
		return repo, nil, cfg.Cache.MaxBytes, nil
	default:
		cache := lru.NewCache(cfg.Cache.MaxBytes, cfg.Cache.CacheTTL(), func(key string, value lru.Value) {
			logrus.Debugf("Buffer evicted: %s", key)
		})
		logrus.Infof("LRU cache initialized with max bytes: %d", cfg.Cache.MaxBytes)

		snapshotMgr := snapshot.NewManager(cache, cfg.Cache.SnapshotPath)
		count, err := snapshotMgr.Load()
		if err != nil {
			logrus.Warnf("Failed to load snapshot: %v (This is normal for first run)", err)
		} else {
			logrus.Infof("Loaded %d entries from snapshot", count)
		}
		snapshotMgr.AutoSnapshot(cfg.Cache.Interval())

		return repository.NewMemoryRepository(cache), snapshotMgr, 0, nil
	}
}

func setupRouter(bufferHandler *handler.BufferHandler, limiters *middleware.RateLimiters, breakers *middleware.CircuitBreakers, snapshotMgr *snapshot.Manager) *gin.Engine {
	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// 健康检查不经过限流和熔断
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// 监控接口
	monitorGroup := r.Group("/monitor")
	{
		monitorGroup.GET("/circuitbreaker", func(c *gin.Context) {
			c.JSON(http.StatusOK, common.NewSuccessResponse(breakers.Stats()))
		})
		monitorGroup.GET("/ratelimit", func(c *gin.Context) {
			c.JSON(http.StatusOK, common.NewSuccessResponse(limiters.Stats()))
		})
		monitorGroup.GET("/snapshot", func(c *gin.Context) {
			if snapshotMgr == nil {
				c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"enabled": false}))
				return
			}
			c.JSON(http.StatusOK, common.NewSuccessResponse(snapshotMgr.Info()))
		})
	}

	apiGroup := r.Group("/bytearray/api/v1")
	apiGroup.Use(limiters.Middleware(), breakers.Middleware())
	bufferHandler.Register(apiGroup)

	return r
}
