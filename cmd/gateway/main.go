package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ByteArrayGo/internal/gateway"
	"ByteArrayGo/pkg/config"
	"ByteArrayGo/pkg/etcd"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

var (
	configPath = flag.StringP("config", "c", "conf/gateway.ini", "Config file path")
	debug      = flag.BoolP("debug", "d", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(cfg.Log.LogLevel())
		gin.SetMode(gin.ReleaseMode)
	}
	logrus.Infof("Starting ByteArray Gateway on port %s", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := gateway.New(cfg.Gateway.Replicas, nil)
	if nodes := cfg.Gateway.NodeList(); len(nodes) > 0 {
		gw.AddNode(nodes...)
	}

	// 发现服务节点并监听上下线
	if endpoints := cfg.Etcd.EndpointList(); len(endpoints) > 0 {
		etcdClient, err := etcd.NewClient(endpoints)
		if err != nil {
			logrus.Fatalf("Failed to connect to etcd: %v", err)
		}
		defer etcdClient.Close()

		nodes, err := etcdClient.Discover(ctx, cfg.Server.ServiceName)
		if err != nil {
			logrus.Errorf("Failed to discover services: %v", err)
		} else if len(nodes) > 0 {
			gw.AddNode(nodes...)
		}
		logrus.Infof("Discovered %d %s nodes", len(nodes), cfg.Server.ServiceName)

		etcdClient.WatchService(ctx, cfg.Server.ServiceName,
			func(addr string) { gw.AddNode(addr) },
			gw.RemoveNode)
	}

	if len(gw.Nodes()) == 0 {
		logrus.Warn("No buffer nodes available yet, requests will fail until nodes register")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: gw.Router(),
	}

	go func() {
		logrus.Infof("Gateway listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start gateway: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Gateway forced to shutdown: %v", err)
	}
}
