package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tahcohcat/rpglife/config"
	"github.com/tahcohcat/rpglife/internal/api"
	"github.com/tahcohcat/rpglife/internal/auth"
	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/database"
	"github.com/tahcohcat/rpglife/internal/logger"
	"github.com/tahcohcat/rpglife/internal/loot"
	"github.com/tahcohcat/rpglife/internal/metrics"
	"github.com/tahcohcat/rpglife/internal/services"
	"github.com/tahcohcat/rpglife/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.Options{Level: logger.LogLevelError, Console: true})
		logger.New().Named("main").WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Level:      logger.LogLevel(cfg.Log.Level),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    cfg.Log.Console,
	})
	defer logger.Sync()
	log := logger.New().Named("main")

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Error("failed to initialize database")
		os.Exit(1)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	origins := cors.New(cors.Options{AllowedOrigins: cfg.Server.AllowedOrigins})
	hub := websocket.NewHub(func(r *http.Request) bool {
		// non-browser clients send no Origin
		return r.Header.Get("Origin") == "" || origins.OriginAllowed(r)
	})
	go hub.Run()
	defer hub.Stop()

	clk := clock.RealClock{}
	svc := services.New(services.Env{
		DB:              db,
		Clock:           clk,
		RNG:             loot.NewRandom(),
		Metrics:         m,
		Events:          hub,
		RequiredDailies: cfg.Game.RequiredDailies,
	})

	authMgr := auth.NewManager(auth.Config{
		SessionSecret: cfg.Auth.SessionSecret,
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenTTL:      cfg.Auth.TokenTTL,
		SecureCookie:  cfg.Auth.SecureCookie,
	}, clk)

	h := api.NewHandler(svc, authMgr, hub, cfg.Game.DefaultTimezone)
	r := api.NewRouter(h, m)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("rpglife server starting",
			zap.String("addr", srv.Addr),
			zap.String("database", cfg.Database.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	log.Info("server stopped")
}
