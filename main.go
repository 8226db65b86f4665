package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"

	"BEAM-backend/internal/peripheral"
	"BEAM-backend/internal/platform/auth"
	"BEAM-backend/internal/platform/db"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("[ERROR] could not connect to redis: %v", err)
	}
	defer rdb.Close()
	log.Printf("[INFO] connected to redis: %s", cfg.Redis.Addr)

	// The store is volatile on purpose: restarting the process is a
	// device power cycle, nothing survives it.
	store := peripheral.NewStore(cfg.Peripheral.Capacity)
	svc := peripheral.NewService(store)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	authSvc := auth.NewService(conn, rdb, cfg.Auth.JWTSecret, cfg.Auth.OTPTTLSec)
	auth.RegisterRoutes(r.Group("/auth"), authSvc, mode == "dev")

	peripheral.RegisterRoutes(r, svc, auth.RequireAuth(authSvc.JWTSecret()))

	// Eviction has to run on an interval: a long-lived session keeps
	// accumulating records until it is removed.
	evictionInterval := time.Duration(cfg.Peripheral.EvictionIntervalSec) * time.Second
	if evictionInterval <= 0 {
		evictionInterval = peripheral.DefaultEvictionIntervalSec * time.Second
	}
	evictCtx, stopEviction := context.WithCancel(context.Background())
	defer stopEviction()
	go func() {
		ticker := time.NewTicker(evictionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-evictCtx.Done():
				return
			case <-ticker.C:
				if removed := store.EvictExpired(time.Now().Unix()); len(removed) > 0 {
					log.Printf("[INFO] evicted expired session(s): %v", removed)
				}
			}
		}
	}()

	listen := cfg.Listen
	if listen == "" {
		listen = ":8080"
	}
	srv := &http.Server{
		Addr:    listen,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
