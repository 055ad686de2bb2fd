package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"rmfconsole/config"
	"rmfconsole/engine"
	"rmfconsole/messaging"
	"rmfconsole/metrics"
	"rmfconsole/statecache"
	"rmfconsole/store"
	"rmfconsole/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "rmfconsole.yaml", "path to config file")
	envFile := flag.String("env", ".env", "path to .env file")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	debug := flag.Bool("debug", false, "log file and line numbers")
	flag.Parse()

	if *showVersion {
		fmt.Println("rmfconsole", Version)
		return
	}
	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	config.LoadEnv(*envFile)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *writeConfig {
		if err := cfg.Save(*configPath); err != nil {
			log.Fatalf("write config: %v", err)
		}
		log.Printf("rmfconsole: wrote %s", *configPath)
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("rmfconsole: database open (%s)", cfg.Database.Driver)

	// Redis
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	cache := statecache.NewRedisStore(redisClient, cfg.Redis.TTL)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cache.Ping(ctx); err != nil {
		log.Printf("rmfconsole: redis not available (%v), running without state cache", err)
	} else {
		log.Printf("rmfconsole: redis connected (%s)", cfg.Redis.Address)
	}
	cancel()

	// Messaging mirror
	var msgClient *messaging.Client
	if cfg.Messaging.Backend != "" {
		msgClient = messaging.NewClient(&cfg.Messaging)
		if err := msgClient.Connect(); err != nil {
			log.Printf("rmfconsole: messaging connect failed (%v)", err)
		} else {
			log.Printf("rmfconsole: messaging connected (%s)", msgClient.Backend())
		}
		defer msgClient.Close()
	}

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Cache:      cache,
		MsgClient:  msgClient,
		Metrics:    metrics.New(),
	})
	eng.Start()
	defer eng.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("rmfconsole: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("rmfconsole: ready (rmf %s)", cfg.RMF.URL)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("rmfconsole: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("rmfconsole: stopped")
}
