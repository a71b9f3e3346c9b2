package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"zerde.org/internal/grant"
	"zerde.org/internal/httpapi"
	"zerde.org/internal/obs"
	"zerde.org/internal/token"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var db *sql.DB
	if dsn := os.Getenv("ZERDE_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	// Without a DSN the service runs entirely in memory, which is enough for
	// local development and protocol experiments.
	var (
		store  token.Store
		grants grant.Repository
	)
	if db != nil {
		store = token.NewPGStore(db)
		grants = grant.NewPGRepository(db)
	} else {
		log.Println("ZERDE_PG_DSN not set, using in-memory stores")
		store = token.NewInMemory()
		grants = grant.NewInMemory()
	}

	tokens, err := token.NewService(store, grants)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	addr := os.Getenv("ZERDE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	baseURL := os.Getenv("ZERDE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost" + addr
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, baseURL, tokens)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting zerde-auth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
