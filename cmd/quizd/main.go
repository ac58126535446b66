package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/visitor"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(string(cfg.Mode))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatal("bad DB_DRIVER", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, driver, cfg.DSN())
	cancel()
	if err != nil {
		log.Fatal("db open failed", "driver", driver, "error", err)
	}
	defer dbh.Close()
	log.Info("connected to database", "driver", driver, "db_dsn", cfg.DSN())

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatal("blob store", "error", err)
	}

	deps, err := api.NewDeps(
		quiz.NewSQLStore(dbh),
		session.NewManager(cfg.SessionTTL),
		bs,
		syncx.NewEventRepo(dbh),
		log,
	)
	if err != nil {
		log.Fatal("load templates", "error", err)
	}

	// --- Router ---
	r := api.NewRouter(deps, api.RouterOptions{
		Visitors:    visitor.NewService(cfg.SessionSecret, cfg.SessionTTL),
		EnableAPI:   cfg.EnableAPI,
		CORSOrigins: cfg.CORSOrigins,
		Ping:        dbh.PingContext,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()
	go func() {
		<-stop.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", "error", err)
	}
}
