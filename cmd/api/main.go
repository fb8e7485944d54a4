package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"

    "fleetopt/internal/api"
    "fleetopt/internal/config"
    "fleetopt/internal/logging"
    "fleetopt/internal/metrics"
)

func main() {
    // .env is optional; real environment variables win
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        logrus.WithError(err).Warn("failed to read .env")
    }
    cfg, err := config.FromEnv()
    if err != nil {
        logrus.WithError(err).Fatal("invalid configuration")
    }
    log, closer, err := logging.New(cfg.Log)
    if err != nil {
        logrus.WithError(err).Fatal("failed to init logging")
    }
    defer closer.Close()
    metrics.RegisterDefault()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    srvDeps, err := api.NewServer(ctx, cfg, log)
    if err != nil {
        log.WithError(err).Fatal("failed to init server")
    }
    defer srvDeps.Close()
    srvDeps.Start(ctx)

    srv := &http.Server{
        Addr:              ":" + cfg.Port,
        Handler:           srvDeps.Routes(),
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.WithFields(logrus.Fields{
        "addr":       srv.Addr,
        "postgres":   cfg.DatabaseURL != "",
        "redis":      cfg.RedisURL != "",
        "webhooks":   len(cfg.Webhooks.URLs),
        "locations":  len(srvDeps.Locations),
        "vehicles":   len(srvDeps.Fleet.List()),
        "inventory":  len(srvDeps.Inventory.Items()),
        "warehouses": len(srvDeps.Inventory.Warehouses()),
    }).Info("API listening")

    errCh := make(chan error, 1)
    go func() { errCh <- srv.ListenAndServe() }()

    select {
    case err := <-errCh:
        if err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.WithError(err).Error("server error")
        }
    case <-ctx.Done():
        log.Info("shutting down")
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := srv.Shutdown(shutdownCtx); err != nil {
            log.WithError(err).Warn("graceful shutdown failed")
        }
    }
}
