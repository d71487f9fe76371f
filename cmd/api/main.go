package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/michal-palko/smart-claimer/internal/adapters/jira"
    "github.com/michal-palko/smart-claimer/internal/adapters/openai"
    "github.com/michal-palko/smart-claimer/internal/config"
    httpx "github.com/michal-palko/smart-claimer/internal/http"
    "github.com/michal-palko/smart-claimer/internal/jobs"
    "github.com/michal-palko/smart-claimer/internal/logger"
    "github.com/michal-palko/smart-claimer/internal/metaapp"
    "github.com/michal-palko/smart-claimer/internal/repo"
    "github.com/michal-palko/smart-claimer/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    if err := cfg.ValidateJira(); err != nil {
        log.Fatal().Err(err).Msg("jira config incomplete")
    }

    // DB
    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()

    repository := repo.NewRepository(db, log)
    if err := repository.EnsureSchema(ctx); err != nil {
        log.Fatal().Err(err).Msg("schema setup failed")
    }

    // CRM bridge is optional; endpoints that need it answer 503 without it.
    bridge, err := metaapp.Open(ctx, cfg.MetaAppDSN, log)
    if err != nil { log.Fatal().Err(err).Msg("crm db connect failed") }
    if bridge == nil {
        log.Warn().Msg("crm db not configured, submit/import disabled")
    } else {
        defer bridge.Close()
    }

    // Adapters
    jc := jira.NewClient(cfg, log)
    llm := openai.NewClient(cfg, log)

    var crm services.CRM
    if bridge != nil { crm = bridge }
    svc := services.New(cfg, log, repository, jc, crm, llm)

    router := httpx.NewRouter(cfg, log, svc)

    if cron := jobs.NewCron(cfg, log, svc, repository); cron != nil {
        cron.Start()
        defer cron.Stop()
    }

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
