package jobs

import (
    "context"
    "time"

    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/config"
    "github.com/michal-palko/smart-claimer/internal/repo"
    "github.com/michal-palko/smart-claimer/internal/services"
)

type service interface {
    ImportFromMetaApp(ctx context.Context, autor string) (services.ImportResult, error)
}

type Cron struct {
    cfg  config.Config
    log  zerolog.Logger
    svc  service
    repo *repo.Repository
    c    *cron.Cron
}

// NewCron schedules the periodic CRM import for the configured logins.
// Returns nil when no schedule is configured.
func NewCron(cfg config.Config, log zerolog.Logger, svc service, r *repo.Repository) *Cron {
    if cfg.ImportCron == "" || len(cfg.ImportLogins) == 0 { return nil }
    loc, _ := time.LoadLocation(cfg.TZ)
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, repo: r, c: c}
    _, _ = c.AddFunc(cfg.ImportCron, cr.importAll)
    return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) importAll() {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute); defer cancel()
    const lockKey int64 = 727272
    ok, err := cr.repo.TryAdvisoryLock(ctx, lockKey)
    if err != nil { cr.log.Error().Err(err).Msg("cron: lock error"); return }
    if !ok { cr.log.Info().Msg("cron: import already running elsewhere"); return }
    defer func() { _ = cr.repo.AdvisoryUnlock(context.Background(), lockKey) }()
    for _, login := range cr.cfg.ImportLogins {
        res, err := cr.svc.ImportFromMetaApp(ctx, login)
        if err != nil {
            cr.log.Error().Err(err).Str("autor", login).Msg("cron: crm import failed")
            continue
        }
        cr.log.Info().Str("autor", login).Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("cron: crm import")
    }
}
