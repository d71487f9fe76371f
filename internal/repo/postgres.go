package repo

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/config"
    "github.com/michal-palko/smart-claimer/internal/domain"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

var ErrNotFound = errors.New("repo: not found")

// EnsureSchema creates the tables on startup; there is no migration tooling
// around this deployment.
func (r *Repository) EnsureSchema(ctx context.Context) error {
    const ddl = `
        CREATE TABLE IF NOT EXISTS time_entry (
            id BIGSERIAL PRIMARY KEY,
            uloha TEXT NOT NULL,
            autor TEXT NOT NULL,
            datum DATE NOT NULL,
            hodiny INT NOT NULL,
            minuty INT NOT NULL,
            jira TEXT,
            popis TEXT,
            jira_name TEXT,
            uloha_name TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            modified_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            submitted_to_metaapp_at TIMESTAMPTZ,
            metaapp_vykaz_id BIGINT
        );
        CREATE INDEX IF NOT EXISTS idx_time_entry_autor_datum ON time_entry(autor, datum);
        CREATE INDEX IF NOT EXISTS idx_time_entry_vykaz ON time_entry(metaapp_vykaz_id) WHERE metaapp_vykaz_id IS NOT NULL;
        CREATE TABLE IF NOT EXISTS template (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            uloha TEXT,
            autor TEXT NOT NULL,
            hodiny TEXT,
            minuty TEXT,
            jira TEXT,
            popis TEXT
        );`
    _, err := r.db.Pool.Exec(ctx, ddl)
    return err
}

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

const entryColumns = `id, uloha, autor, datum, hodiny, minuty, jira, popis, jira_name, uloha_name,
        created_at, modified_at, submitted_to_metaapp_at, metaapp_vykaz_id`

func scanEntry(row pgx.Row) (*domain.TimeEntry, error) {
    var e domain.TimeEntry
    err := row.Scan(&e.ID, &e.Uloha, &e.Autor, &e.Datum, &e.Hodiny, &e.Minuty, &e.Jira, &e.Popis,
        &e.JiraName, &e.UlohaName, &e.CreatedAt, &e.ModifiedAt, &e.SubmittedToMetaAppAt, &e.MetaAppVykazID)
    if errors.Is(err, pgx.ErrNoRows) { return nil, ErrNotFound }
    if err != nil { return nil, err }
    return &e, nil
}

func (r *Repository) CreateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error) {
    const q = `INSERT INTO time_entry(uloha, autor, datum, hodiny, minuty, jira, popis, jira_name, uloha_name, metaapp_vykaz_id)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING ` + entryColumns
    row := r.db.Pool.QueryRow(ctx, q, e.Uloha, e.Autor, e.Datum, e.Hodiny, e.Minuty, e.Jira, e.Popis,
        e.JiraName, e.UlohaName, e.MetaAppVykazID)
    return scanEntry(row)
}

func (r *Repository) GetTimeEntry(ctx context.Context, id int64) (*domain.TimeEntry, error) {
    row := r.db.Pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM time_entry WHERE id=$1`, id)
    return scanEntry(row)
}

func (r *Repository) ListTimeEntries(ctx context.Context, from, to *time.Time) ([]domain.TimeEntry, error) {
    q := `SELECT ` + entryColumns + ` FROM time_entry WHERE 1=1`
    args := []any{}
    if from != nil {
        args = append(args, *from)
        q += ` AND datum >= $1`
    }
    if to != nil {
        args = append(args, *to)
        if from != nil { q += ` AND datum <= $2` } else { q += ` AND datum <= $1` }
    }
    q += ` ORDER BY datum DESC, id DESC`
    rows, err := r.db.Pool.Query(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []domain.TimeEntry{}
    for rows.Next() {
        e, err := scanEntry(rows)
        if err != nil { return nil, err }
        out = append(out, *e)
    }
    return out, rows.Err()
}

func (r *Repository) UpdateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error) {
    const q = `UPDATE time_entry SET uloha=$2, datum=$3, hodiny=$4, minuty=$5, jira=$6, popis=$7,
            jira_name=$8, uloha_name=$9, modified_at=now()
        WHERE id=$1
        RETURNING ` + entryColumns
    row := r.db.Pool.QueryRow(ctx, q, e.ID, e.Uloha, e.Datum, e.Hodiny, e.Minuty, e.Jira, e.Popis,
        e.JiraName, e.UlohaName)
    return scanEntry(row)
}

func (r *Repository) DeleteTimeEntry(ctx context.Context, id int64) error {
    tag, err := r.db.Pool.Exec(ctx, `DELETE FROM time_entry WHERE id=$1`, id)
    if err != nil { return err }
    if tag.RowsAffected() == 0 { return ErrNotFound }
    return nil
}

// MarkSubmitted stamps a successful push to the CRM database.
func (r *Repository) MarkSubmitted(ctx context.Context, id, vykazID int64) (*domain.TimeEntry, error) {
    const q = `UPDATE time_entry SET metaapp_vykaz_id=$2, submitted_to_metaapp_at=now(), modified_at=now()
        WHERE id=$1
        RETURNING ` + entryColumns
    return scanEntry(r.db.Pool.QueryRow(ctx, q, id, vykazID))
}

// SubmittedVykazIDs returns the CRM report ids already present locally for an
// author, used to dedupe imports.
func (r *Repository) SubmittedVykazIDs(ctx context.Context, autor string) (map[int64]struct{}, error) {
    rows, err := r.db.Pool.Query(ctx,
        `SELECT metaapp_vykaz_id FROM time_entry WHERE autor=$1 AND metaapp_vykaz_id IS NOT NULL`, autor)
    if err != nil { return nil, err }
    defer rows.Close()
    out := map[int64]struct{}{}
    for rows.Next() {
        var id int64
        if err := rows.Scan(&id); err != nil { return nil, err }
        out[id] = struct{}{}
    }
    return out, rows.Err()
}

func (r *Repository) CreateTemplate(ctx context.Context, t domain.Template) (*domain.Template, error) {
    const q = `INSERT INTO template(name, uloha, autor, hodiny, minuty, jira, popis)
        VALUES($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, name, uloha, autor, hodiny, minuty, jira, popis`
    row := r.db.Pool.QueryRow(ctx, q, t.Name, t.Uloha, t.Autor, t.Hodiny, t.Minuty, t.Jira, t.Popis)
    var out domain.Template
    if err := row.Scan(&out.ID, &out.Name, &out.Uloha, &out.Autor, &out.Hodiny, &out.Minuty, &out.Jira, &out.Popis); err != nil {
        return nil, err
    }
    return &out, nil
}

func (r *Repository) ListTemplates(ctx context.Context, autor string) ([]domain.Template, error) {
    rows, err := r.db.Pool.Query(ctx,
        `SELECT id, name, uloha, autor, hodiny, minuty, jira, popis FROM template WHERE autor=$1 ORDER BY id`, autor)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []domain.Template{}
    for rows.Next() {
        var t domain.Template
        if err := rows.Scan(&t.ID, &t.Name, &t.Uloha, &t.Autor, &t.Hodiny, &t.Minuty, &t.Jira, &t.Popis); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

func (r *Repository) DeleteTemplate(ctx context.Context, id int64, autor string) error {
    tag, err := r.db.Pool.Exec(ctx, `DELETE FROM template WHERE id=$1 AND autor=$2`, id, autor)
    if err != nil { return err }
    if tag.RowsAffected() == 0 { return ErrNotFound }
    return nil
}
