package metaapp

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

// Bridge reads and writes time reports in the company CRM database. It is a
// second Postgres pool, independent of the app database, and is optional:
// callers get a nil Bridge when the CRM connection is not configured.
type Bridge struct {
    pool *pgxpool.Pool
    log  zerolog.Logger
}

func Open(ctx context.Context, dsn string, log zerolog.Logger) (*Bridge, error) {
    if dsn == "" { return nil, nil }
    pool, err := pgxpool.New(ctx, dsn)
    if err != nil { return nil, err }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil {
        pool.Close()
        return nil, err
    }
    return &Bridge{pool: pool, log: log}, nil
}

func (b *Bridge) Close() {
    if b != nil && b.pool != nil { b.pool.Close() }
}

// SubmitError is a rejection from the CRM's insert function, as opposed to a
// connectivity problem. Handlers map it to a client error.
type SubmitError struct{ Reason string }

func (e *SubmitError) Error() string { return e.Reason }

// IsRejection reports whether err is a CRM-side validation failure (unknown
// login, unknown task tag) rather than an infrastructure error.
func IsRejection(err error) bool {
    var se *SubmitError
    if errors.As(err, &se) { return true }
    msg := err.Error()
    return strings.Contains(msg, "User with login") || strings.Contains(msg, "No uloha found for epic tag")
}

// Tasks returns the bookable task tags assigned to a login.
func (b *Bridge) Tasks(ctx context.Context, login string) ([]domain.MetaAppTask, error) {
    const q = `
        SELECT
            u.znacky,
            u.nazov,
            a.login
        FROM metaapp_metaapp_crm.dale_uloha_riesitel r
            LEFT JOIN metaapp_metaapp_crm.uloha u ON
                r.fk3033 = u.id
            LEFT JOIN metaapp_metaapp_crm.app_user a ON
                COALESCE(r.fk3040, r.fk3062) = a.userid
        WHERE r.validto IS NULL
            AND a.login = $1
        GROUP BY
            u.znacky,
            u.nazov,
            a.login
        ORDER BY u.znacky`
    rows, err := b.pool.Query(ctx, q, login)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []domain.MetaAppTask{}
    for rows.Next() {
        var code, summary, lg *string
        if err := rows.Scan(&code, &summary, &lg); err != nil { return nil, err }
        t := domain.MetaAppTask{}
        if code != nil { t.Code = *code }
        if summary != nil { t.Summary = *summary }
        if lg != nil { t.Login = *lg }
        out = append(out, t)
    }
    return out, rows.Err()
}

// Submit books one time entry in the CRM via its insert function and returns
// the created report id.
func (b *Bridge) Submit(ctx context.Context, e domain.TimeEntry) (int64, error) {
    poznamka := ""
    if e.Popis != nil { poznamka = *e.Popis }
    var vykazID *int64
    err := b.pool.QueryRow(ctx,
        `SELECT metaapp_metaapp_crm.insert_vykaz_entry($1, $2, $3, $4, $5, $6, $7)`,
        e.Autor, e.Uloha, e.Jira, e.Datum, e.Hodiny, e.Minuty, poznamka,
    ).Scan(&vykazID)
    if err != nil {
        if IsRejection(err) { return 0, &SubmitError{Reason: err.Error()} }
        return 0, err
    }
    if vykazID == nil { return 0, fmt.Errorf("crm returned no report id") }
    return *vykazID, nil
}

// ImportEntries reads the author's most recent booked reports back out of the
// CRM, newest first.
func (b *Bridge) ImportEntries(ctx context.Context, login string) ([]domain.MetaAppEntry, error) {
    const q = `
        SELECT
            a.id AS vykaz_id,
            a.login AS autor,
            a.datum,
            a.hodiny,
            a.minuty,
            a.jira,
            a.poznamka AS popis,
            b.znacky AS uloha
        FROM
            (
                SELECT
                    vykaz.id,
                    app_user.login,
                    vykaz.datum,
                    vykaz.hodiny,
                    vykaz.minuty,
                    vykaz.jira,
                    vykaz.poznamka
                FROM
                    metaapp_metaapp_crm.vykaz vykaz
                    CROSS JOIN metaapp_metaapp_crm.dale dale
                    CROSS JOIN metaapp_metaapp_crm.app_user app_user
                WHERE
                    app_user.userid = dale.fk3040
                    AND dale.fk3038 = vykaz.id
                    AND vykaz.validto IS NULL
                    AND app_user.validto IS NULL
                    AND dale.validto IS NULL
            ) a
            LEFT JOIN (
                SELECT
                    uloha.id uloha_id,
                    uloha.znacky,
                    vykaz.id vykaz_id
                FROM
                    metaapp_metaapp_crm.vykaz vykaz
                    CROSS JOIN metaapp_metaapp_crm.dale dale
                    CROSS JOIN metaapp_metaapp_crm.uloha uloha
                WHERE
                    uloha.id = dale.fk3033
                    AND dale.fk3038 = vykaz.id
                    AND vykaz.validto IS NULL
                    AND uloha.validto IS NULL
                    AND dale.validto IS NULL
            ) b ON a.id = b.vykaz_id
        WHERE a.login = $1
        ORDER BY datum DESC
        LIMIT 100`
    rows, err := b.pool.Query(ctx, q, login)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []domain.MetaAppEntry{}
    for rows.Next() {
        var e domain.MetaAppEntry
        var hodiny, minuty *int
        if err := rows.Scan(&e.VykazID, &e.Autor, &e.Datum, &hodiny, &minuty, &e.Jira, &e.Popis, &e.Uloha); err != nil {
            return nil, err
        }
        if hodiny != nil { e.Hodiny = *hodiny }
        if minuty != nil { e.Minuty = *minuty }
        out = append(out, e)
    }
    return out, rows.Err()
}
