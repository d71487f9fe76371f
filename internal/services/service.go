package services

import (
    "context"
    "errors"
    "fmt"
    "time"

    openaigo "github.com/openai/openai-go"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/adapters/openai"
    "github.com/michal-palko/smart-claimer/internal/config"
    "github.com/michal-palko/smart-claimer/internal/domain"
    "github.com/michal-palko/smart-claimer/internal/repo"
)

type JiraClient interface {
    ListIssuesForAuthor(ctx context.Context, author string) ([]domain.IssueSummary, domain.FetchMeta)
    FetchIssueByKey(ctx context.Context, key string) *domain.IssueLookup
    FetchSubtasksForParent(ctx context.Context, author, parentKey string) []domain.IssueSummary
    GetIssueDetails(ctx context.Context, key string) *domain.IssueDetail
}

type CRM interface {
    Tasks(ctx context.Context, login string) ([]domain.MetaAppTask, error)
    Submit(ctx context.Context, e domain.TimeEntry) (int64, error)
    ImportEntries(ctx context.Context, login string) ([]domain.MetaAppEntry, error)
}

type LLM interface {
    Chat(ctx context.Context, req openai.ChatRequest) (*openaigo.ChatCompletion, error)
}

// ErrInvalid marks a request the caller got wrong; handlers map it to 400.
var ErrInvalid = errors.New("invalid request")

// ErrCRMUnavailable is returned when the CRM database is not configured.
var ErrCRMUnavailable = errors.New("crm not configured")

type Service struct {
    cfg  config.Config
    log  zerolog.Logger
    repo *repo.Repository
    jira JiraClient
    crm  CRM
    llm  LLM
}

func New(cfg config.Config, log zerolog.Logger, r *repo.Repository, jira JiraClient, crm CRM, llm LLM) *Service {
    return &Service{cfg: cfg, log: log, repo: r, jira: jira, crm: crm, llm: llm}
}

func validateEntry(e domain.TimeEntry) error {
    if e.Autor == "" { return fmt.Errorf("%w: autor je povinný", ErrInvalid) }
    if e.Hodiny < 0 || e.Minuty < 0 || e.Minuty > 59 { return fmt.Errorf("%w: invalid time values", ErrInvalid) }
    return nil
}

// enrichNames fills jira_name and uloha_name from the tracker when the caller
// did not supply them. Lookup failures never block the write.
func (s *Service) enrichNames(ctx context.Context, e *domain.TimeEntry) {
    hasJira := e.Jira != nil && *e.Jira != ""
    if !hasJira && e.Uloha == "" { return }
    if e.JiraName != nil && e.UlohaName != nil { return }

    if hasJira && e.JiraName == nil {
        if issue := s.jira.FetchIssueByKey(ctx, *e.Jira); issue != nil {
            name := issue.Summary
            e.JiraName = &name
            if e.UlohaName == nil && issue.ParentSummary != nil { e.UlohaName = issue.ParentSummary }
        }
    }
    if e.Uloha != "" && e.UlohaName == nil {
        if parent := s.jira.FetchIssueByKey(ctx, e.Uloha); parent != nil {
            name := parent.Summary
            e.UlohaName = &name
        }
    }
}

func (s *Service) CreateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error) {
    if err := validateEntry(e); err != nil { return nil, err }
    s.enrichNames(ctx, &e)
    return s.repo.CreateTimeEntry(ctx, e)
}

func (s *Service) ListTimeEntries(ctx context.Context, from, to *time.Time) ([]domain.TimeEntry, error) {
    return s.repo.ListTimeEntries(ctx, from, to)
}

// UpdateTimeEntry refreshes names from the author's current issue list, which
// is usually already warm from the UI.
func (s *Service) UpdateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error) {
    if err := validateEntry(e); err != nil { return nil, err }
    hasJira := e.Jira != nil && *e.Jira != ""
    if hasJira || e.Uloha != "" {
        issues, _ := s.jira.ListIssuesForAuthor(ctx, e.Autor)
        byKey := map[string]domain.IssueSummary{}
        for _, is := range issues { byKey[is.Key] = is }
        if hasJira {
            if is, ok := byKey[*e.Jira]; ok {
                name := is.Summary
                e.JiraName = &name
                if is.ParentSummary != nil { e.UlohaName = is.ParentSummary }
            }
        }
        if e.Uloha != "" && e.UlohaName == nil {
            if is, ok := byKey[e.Uloha]; ok {
                name := is.Summary
                e.UlohaName = &name
            }
        }
    }
    return s.repo.UpdateTimeEntry(ctx, e)
}

func (s *Service) DeleteTimeEntry(ctx context.Context, id int64) error {
    return s.repo.DeleteTimeEntry(ctx, id)
}

// SubmitToMetaApp books an entry in the CRM. Already-submitted entries are
// returned unchanged, the call is idempotent.
func (s *Service) SubmitToMetaApp(ctx context.Context, id int64) (*domain.TimeEntry, error) {
    entry, err := s.repo.GetTimeEntry(ctx, id)
    if err != nil { return nil, err }
    if entry.MetaAppVykazID != nil { return entry, nil }
    if s.crm == nil { return nil, ErrCRMUnavailable }
    vykazID, err := s.crm.Submit(ctx, *entry)
    if err != nil { return nil, err }
    updated, err := s.repo.MarkSubmitted(ctx, id, vykazID)
    if err != nil {
        s.log.Error().Err(err).Int64("id", id).Int64("vykaz_id", vykazID).Msg("submitted to crm but local mark failed")
        return nil, err
    }
    s.log.Info().Int64("id", id).Int64("vykaz_id", vykazID).Msg("entry submitted to crm")
    return updated, nil
}

type ImportResult struct {
    Imported   int `json:"imported_count"`
    Skipped    int `json:"skipped_count"`
    TotalFound int `json:"total_found"`
}

// ImportFromMetaApp pulls the author's recent CRM reports into the local
// table, skipping report ids we already hold.
func (s *Service) ImportFromMetaApp(ctx context.Context, autor string) (ImportResult, error) {
    var res ImportResult
    if autor == "" { return res, fmt.Errorf("%w: autor je povinný", ErrInvalid) }
    if s.crm == nil { return res, ErrCRMUnavailable }

    entries, err := s.crm.ImportEntries(ctx, autor)
    if err != nil { return res, err }
    res.TotalFound = len(entries)

    existing, err := s.repo.SubmittedVykazIDs(ctx, autor)
    if err != nil { return res, err }

    for _, me := range entries {
        if _, ok := existing[me.VykazID]; ok {
            res.Skipped++
            continue
        }
        uloha := ""
        if me.Uloha != nil { uloha = *me.Uloha }
        vykazID := me.VykazID
        e := domain.TimeEntry{
            Uloha:          uloha,
            Autor:          me.Autor,
            Datum:          me.Datum,
            Hodiny:         me.Hodiny,
            Minuty:         me.Minuty,
            Jira:           me.Jira,
            Popis:          me.Popis,
            MetaAppVykazID: &vykazID,
        }
        if _, err := s.repo.CreateTimeEntry(ctx, e); err != nil {
            s.log.Error().Err(err).Int64("vykaz_id", me.VykazID).Msg("import: insert failed")
            return res, err
        }
        res.Imported++
    }
    s.log.Info().Str("autor", autor).Int("imported", res.Imported).Int("skipped", res.Skipped).
        Int("found", res.TotalFound).Msg("crm import done")
    return res, nil
}

func (s *Service) ListIssues(ctx context.Context, autor string) ([]domain.IssueSummary, domain.FetchMeta, error) {
    if autor == "" { return nil, domain.FetchMeta{}, fmt.Errorf("%w: autor je povinný", ErrInvalid) }
    issues, meta := s.jira.ListIssuesForAuthor(ctx, autor)
    s.log.Debug().Str("autor", autor).Str("source", meta.Source).Int("returned", meta.Returned).
        Str("note", meta.Note).Msg("issue list fetched")
    return issues, meta, nil
}

func (s *Service) ValidateIssue(ctx context.Context, key string) *domain.IssueLookup {
    return s.jira.FetchIssueByKey(ctx, key)
}

func (s *Service) IssueDetails(ctx context.Context, key string) *domain.IssueDetail {
    return s.jira.GetIssueDetails(ctx, key)
}

func (s *Service) Subtasks(ctx context.Context, autor, parentKey string) []domain.IssueSummary {
    return s.jira.FetchSubtasksForParent(ctx, autor, parentKey)
}

func (s *Service) MetaAppTasks(ctx context.Context, autor string) ([]domain.MetaAppTask, error) {
    if s.crm == nil { return nil, ErrCRMUnavailable }
    return s.crm.Tasks(ctx, autor)
}

func (s *Service) CreateTemplate(ctx context.Context, t domain.Template) (*domain.Template, error) {
    if t.Name == "" || t.Autor == "" { return nil, fmt.Errorf("%w: name and autor are required", ErrInvalid) }
    return s.repo.CreateTemplate(ctx, t)
}

func (s *Service) ListTemplates(ctx context.Context, autor string) ([]domain.Template, error) {
    return s.repo.ListTemplates(ctx, autor)
}

func (s *Service) DeleteTemplate(ctx context.Context, id int64, autor string) error {
    return s.repo.DeleteTemplate(ctx, id, autor)
}

func (s *Service) Chat(ctx context.Context, req openai.ChatRequest) (*openaigo.ChatCompletion, error) {
    return s.llm.Chat(ctx, req)
}
