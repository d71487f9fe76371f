package http

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    openaigo "github.com/openai/openai-go"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/michal-palko/smart-claimer/internal/adapters/openai"
    "github.com/michal-palko/smart-claimer/internal/config"
    "github.com/michal-palko/smart-claimer/internal/domain"
    "github.com/michal-palko/smart-claimer/internal/metaapp"
    "github.com/michal-palko/smart-claimer/internal/services"
)

type stubService struct {
    created   *domain.TimeEntry
    createErr error
    submitErr error
    issues    []domain.IssueSummary
    meta      domain.FetchMeta
    lookup    *domain.IssueLookup
    detail    *domain.IssueDetail
}

func (s *stubService) CreateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error) {
    if s.createErr != nil { return nil, s.createErr }
    out := e
    out.ID = 1
    s.created = &out
    return &out, nil
}

func (s *stubService) ListTimeEntries(ctx context.Context, from, to *time.Time) ([]domain.TimeEntry, error) {
    return []domain.TimeEntry{}, nil
}

func (s *stubService) UpdateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error) {
    return &e, nil
}

func (s *stubService) DeleteTimeEntry(ctx context.Context, id int64) error { return nil }

func (s *stubService) SubmitToMetaApp(ctx context.Context, id int64) (*domain.TimeEntry, error) {
    if s.submitErr != nil { return nil, s.submitErr }
    return &domain.TimeEntry{ID: id}, nil
}

func (s *stubService) ImportFromMetaApp(ctx context.Context, autor string) (services.ImportResult, error) {
    return services.ImportResult{Imported: 2, Skipped: 1, TotalFound: 3}, nil
}

func (s *stubService) CreateTemplate(ctx context.Context, t domain.Template) (*domain.Template, error) {
    return &t, nil
}

func (s *stubService) ListTemplates(ctx context.Context, autor string) ([]domain.Template, error) {
    return []domain.Template{}, nil
}

func (s *stubService) DeleteTemplate(ctx context.Context, id int64, autor string) error { return nil }

func (s *stubService) ListIssues(ctx context.Context, autor string) ([]domain.IssueSummary, domain.FetchMeta, error) {
    if autor == "" { return nil, domain.FetchMeta{}, services.ErrInvalid }
    return s.issues, s.meta, nil
}

func (s *stubService) ValidateIssue(ctx context.Context, key string) *domain.IssueLookup { return s.lookup }

func (s *stubService) IssueDetails(ctx context.Context, key string) *domain.IssueDetail { return s.detail }

func (s *stubService) Subtasks(ctx context.Context, autor, parentKey string) []domain.IssueSummary {
    return []domain.IssueSummary{}
}

func (s *stubService) MetaAppTasks(ctx context.Context, autor string) ([]domain.MetaAppTask, error) {
    return []domain.MetaAppTask{}, nil
}

func (s *stubService) Chat(ctx context.Context, req openai.ChatRequest) (*openaigo.ChatCompletion, error) {
    return nil, openai.ErrNotConfigured
}

func newTestRouter(svc *stubService) http.Handler {
    cfg := config.Config{AppEnv: "test", OpenAIModel: "gpt-4o-mini", WhisperLanguage: "sk"}
    return NewRouter(cfg, zerolog.Nop(), svc)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
    t.Helper()
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, path, strings.NewReader(body))
        req.Header.Set("Content-Type", "application/json")
    } else {
        req = httptest.NewRequest(method, path, nil)
    }
    w := httptest.NewRecorder()
    h.ServeHTTP(w, req)
    return w
}

func Test_CreateTimeEntry_OK(t *testing.T) {
    t.Parallel()
    svc := &stubService{}
    w := do(t, newTestRouter(svc), http.MethodPost, "/time-entries",
        `{"uloha":"EPIC-9","autor":"bob","datum":"2026-08-28","hodiny":2,"minuty":15}`)
    require.Equal(t, http.StatusOK, w.Code)
    require.NotNil(t, svc.created)
    assert.Equal(t, "bob", svc.created.Autor)
    assert.Equal(t, 2026, svc.created.Datum.Year())
}

func Test_CreateTimeEntry_BadDatum(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodPost, "/time-entries",
        `{"uloha":"EPIC-9","autor":"bob","datum":"28.08.2026","hodiny":2,"minuty":15}`)
    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_CreateTimeEntry_ValidationErrorMapsTo400(t *testing.T) {
    t.Parallel()
    svc := &stubService{createErr: services.ErrInvalid}
    w := do(t, newTestRouter(svc), http.MethodPost, "/time-entries",
        `{"uloha":"EPIC-9","autor":"bob","datum":"2026-08-28","hodiny":-1,"minuty":0}`)
    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_ListTimeEntries_BadDateFilter(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodGet, "/time-entries?from=notadate", "")
    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_SubmitToMetaApp_RejectionMapsTo400(t *testing.T) {
    t.Parallel()
    svc := &stubService{submitErr: &metaapp.SubmitError{Reason: "No uloha found for epic tag EPIC-9"}}
    w := do(t, newTestRouter(svc), http.MethodPost, "/time-entries/1/submit-to-metaapp", "")
    require.Equal(t, http.StatusBadRequest, w.Code)
    assert.Contains(t, w.Body.String(), "MetaApp Error")
}

func Test_SubmitToMetaApp_CRMUnavailableMapsTo503(t *testing.T) {
    t.Parallel()
    svc := &stubService{submitErr: services.ErrCRMUnavailable}
    w := do(t, newTestRouter(svc), http.MethodPost, "/time-entries/1/submit-to-metaapp", "")
    assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func Test_JiraIssues_RequiresAutor(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodGet, "/jira-issues", "")
    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_JiraIssues_ReportsSource(t *testing.T) {
    t.Parallel()
    svc := &stubService{
        issues: []domain.IssueSummary{{Key: "AB-1", Summary: "first"}},
        meta:   domain.FetchMeta{Source: "picker", Returned: 1},
    }
    w := do(t, newTestRouter(svc), http.MethodGet, "/jira-issues?autor=bob", "")
    require.Equal(t, http.StatusOK, w.Code)
    assert.Equal(t, "picker", w.Header().Get("X-Fetch-Source"))
    var out []domain.IssueSummary
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
    require.Len(t, out, 1)
    assert.Equal(t, "AB-1", out[0].Key)
}

func Test_ValidateJira(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodGet, "/api/validate-jira?key=AB-1", "")
    require.Equal(t, http.StatusOK, w.Code)
    assert.Contains(t, w.Body.String(), `"valid":false`)

    svc := &stubService{lookup: &domain.IssueLookup{
        IssueSummary: domain.IssueSummary{Key: "AB-1", Summary: "found"},
        ParentState:  domain.ParentNone,
    }}
    w = do(t, newTestRouter(svc), http.MethodGet, "/api/validate-jira?key=AB-1", "")
    require.Equal(t, http.StatusOK, w.Code)
    assert.Contains(t, w.Body.String(), `"valid":true`)
    assert.Contains(t, w.Body.String(), `"parent_state":"none"`)
}

func Test_JiraIssueDetails_NotFound(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodGet, "/jira-issue-details/AB-1", "")
    assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_ImportFromMetaApp_ReturnsCounts(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodPost, "/import-from-metaapp", `{"autor":"bob"}`)
    require.Equal(t, http.StatusOK, w.Code)
    assert.Contains(t, w.Body.String(), `"imported_count":2`)
    assert.Contains(t, w.Body.String(), `"skipped_count":1`)
    assert.Contains(t, w.Body.String(), `"total_found":3`)
}

func Test_FrontendConfig_NeverLeaksKey(t *testing.T) {
    t.Parallel()
    cfg := config.Config{AppEnv: "test", OpenAIKey: "sk-secret", OpenAIModel: "gpt-4o-mini"}
    r := NewRouter(cfg, zerolog.Nop(), &stubService{})
    w := do(t, r, http.MethodGet, "/api/config", "")
    require.Equal(t, http.StatusOK, w.Code)
    assert.NotContains(t, w.Body.String(), "sk-secret")
    assert.Contains(t, w.Body.String(), "/api/openai/chat")
}

func Test_OpenAIChat_MissingKey(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodPost, "/api/openai/chat",
        `{"messages":[{"role":"user","content":"hi"}]}`)
    require.Equal(t, http.StatusInternalServerError, w.Code)
    assert.Contains(t, w.Body.String(), "not configured")
}

func Test_CORSPreflight(t *testing.T) {
    t.Parallel()
    w := do(t, newTestRouter(&stubService{}), http.MethodOptions, "/time-entries", "")
    assert.Equal(t, http.StatusNoContent, w.Code)
    assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
