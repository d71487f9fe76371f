package http

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/gin-gonic/gin"
    openaigo "github.com/openai/openai-go"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/adapters/openai"
    "github.com/michal-palko/smart-claimer/internal/config"
    "github.com/michal-palko/smart-claimer/internal/domain"
    "github.com/michal-palko/smart-claimer/internal/metaapp"
    "github.com/michal-palko/smart-claimer/internal/repo"
    "github.com/michal-palko/smart-claimer/internal/services"
)

type service interface {
    CreateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error)
    ListTimeEntries(ctx context.Context, from, to *time.Time) ([]domain.TimeEntry, error)
    UpdateTimeEntry(ctx context.Context, e domain.TimeEntry) (*domain.TimeEntry, error)
    DeleteTimeEntry(ctx context.Context, id int64) error
    SubmitToMetaApp(ctx context.Context, id int64) (*domain.TimeEntry, error)
    ImportFromMetaApp(ctx context.Context, autor string) (services.ImportResult, error)
    CreateTemplate(ctx context.Context, t domain.Template) (*domain.Template, error)
    ListTemplates(ctx context.Context, autor string) ([]domain.Template, error)
    DeleteTemplate(ctx context.Context, id int64, autor string) error
    ListIssues(ctx context.Context, autor string) ([]domain.IssueSummary, domain.FetchMeta, error)
    ValidateIssue(ctx context.Context, key string) *domain.IssueLookup
    IssueDetails(ctx context.Context, key string) *domain.IssueDetail
    Subtasks(ctx context.Context, autor, parentKey string) []domain.IssueSummary
    MetaAppTasks(ctx context.Context, autor string) ([]domain.MetaAppTask, error)
    Chat(ctx context.Context, req openai.ChatRequest) (*openaigo.ChatCompletion, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// FrontendConfig hands the browser its runtime settings. The OpenAI key never
// appears here, the UI talks to the chat proxy instead.
func (h *Handlers) FrontendConfig(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{
        "whisper": gin.H{
            "apiUrl":           h.cfg.WhisperAPIURL,
            "language":         h.cfg.WhisperLanguage,
            "prompt":           h.cfg.WhisperPrompt,
            "temperature":      h.cfg.WhisperTemperature,
            "maxRecordingTime": h.cfg.WhisperMaxRecordingTime,
        },
        "openai": gin.H{
            "apiUrl":        "/api/openai/chat",
            "model":         h.cfg.OpenAIModel,
            "maxTokens":     h.cfg.OpenAIMaxTokens,
            "temperature":   h.cfg.OpenAITemperature,
            "defaultPrompt": h.cfg.OpenAIDefaultPrompt,
        },
    })
}

type timeEntryRequest struct {
    Uloha     string  `json:"uloha"`
    Autor     string  `json:"autor"`
    Datum     string  `json:"datum"`
    Hodiny    int     `json:"hodiny"`
    Minuty    int     `json:"minuty"`
    Jira      *string `json:"jira"`
    Popis     *string `json:"popis"`
    JiraName  *string `json:"jira_name"`
    UlohaName *string `json:"uloha_name"`
}

func (r timeEntryRequest) toDomain() (domain.TimeEntry, error) {
    datum, err := time.Parse("2006-01-02", r.Datum)
    if err != nil { return domain.TimeEntry{}, err }
    return domain.TimeEntry{
        Uloha: r.Uloha, Autor: r.Autor, Datum: datum,
        Hodiny: r.Hodiny, Minuty: r.Minuty,
        Jira: r.Jira, Popis: r.Popis,
        JiraName: r.JiraName, UlohaName: r.UlohaName,
    }, nil
}

func (h *Handlers) writeErr(c *gin.Context, err error) {
    var se *metaapp.SubmitError
    switch {
    case errors.Is(err, services.ErrInvalid):
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    case errors.Is(err, repo.ErrNotFound):
        c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
    case errors.Is(err, services.ErrCRMUnavailable):
        c.JSON(http.StatusServiceUnavailable, gin.H{"error": "crm database not configured"})
    case errors.As(err, &se):
        c.JSON(http.StatusBadRequest, gin.H{"error": "MetaApp Error: " + se.Reason})
    default:
        h.log.Error().Err(err).Str("p", c.FullPath()).Msg("request failed")
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    }
}

func (h *Handlers) CreateTimeEntry(c *gin.Context) {
    var req timeEntryRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    e, err := req.toDomain()
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid datum, expected YYYY-MM-DD"})
        return
    }
    out, err := h.svc.CreateTimeEntry(c.Request.Context(), e)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) ListTimeEntries(c *gin.Context) {
    parseDate := func(name string) (*time.Time, bool) {
        raw := c.Query(name)
        if raw == "" { return nil, true }
        t, err := time.Parse("2006-01-02", raw)
        if err != nil { return nil, false }
        return &t, true
    }
    from, ok := parseDate("from")
    if !ok {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
        return
    }
    to, ok := parseDate("to")
    if !ok {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
        return
    }
    out, err := h.svc.ListTimeEntries(c.Request.Context(), from, to)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, out)
}

func pathID(c *gin.Context) (int64, bool) {
    id, err := strconv.ParseInt(c.Param("id"), 10, 64)
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
        return 0, false
    }
    return id, true
}

func (h *Handlers) UpdateTimeEntry(c *gin.Context) {
    id, ok := pathID(c)
    if !ok { return }
    var req timeEntryRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    e, err := req.toDomain()
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid datum, expected YYYY-MM-DD"})
        return
    }
    e.ID = id
    out, err := h.svc.UpdateTimeEntry(c.Request.Context(), e)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteTimeEntry(c *gin.Context) {
    id, ok := pathID(c)
    if !ok { return }
    if err := h.svc.DeleteTimeEntry(c.Request.Context(), id); err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) SubmitToMetaApp(c *gin.Context) {
    id, ok := pathID(c)
    if !ok { return }
    out, err := h.svc.SubmitToMetaApp(c.Request.Context(), id)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) ImportFromMetaApp(c *gin.Context) {
    var req struct {
        Autor string `json:"autor"`
    }
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    res, err := h.svc.ImportFromMetaApp(c.Request.Context(), req.Autor)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, res)
}

func (h *Handlers) CreateTemplate(c *gin.Context) {
    var t domain.Template
    if err := c.ShouldBindJSON(&t); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    out, err := h.svc.CreateTemplate(c.Request.Context(), t)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) ListTemplates(c *gin.Context) {
    autor := c.Query("autor")
    if autor == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "autor je povinný"})
        return
    }
    out, err := h.svc.ListTemplates(c.Request.Context(), autor)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteTemplate(c *gin.Context) {
    id, ok := pathID(c)
    if !ok { return }
    autor := c.Query("autor")
    if autor == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "autor je povinný"})
        return
    }
    if err := h.svc.DeleteTemplate(c.Request.Context(), id, autor); err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) JiraIssues(c *gin.Context) {
    autor := c.Query("autor")
    issues, meta, err := h.svc.ListIssues(c.Request.Context(), autor)
    if err != nil { h.writeErr(c, err); return }
    c.Header("X-Fetch-Source", meta.Source)
    c.JSON(http.StatusOK, issues)
}

func (h *Handlers) JiraSubtasks(c *gin.Context) {
    autor := c.Query("autor")
    parent := c.Query("parent")
    if autor == "" || parent == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "autor and parent are required"})
        return
    }
    c.JSON(http.StatusOK, h.svc.Subtasks(c.Request.Context(), autor, parent))
}

func (h *Handlers) ValidateJira(c *gin.Context) {
    key := c.Query("key")
    if key == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
        return
    }
    issue := h.svc.ValidateIssue(c.Request.Context(), key)
    c.JSON(http.StatusOK, gin.H{"valid": issue != nil, "issue": issue})
}

func (h *Handlers) JiraIssueDetails(c *gin.Context) {
    key := c.Param("key")
    detail := h.svc.IssueDetails(c.Request.Context(), key)
    if detail == nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "issue " + key + " not found or error occurred"})
        return
    }
    c.JSON(http.StatusOK, detail)
}

func (h *Handlers) MetaAppTasks(c *gin.Context) {
    autor := c.Query("autor")
    if autor == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "autor je povinný"})
        return
    }
    tasks, err := h.svc.MetaAppTasks(c.Request.Context(), autor)
    if err != nil { h.writeErr(c, err); return }
    c.JSON(http.StatusOK, tasks)
}

func (h *Handlers) OpenAIChat(c *gin.Context) {
    var req openai.ChatRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    resp, err := h.svc.Chat(c.Request.Context(), req)
    if err != nil {
        if errors.Is(err, openai.ErrNotConfigured) {
            c.JSON(http.StatusInternalServerError, gin.H{"error": "OpenAI API key not configured"})
            return
        }
        h.writeErr(c, err)
        return
    }
    c.JSON(http.StatusOK, resp)
}
