package http

import (
    "net/http"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc any) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })
    // The UI is served from a different origin in every deployment we have.
    r.Use(func(c *gin.Context) {
        c.Header("Access-Control-Allow-Origin", "*")
        c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
        c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
        if c.Request.Method == http.MethodOptions {
            c.AbortWithStatus(http.StatusNoContent)
            return
        }
        c.Next()
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)
    r.GET("/api/config", h.FrontendConfig)

    r.POST("/time-entries", h.CreateTimeEntry)
    r.GET("/time-entries", h.ListTimeEntries)
    r.PUT("/time-entries/:id", h.UpdateTimeEntry)
    r.DELETE("/time-entries/:id", h.DeleteTimeEntry)
    r.POST("/time-entries/:id/submit-to-metaapp", h.SubmitToMetaApp)

    r.POST("/templates", h.CreateTemplate)
    r.GET("/templates", h.ListTemplates)
    r.DELETE("/templates/:id", h.DeleteTemplate)

    r.GET("/jira-issues", h.JiraIssues)
    r.GET("/jira-subtasks", h.JiraSubtasks)
    r.GET("/api/validate-jira", h.ValidateJira)
    r.GET("/jira-issue-details/:key", h.JiraIssueDetails)
    r.GET("/api/jira/:key", h.JiraIssueDetails)

    r.GET("/metaapp-tasks", h.MetaAppTasks)
    r.POST("/import-from-metaapp", h.ImportFromMetaApp)

    r.POST("/api/openai/chat", h.OpenAIChat)

    return r
}
