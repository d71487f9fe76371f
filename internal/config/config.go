package config

import (
    "errors"
    "fmt"
    "log"
    "net/url"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string

    DBDSN      string
    MetaAppDSN string

    JiraBaseURL    string
    JiraUser       string
    JiraToken      string
    JiraMaxResults int

    HTTPTimeout   time.Duration
    ChainDeadline time.Duration
    WorkersJira   int

    OpenAIKey           string
    OpenAIModel         string
    OpenAIMaxTokens     int
    OpenAITemperature   float64
    OpenAIDefaultPrompt string
    OpenAITimeout       time.Duration

    WhisperAPIURL           string
    WhisperLanguage         string
    WhisperPrompt           string
    WhisperTemperature      float64
    WhisperMaxRecordingTime int

    ImportCron   string
    ImportLogins []string
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func atof(key string, def float64) float64 {
    v := os.Getenv(key)
    if v == "" { return def }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil { return def }
    return f
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func parseStrings(csv string) []string {
    if csv == "" { return nil }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        out = append(out, p)
    }
    return out
}

func Load() Config {
    // optional .env for local runs
    _ = godotenv.Load()

    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "Europe/Bratislava"),
        HTTPAddr: getenv("HTTP_ADDR", ":8000"),

        DBDSN:      getenv("DB_DSN", ""),
        MetaAppDSN: getenv("METAAPP_DB_DSN", ""),

        JiraBaseURL:    strings.TrimRight(getenv("JIRA_URL", ""), "/"),
        JiraUser:       getenv("JIRA_USER", ""),
        JiraToken:      getenv("JIRA_TOKEN", ""),
        JiraMaxResults: atoi("JIRA_MAX_RESULTS", 100),

        HTTPTimeout:   dur("HTTP_TIMEOUT", 15*time.Second),
        ChainDeadline: dur("JIRA_CHAIN_DEADLINE", 45*time.Second),
        WorkersJira:   atoi("WORKERS_JIRA", 6),

        OpenAIKey:           getenv("OPENAI_API_KEY", ""),
        OpenAIModel:         getenv("OPENAI_MODEL", "gpt-4o-mini"),
        OpenAIMaxTokens:     atoi("OPENAI_MAX_TOKENS", 500),
        OpenAITemperature:   atof("OPENAI_TEMPERATURE", 0.7),
        OpenAIDefaultPrompt: getenv("OPENAI_DEFAULT_PROMPT", "Pomôž mi napísať lepší popis práce na základe poskytnutých informácií o JIRA úlohe a aktuálneho popisu. Buď konkrétny a technický."),
        OpenAITimeout:       dur("OPENAI_TIMEOUT", 30*time.Second),

        WhisperAPIURL:           getenv("WHISPER_API_URL", "http://whisper-api:3001/transcribe"),
        WhisperLanguage:         getenv("WHISPER_LANGUAGE", "sk"),
        WhisperPrompt:           getenv("WHISPER_PROMPT", "Popis práce, technické úlohy, programovanie v softverovej a datovej firme."),
        WhisperTemperature:      atof("WHISPER_TEMPERATURE", 0.2),
        WhisperMaxRecordingTime: atoi("WHISPER_MAX_RECORDING_TIME", 300),

        ImportCron:   getenv("IMPORT_CRON", ""),
        ImportLogins: parseStrings(getenv("IMPORT_LOGINS", "")),
    }

    if cfg.DBDSN == "" {
        cfg.DBDSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
            getenv("POSTGRES_USER", "postgres"),
            url.QueryEscape(getenv("POSTGRES_PASSWORD", "postgres")),
            getenv("POSTGRES_HOST", "db"),
            getenv("POSTGRES_PORT", "5432"),
            getenv("POSTGRES_DB", "postgres"))
    }
    // MetaApp connection is optional; assembled only when a host is configured
    if cfg.MetaAppDSN == "" && os.Getenv("METAAPP_DB_HOST") != "" {
        cfg.MetaAppDSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
            getenv("METAAPP_DB_USER", ""),
            url.QueryEscape(getenv("METAAPP_DB_PASSWORD", "")),
            getenv("METAAPP_DB_HOST", ""),
            getenv("METAAPP_DB_PORT", "5432"),
            getenv("METAAPP_DB_NAME", ""))
    }

    if loc, err := time.LoadLocation(cfg.TZ); err == nil {
        time.Local = loc
    } else {
        log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
    }
    return cfg
}

// ValidateJira enforces the startup precondition: there is no degraded mode
// without tracker credentials.
func (c Config) ValidateJira() error {
    if c.JiraBaseURL == "" || c.JiraUser == "" || c.JiraToken == "" {
        return errors.New("missing required JIRA credentials (JIRA_URL, JIRA_USER, JIRA_TOKEN)")
    }
    return nil
}
