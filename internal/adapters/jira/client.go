package jira

import (
    "bytes"
    "context"
    "encoding/base64"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    lru "github.com/hashicorp/golang-lru/v2"
    "github.com/rs/zerolog"

    "github.com/michal-palko/smart-claimer/internal/config"
)

// Custom field ids on our JIRA site. The sprint and epic-link fields are
// polymorphic: sprint arrives as a list of objects or of "name=...," strings,
// epic link as a bare key or an object.
const (
    fieldSprint    = "customfield_10020"
    fieldEpicLink  = "customfield_10014"
    fieldEpicLink2 = "customfield_10008"
    fieldEpicColor = "customfield_10011"
)

const issueFields = "summary,parent," + fieldSprint + "," + fieldEpicLink + "," + fieldEpicLink2

// Some JIRA instances reject requests without a browser-looking UA.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const colorCacheSize = 128

type Client struct {
    baseURL       string
    user          string
    token         string
    maxResults    int
    workers       int
    chainDeadline time.Duration
    http          *http.Client
    log           zerolog.Logger
    colors        *lru.Cache[string, *string]
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    colors, _ := lru.New[string, *string](colorCacheSize)
    return &Client{
        baseURL:       strings.TrimRight(cfg.JiraBaseURL, "/"),
        user:          cfg.JiraUser,
        token:         cfg.JiraToken,
        maxResults:    cfg.JiraMaxResults,
        workers:       cfg.WorkersJira,
        chainDeadline: cfg.ChainDeadline,
        http:          &http.Client{Timeout: cfg.HTTPTimeout},
        log:           log,
        colors:        colors,
    }
}

// headers builds the static credential headers sent with every request.
func (c *Client) headers() http.Header {
    h := http.Header{}
    h.Set("Accept", "application/json")
    h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.user+":"+c.token)))
    h.Set("User-Agent", browserUA)
    return h
}

// apiError carries the upstream HTTP status so callers can tell a 404 from a
// 410 deprecation signal.
type apiError struct {
    Status int
    Body   string
}

func (e *apiError) Error() string { return fmt.Sprintf("jira api status=%d body=%s", e.Status, e.Body) }

func isStatus(err error, code int) bool {
    var ae *apiError
    return errors.As(err, &ae) && ae.Status == code
}

func isTransport(err error) bool {
    var ae *apiError
    return err != nil && !errors.As(err, &ae)
}

func (c *Client) apiURL(path string, q url.Values) string {
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := c.baseURL + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any) (map[string]any, error) {
    if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
    var r io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return nil, err }
        r = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, method, u, r)
    if err != nil { return nil, err }
    req.Header = c.headers()
    if body != nil { req.Header.Set("Content-Type", "application/json") }
    resp, err := c.http.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
        return nil, &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
    }
    var out map[string]any
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, err }
    return out, nil
}

// getIssue is the single-issue point lookup with field selection.
func (c *Client) getIssue(ctx context.Context, key, fields, expand string) (map[string]any, error) {
    if key == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    if fields != "" { q.Set("fields", fields) }
    if expand != "" { q.Set("expand", expand) }
    return c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/3/issue/"+url.PathEscape(key), q), nil)
}

// searchV3 runs a structured JQL search against the modern endpoint (POST).
func (c *Client) searchV3(ctx context.Context, jql string, fields []string, max int) (map[string]any, error) {
    if jql == "" { return nil, errors.New("jira: empty jql") }
    body := map[string]any{"jql": jql, "fields": fields, "maxResults": max}
    return c.doJSON(ctx, http.MethodPost, c.apiURL("/rest/api/3/search", nil), body)
}

// searchV2 runs a JQL search against the older GET endpoint; simpler schema,
// last-resort fidelity.
func (c *Client) searchV2(ctx context.Context, jql, fields string, max int) (map[string]any, error) {
    if jql == "" { return nil, errors.New("jira: empty jql") }
    q := url.Values{}
    q.Set("jql", jql)
    q.Set("fields", fields)
    q.Set("maxResults", fmt.Sprint(max))
    return c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/2/search", q), nil)
}

// pickerSearch hits the free-text issue picker. Degraded shape (key plus
// summary text only) but it keeps answering when the search endpoints flake.
func (c *Client) pickerSearch(ctx context.Context, currentJQL, query string) (map[string]any, error) {
    q := url.Values{}
    q.Set("currentJQL", currentJQL)
    q.Set("query", query)
    q.Set("showSubTasks", "true")
    return c.doJSON(ctx, http.MethodGet, c.apiURL("/rest/api/2/issue/picker", q), nil)
}
