package jira

import (
    "context"
    "net/http"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

// site is a configurable fake for all four endpoints the chain touches.
type site struct {
    searchV3 http.HandlerFunc
    searchV2 http.HandlerFunc
    picker   http.HandlerFunc
    issue    http.Handler
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
    switch {
    case r.URL.Path == "/rest/api/3/search":
        s.handle(w, r, s.searchV3)
    case r.URL.Path == "/rest/api/2/search":
        s.handle(w, r, s.searchV2)
    case r.URL.Path == "/rest/api/2/issue/picker":
        s.handle(w, r, s.picker)
    case strings.HasPrefix(r.URL.Path, "/rest/api/3/issue/"):
        if s.issue == nil {
            http.NotFound(w, r)
            return
        }
        s.issue.ServeHTTP(w, r)
    default:
        http.NotFound(w, r)
    }
}

func (s *site) handle(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
    if h == nil {
        http.Error(w, "unexpected call", http.StatusInternalServerError)
        return
    }
    h(w, r)
}

func serve(v any) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) { _ = writeBody(w, v) }
}

func fail(code int) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) { http.Error(w, "nope", code) }
}

func Test_ListIssuesForAuthor_V3Success(t *testing.T) {
    t.Parallel()
    v3 := map[string]any{
        "total": 2.0,
        "issues": []any{
            map[string]any{"key": "AB-2", "fields": map[string]any{
                "summary":   "second",
                fieldSprint: []any{map[string]any{"name": "Sprint 8"}},
            }},
            map[string]any{"key": "AB-1", "fields": map[string]any{
                "summary": "first",
                "parent":  map[string]any{"key": "EPIC-9", "fields": map[string]any{"summary": "Widget epic"}},
            }},
        },
    }
    c := newTestClient(t, &site{
        searchV3: serve(v3),
        issue:    newIssueServer(map[string]map[string]any{"EPIC-9": {"key": "EPIC-9", "fields": map[string]any{fieldEpicColor: "purple"}}}),
    })
    issues, meta := c.ListIssuesForAuthor(context.Background(), "bob")
    require.Len(t, issues, 2)
    // ascending key order regardless of upstream order
    assert.Equal(t, "AB-1", issues[0].Key)
    assert.Equal(t, "AB-2", issues[1].Key)
    require.NotNil(t, issues[0].ParentKey)
    assert.Equal(t, "EPIC-9", *issues[0].ParentKey)
    require.NotNil(t, issues[0].ParentColor)
    assert.Equal(t, "purple", *issues[0].ParentColor)
    require.NotNil(t, issues[1].SprintName)
    assert.Equal(t, "Sprint 8", *issues[1].SprintName)

    assert.Equal(t, "search-v3", meta.Source)
    assert.Equal(t, 2, meta.Returned)
    require.NotNil(t, meta.UpstreamTotal)
    assert.Equal(t, 2, *meta.UpstreamTotal)
    require.Len(t, meta.Attempts, 1)
    assert.Equal(t, "ok", meta.Attempts[0].Outcome)
}

func Test_ListIssuesForAuthor_FallsThroughToPicker(t *testing.T) {
    t.Parallel()
    picker := map[string]any{"sections": []any{map[string]any{"issues": []any{
        map[string]any{"key": "AB-1", "summaryText": "first"},
    }}}}
    c := newTestClient(t, &site{
        searchV3: fail(http.StatusInternalServerError),
        picker:   serve(picker),
        issue: newIssueServer(map[string]map[string]any{
            "AB-1": {"key": "AB-1", "fields": map[string]any{"summary": "first"}},
        }),
    })
    issues, meta := c.ListIssuesForAuthor(context.Background(), "bob")
    require.Len(t, issues, 1)
    assert.Equal(t, "AB-1", issues[0].Key)
    assert.Equal(t, "picker", meta.Source)
    require.Len(t, meta.Attempts, 2)
    assert.Equal(t, "search-v3", meta.Attempts[0].Strategy)
    assert.Equal(t, "error", meta.Attempts[0].Outcome)
    assert.Equal(t, "ok", meta.Attempts[1].Outcome)
}

func Test_ListIssuesForAuthor_EmptyResultMovesOn(t *testing.T) {
    t.Parallel()
    v2 := map[string]any{"total": 1.0, "issues": []any{
        map[string]any{"key": "AB-1", "fields": map[string]any{"summary": "first"}},
    }}
    c := newTestClient(t, &site{
        searchV3: serve(map[string]any{"issues": []any{}}),
        picker:   serve(map[string]any{"sections": []any{}}),
        searchV2: serve(v2),
    })
    issues, meta := c.ListIssuesForAuthor(context.Background(), "bob")
    require.Len(t, issues, 1)
    assert.Equal(t, "search-v2", meta.Source)
    require.Len(t, meta.Attempts, 3)
    assert.Equal(t, "empty", meta.Attempts[0].Outcome)
    assert.Equal(t, "empty", meta.Attempts[1].Outcome)
}

func Test_ListIssuesForAuthor_AllFailYieldsEmptyList(t *testing.T) {
    t.Parallel()
    c := newTestClient(t, &site{
        searchV3: fail(http.StatusBadGateway),
        picker:   fail(http.StatusGone),
        searchV2: fail(http.StatusServiceUnavailable),
    })
    issues, meta := c.ListIssuesForAuthor(context.Background(), "bob")
    require.NotNil(t, issues)
    assert.Empty(t, issues)
    assert.Empty(t, meta.Source)
    assert.NotEmpty(t, meta.Note)
    require.Len(t, meta.Attempts, 3)
    for _, a := range meta.Attempts { assert.Equal(t, "error", a.Outcome) }
}

func Test_ListIssuesForAuthor_PickerDegradesToBasicRecord(t *testing.T) {
    t.Parallel()
    picker := map[string]any{"sections": []any{map[string]any{"issues": []any{
        map[string]any{"key": "AB-1", "summaryText": "first"},
        map[string]any{"key": "AB-2", "summaryText": "second"},
    }}}}
    // detail fetch only works for AB-1; AB-2 keeps its picker shape
    c := newTestClient(t, &site{
        searchV3: fail(http.StatusInternalServerError),
        picker:   serve(picker),
        issue: newIssueServer(map[string]map[string]any{
            "AB-1": {"key": "AB-1", "fields": map[string]any{
                "summary":   "first enriched",
                fieldSprint: []any{map[string]any{"name": "Sprint 8"}},
            }},
        }),
    })
    issues, meta := c.ListIssuesForAuthor(context.Background(), "bob")
    require.Len(t, issues, 2)
    assert.Equal(t, "picker", meta.Source)
    assert.Equal(t, "first enriched", issues[0].Summary)
    require.NotNil(t, issues[0].SprintName)
    assert.Equal(t, "second", issues[1].Summary)
    assert.Nil(t, issues[1].SprintName)
}

func Test_FetchIssueByKey_NotFound(t *testing.T) {
    t.Parallel()
    c := newTestClient(t, newIssueServer(nil))
    assert.Nil(t, c.FetchIssueByKey(context.Background(), "NOPE-1"))
}

func Test_FetchIssueByKey_MalformedResponse(t *testing.T) {
    t.Parallel()
    c := newTestClient(t, newIssueServer(map[string]map[string]any{
        "AB-1": {"key": "AB-1"}, // no fields
    }))
    assert.Nil(t, c.FetchIssueByKey(context.Background(), "AB-1"))
}

func Test_FetchIssueByKey_ParentStates(t *testing.T) {
    t.Parallel()
    issues := reviewFixture()
    issues["LONE-1"] = map[string]any{"key": "LONE-1", "fields": map[string]any{"summary": "standalone"}}
    c := newTestClient(t, newIssueServer(issues))

    lk := c.FetchIssueByKey(context.Background(), "REV-1")
    require.NotNil(t, lk)
    assert.Equal(t, domain.ParentResolved, lk.ParentState)
    require.NotNil(t, lk.ParentKey)
    assert.Equal(t, "EPIC-9", *lk.ParentKey)

    lk = c.FetchIssueByKey(context.Background(), "LONE-1")
    require.NotNil(t, lk)
    assert.Equal(t, domain.ParentNone, lk.ParentState)
    assert.Nil(t, lk.ParentKey)
}

func Test_FetchIssueByKey_GrandparentFailureIsUnknown(t *testing.T) {
    t.Parallel()
    fixture := reviewFixture()
    c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        key := strings.TrimPrefix(r.URL.Path, "/rest/api/3/issue/")
        if key == "TASK-5" {
            http.Error(w, "boom", http.StatusInternalServerError)
            return
        }
        _ = writeBody(w, fixture[key])
    }))
    lk := c.FetchIssueByKey(context.Background(), "REV-1")
    require.NotNil(t, lk)
    assert.Equal(t, domain.ParentUnknown, lk.ParentState)
    assert.Nil(t, lk.ParentKey)
}

func Test_FetchSubtasksForParent_PickerFirst(t *testing.T) {
    t.Parallel()
    picker := map[string]any{"sections": []any{map[string]any{"issues": []any{
        map[string]any{"key": "AB-7", "summaryText": "child"},
    }}}}
    c := newTestClient(t, &site{picker: serve(picker)})
    out := c.FetchSubtasksForParent(context.Background(), "bob", "EPIC-9")
    require.Len(t, out, 1)
    assert.Equal(t, "AB-7", out[0].Key)
}

func Test_FetchSubtasksForParent_GoneFallsBackToSearch(t *testing.T) {
    t.Parallel()
    v2 := map[string]any{"issues": []any{
        map[string]any{"key": "AB-7", "fields": map[string]any{"summary": "child"}},
    }}
    c := newTestClient(t, &site{
        picker:   fail(http.StatusGone),
        searchV2: serve(v2),
    })
    out := c.FetchSubtasksForParent(context.Background(), "bob", "EPIC-9")
    require.Len(t, out, 1)
    assert.Equal(t, "child", out[0].Summary)
}

func Test_FetchSubtasksForParent_NeverErrors(t *testing.T) {
    t.Parallel()
    c := newTestClient(t, &site{
        picker:   fail(http.StatusInternalServerError),
    })
    out := c.FetchSubtasksForParent(context.Background(), "bob", "EPIC-9")
    require.NotNil(t, out)
    assert.Empty(t, out)

    out = c.FetchSubtasksForParent(context.Background(), "bob", "")
    require.NotNil(t, out)
    assert.Empty(t, out)
}

func Test_authorJQL_EscapesQuotes(t *testing.T) {
    t.Parallel()
    jql := authorJQL("o'brien")
    assert.Contains(t, jql, `assignee = 'o\'brien'`)
}
