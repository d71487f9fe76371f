package jira

import (
    "context"
    "fmt"
    "sort"
    "strings"
    "sync"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

// authorJQL is the shared listing query: issues in an open or future sprint,
// backlog items still attached to a sprint, not-yet-done review items, or
// anything touched in the last week, all scoped to the assignee.
func authorJQL(author string) string {
    a := escapeJQL(author)
    return fmt.Sprintf("assignee = '%s' AND (sprint in openSprints() OR sprint in futureSprints() OR (summary ~ 'Review' AND statusCategory != Done) OR updated >= -7d)", a)
}

func escapeJQL(s string) string {
    return strings.ReplaceAll(s, "'", "\\'")
}

type strategyResult struct {
    issues []domain.IssueSummary
    total  *int
}

// listStrategy is one independent way to answer "issues for this author".
// Implementations normalize their own response shape; the chain driver is
// generic over them.
type listStrategy interface {
    name() string
    attempt(ctx context.Context, author string) (strategyResult, error)
}

func (c *Client) strategies() []listStrategy {
    return []listStrategy{searchV3Strategy{c}, pickerStrategy{c}, searchV2Strategy{c}}
}

// ListIssuesForAuthor runs the strategy chain in priority order and returns
// the first non-empty success together with diagnostic metadata. A strategy
// error or an empty result both move the chain on; if everything fails the
// result is an empty list, never an error. A deadline spans the whole chain
// so a hung upstream cannot stall the caller.
func (c *Client) ListIssuesForAuthor(ctx context.Context, author string) ([]domain.IssueSummary, domain.FetchMeta) {
    ctx, cancel := context.WithTimeout(ctx, c.chainDeadline)
    defer cancel()
    meta := domain.FetchMeta{Requested: c.maxResults}
    for _, st := range c.strategies() {
        res, err := st.attempt(ctx, author)
        if err != nil {
            c.log.Warn().Err(err).Str("strategy", st.name()).Str("autor", author).Msg("jira list strategy failed")
            meta.Attempts = append(meta.Attempts, domain.StrategyAttempt{Strategy: st.name(), Outcome: "error", Err: err.Error()})
            continue
        }
        if len(res.issues) == 0 {
            // zero hits from a reachable endpoint is not trusted as "no issues"
            meta.Attempts = append(meta.Attempts, domain.StrategyAttempt{Strategy: st.name(), Outcome: "empty"})
            continue
        }
        meta.Attempts = append(meta.Attempts, domain.StrategyAttempt{Strategy: st.name(), Outcome: "ok", Count: len(res.issues)})
        meta.Source = st.name()
        meta.Returned = len(res.issues)
        meta.UpstreamTotal = res.total
        return res.issues, meta
    }
    meta.Note = "all strategies failed or returned no issues"
    return []domain.IssueSummary{}, meta
}

// searchV3Strategy: richest shape. One structured search, parent and sprint
// fields inline, reparenting and color applied per record. Results sorted
// ascending by key.
type searchV3Strategy struct{ c *Client }

func (s searchV3Strategy) name() string { return "search-v3" }

func (s searchV3Strategy) attempt(ctx context.Context, author string) (strategyResult, error) {
    fields := []string{"key", "summary", "parent", fieldSprint, fieldEpicLink, fieldEpicLink2}
    res, err := s.c.searchV3(ctx, authorJQL(author), fields, s.c.maxResults)
    if err != nil { return strategyResult{}, err }
    var total *int
    if t, ok := res["total"].(float64); ok {
        v := int(t)
        total = &v
    }
    var out []domain.IssueSummary
    for _, i0 := range toList(res["issues"]) {
        im := toMap(i0)
        if im == nil { continue }
        key := toStr(im["key"])
        f := toMap(im["fields"])
        if key == "" || f == nil { continue }
        summary := toStr(f["summary"])
        parent, perr := s.c.reparent(ctx, summary, provisionalParent(f))
        if perr != nil {
            // grandparent lookup failed mid-listing: degrade to the direct parent
            if p := provisionalParent(f); p != nil {
                parent = domain.ParentOutcome{State: domain.ParentResolved, Parent: p}
            }
        }
        is := domain.IssueSummary{Key: key, Summary: summary, SprintName: decodeSprintName(f[fieldSprint])}
        s.c.applyParent(ctx, &is, parent)
        out = append(out, is)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
    return strategyResult{issues: out, total: total}, nil
}

// pickerStrategy: degraded shape (key + summary text only), recovered by a
// per-issue detail fetch. Enrichment fans out over a bounded worker pool;
// slots are index-addressed so upstream order is preserved.
type pickerStrategy struct{ c *Client }

func (s pickerStrategy) name() string { return "picker" }

func (s pickerStrategy) attempt(ctx context.Context, author string) (strategyResult, error) {
    res, err := s.c.pickerSearch(ctx, authorJQL(author), "")
    if err != nil { return strategyResult{}, err }
    basics := normalizePickerIssues(res)
    if len(basics) > s.c.maxResults { basics = basics[:s.c.maxResults] }
    if len(basics) == 0 { return strategyResult{}, nil }
    out := make([]domain.IssueSummary, len(basics))
    workers := s.c.workers
    if workers <= 0 { workers = 1 }
    idx := make(chan int)
    var wg sync.WaitGroup
    for w := 0; w < workers; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for i := range idx {
                if d := s.c.ResolveIssueDetails(ctx, basics[i].Key); d != nil {
                    out[i] = *d
                } else {
                    out[i] = basics[i]
                }
            }
        }()
    }
    for i := range basics { idx <- i }
    close(idx)
    wg.Wait()
    return strategyResult{issues: out}, nil
}

// searchV2Strategy: last resort, minimal fidelity (key + summary, no parent
// or sprint), sorted by the server.
type searchV2Strategy struct{ c *Client }

func (s searchV2Strategy) name() string { return "search-v2" }

func (s searchV2Strategy) attempt(ctx context.Context, author string) (strategyResult, error) {
    res, err := s.c.searchV2(ctx, authorJQL(author)+" ORDER BY key ASC", "key,summary", s.c.maxResults)
    if err != nil { return strategyResult{}, err }
    var total *int
    if t, ok := res["total"].(float64); ok {
        v := int(t)
        total = &v
    }
    return strategyResult{issues: normalizeV2Issues(res), total: total}, nil
}
