package jira

import (
    "context"
    "fmt"
    "net/http"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

// FetchIssueByKey resolves a single issue by exact key, bypassing the search
// endpoints entirely (they are unreliable for exact-key lookups). Returns nil
// on 404, transport failure or a malformed response. The parent state is
// explicit: "none" means the issue is confirmed to have no grouping parent,
// "unknown" means the reparenting lookup itself failed.
func (c *Client) FetchIssueByKey(ctx context.Context, key string) *domain.IssueLookup {
    if key == "" { return nil }
    res, err := c.getIssue(ctx, key, issueFields, "")
    if err != nil {
        if isStatus(err, http.StatusNotFound) {
            c.log.Debug().Str("key", key).Msg("jira issue not found")
        } else {
            c.log.Warn().Err(err).Str("key", key).Msg("jira issue lookup failed")
        }
        return nil
    }
    fields := toMap(res["fields"])
    if fields == nil { return nil }
    summary := toStr(fields["summary"])
    k := toStr(res["key"])
    if k == "" { k = key }
    lk := &domain.IssueLookup{
        IssueSummary: domain.IssueSummary{Key: k, Summary: summary, SprintName: decodeSprintName(fields[fieldSprint])},
    }
    parent, perr := c.reparent(ctx, summary, provisionalParent(fields))
    lk.ParentState = parent.State
    if perr != nil { lk.ParentState = domain.ParentUnknown }
    c.applyParent(ctx, &lk.IssueSummary, parent)
    return lk
}

// FetchSubtasksForParent lists the author's issues grouped under parentKey,
// matching both direct children and review-workflow grandchildren. The picker
// is tried first; a 410 deprecation signal falls back to a structured search.
// Never returns an error: total failure yields an empty list.
func (c *Client) FetchSubtasksForParent(ctx context.Context, author, parentKey string) []domain.IssueSummary {
    if parentKey == "" { return []domain.IssueSummary{} }
    p := escapeJQL(parentKey)
    jql := fmt.Sprintf("assignee = '%s' AND (parent = '%s' OR parentEpic = '%s')", escapeJQL(author), p, p)
    res, err := c.pickerSearch(ctx, jql, "")
    if err == nil {
        if out := normalizePickerIssues(res); out != nil { return out }
        return []domain.IssueSummary{}
    }
    if !isStatus(err, http.StatusGone) {
        c.log.Warn().Err(err).Str("parent", parentKey).Msg("jira subtask picker failed")
        return []domain.IssueSummary{}
    }
    c.log.Info().Str("parent", parentKey).Msg("jira issue picker gone, falling back to search")
    res, err = c.searchV2(ctx, jql+" ORDER BY key ASC", "key,summary", c.maxResults)
    if err != nil {
        c.log.Warn().Err(err).Str("parent", parentKey).Msg("jira subtask search failed")
        return []domain.IssueSummary{}
    }
    if out := normalizeV2Issues(res); out != nil { return out }
    return []domain.IssueSummary{}
}
