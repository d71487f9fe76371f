package jira

import (
    "context"
    "strings"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

// ResolveColor looks up the epic color for a parent key. Results, including
// "no color", are memoized for the process lifetime in a bounded LRU so the
// chain never re-fetches a parent it has already seen. Transport errors are
// not cached, so a flaky upstream gets retried on the next call.
func (c *Client) ResolveColor(ctx context.Context, key string) *string {
    if key == "" { return nil }
    if v, ok := c.colors.Get(key); ok { return v }
    res, err := c.getIssue(ctx, key, fieldEpicColor+",epic_color", "")
    if err != nil {
        if isTransport(err) {
            c.log.Debug().Err(err).Str("key", key).Msg("jira epic color fetch failed")
            return nil
        }
        c.colors.Add(key, nil)
        return nil
    }
    var color *string
    if fields := toMap(res["fields"]); fields != nil {
        if s := toStr(fields[fieldEpicColor]); s != "" {
            color = &s
        } else if s := toStr(fields["epic_color"]); s != "" {
            color = &s
        }
    }
    c.colors.Add(key, color)
    return color
}

// isReview reports whether a summary marks the issue as a review of another
// issue. Review issues are grouped under their grandparent, because their
// direct parent is the reviewed ticket itself.
func isReview(summary string) bool {
    return strings.HasPrefix(strings.ToLower(strings.TrimSpace(summary)), "review")
}

// reparent applies the review rule to a provisional parent. The returned error
// is non-nil only when the grandparent lookup itself failed; callers decide
// whether that degrades to the provisional parent (listing) or invalidates the
// record (detail lookup).
func (c *Client) reparent(ctx context.Context, summary string, prov *domain.ParentInfo) (domain.ParentOutcome, error) {
    if prov == nil {
        return domain.ParentOutcome{State: domain.ParentNone}, nil
    }
    if !isReview(summary) {
        return domain.ParentOutcome{State: domain.ParentResolved, Parent: prov}, nil
    }
    res, err := c.getIssue(ctx, prov.Key, issueFields, "")
    if err != nil {
        return domain.ParentOutcome{State: domain.ParentUnknown}, err
    }
    fields := toMap(res["fields"])
    if fields == nil {
        return domain.ParentOutcome{State: domain.ParentUnknown}, nil
    }
    if gp := decodeParent(fields["parent"]); gp != nil {
        return domain.ParentOutcome{State: domain.ParentResolved, Parent: gp}, nil
    }
    if gp := decodeEpicLink(fields[fieldEpicLink]); gp != nil {
        return domain.ParentOutcome{State: domain.ParentResolved, Parent: gp}, nil
    }
    if gp := decodeEpicLink(fields[fieldEpicLink2]); gp != nil {
        return domain.ParentOutcome{State: domain.ParentResolved, Parent: gp}, nil
    }
    // parent confirmed to have no parent of its own: the review issue has no grouping
    return domain.ParentOutcome{State: domain.ParentNone}, nil
}

// applyParent copies a resolved parent onto the summary record and enriches
// the color. Parent summary and color stay nil unless the key is set.
func (c *Client) applyParent(ctx context.Context, is *domain.IssueSummary, out domain.ParentOutcome) {
    if out.State != domain.ParentResolved || out.Parent == nil { return }
    key := out.Parent.Key
    is.ParentKey = &key
    is.ParentSummary = strPtr(out.Parent.Summary)
    is.ParentColor = c.ResolveColor(ctx, key)
}

// ResolveIssueDetails fetches one issue and builds the full canonical record:
// summary, reparented grouping parent, parent color and sprint name. Any
// remote failure yields nil rather than a partially resolved record; only a
// color lookup failure degrades to a nil color.
func (c *Client) ResolveIssueDetails(ctx context.Context, key string) *domain.IssueSummary {
    if key == "" { return nil }
    res, err := c.getIssue(ctx, key, issueFields, "")
    if err != nil {
        c.log.Debug().Err(err).Str("key", key).Msg("jira issue details fetch failed")
        return nil
    }
    fields := toMap(res["fields"])
    if fields == nil { return nil }
    summary := toStr(fields["summary"])
    out, perr := c.reparent(ctx, summary, provisionalParent(fields))
    if perr != nil {
        c.log.Debug().Err(perr).Str("key", key).Msg("jira grandparent lookup failed")
        return nil
    }
    k := toStr(res["key"])
    if k == "" { k = key }
    is := domain.IssueSummary{Key: k, Summary: summary, SprintName: decodeSprintName(fields[fieldSprint])}
    c.applyParent(ctx, &is, out)
    return &is
}

// ResolveParent answers only the grouping question for a key, with the
// explicit three-state outcome.
func (c *Client) ResolveParent(ctx context.Context, key string) domain.ParentOutcome {
    if key == "" { return domain.ParentOutcome{State: domain.ParentUnknown} }
    res, err := c.getIssue(ctx, key, issueFields, "")
    if err != nil {
        c.log.Debug().Err(err).Str("key", key).Msg("jira parent lookup failed")
        return domain.ParentOutcome{State: domain.ParentUnknown}
    }
    fields := toMap(res["fields"])
    if fields == nil { return domain.ParentOutcome{State: domain.ParentUnknown} }
    out, perr := c.reparent(ctx, toStr(fields["summary"]), provisionalParent(fields))
    if perr != nil { return domain.ParentOutcome{State: domain.ParentUnknown} }
    return out
}
