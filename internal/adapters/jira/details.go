package jira

import (
    "context"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

// GetIssueDetails fetches a display-oriented record for one issue: status,
// priority, and description/comment bodies rendered from the tracker's
// document format. Rendered field variants are preferred over raw ones when
// the server supplies them, matched to comments by id. Returns nil on any
// failure; the HTTP layer maps that to 404.
func (c *Client) GetIssueDetails(ctx context.Context, key string) *domain.IssueDetail {
    if key == "" { return nil }
    res, err := c.getIssue(ctx, key, "summary,status,priority,description,comment", "renderedFields")
    if err != nil {
        c.log.Warn().Err(err).Str("key", key).Msg("jira issue details failed")
        return nil
    }
    fields := toMap(res["fields"])
    if fields == nil { return nil }
    rendered := toMap(res["renderedFields"])

    k := toStr(res["key"])
    if k == "" { k = key }
    d := &domain.IssueDetail{
        Key:      k,
        Summary:  toStr(fields["summary"]),
        Status:   domain.IssueStatus{Name: "Unknown", StatusCategory: map[string]any{}},
        Priority: map[string]any{"name": "Medium", "iconUrl": nil},
        Comments: []domain.IssueComment{},
        BaseURL:  c.baseURL,
    }
    if st := toMap(fields["status"]); st != nil {
        if n := toStr(st["name"]); n != "" { d.Status.Name = n }
        if sc := toMap(st["statusCategory"]); sc != nil { d.Status.StatusCategory = sc }
    }
    if p := toMap(fields["priority"]); p != nil { d.Priority = p }

    desc := rendered["description"]
    if emptyBody(desc) { desc = fields["description"] }
    d.Description = RenderBody(desc)

    // rendered comments may appear as an object wrapping the list or as the list itself
    renderedByID := map[string]map[string]any{}
    if rendered != nil {
        list := toList(rendered["comment"])
        if m := toMap(rendered["comment"]); m != nil { list = toList(m["comments"]) }
        for _, r0 := range list {
            if rm := toMap(r0); rm != nil {
                if id := toStr(rm["id"]); id != "" { renderedByID[id] = rm }
            }
        }
    }
    for _, c0 := range toList(toMap(fields["comment"])["comments"]) {
        cm := toMap(c0)
        if cm == nil { continue }
        id := toStr(cm["id"])
        body := cm["body"]
        if rm := renderedByID[id]; rm != nil && !emptyBody(rm["body"]) { body = rm["body"] }
        author := toMap(cm["author"])
        name := "Unknown"
        var avatar *string
        if author != nil {
            if n := toStr(author["displayName"]); n != "" { name = n }
            if av := toMap(author["avatarUrls"]); av != nil { avatar = strPtr(toStr(av["24x24"])) }
        }
        d.Comments = append(d.Comments, domain.IssueComment{
            ID:      id,
            Body:    RenderBody(body),
            Author:  domain.CommentAuthor{DisplayName: name, AvatarURL: avatar},
            Created: toStr(cm["created"]),
        })
    }
    return d
}

func emptyBody(v any) bool {
    if v == nil { return true }
    if s, ok := v.(string); ok { return s == "" }
    return false
}
