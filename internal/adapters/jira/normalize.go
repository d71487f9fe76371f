package jira

import (
    "regexp"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

func toStr(v any) string {
    s, _ := v.(string)
    return s
}

func toMap(v any) map[string]any {
    m, _ := v.(map[string]any)
    return m
}

func toList(v any) []any {
    l, _ := v.([]any)
    return l
}

func strPtr(s string) *string {
    if s == "" { return nil }
    return &s
}

// decodeParent reads a structural parent field: {"key": ..., "fields": {"summary": ...}}.
func decodeParent(v any) *domain.ParentInfo {
    m := toMap(v)
    if m == nil { return nil }
    key := toStr(m["key"])
    if key == "" { return nil }
    p := &domain.ParentInfo{Key: key}
    if f := toMap(m["fields"]); f != nil { p.Summary = toStr(f["summary"]) }
    return p
}

// decodeEpicLink reads an epic-link custom field, which arrives either as a
// bare key string or as an object depending on which endpoint answered.
func decodeEpicLink(v any) *domain.ParentInfo {
    switch t := v.(type) {
    case string:
        if t == "" { return nil }
        return &domain.ParentInfo{Key: t}
    case map[string]any:
        key := toStr(t["key"])
        if key == "" { return nil }
        p := &domain.ParentInfo{Key: key, Summary: toStr(t["summary"])}
        if p.Summary == "" {
            if f := toMap(t["fields"]); f != nil { p.Summary = toStr(f["summary"]) }
        }
        return p
    }
    return nil
}

// provisionalParent picks the grouping parent before the review rule is
// applied: structural parent first, then either epic-link field.
func provisionalParent(fields map[string]any) *domain.ParentInfo {
    if p := decodeParent(fields["parent"]); p != nil { return p }
    if p := decodeEpicLink(fields[fieldEpicLink]); p != nil { return p }
    return decodeEpicLink(fields[fieldEpicLink2])
}

var sprintNameRe = regexp.MustCompile(`name=([^,]+)`)

// decodeSprintName extracts the display name of the most recently assigned
// sprint (the last descriptor). Descriptors are objects with a name, or
// semi-structured "...,name=<value>,..." strings.
func decodeSprintName(v any) *string {
    list := toList(v)
    if len(list) == 0 { return nil }
    switch d := list[len(list)-1].(type) {
    case map[string]any:
        if s := toStr(d["name"]); s != "" { return &s }
    case string:
        if m := sprintNameRe.FindStringSubmatch(d); m != nil { return &m[1] }
    }
    return nil
}

// normalizePickerIssues flattens a picker response
// ({"sections":[{"issues":[{"key":...,"summaryText":...}]}]}) into basic
// summaries, deduplicated across sections, upstream order preserved.
func normalizePickerIssues(res map[string]any) []domain.IssueSummary {
    var out []domain.IssueSummary
    seen := map[string]struct{}{}
    for _, s0 := range toList(res["sections"]) {
        sec := toMap(s0)
        if sec == nil { continue }
        for _, i0 := range toList(sec["issues"]) {
            im := toMap(i0)
            if im == nil { continue }
            key := toStr(im["key"])
            if key == "" { continue }
            if _, ok := seen[key]; ok { continue }
            seen[key] = struct{}{}
            summary := toStr(im["summaryText"])
            if summary == "" { summary = toStr(im["summary"]) }
            out = append(out, domain.IssueSummary{Key: key, Summary: summary})
        }
    }
    return out
}

// normalizeV2Issues converts a v2 search response to key+summary records,
// skipping malformed entries rather than aborting the batch.
func normalizeV2Issues(res map[string]any) []domain.IssueSummary {
    var out []domain.IssueSummary
    for _, i0 := range toList(res["issues"]) {
        im := toMap(i0)
        if im == nil { continue }
        key := toStr(im["key"])
        if key == "" { continue }
        summary := ""
        if f := toMap(im["fields"]); f != nil { summary = toStr(f["summary"]) }
        out = append(out, domain.IssueSummary{Key: key, Summary: summary})
    }
    return out
}
