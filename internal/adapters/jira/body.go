package jira

import (
    "encoding/json"
    "fmt"
    "regexp"
    "sort"
    "strings"
)

// RenderBody converts a JIRA description/comment body into a flat HTML-ish
// string. The input is either a pre-rendered string (markup preserved, text
// between tags normalized) or an Atlassian Document Format tree. Unrecognized
// node and mark types render as bracketed placeholders so no content is ever
// silently dropped.
func RenderBody(v any) string {
    switch b := v.(type) {
    case nil:
        return ""
    case string:
        return renderTagged(b)
    case map[string]any:
        return renderDoc(b)
    default:
        return cleanText(fmt.Sprint(v))
    }
}

// cleanText collapses all whitespace runs (including newlines) to single
// spaces. Blank-only lines vanish as a consequence.
func cleanText(s string) string {
    return strings.Join(strings.Fields(s), " ")
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// renderTagged keeps existing markup verbatim and normalizes only the text
// segments between tags.
func renderTagged(s string) string {
    var b strings.Builder
    last := 0
    for _, loc := range tagRe.FindAllStringIndex(s, -1) {
        b.WriteString(cleanText(s[last:loc[0]]))
        b.WriteString(s[loc[0]:loc[1]])
        last = loc[1]
    }
    b.WriteString(cleanText(s[last:]))
    return b.String()
}

func renderDoc(doc map[string]any) string {
    content, ok := doc["content"].([]any)
    if !ok {
        // malformed document: fail soft with a preformatted diagnostic block
        raw, _ := json.Marshal(doc)
        return "<pre>" + cleanText(string(raw)) + "</pre>"
    }
    var b strings.Builder
    for _, n0 := range content {
        if n := toMap(n0); n != nil { b.WriteString(renderNode(n)) }
    }
    return b.String()
}

func renderChildren(n map[string]any) string {
    var b strings.Builder
    for _, c0 := range toList(n["content"]) {
        if cn := toMap(c0); cn != nil { b.WriteString(renderNode(cn)) }
    }
    return b.String()
}

// stripParagraphs removes paragraph wrappers from list-item and table-cell
// content; those containers carry their own block markup.
func stripParagraphs(s string) string {
    s = strings.ReplaceAll(s, "<p>", "")
    return strings.ReplaceAll(s, "</p>", "")
}

func renderNode(n map[string]any) string {
    typ := toStr(n["type"])
    switch typ {
    case "":
        return ""
    case "text":
        return renderText(n)
    case "paragraph":
        inner := renderChildren(n)
        if strings.TrimSpace(inner) == "" { return "" }
        return "<p>" + inner + "</p>"
    case "bulletList", "orderedList":
        var items []string
        for _, c0 := range toList(n["content"]) {
            it := toMap(c0)
            if it == nil || toStr(it["type"]) != "listItem" { continue }
            inner := stripParagraphs(renderChildren(it))
            if strings.TrimSpace(inner) == "" { continue }
            items = append(items, "<li>"+inner+"</li>")
        }
        if len(items) == 0 { return "" }
        tag := "ul"
        if typ == "orderedList" { tag = "ol" }
        return "<" + tag + ">" + strings.Join(items, "") + "</" + tag + ">"
    case "codeBlock":
        var parts []string
        for _, c0 := range toList(n["content"]) {
            cn := toMap(c0)
            if cn == nil || toStr(cn["type"]) != "text" { continue }
            parts = append(parts, toStr(cn["text"]))
        }
        code := cleanText(strings.Join(parts, " "))
        if lang := toStr(toMap(n["attrs"])["language"]); lang != "" {
            return `<pre><code class="language-` + lang + `">` + code + "</code></pre>"
        }
        return "<pre><code>" + code + "</code></pre>"
    case "heading":
        level := 1
        if f, ok := toMap(n["attrs"])["level"].(float64); ok && f >= 1 { level = int(f) }
        return fmt.Sprintf("<h%d>%s</h%d>", level, renderChildren(n), level)
    case "emoji":
        attrs := toMap(n["attrs"])
        if s := toStr(attrs["text"]); s != "" { return s }
        if s := toStr(attrs["shortName"]); s != "" { return ":" + strings.Trim(s, ":") + ":" }
        return "[emoji]"
    case "mention":
        attrs := toMap(n["attrs"])
        if s := toStr(attrs["text"]); s != "" {
            if !strings.HasPrefix(s, "@") { s = "@" + s }
            return s
        }
        if s := toStr(attrs["id"]); s != "" { return "@" + s }
        return "[mention]"
    case "table":
        var rows []string
        for _, r0 := range toList(n["content"]) {
            row := toMap(r0)
            if row == nil || toStr(row["type"]) != "tableRow" { continue }
            var cells []string
            for _, c0 := range toList(row["content"]) {
                cell := toMap(c0)
                if cell == nil { continue }
                tag := "td"
                if toStr(cell["type"]) == "tableHeader" { tag = "th" }
                cells = append(cells, "<"+tag+">"+stripParagraphs(renderChildren(cell))+"</"+tag+">")
            }
            if len(cells) > 0 { rows = append(rows, "<tr>"+strings.Join(cells, "")+"</tr>") }
        }
        if len(rows) == 0 { return "" }
        return "<table>" + strings.Join(rows, "") + "</table>"
    case "hardBreak":
        return "<br/>"
    case "rule":
        return "<hr/>"
    default:
        if len(toList(n["content"])) > 0 {
            return "[" + typ + ": " + renderChildren(n) + "]"
        }
        attrs := toMap(n["attrs"])
        if len(attrs) == 0 { return "[" + typ + "]" }
        keys := make([]string, 0, len(attrs))
        for k := range attrs { keys = append(keys, k) }
        sort.Strings(keys)
        parts := make([]string, 0, len(keys))
        for _, k := range keys { parts = append(parts, fmt.Sprintf("%s=%v", k, attrs[k])) }
        return "[" + typ + " (" + strings.Join(parts, ", ") + ")]"
    }
}

func renderText(n map[string]any) string {
    out := cleanText(toStr(n["text"]))
    var trailers []string
    for _, m0 := range toList(n["marks"]) {
        m := toMap(m0)
        if m == nil { continue }
        switch toStr(m["type"]) {
        case "strong":
            out = "<strong>" + out + "</strong>"
        case "em":
            out = "<em>" + out + "</em>"
        case "code":
            out = "<code>" + out + "</code>"
        case "link":
            href := toStr(toMap(m["attrs"])["href"])
            if href == "" { href = "#" }
            out = `<a href="` + href + `">` + out + "</a>"
        default:
            trailers = append(trailers, "[mark:"+toStr(m["type"])+"]")
        }
    }
    return out + strings.Join(trailers, "")
}
