package domain

import "time"

// IssueSummary is the canonical issue record produced by the JIRA resolution
// layer. Parent fields are already reparented ("Review - ..." issues are grouped
// under their grandparent). ParentSummary and ParentColor are only set when
// ParentKey is set.
type IssueSummary struct {
    Key           string  `json:"key"`
    Summary       string  `json:"summary"`
    ParentKey     *string `json:"parent_key"`
    ParentSummary *string `json:"parent_summary"`
    ParentColor   *string `json:"parent_color"`
    SprintName    *string `json:"sprint_name"`
}

type ParentInfo struct {
    Key     string `json:"parent_key"`
    Summary string `json:"parent_summary"`
}

// ParentState distinguishes "issue confirmed to have no grouping parent" from
// "we could not find out".
type ParentState string

const (
    ParentResolved ParentState = "resolved"
    ParentNone     ParentState = "none"
    ParentUnknown  ParentState = "unknown"
)

type ParentOutcome struct {
    State  ParentState `json:"state"`
    Parent *ParentInfo `json:"parent,omitempty"`
}

// IssueLookup is an IssueSummary plus the explicit parent-resolution state,
// returned by direct by-key lookups.
type IssueLookup struct {
    IssueSummary
    ParentState ParentState `json:"parent_state"`
}

// StrategyAttempt records the outcome of one strategy in the listing chain.
type StrategyAttempt struct {
    Strategy string `json:"strategy"`
    Outcome  string `json:"outcome"` // ok | empty | error
    Count    int    `json:"count"`
    Err      string `json:"err,omitempty"`
}

// FetchMeta is the diagnostic side-channel of a listing call: which strategy
// answered and how the chain got there. Observability only, never correctness.
type FetchMeta struct {
    Source        string            `json:"source"`
    Requested     int               `json:"requested"`
    Returned      int               `json:"returned"`
    UpstreamTotal *int              `json:"upstream_total,omitempty"`
    Attempts      []StrategyAttempt `json:"attempts,omitempty"`
    Note          string            `json:"note,omitempty"`
}

// IssueDetail is the display-oriented record for a single issue: status,
// priority and bodies rendered from the tracker's document format.
type IssueDetail struct {
    Key         string         `json:"key"`
    Summary     string         `json:"summary"`
    Status      IssueStatus    `json:"status"`
    Priority    map[string]any `json:"priority"`
    Description string         `json:"description"`
    Comments    []IssueComment `json:"comments"`
    BaseURL     string         `json:"baseUrl"`
}

type IssueStatus struct {
    Name           string         `json:"name"`
    StatusCategory map[string]any `json:"statusCategory"`
}

type IssueComment struct {
    ID      string        `json:"id"`
    Body    string        `json:"body"`
    Author  CommentAuthor `json:"author"`
    Created string        `json:"created"`
}

type CommentAuthor struct {
    DisplayName string  `json:"displayName"`
    AvatarURL   *string `json:"avatarUrl"`
}

// TimeEntry mirrors the time_entry table. Field names follow the frontend's
// contract (uloha = parent task tag, hodiny/minuty = hours/minutes worked).
type TimeEntry struct {
    ID                   int64      `json:"id"`
    Uloha                string     `json:"uloha"`
    Autor                string     `json:"autor"`
    Datum                time.Time  `json:"datum"`
    Hodiny               int        `json:"hodiny"`
    Minuty               int        `json:"minuty"`
    Jira                 *string    `json:"jira"`
    Popis                *string    `json:"popis"`
    JiraName             *string    `json:"jira_name"`
    UlohaName            *string    `json:"uloha_name"`
    CreatedAt            time.Time  `json:"created_at"`
    ModifiedAt           time.Time  `json:"modified_at"`
    SubmittedToMetaAppAt *time.Time `json:"submitted_to_metaapp_at"`
    MetaAppVykazID       *int64     `json:"metaapp_vykaz_id"`
}

type Template struct {
    ID     int64   `json:"id"`
    Name   string  `json:"name"`
    Uloha  *string `json:"uloha"`
    Autor  string  `json:"autor"`
    Hodiny *string `json:"hodiny"`
    Minuty *string `json:"minuty"`
    Jira   *string `json:"jira"`
    Popis  *string `json:"popis"`
}

// MetaAppTask is a bookable task row from the CRM database.
type MetaAppTask struct {
    Code    string `json:"code"`
    Summary string `json:"summary"`
    Login   string `json:"login"`
}

// MetaAppEntry is a booked time report row read back from the CRM database.
type MetaAppEntry struct {
    VykazID int64     `json:"vykaz_id"`
    Autor   string    `json:"autor"`
    Datum   time.Time `json:"datum"`
    Hodiny  int       `json:"hodiny"`
    Minuty  int       `json:"minuty"`
    Jira    *string   `json:"jira"`
    Popis   *string   `json:"popis"`
    Uloha   *string   `json:"uloha"`
}
