package services

import (
    "context"
    "errors"
    "testing"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/michal-palko/smart-claimer/internal/domain"
)

type fakeJira struct {
    byKey  map[string]*domain.IssueLookup
    listed []domain.IssueSummary
    calls  int
}

func (f *fakeJira) ListIssuesForAuthor(ctx context.Context, author string) ([]domain.IssueSummary, domain.FetchMeta) {
    f.calls++
    return f.listed, domain.FetchMeta{Source: "search-v3", Returned: len(f.listed)}
}

func (f *fakeJira) FetchIssueByKey(ctx context.Context, key string) *domain.IssueLookup {
    f.calls++
    return f.byKey[key]
}

func (f *fakeJira) FetchSubtasksForParent(ctx context.Context, author, parentKey string) []domain.IssueSummary {
    return nil
}

func (f *fakeJira) GetIssueDetails(ctx context.Context, key string) *domain.IssueDetail { return nil }

func strp(s string) *string { return &s }

func Test_validateEntry(t *testing.T) {
    t.Parallel()
    ok := domain.TimeEntry{Autor: "bob", Hodiny: 1, Minuty: 30}
    require.NoError(t, validateEntry(ok))

    cases := []domain.TimeEntry{
        {Hodiny: 1, Minuty: 0},               // missing autor
        {Autor: "bob", Hodiny: -1},           // negative hours
        {Autor: "bob", Minuty: 60},           // minutes out of range
        {Autor: "bob", Minuty: -1},
    }
    for _, c := range cases {
        err := validateEntry(c)
        require.Error(t, err)
        assert.True(t, errors.Is(err, ErrInvalid))
    }
}

func Test_enrichNames_FromLookup(t *testing.T) {
    t.Parallel()
    jc := &fakeJira{byKey: map[string]*domain.IssueLookup{
        "AB-1": {IssueSummary: domain.IssueSummary{
            Key: "AB-1", Summary: "fix widget", ParentSummary: strp("Widget epic"),
        }, ParentState: domain.ParentResolved},
    }}
    s := &Service{log: zerolog.Nop(), jira: jc}

    e := domain.TimeEntry{Autor: "bob", Uloha: "EPIC-9", Jira: strp("AB-1")}
    s.enrichNames(context.Background(), &e)
    require.NotNil(t, e.JiraName)
    assert.Equal(t, "fix widget", *e.JiraName)
    require.NotNil(t, e.UlohaName)
    assert.Equal(t, "Widget epic", *e.UlohaName)
}

func Test_enrichNames_UlohaFallbackLookup(t *testing.T) {
    t.Parallel()
    jc := &fakeJira{byKey: map[string]*domain.IssueLookup{
        "EPIC-9": {IssueSummary: domain.IssueSummary{Key: "EPIC-9", Summary: "Widget epic"}, ParentState: domain.ParentNone},
    }}
    s := &Service{log: zerolog.Nop(), jira: jc}

    e := domain.TimeEntry{Autor: "bob", Uloha: "EPIC-9"}
    s.enrichNames(context.Background(), &e)
    assert.Nil(t, e.JiraName)
    require.NotNil(t, e.UlohaName)
    assert.Equal(t, "Widget epic", *e.UlohaName)
}

func Test_enrichNames_LookupFailureLeavesEntryUntouched(t *testing.T) {
    t.Parallel()
    s := &Service{log: zerolog.Nop(), jira: &fakeJira{}}
    e := domain.TimeEntry{Autor: "bob", Uloha: "EPIC-9", Jira: strp("AB-1")}
    s.enrichNames(context.Background(), &e)
    assert.Nil(t, e.JiraName)
    assert.Nil(t, e.UlohaName)
}

func Test_enrichNames_SkipsWhenNamesProvided(t *testing.T) {
    t.Parallel()
    jc := &fakeJira{}
    s := &Service{log: zerolog.Nop(), jira: jc}
    e := domain.TimeEntry{Autor: "bob", Uloha: "EPIC-9", Jira: strp("AB-1"),
        JiraName: strp("given"), UlohaName: strp("also given")}
    s.enrichNames(context.Background(), &e)
    assert.Zero(t, jc.calls)
    assert.Equal(t, "given", *e.JiraName)
}

func Test_ListIssues_RequiresAutor(t *testing.T) {
    t.Parallel()
    s := &Service{log: zerolog.Nop(), jira: &fakeJira{}}
    _, _, err := s.ListIssues(context.Background(), "")
    require.Error(t, err)
    assert.True(t, errors.Is(err, ErrInvalid))
}

func Test_MetaAppTasks_WithoutCRM(t *testing.T) {
    t.Parallel()
    s := &Service{log: zerolog.Nop()}
    _, err := s.MetaAppTasks(context.Background(), "bob")
    assert.True(t, errors.Is(err, ErrCRMUnavailable))
}

func Test_ImportFromMetaApp_WithoutCRM(t *testing.T) {
    t.Parallel()
    s := &Service{log: zerolog.Nop()}
    _, err := s.ImportFromMetaApp(context.Background(), "bob")
    assert.True(t, errors.Is(err, ErrCRMUnavailable))

    _, err = s.ImportFromMetaApp(context.Background(), "")
    assert.True(t, errors.Is(err, ErrInvalid))
}
