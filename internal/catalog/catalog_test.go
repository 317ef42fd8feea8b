package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenyanfei-m/iconfont-updater/internal/session"
	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

type fakeAPI struct {
	projects []types.ProjectReference
	err      error
	sessions []*types.Session
}

func (a *fakeAPI) ListProjects(ctx context.Context, sess *types.Session) ([]types.ProjectReference, error) {
	a.sessions = append(a.sessions, sess)
	return a.projects, a.err
}

func (a *fakeAPI) ProjectDetail(ctx context.Context, sess *types.Session, projectID string) (*types.ProjectDetail, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &types.ProjectDetail{ID: projectID, Name: "web"}, nil
}

func (a *fakeAPI) DownloadBundle(ctx context.Context, sess *types.Session, projectID string) ([]byte, error) {
	return nil, errors.New("not used")
}

type fakePrompter struct {
	answer   string
	err      error
	messages []string
	choices  []types.Choice
}

func (p *fakePrompter) Credentials(ctx context.Context) (types.Credentials, error) {
	return types.Credentials{}, errors.New("not used")
}

func (p *fakePrompter) Select(ctx context.Context, message string, choices []types.Choice) (string, error) {
	p.messages = append(p.messages, message)
	p.choices = choices
	return p.answer, p.err
}

var twoProjects = []types.ProjectReference{
	{ID: "1001", Name: "web"},
	{ID: "1002", Name: "app"},
}

func TestResolveProjectID(t *testing.T) {
	tests := []struct {
		name        string
		projects    []types.ProjectReference
		cached      string
		answer      string
		want        string
		wantMessage []string
	}{
		{
			name:     "valid cached selection skips prompt",
			projects: twoProjects,
			cached:   "1002",
			want:     "1002",
		},
		{
			name:        "stale selection prompts again",
			projects:    twoProjects,
			cached:      "999",
			answer:      "1001",
			want:        "1001",
			wantMessage: []string{MessageStaleSelect},
		},
		{
			name:        "no selection prompts",
			projects:    twoProjects,
			answer:      "1002",
			want:        "1002",
			wantMessage: []string{MessageSelect},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			prompter := &fakePrompter{answer: tt.answer}
			sc := &session.SessionContext{Store: st, API: &fakeAPI{projects: tt.projects}, Prompter: prompter}

			got, err := New(&types.Session{Cookie: "c"}).ResolveProjectID(context.Background(), sc, tt.cached)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMessage, prompter.messages)

			if tt.wantMessage != nil {
				saved, ok := st.Get(store.KeyProjectID)
				require.True(t, ok)
				assert.Equal(t, tt.want, saved)
				assert.Equal(t, []types.Choice{{Label: "web", Value: "1001"}, {Label: "app", Value: "1002"}}, prompter.choices)
			} else {
				assert.Zero(t, st.Len(), "a valid selection is not rewritten")
			}
		})
	}
}

func TestResolveProjectIDEmptyCatalog(t *testing.T) {
	prompter := &fakePrompter{}
	sc := &session.SessionContext{Store: store.NewMemory(), API: &fakeAPI{}, Prompter: prompter}

	_, err := New(nil).ResolveProjectID(context.Background(), sc, "1001")
	require.ErrorIs(t, err, types.ErrCatalog)
	assert.Contains(t, err.Error(), "no projects")
	assert.Empty(t, prompter.messages)
}

func TestResolveProjectIDListFailure(t *testing.T) {
	sc := &session.SessionContext{Store: store.NewMemory(), API: &fakeAPI{err: errors.New("boom")}, Prompter: &fakePrompter{}}

	_, err := New(nil).ResolveProjectID(context.Background(), sc, "")
	require.ErrorIs(t, err, types.ErrCatalog)
	assert.Contains(t, err.Error(), "boom")
}

func TestResolveProjectIDPromptFailureDoesNotPersist(t *testing.T) {
	st := store.NewMemory()
	sc := &session.SessionContext{Store: st, API: &fakeAPI{projects: twoProjects}, Prompter: &fakePrompter{err: errors.New("aborted")}}

	_, err := New(nil).ResolveProjectID(context.Background(), sc, "")
	require.ErrorIs(t, err, types.ErrCatalog)
	_, ok := st.Get(store.KeyProjectID)
	assert.False(t, ok)
}

func TestResolveProjectIDUsesSession(t *testing.T) {
	api := &fakeAPI{projects: twoProjects}
	sess := &types.Session{Cookie: "EGG_SESS_ICONFONT=x"}
	sc := &session.SessionContext{Store: store.NewMemory(), API: api, Prompter: &fakePrompter{}}

	_, err := New(sess).ResolveProjectID(context.Background(), sc, "1001")
	require.NoError(t, err)
	require.Len(t, api.sessions, 1)
	assert.Same(t, sess, api.sessions[0])
}

func TestDetail(t *testing.T) {
	sc := &session.SessionContext{Store: store.NewMemory(), API: &fakeAPI{}}
	detail, err := New(nil).Detail(context.Background(), sc, "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", detail.ID)

	sc.API = &fakeAPI{err: errors.New("gone")}
	_, err = New(nil).Detail(context.Background(), sc, "1001")
	assert.ErrorIs(t, err, types.ErrCatalog)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(twoProjects, "1001"))
	assert.False(t, Contains(twoProjects, "1"))
	assert.False(t, Contains(nil, "1001"))
}
