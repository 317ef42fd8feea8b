package session

import (
	"context"
	"errors"
	"sync"

	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

var errSurfaceGone = errors.New("target closed")

// outcomeClosed scripts a surface that disappears while waiting.
const outcomeClosed Outcome = -1

// fakeSurface resolves the watcher matching the next scripted outcome and
// keeps the other two blocked until they are cancelled.
type fakeSurface struct {
	mu       sync.Mutex
	script   []Outcome
	pos      int
	current  Outcome
	cookies  []Cookie
	active   int
	maxAlive int

	opens      int
	submitted  []types.Credentials
	confirms   int
	closes     int
	notices    []string
	openErr    error
	cookiesErr error
}

func (f *fakeSurface) advance() {
	if f.pos < len(f.script) {
		f.current = f.script[f.pos]
		f.pos++
		return
	}
	f.current = 0
}

func (f *fakeSurface) OpenLogin(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	return f.openErr
}

func (f *fakeSurface) SubmitCredentials(ctx context.Context, creds types.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, creds)
	f.advance()
	return nil
}

func (f *fakeSurface) ConfirmAuthorization(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms++
	f.advance()
	return nil
}

func (f *fakeSurface) wait(ctx context.Context, want Outcome) error {
	f.mu.Lock()
	current := f.current
	f.active++
	f.maxAlive = max(f.maxAlive, f.active)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if current == outcomeClosed && want == OutcomeAuthenticated {
		return errSurfaceGone
	}
	if current == want {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSurface) WaitRejected(ctx context.Context) error {
	return f.wait(ctx, OutcomeRejected)
}

func (f *fakeSurface) WaitAuthorizationPrompt(ctx context.Context) error {
	return f.wait(ctx, OutcomeAuthorizationPending)
}

func (f *fakeSurface) WaitAuthenticated(ctx context.Context) error {
	return f.wait(ctx, OutcomeAuthenticated)
}

func (f *fakeSurface) Cookies(ctx context.Context) ([]Cookie, error) {
	return f.cookies, f.cookiesErr
}

func (f *fakeSurface) Notify(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, message)
	return nil
}

func (f *fakeSurface) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

type fakeAPI struct {
	listErr error
	calls   int
}

func (a *fakeAPI) ListProjects(ctx context.Context, sess *types.Session) ([]types.ProjectReference, error) {
	a.calls++
	if a.listErr != nil {
		return nil, a.listErr
	}
	return []types.ProjectReference{{ID: "1", Name: "web"}}, nil
}

func (a *fakeAPI) ProjectDetail(ctx context.Context, sess *types.Session, projectID string) (*types.ProjectDetail, error) {
	return &types.ProjectDetail{ID: projectID}, nil
}

func (a *fakeAPI) DownloadBundle(ctx context.Context, sess *types.Session, projectID string) ([]byte, error) {
	return nil, nil
}

type fakePrompter struct {
	creds   types.Credentials
	prompts int
}

func (p *fakePrompter) Credentials(ctx context.Context) (types.Credentials, error) {
	p.prompts++
	return p.creds, nil
}

func (p *fakePrompter) Select(ctx context.Context, message string, choices []types.Choice) (string, error) {
	return "", errors.New("unexpected select")
}

var loggedInCookies = []Cookie{
	{Name: SessionCookie, Value: "sess", Domain: ".iconfont.cn"},
	{Name: CSRFCookie, Value: "tok", Domain: "www.iconfont.cn"},
	{Name: "_ga", Value: "x", Domain: ".google.com"},
}
