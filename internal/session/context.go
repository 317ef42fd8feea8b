package session

import (
	"context"

	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// API is the subset of the remote service used by the core stages.
// *remote.Client implements it.
type API interface {
	ListProjects(ctx context.Context, sess *types.Session) ([]types.ProjectReference, error)
	ProjectDetail(ctx context.Context, sess *types.Session, projectID string) (*types.ProjectDetail, error)
	DownloadBundle(ctx context.Context, sess *types.Session, projectID string) ([]byte, error)
}

// Prompter asks the operator for input.
type Prompter interface {
	Credentials(ctx context.Context) (types.Credentials, error)
	Select(ctx context.Context, message string, choices []types.Choice) (string, error)
}

// SessionContext carries the collaborators shared by the session, catalog
// and fetch stages of one run.
type SessionContext struct {
	Store    store.Store
	API      API
	Prompter Prompter
}
