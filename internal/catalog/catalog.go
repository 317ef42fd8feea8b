// Package catalog resolves which remote project a run works on. The
// persisted selection is validated against the live project list on every
// run; a selection that no longer exists is discarded and the operator is
// asked again.
package catalog

import (
	"context"
	"fmt"

	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/session"
	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// Prompt messages.
const (
	MessageSelect      = "Select an iconfont project:"
	MessageStaleSelect = "Project no longer exists, select an iconfont project:"
)

// Catalog lists and selects projects with an established session.
type Catalog struct {
	sess *types.Session
}

// New returns a Catalog that authenticates with sess.
func New(sess *types.Session) *Catalog {
	return &Catalog{sess: sess}
}

// Projects returns the account's projects in catalog order.
func (c *Catalog) Projects(ctx context.Context, sc *session.SessionContext) ([]types.ProjectReference, error) {
	projects, err := sc.API.ListProjects(ctx, c.sess)
	if err != nil {
		return nil, fmt.Errorf("%w: listing projects: %w", types.ErrCatalog, err)
	}
	return projects, nil
}

// ResolveProjectID returns cachedSelection if it is still in the catalog,
// otherwise prompts the operator and persists the answer.
func (c *Catalog) ResolveProjectID(ctx context.Context, sc *session.SessionContext, cachedSelection string) (string, error) {
	projects, err := c.Projects(ctx, sc)
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "", fmt.Errorf("%w: no projects", types.ErrCatalog)
	}

	message := MessageSelect
	if cachedSelection != "" {
		if Contains(projects, cachedSelection) {
			logging.Debug().Str("project", cachedSelection).Msg("using saved project")
			return cachedSelection, nil
		}
		logging.Debug().Str("project", cachedSelection).Msg("saved project no longer exists")
		message = MessageStaleSelect
	}

	choices := make([]types.Choice, len(projects))
	for i, p := range projects {
		choices[i] = types.Choice{Label: p.Name, Value: p.ID}
	}
	id, err := sc.Prompter.Select(ctx, message, choices)
	if err != nil {
		return "", fmt.Errorf("%w: selecting project: %w", types.ErrCatalog, err)
	}
	if err := sc.Store.Set(store.KeyProjectID, id); err != nil {
		return "", fmt.Errorf("%w: saving selection: %w", types.ErrCatalog, err)
	}
	return id, nil
}

// Detail returns display metadata for projectID.
func (c *Catalog) Detail(ctx context.Context, sc *session.SessionContext, projectID string) (*types.ProjectDetail, error) {
	detail, err := sc.API.ProjectDetail(ctx, c.sess, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: project %s detail: %w", types.ErrCatalog, projectID, err)
	}
	return detail, nil
}

// Contains reports whether id is in projects.
func Contains(projects []types.ProjectReference, id string) bool {
	for _, p := range projects {
		if p.ID == id {
			return true
		}
	}
	return false
}
