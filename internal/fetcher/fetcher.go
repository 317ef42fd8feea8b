// Package fetcher downloads a project's bundle archive.
package fetcher

import (
	"context"
	"fmt"

	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/session"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// Fetcher downloads bundles with an established session.
type Fetcher struct {
	sess *types.Session
}

// New returns a Fetcher that authenticates with sess.
func New(sess *types.Session) *Fetcher {
	return &Fetcher{sess: sess}
}

// FetchArchive returns the zip payload of projectID. Failures wrap
// types.ErrDownload.
func (f *Fetcher) FetchArchive(ctx context.Context, sc *session.SessionContext, projectID string) ([]byte, error) {
	data, err := sc.API.DownloadBundle(ctx, f.sess, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: project %s: %w", types.ErrDownload, projectID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: project %s: empty archive", types.ErrDownload, projectID)
	}
	logging.Debug().Str("project", projectID).Int("bytes", len(data)).Msg("archive downloaded")
	return data, nil
}
