// Package updater runs one update pass: acquire a session, resolve the
// project, download its bundle, optionally mirror it, and extract the
// included files into the working tree. Each stage's failure is reported
// as a types.StageError; files written before a failure are left in place.
package updater

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chenyanfei-m/iconfont-updater/internal/catalog"
	"github.com/chenyanfei-m/iconfont-updater/internal/config"
	"github.com/chenyanfei-m/iconfont-updater/internal/extract"
	"github.com/chenyanfei-m/iconfont-updater/internal/fetcher"
	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/mirror"
	"github.com/chenyanfei-m/iconfont-updater/internal/output"
	"github.com/chenyanfei-m/iconfont-updater/internal/session"
	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// Authenticator yields an accepted session.
type Authenticator interface {
	Acquire(ctx context.Context, sc *session.SessionContext, cached *types.Session) (*types.Session, error)
}

// BundleMirror archives a downloaded bundle.
type BundleMirror interface {
	Upload(ctx context.Context, b mirror.Bundle) (*mirror.Result, error)
}

// MirrorFactory builds the mirror for a configuration.
type MirrorFactory func(ctx context.Context, cfg types.MirrorConfig) (BundleMirror, error)

// Options configures an Updater.
type Options struct {
	WorkDir  string
	NoMirror bool
	// LoadConfig defaults to config.Load.
	LoadConfig func(dir string) (*types.UserConfig, error)
	// NewMirror is required for mirroring; nil disables it.
	NewMirror MirrorFactory
}

// Updater wires the stages of a run.
type Updater struct {
	opts  Options
	auth  Authenticator
	sc    *session.SessionContext
	store store.Store
}

// New creates an Updater. sc carries the store, API client and prompter
// shared by the stages.
func New(opts Options, auth Authenticator, sc *session.SessionContext) *Updater {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	return &Updater{opts: opts, auth: auth, sc: sc, store: sc.Store}
}

// Result summarizes a successful run.
type Result struct {
	ProjectID    string
	ProjectName  string
	UpdatedAt    time.Time
	OutputDir    string
	ArchiveSize  int
	FilesWritten int
	Mirror       *mirror.Result
	Warnings     []string
}

func (r *Result) warn(err error, msg string) {
	logging.Warn().Err(err).Msg(msg)
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

// Run performs one update pass.
func (u *Updater) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	cfg, err := u.opts.LoadConfig(u.opts.WorkDir)
	if cfg == nil {
		return nil, &types.StageError{Stage: types.StageConfig, Err: err}
	}
	if err != nil {
		res.warn(err, "Failed to parse config, using defaults")
	}

	cached := store.LoadSession(u.store)
	sess, err := u.auth.Acquire(ctx, u.sc, cached)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageSession, Err: err}
	}

	logging.Info().Msg("Loading project list")
	cat := catalog.New(sess)
	selected, _ := u.store.Get(store.KeyProjectID)
	projectID, err := cat.ResolveProjectID(ctx, u.sc, selected)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageProject, Err: err}
	}
	res.ProjectID = projectID

	detail, err := cat.Detail(ctx, u.sc, projectID)
	if err != nil {
		res.warn(err, "Failed to load project detail")
	} else {
		res.ProjectName = detail.Name
		res.UpdatedAt = detail.UpdatedAt
		logging.Info().Msgf("Project %s last updated at %s", detail.Name, output.FormatTime(detail.UpdatedAt))
	}

	logging.Info().Msg("Downloading bundle")
	data, err := fetcher.New(sess).FetchArchive(ctx, u.sc, projectID)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageFetch, Err: err}
	}
	res.ArchiveSize = len(data)

	if cfg.Mirror.Enabled() && !u.opts.NoMirror && u.opts.NewMirror != nil {
		res.Mirror = u.mirror(ctx, cfg.Mirror, res, data)
	}

	outDir := cfg.Output
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(u.opts.WorkDir, outDir)
	}
	res.OutputDir = outDir

	n, err := extract.New(extract.Options{Flatten: cfg.Flatten}).Extract(data, outDir, cfg.Includes)
	res.FilesWritten = n
	if err != nil {
		return res, &types.StageError{Stage: types.StageExtract, Err: err}
	}
	logging.Debug().Int("files", n).Str("output", outDir).Msg("extraction complete")

	return res, nil
}

// mirror uploads the bundle; failures are warnings.
func (u *Updater) mirror(ctx context.Context, cfg types.MirrorConfig, res *Result, data []byte) *mirror.Result {
	m, err := u.opts.NewMirror(ctx, cfg)
	if err != nil {
		res.warn(err, "Failed to set up mirror")
		return nil
	}
	out, err := m.Upload(ctx, mirror.Bundle{
		ProjectID: res.ProjectID,
		Name:      res.ProjectName,
		UpdatedAt: res.UpdatedAt,
		Data:      data,
	})
	if err != nil {
		res.warn(err, "Failed to mirror bundle")
		return nil
	}
	return out
}

// Clear wipes every persisted value: session, credentials and selection.
func (u *Updater) Clear() error {
	if err := u.store.Clear(); err != nil {
		return fmt.Errorf("clearing saved state: %w", err)
	}
	return nil
}
