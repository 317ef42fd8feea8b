// Package session acquires an authenticated session for the iconfont.cn
// service. A cached session is reused when the service still accepts it;
// otherwise the operator logs in through a controlled page Surface, which
// may end in a credential rejection, an OAuth consent prompt or success.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// Options bounds the login state machine.
type Options struct {
	// MaxRetries is how many credential rejections are retried before the
	// login fails. Negative values are treated as 0.
	MaxRetries int
	// MaxAuthorizations is how many consent prompts are confirmed in one
	// login. Negative values are treated as 0.
	MaxAuthorizations int
	// OutcomeTimeout bounds each wait for the result of a submission or
	// confirmation. Non-positive values use DefaultOutcomeTimeout.
	OutcomeTimeout time.Duration
}

// DefaultOutcomeTimeout is how long one outcome wait may take.
const DefaultOutcomeTimeout = 5 * time.Minute

// DefaultOptions returns the bounds used by the CLI.
func DefaultOptions() Options {
	return Options{MaxRetries: 1, MaxAuthorizations: 3, OutcomeTimeout: DefaultOutcomeTimeout}
}

type state int

const (
	stateStart state = iota
	stateAwaitingCredentialInput
	stateSubmittingCredentials
	stateAwaitingOutcome
	stateNeedsReauthorization
	stateAuthenticated
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateAwaitingCredentialInput:
		return "awaiting_credential_input"
	case stateSubmittingCredentials:
		return "submitting_credentials"
	case stateAwaitingOutcome:
		return "awaiting_outcome"
	case stateNeedsReauthorization:
		return "needs_reauthorization"
	case stateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

var (
	errRejected          = errors.New("credentials rejected")
	errTooManyPrompts    = errors.New("too many authorization prompts")
	errNoSessionCookie   = errors.New("no session cookie after login")
	errNoCredentialInput = errors.New("identity and secret are required")
	errOutcomeTimeout    = errors.New("login page did not settle")
)

// Manager runs the login state machine.
type Manager struct {
	newSurface SurfaceFactory
	opts       Options
}

// NewManager creates a Manager that opens surfaces with newSurface.
func NewManager(newSurface SurfaceFactory, opts Options) *Manager {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxAuthorizations < 0 {
		opts.MaxAuthorizations = 0
	}
	if opts.OutcomeTimeout <= 0 {
		opts.OutcomeTimeout = DefaultOutcomeTimeout
	}
	return &Manager{newSurface: newSurface, opts: opts}
}

// Acquire returns a session the service accepts. The cached session is
// returned unchanged when a probe request succeeds; otherwise it is dropped
// from the store, a login is performed and the new session persisted.
// Errors wrap types.ErrAuthentication.
func (m *Manager) Acquire(ctx context.Context, sc *SessionContext, cached *types.Session) (*types.Session, error) {
	if cached != nil {
		_, err := sc.API.ListProjects(ctx, cached)
		if err == nil {
			logging.Debug().Msg("cached session accepted")
			return cached, nil
		}
		logging.Debug().Err(err).Msg("cached session rejected, logging in")
		if err := store.ClearSession(sc.Store); err != nil {
			return nil, fmt.Errorf("%w: clearing stale session: %w", types.ErrAuthentication, err)
		}
	}

	sess, err := m.login(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrAuthentication, err)
	}
	return sess, nil
}

func (m *Manager) login(ctx context.Context, sc *SessionContext) (*types.Session, error) {
	var surface Surface
	defer func() {
		if surface == nil {
			return
		}
		if err := surface.Close(); err != nil {
			logging.Debug().Err(err).Msg("closing login surface")
		}
	}()

	var (
		creds          types.Credentials
		rejections     int
		authorizations int
		current        = stateStart
	)
	for {
		logging.Debug().Stringer("state", current).Msg("login")

		switch current {
		case stateStart:
			if surface == nil {
				s, err := m.newSurface(ctx)
				if err != nil {
					return nil, fmt.Errorf("opening login surface: %w", err)
				}
				surface = s
			}
			if err := surface.OpenLogin(ctx); err != nil {
				return nil, fmt.Errorf("opening login page: %w", err)
			}
			current = stateAwaitingCredentialInput

		case stateAwaitingCredentialInput:
			c, ok := store.LoadCredentials(sc.Store)
			if !ok {
				var err error
				c, err = sc.Prompter.Credentials(ctx)
				if err != nil {
					return nil, fmt.Errorf("reading credentials: %w", err)
				}
				if c.Empty() {
					return nil, errNoCredentialInput
				}
				if err := store.SaveCredentials(sc.Store, c); err != nil {
					return nil, fmt.Errorf("saving credentials: %w", err)
				}
			}
			creds = c
			current = stateSubmittingCredentials

		case stateSubmittingCredentials:
			if err := surface.SubmitCredentials(ctx, creds); err != nil {
				return nil, fmt.Errorf("submitting credentials: %w", err)
			}
			current = stateAwaitingOutcome

		case stateAwaitingOutcome:
			outcome, err := awaitOutcome(ctx, surface, m.opts.OutcomeTimeout)
			if err != nil {
				return nil, fmt.Errorf("waiting for login outcome: %w", err)
			}
			logging.Debug().Stringer("outcome", outcome).Msg("login outcome")

			switch outcome {
			case OutcomeRejected:
				if err := store.ClearCredentials(sc.Store); err != nil {
					return nil, fmt.Errorf("clearing credentials: %w", err)
				}
				if rejections >= m.opts.MaxRetries {
					return nil, errRejected
				}
				rejections++
				logging.Warn().Msg("Login rejected, please enter your credentials again")
				current = stateStart
			case OutcomeAuthorizationPending:
				current = stateNeedsReauthorization
			case OutcomeAuthenticated:
				current = stateAuthenticated
			}

		case stateNeedsReauthorization:
			if authorizations >= m.opts.MaxAuthorizations {
				return nil, errTooManyPrompts
			}
			authorizations++
			if err := surface.ConfirmAuthorization(ctx); err != nil {
				return nil, fmt.Errorf("confirming authorization: %w", err)
			}
			current = stateAwaitingOutcome

		case stateAuthenticated:
			cookies, err := surface.Cookies(ctx)
			if err != nil {
				return nil, fmt.Errorf("reading cookies: %w", err)
			}
			sess := sessionFromCookies(cookies)
			if sess == nil {
				return nil, errNoSessionCookie
			}
			if err := store.SaveSession(sc.Store, sess); err != nil {
				return nil, fmt.Errorf("saving session: %w", err)
			}
			if err := surface.Notify(ctx, "Login succeeded"); err != nil {
				logging.Debug().Err(err).Msg("login notice")
			}
			return sess, nil
		}
	}
}
