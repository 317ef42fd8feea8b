package session

import (
	"context"
	"strings"

	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// Cookie names and the domain the session is scoped to.
const (
	SessionCookie = "EGG_SESS_ICONFONT"
	CSRFCookie    = "ctoken"
	CookieDomain  = "iconfont.cn"
)

// Cookie is one entry of the surface's cookie jar.
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Surface is a controlled page the operator logs in through.
//
// The Wait methods block until their condition holds, returning nil, or
// until ctx is done. Any other error means the surface is unusable.
type Surface interface {
	// OpenLogin navigates to the login entry point.
	OpenLogin(ctx context.Context) error
	SubmitCredentials(ctx context.Context, creds types.Credentials) error

	// WaitRejected resolves when the credential form shows a login error.
	WaitRejected(ctx context.Context) error
	// WaitAuthorizationPrompt resolves when an OAuth consent control is shown.
	WaitAuthorizationPrompt(ctx context.Context) error
	// WaitAuthenticated resolves when the service origin is reached logged in.
	WaitAuthenticated(ctx context.Context) error

	ConfirmAuthorization(ctx context.Context) error
	Cookies(ctx context.Context) ([]Cookie, error)
	// Notify shows a short message to the operator on the page.
	Notify(ctx context.Context, message string) error
	Close() error
}

// SurfaceFactory opens a new surface.
type SurfaceFactory func(ctx context.Context) (Surface, error)

// sessionFromCookies builds a session from the cookies scoped to the
// service domain. It returns nil when the session cookie is missing.
func sessionFromCookies(cookies []Cookie) *types.Session {
	var (
		pairs   []string
		csrf    string
		hasSess bool
	)
	for _, c := range cookies {
		if !inDomain(c.Domain) {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
		switch c.Name {
		case SessionCookie:
			hasSess = c.Value != ""
		case CSRFCookie:
			csrf = c.Value
		}
	}
	if !hasSess {
		return nil
	}
	return &types.Session{Cookie: strings.Join(pairs, "; "), CSRFToken: csrf}
}

func inDomain(domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	return domain == CookieDomain || strings.HasSuffix(domain, "."+CookieDomain)
}
