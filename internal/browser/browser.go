// Package browser drives a visible Chrome window through chromedp so the
// operator can log in to iconfont.cn by hand. It implements session.Surface.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/session"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// ErrClosed is returned once the window has been closed or has crashed.
var ErrClosed = errors.New("browser window closed")

// Selectors locate the controls of the login flow.
type Selectors struct {
	Identity  string
	Secret    string
	Submit    string
	LoginErr  string
	Authorize string
}

// DefaultSelectors matches the iconfont.cn login form and the GitHub OAuth
// consent page.
func DefaultSelectors() Selectors {
	return Selectors{
		Identity:  `#userid`,
		Secret:    `#password`,
		Submit:    `.mx-btn-submit`,
		LoginErr:  `.mx-form-item-error`,
		Authorize: `#js-oauth-submit`,
	}
}

// Options configures the browser.
type Options struct {
	BaseURL string
	// ExecPath overrides Chrome discovery.
	ExecPath string
	// Headless hides the window; only useful with stored credentials.
	Headless     bool
	Selectors    Selectors
	PollInterval time.Duration
	// NoticeDuration is how long the success notice stays up before Close.
	NoticeDuration time.Duration
}

func (o *Options) setDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://www.iconfont.cn"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Selectors == (Selectors{}) {
		o.Selectors = DefaultSelectors()
	}
	if o.PollInterval == 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.NoticeDuration == 0 {
		o.NoticeDuration = 2 * time.Second
	}
}

// Surface is one Chrome window.
type Surface struct {
	opts        Options
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
}

// Factory returns a session.SurfaceFactory launching Chrome with opts.
func Factory(opts Options) session.SurfaceFactory {
	return func(ctx context.Context) (session.Surface, error) {
		return Open(ctx, opts)
	}
}

// Open launches Chrome and waits for the first tab.
func Open(ctx context.Context, opts Options) (*Surface, error) {
	opts.setDefaults()

	// The browser lives until Close, independent of ctx.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logging.Debug().Msgf(format, args...)
		}),
	)

	s := &Surface{
		opts:        opts,
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		closed:      make(chan struct{}),
	}

	chromedp.ListenTarget(tab, func(ev any) {
		switch ev.(type) {
		case *inspector.EventDetached, *inspector.EventTargetCrashed:
			s.markClosed()
		}
	})

	// Run with no actions starts the browser.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	go func() {
		<-tab.Done()
		s.markClosed()
	}()

	logging.Debug().Bool("headless", opts.Headless).Msg("browser started")
	return s, nil
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.Flag("mute-audio", false),
		chromedp.WindowSize(1280, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	return allocOpts
}

func (s *Surface) markClosed() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// run executes actions on the tab, aborting when ctx is done or the
// window goes away.
func (s *Surface) run(ctx context.Context, actions ...chromedp.Action) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-runCtx.Done():
		}
	}()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	return err
}

// OpenLogin loads the service origin first so the login page gets its
// cookies, then the login page itself.
func (s *Surface) OpenLogin(ctx context.Context) error {
	return s.run(ctx,
		chromedp.Navigate(s.opts.BaseURL),
		chromedp.Navigate(s.opts.BaseURL+"/login"),
		chromedp.WaitVisible(s.opts.Selectors.Identity, chromedp.ByQuery),
	)
}

// SubmitCredentials fills the login form and submits it.
func (s *Surface) SubmitCredentials(ctx context.Context, creds types.Credentials) error {
	sel := s.opts.Selectors
	return s.run(ctx,
		chromedp.SetValue(sel.Identity, "", chromedp.ByQuery),
		chromedp.SendKeys(sel.Identity, creds.Identity, chromedp.ByQuery),
		chromedp.SetValue(sel.Secret, "", chromedp.ByQuery),
		chromedp.SendKeys(sel.Secret, creds.Secret, chromedp.ByQuery),
		chromedp.Click(sel.Submit, chromedp.ByQuery),
	)
}

func (s *Surface) WaitRejected(ctx context.Context) error {
	return s.run(ctx, chromedp.WaitVisible(s.opts.Selectors.LoginErr, chromedp.ByQuery))
}

func (s *Surface) WaitAuthorizationPrompt(ctx context.Context) error {
	return s.run(ctx, chromedp.WaitVisible(s.opts.Selectors.Authorize, chromedp.ByQuery))
}

// WaitAuthenticated polls until the tab is on the service origin outside
// the login page and holds a session cookie.
func (s *Surface) WaitAuthenticated(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		var location string
		if err := s.run(ctx, chromedp.Location(&location)); err != nil {
			return err
		}
		if authenticatedURL(s.opts.BaseURL, location) {
			cookies, err := s.Cookies(ctx)
			if err != nil {
				return err
			}
			for _, c := range cookies {
				if c.Name == session.SessionCookie && c.Value != "" {
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return ErrClosed
		case <-ticker.C:
		}
	}
}

func (s *Surface) ConfirmAuthorization(ctx context.Context) error {
	return s.run(ctx, chromedp.Click(s.opts.Selectors.Authorize, chromedp.ByQuery))
}

// Cookies returns the cookies the browser would send to the service origin.
func (s *Surface) Cookies(ctx context.Context) ([]session.Cookie, error) {
	var out []session.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().WithURLs([]string{s.opts.BaseURL + "/"}).Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, session.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	return out, nil
}

// Notify shows message as a banner for NoticeDuration.
func (s *Surface) Notify(ctx context.Context, message string) error {
	js := fmt.Sprintf(noticeScript, strconv.Quote(message))
	return s.run(ctx,
		chromedp.Evaluate(js, nil),
		chromedp.Sleep(s.opts.NoticeDuration),
	)
}

const noticeScript = `(() => {
	const el = document.createElement('div');
	el.textContent = %s;
	el.style.cssText = 'position:fixed;top:24px;left:50%%;transform:translateX(-50%%);z-index:2147483647;padding:12px 24px;background:#1f9d55;color:#fff;font:16px sans-serif;border-radius:4px';
	document.body.appendChild(el);
})()`

// Close shuts the browser down.
func (s *Surface) Close() error {
	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	s.cancelAlloc()
	s.markClosed()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// authenticatedURL reports whether location is on the service origin and
// not part of the login flow.
func authenticatedURL(baseURL, location string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(location)
	if err != nil || u.Host != base.Host {
		return false
	}
	return !strings.HasPrefix(u.Path, "/login") && !strings.HasPrefix(u.Path, "/api/login")
}
