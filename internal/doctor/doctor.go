// Package doctor checks that the environment is ready for a run: the
// config file, the persisted state, a Chrome installation, the service
// session and, when configured, the bundle mirror.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"

	"github.com/chenyanfei-m/iconfont-updater/internal/redactor"
	"github.com/chenyanfei-m/iconfont-updater/internal/session"
	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

func checkmark() string {
	return color.GreenString("✓")
}

func crossmark() string {
	return color.RedString("✗")
}

func warnmark() string {
	return color.YellowString("!")
}

// BucketAPI is the S3 call used to verify mirror access.
type BucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Env is everything the checks inspect.
type Env struct {
	WorkDir    string
	ConfigPath string // "" when no config file exists
	ConfigErr  error  // warning returned by config.Load
	Config     *types.UserConfig

	StorePath string
	Store     store.Store

	// LocateChrome returns the browser executable.
	LocateChrome func() (string, error)

	// API probes the cached session; nil skips the check.
	API session.API
	// Bucket verifies mirror access; nil when the mirror is disabled.
	Bucket    BucketAPI
	BucketErr error // error creating the mirror client
}

type report struct {
	w      io.Writer
	passed bool
}

func (r *report) ok(format string, args ...any) {
	fmt.Fprintf(r.w, "  %s %s\n", checkmark(), fmt.Sprintf(format, args...))
}

func (r *report) warn(format string, args ...any) {
	fmt.Fprintf(r.w, "  %s %s\n", warnmark(), fmt.Sprintf(format, args...))
}

func (r *report) fail(hint, format string, args ...any) {
	fmt.Fprintf(r.w, "  %s %s\n", crossmark(), fmt.Sprintf(format, args...))
	if hint != "" {
		fmt.Fprintf(r.w, "    → %s\n", hint)
	}
	r.passed = false
}

// RunChecks performs all checks, writing the report to w, and returns
// whether all of them passed. Warnings do not fail the run.
func RunChecks(ctx context.Context, w io.Writer, env Env) bool {
	r := &report{w: w, passed: true}

	fmt.Fprintln(w, "iconfont-updater doctor - environment check")
	fmt.Fprintln(w)

	checkConfig(r, env)
	checkState(r, env)
	checkBrowser(r, env)
	checkSession(ctx, r, env)
	checkMirror(ctx, r, env)

	if r.passed {
		fmt.Fprintln(w, "All checks passed! Ready to update icons.")
	} else {
		fmt.Fprintln(w, "Some checks failed. Please fix the issues above.")
	}
	return r.passed
}

func checkConfig(r *report, env Env) {
	fmt.Fprintln(r.w, "Configuration:")
	cfg := env.Config

	switch {
	case env.ConfigPath == "":
		r.ok("No config file, using defaults")
	case env.ConfigErr != nil:
		r.warn("Config file %s: %v", env.ConfigPath, env.ConfigErr)
	default:
		r.ok("Config file loaded: %s", env.ConfigPath)
	}

	output := cfg.Output
	if !filepath.IsAbs(output) {
		output = filepath.Join(env.WorkDir, output)
	}
	if info, err := os.Stat(output); err == nil {
		if info.IsDir() {
			r.ok("Output directory exists: %s", output)
		} else {
			r.fail("Set output to a directory", "Output is not a directory: %s", output)
		}
	} else if os.IsNotExist(err) {
		r.ok("Output directory will be created: %s", output)
	} else {
		r.fail("", "Cannot access output directory %s: %v", output, err)
	}

	if len(cfg.Includes) == 0 {
		r.warn("includes is empty, nothing will be extracted")
	}
	for _, p := range cfg.Includes {
		if !doublestar.ValidatePattern(p) {
			r.fail("Fix the pattern in includes", "Invalid include pattern: %q", p)
		}
	}
	if cfg.Flatten {
		r.ok("Flatten enabled: entries are written without their directories")
	}
	fmt.Fprintln(r.w)
}

func checkState(r *report, env Env) {
	fmt.Fprintln(r.w, "Saved state:")
	r.ok("State file: %s", env.StorePath)

	if sess := store.LoadSession(env.Store); sess != nil {
		r.ok("Session cookie saved: %s", redactor.Redact(sess.Cookie))
	} else {
		r.warn("No saved session, the next run opens a login window")
	}

	if creds, ok := store.LoadCredentials(env.Store); ok {
		r.ok("Login identity saved: %s", redactor.Mask(creds.Identity))
	}

	if id, ok := env.Store.Get(store.KeyProjectID); ok && id != "" {
		r.ok("Selected project: %s", id)
	} else {
		r.warn("No project selected, the next run asks for one")
	}
	fmt.Fprintln(r.w)
}

func checkBrowser(r *report, env Env) {
	fmt.Fprintln(r.w, "Browser:")
	if env.LocateChrome == nil {
		r.warn("Browser check skipped")
		fmt.Fprintln(r.w)
		return
	}
	path, err := env.LocateChrome()
	if err != nil {
		r.fail("Install Google Chrome or Chromium, or pass --chrome", "Chrome not found: %v", err)
	} else {
		r.ok("Chrome found: %s", path)
	}
	fmt.Fprintln(r.w)
}

func checkSession(ctx context.Context, r *report, env Env) {
	sess := store.LoadSession(env.Store)
	if env.API == nil || sess == nil {
		return
	}

	fmt.Fprintln(r.w, "iconfont.cn:")
	projects, err := env.API.ListProjects(ctx, sess)
	if err != nil {
		r.warn("Saved session rejected (%s), the next run logs in again", redactor.Redact(err.Error()))
	} else {
		noun := "projects"
		if len(projects) == 1 {
			noun = "project"
		}
		r.ok("Saved session valid, %d %s", len(projects), noun)
	}
	fmt.Fprintln(r.w)
}

func checkMirror(ctx context.Context, r *report, env Env) {
	m := env.Config.Mirror
	if !m.Enabled() {
		return
	}

	fmt.Fprintln(r.w, "Mirror:")
	r.ok("Bucket configured: %s", m.Bucket)
	if m.Prefix == "" {
		r.ok("Prefix configured: (empty)")
	} else {
		r.ok("Prefix configured: %s", m.Prefix)
	}

	switch {
	case env.BucketErr != nil:
		r.fail("Check mirror.auth in the config file", "Cannot create S3 client: %v", env.BucketErr)
	case env.Bucket == nil:
		r.warn("Connectivity check skipped")
	default:
		_, err := env.Bucket.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(m.Bucket)})
		if err != nil {
			r.fail("Check the bucket name, region and credentials", "Bucket not accessible: %v", err)
		} else {
			r.ok("Bucket accessible")
		}
	}
	fmt.Fprintln(r.w)
}
