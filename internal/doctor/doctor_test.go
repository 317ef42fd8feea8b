package doctor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fatih/color"

	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

func init() {
	color.NoColor = true
}

type fakeAPI struct {
	err error
}

func (a *fakeAPI) ListProjects(ctx context.Context, sess *types.Session) ([]types.ProjectReference, error) {
	if a.err != nil {
		return nil, a.err
	}
	return []types.ProjectReference{{ID: "1", Name: "web"}}, nil
}

func (a *fakeAPI) ProjectDetail(ctx context.Context, sess *types.Session, projectID string) (*types.ProjectDetail, error) {
	return nil, errors.New("not used")
}

func (a *fakeAPI) DownloadBundle(ctx context.Context, sess *types.Session, projectID string) ([]byte, error) {
	return nil, errors.New("not used")
}

type fakeBucket struct {
	err error
}

func (b *fakeBucket) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &s3.HeadBucketOutput{}, nil
}

func chromeAt(path string) func() (string, error) {
	return func() (string, error) { return path, nil }
}

func baseEnv(t *testing.T) Env {
	t.Helper()
	dir := t.TempDir()
	return Env{
		WorkDir:      dir,
		Config:       types.DefaultUserConfig(),
		StorePath:    filepath.Join(dir, "state.json"),
		Store:        store.NewMemory(),
		LocateChrome: chromeAt("/usr/bin/chromium"),
	}
}

func TestRunChecks(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, env *Env)
		wantPassed bool
		contains   []string
	}{
		{
			name:       "defaults without state",
			setup:      func(t *testing.T, env *Env) {},
			wantPassed: true,
			contains:   []string{"No config file, using defaults", "No saved session", "No project selected", "Chrome found: /usr/bin/chromium", "All checks passed!"},
		},
		{
			name: "malformed config is a warning",
			setup: func(t *testing.T, env *Env) {
				env.ConfigPath = filepath.Join(env.WorkDir, ".iconfontrc.json")
				env.ConfigErr = errors.New("invalid character")
			},
			wantPassed: true,
			contains:   []string{"! Config file", "invalid character"},
		},
		{
			name: "chrome missing",
			setup: func(t *testing.T, env *Env) {
				env.LocateChrome = func() (string, error) { return "", errors.New("chrome executable not found") }
			},
			wantPassed: false,
			contains:   []string{"✗ Chrome not found", "Install Google Chrome"},
		},
		{
			name: "invalid include pattern",
			setup: func(t *testing.T, env *Env) {
				env.Config.Includes = []string{"[a-"}
			},
			wantPassed: false,
			contains:   []string{"Invalid include pattern"},
		},
		{
			name: "output is a file",
			setup: func(t *testing.T, env *Env) {
				path := filepath.Join(env.WorkDir, "icons")
				if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
					t.Fatal(err)
				}
				env.Config.Output = "icons"
			},
			wantPassed: false,
			contains:   []string{"Output is not a directory"},
		},
		{
			name: "saved state is masked",
			setup: func(t *testing.T, env *Env) {
				_ = store.SaveSession(env.Store, &types.Session{Cookie: "EGG_SESS_ICONFONT=topsecretcookie", CSRFToken: "tok"})
				_ = store.SaveCredentials(env.Store, types.Credentials{Identity: "13812345678", Secret: "hunter22"})
				_ = env.Store.Set(store.KeyProjectID, "1001")
				env.API = &fakeAPI{}
			},
			wantPassed: true,
			contains:   []string{"Session cookie saved: EGG_SESS_ICONFONT=<COOKIE-", "13*******78", "Selected project: 1001", "Saved session valid, 1 project"},
		},
		{
			name: "rejected session is a warning",
			setup: func(t *testing.T, env *Env) {
				_ = store.SaveSession(env.Store, &types.Session{Cookie: "EGG_SESS_ICONFONT=old"})
				env.API = &fakeAPI{err: errors.New("api error code 500")}
			},
			wantPassed: true,
			contains:   []string{"Saved session rejected"},
		},
		{
			name: "mirror accessible",
			setup: func(t *testing.T, env *Env) {
				env.Config.Mirror = types.MirrorConfig{Bucket: "icons", Region: "us-east-1"}
				env.Bucket = &fakeBucket{}
			},
			wantPassed: true,
			contains:   []string{"Bucket configured: icons", "Prefix configured: (empty)", "Bucket accessible"},
		},
		{
			name: "mirror not accessible",
			setup: func(t *testing.T, env *Env) {
				env.Config.Mirror = types.MirrorConfig{Bucket: "icons", Prefix: "team/", Region: "us-east-1"}
				env.Bucket = &fakeBucket{err: errors.New("403 Forbidden")}
			},
			wantPassed: false,
			contains:   []string{"Bucket not accessible", "403 Forbidden"},
		},
		{
			name: "mirror client error",
			setup: func(t *testing.T, env *Env) {
				env.Config.Mirror = types.MirrorConfig{Bucket: "icons", Region: "us-east-1"}
				env.BucketErr = errors.New("profile not found")
			},
			wantPassed: false,
			contains:   []string{"Cannot create S3 client"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv(t)
			tt.setup(t, &env)

			var buf bytes.Buffer
			got := RunChecks(context.Background(), &buf, env)
			output := buf.String()

			if got != tt.wantPassed {
				t.Errorf("RunChecks() = %v, want %v\n%s", got, tt.wantPassed, output)
			}
			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q:\n%s", want, output)
				}
			}
			if strings.Contains(output, "topsecretcookie") || strings.Contains(output, "hunter22") {
				t.Errorf("output leaks a secret:\n%s", output)
			}
		})
	}
}
