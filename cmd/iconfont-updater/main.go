package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chenyanfei-m/iconfont-updater/internal/browser"
	"github.com/chenyanfei-m/iconfont-updater/internal/catalog"
	"github.com/chenyanfei-m/iconfont-updater/internal/config"
	"github.com/chenyanfei-m/iconfont-updater/internal/doctor"
	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/manifest"
	"github.com/chenyanfei-m/iconfont-updater/internal/mirror"
	"github.com/chenyanfei-m/iconfont-updater/internal/output"
	"github.com/chenyanfei-m/iconfont-updater/internal/prompt"
	"github.com/chenyanfei-m/iconfont-updater/internal/remote"
	"github.com/chenyanfei-m/iconfont-updater/internal/session"
	"github.com/chenyanfei-m/iconfont-updater/internal/store"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
	"github.com/chenyanfei-m/iconfont-updater/internal/updater"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	workDir    string
	debug      bool
	logLevel   string
	clearState bool
	noMirror   bool
	chromePath string
	headless   bool
	jsonOutput bool
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorLabel(), err)
		exitFunc(1)
	}
}

func okLabel() string    { return color.GreenString("✓") }
func warnLabel() string  { return color.YellowString("Warning:") }
func errorLabel() string { return color.RedString("Error:") }

var rootCmd = &cobra.Command{
	Use:     "iconfont-updater",
	Short:   "Download an iconfont.cn project bundle into the working directory",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Long: `iconfont-updater logs in to iconfont.cn (reusing the saved session when it
is still valid), lets you pick a project once, downloads its bundle and
extracts the files matched by .iconfontrc.json into the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := logging.DefaultConfig()
		cfg.Level = logging.ParseLevel(logLevel)
		if debug {
			cfg.Level = zerolog.DebugLevel
		}
		logging.Init(cfg)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		u := updater.New(updater.Options{
			WorkDir:   workDir,
			NoMirror:  noMirror,
			NewMirror: newMirror,
		}, newManager(), newSessionContext(st))

		if clearState {
			if err := u.Clear(); err != nil {
				return err
			}
			fmt.Printf("%s Saved session, credentials and project selection cleared\n", okLabel())
			return nil
		}

		res, err := u.Run(cmd.Context())
		if err != nil {
			return err
		}
		printSummary(res)
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the account's projects",
	Long: `Lists the iconfont.cn projects of the logged-in account. The project used
by this working directory is marked with *. When a mirror is configured the
last mirrored bundle of each project is compared with its update time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, cfgErr := config.Load(workDir)
		if cfgErr != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", warnLabel(), cfgErr)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		sc := newSessionContext(st)

		sess, err := newManager().Acquire(ctx, sc, store.LoadSession(st))
		if err != nil {
			return &types.StageError{Stage: types.StageSession, Err: err}
		}
		projects, err := catalog.New(sess).Projects(ctx, sc)
		if err != nil {
			return &types.StageError{Stage: types.StageProject, Err: err}
		}
		selected, _ := st.Get(store.KeyProjectID)

		var mirrored *manifest.Manifest
		if cfg.Mirror.Enabled() && !noMirror {
			mirrored, err = loadManifest(ctx, cfg.Mirror)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s could not load mirror manifest: %v\n", warnLabel(), err)
			}
		}

		if jsonOutput {
			if err := output.PrintJSON(projects, selected, cfg, mirrored); err != nil {
				return fmt.Errorf("printing JSON output: %w", err)
			}
			return nil
		}
		output.PrintProjects(projects, selected, mirrored)
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, saved state, browser and mirror",
	Long: `Checks that the config file parses, the include patterns are valid, a
Chrome executable can be found, the saved session is still accepted and,
when configured, that the mirror bucket is reachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env := doctor.Env{
			WorkDir:    workDir,
			ConfigPath: config.Locate(workDir),
			LocateChrome: func() (string, error) {
				return browser.Locate(chromePath, nil)
			},
			API: newRemote(),
		}
		env.Config, env.ConfigErr = config.Load(workDir)

		st, err := openStore()
		if err != nil {
			return err
		}
		env.Store = st
		env.StorePath = st.Path()

		if env.Config.Mirror.Enabled() {
			client, err := config.NewS3Client(ctx, env.Config.Mirror)
			if err != nil {
				env.BucketErr = err
			} else {
				env.Bucket = client
			}
		}

		if !doctor.RunChecks(ctx, os.Stdout, env) {
			exitFunc(1)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "working directory holding .iconfontrc.json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&noMirror, "no-mirror", false, "skip the configured S3 mirror")
	rootCmd.PersistentFlags().StringVar(&chromePath, "chrome", "", "path to the Chrome executable used for login")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run the login browser without a window")

	rootCmd.Flags().BoolVar(&clearState, "clear", false, "delete the saved session, credentials and project selection")
	projectsCmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(doctorCmd)
}

func openStore() (*store.FileStore, error) {
	path, err := store.DefaultPath(workDir)
	if err != nil {
		return nil, fmt.Errorf("locating saved state: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening saved state: %w", err)
	}
	return st, nil
}

func newRemote() *remote.Client {
	return remote.New(remote.Options{})
}

func newSessionContext(st store.Store) *session.SessionContext {
	return &session.SessionContext{
		Store:    st,
		API:      newRemote(),
		Prompter: &prompt.Terminal{},
	}
}

func newManager() *session.Manager {
	return session.NewManager(browser.Factory(browser.Options{
		ExecPath: chromePath,
		Headless: headless,
	}), session.DefaultOptions())
}

func newMirror(ctx context.Context, cfg types.MirrorConfig) (updater.BundleMirror, error) {
	client, err := config.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return mirror.New(cfg, client), nil
}

func loadManifest(ctx context.Context, cfg types.MirrorConfig) (*manifest.Manifest, error) {
	client, err := config.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return mirror.New(cfg, client).Manifest(ctx)
}

func printSummary(res *updater.Result) {
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "%s %s\n", warnLabel(), w)
	}

	name := res.ProjectName
	if name == "" {
		name = res.ProjectID
	}
	fmt.Printf("%s %s: %d files written to %s (bundle %s)\n",
		okLabel(), name, res.FilesWritten, res.OutputDir, output.FormatSize(int64(res.ArchiveSize)))

	if m := res.Mirror; m != nil {
		if m.Skipped {
			fmt.Printf("%s Mirror already holds this bundle: %s\n", okLabel(), m.Key)
		} else {
			fmt.Printf("%s Mirrored to %s (%s)\n", okLabel(), m.Key, output.FormatSize(m.Size))
		}
	}
}
