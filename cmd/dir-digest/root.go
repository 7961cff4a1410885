package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bethropolis/dir-digest/internal/app"
	"github.com/bethropolis/dir-digest/internal/config"
	"github.com/bethropolis/dir-digest/internal/filter"
)

// flagValues holds the raw command-line values. Only flags the user set
// override the configuration file.
type flagValues struct {
	dir            string
	configFile     string
	include        []string
	exclude        []string
	maxDepth       int
	followSymlinks bool
	noIgnore       bool
	showHidden     bool
	maxEntries     int
	sftpTarget     string
	identityFiles  []string
	knownHosts     string

	verbose      bool
	quiet        bool
	logLevel     string
	noColor      bool
	output       string
	jsonOutput   bool
	markdown     bool
	showSkipped  bool
	showProgress bool
	showStats    bool
	collapsed    bool
	timeout      time.Duration
}

func newRootCommand() *cobra.Command {
	fv := &flagValues{}

	root := &cobra.Command{
		Use:   "dir-digest",
		Short: "Build filtered file trees of a workspace",
		Long: `dir-digest walks a workspace, applies include/exclude patterns and
.gitignore-style ignore files, and prints the resulting tree, the filter
decision for individual paths, or a file selection.

Settings are read from .dir-digest.yaml in the workspace (or --config) and
overridden by flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fv.register(root.PersistentFlags())

	root.AddCommand(
		newTreeCommand(fv),
		newExplainCommand(fv),
		newSelectCommand(fv),
	)
	return root
}

// register binds the global flags to fv.
func (fv *flagValues) register(pf *pflag.FlagSet) {
	pf.StringVarP(&fv.dir, "dir", "d", ".", "Workspace directory (remote path with --sftp)")
	pf.StringVar(&fv.configFile, "config", "", "Configuration file (default: <dir>/"+config.FileName+")")
	pf.StringSliceVarP(&fv.include, "include", "i", nil, "Include patterns (glob or /regex/flags)")
	pf.StringSliceVarP(&fv.exclude, "exclude", "e", nil, "Exclude patterns (glob or /regex/flags)")
	pf.IntVar(&fv.maxDepth, "max-depth", -1, "Maximum depth below the workspace root (-1 for unlimited)")
	pf.BoolVar(&fv.followSymlinks, "follow-symlinks", false, "Follow symbolic links")
	pf.BoolVar(&fv.noIgnore, "no-ignore", false, "Do not apply ignore files")
	pf.BoolVar(&fv.showHidden, "hidden", false, "Include hidden files and directories")
	pf.IntVar(&fv.maxEntries, "max-entries", 0, "Tree node budget")
	pf.StringVar(&fv.sftpTarget, "sftp", "", "Read the workspace over SFTP from user@host[:port]")
	pf.StringSliceVar(&fv.identityFiles, "identity", nil, "SSH private key files for --sftp")
	pf.StringVar(&fv.knownHosts, "known-hosts", "", "known_hosts file for --sftp")

	pf.BoolVarP(&fv.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVarP(&fv.quiet, "quiet", "q", false, "Suppress informational messages")
	pf.StringVar(&fv.logLevel, "log-level", "", "Log level (debug, info, warn, error, none)")
	pf.BoolVar(&fv.noColor, "no-color", false, "Disable colored output")
	pf.StringVarP(&fv.output, "output", "o", "", "Write output to a file instead of stdout")
	pf.BoolVar(&fv.jsonOutput, "json", false, "Output as JSON")
	pf.BoolVar(&fv.markdown, "markdown", false, "Output as Markdown")
	pf.BoolVar(&fv.showSkipped, "show-skipped", false, "List skipped entries after the tree")
	pf.BoolVar(&fv.showProgress, "progress", false, "Show build progress")
	pf.BoolVar(&fv.showStats, "stats", false, "Show filesystem call and cache statistics")
	pf.BoolVar(&fv.collapsed, "collapsed", false, "Hide the contents of collapsed directories")
	pf.DurationVar(&fv.timeout, "timeout", 0, "Abort after this duration (e.g. 30s)")
}

// loadConfig reads the configuration file and applies the flags the user
// set on top of it.
func loadConfig(flags *pflag.FlagSet, fv *flagValues) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case fv.configFile != "":
		cfg, err = config.Load(fv.configFile)
	case fv.sftpTarget == "":
		cfg, err = config.LoadFromDir(fv.dir)
	default:
		cfg = config.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}

	cfg.RootDir = fv.dir
	if flags.Changed("include") {
		cfg.IncludePatterns = fv.include
	}
	if flags.Changed("exclude") {
		cfg.ExcludePatterns = fv.exclude
	}
	if flags.Changed("max-depth") {
		if fv.maxDepth < 0 {
			cfg.MaxDepth = nil
		} else {
			cfg.MaxDepth = filter.Depth(fv.maxDepth)
		}
	}
	if flags.Changed("follow-symlinks") {
		cfg.FollowSymlinks = fv.followSymlinks
	}
	if flags.Changed("no-ignore") {
		cfg.RespectIgnoreFiles = !fv.noIgnore
	}
	if flags.Changed("hidden") {
		cfg.ShowHidden = fv.showHidden
	}
	if flags.Changed("max-entries") {
		cfg.MaxTreeEntries = fv.maxEntries
	}
	if flags.Changed("sftp") {
		cfg.Remote.Target = fv.sftpTarget
	}
	if flags.Changed("identity") {
		cfg.Remote.IdentityFiles = fv.identityFiles
	}
	if flags.Changed("known-hosts") {
		cfg.Remote.KnownHostsFile = fv.knownHosts
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if flags.Changed("no-color") {
		cfg.NoColor = fv.noColor
	}

	cfg.Verbose = fv.verbose
	cfg.Quiet = fv.quiet
	cfg.OutputFile = fv.output
	cfg.JSONOutput = fv.jsonOutput
	cfg.MarkdownOutput = fv.markdown
	cfg.ShowSkipped = fv.showSkipped
	cfg.ShowProgress = fv.showProgress
	cfg.ShowStats = fv.showStats
	cfg.Collapsed = fv.collapsed
	cfg.Timeout = fv.timeout

	if cfg.JSONOutput && cfg.MarkdownOutput {
		return nil, fmt.Errorf("--json and --markdown are mutually exclusive")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ResolveColors(os.Stdout)
	return cfg, nil
}

// runApp loads the configuration and runs fn against a new App
func runApp(cmd *cobra.Command, fv *flagValues, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd.Flags(), fv)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	if cfg.OutputFile == "" {
		a.Output = cmd.OutOrStdout()
	}
	runErr := fn(cmd.Context(), a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func newTreeCommand(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the filtered workspace tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, fv, func(ctx context.Context, a *app.App) error {
				return a.RunTree(ctx)
			})
		},
	}
}

func newExplainCommand(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <path>...",
		Short: "Show why paths are included or excluded",
		Long: `Run every filter stage for each path and print the outcome of each
stage with the pattern or ignore-file rule that decided it. Paths are
relative to the workspace directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, fv, func(ctx context.Context, a *app.App) error {
				return a.RunExplain(ctx, args)
			})
		},
	}
}

func newSelectCommand(fv *flagValues) *cobra.Command {
	req := app.SelectRequest{}
	cmd := &cobra.Command{
		Use:   "select [path]...",
		Short: "Select files and print the selection",
		Long: `Build the tree and select the given files. A directory selects every
file below it. Paths that are not part of the tree are an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Paths = args
			return runApp(cmd, fv, func(ctx context.Context, a *app.App) error {
				return a.RunSelect(ctx, req)
			})
		},
	}
	cmd.Flags().BoolVarP(&req.All, "all", "a", false, "Select every file of the tree")
	cmd.Flags().StringSliceVarP(&req.Unselect, "unselect", "u", nil, "Deselect these paths after selecting")
	cmd.Flags().BoolVar(&req.ShowTree, "tree", false, "Print the tree with selection marks")
	return cmd
}
