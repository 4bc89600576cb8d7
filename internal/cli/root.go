// Package cli wires configuration, logging, storage and the backend client
// into the jobchat commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"jobchat/internal/api"
	"jobchat/internal/config"
	"jobchat/internal/logging"
	"jobchat/internal/session"
	"jobchat/internal/store"
)

var (
	version = "dev"
	commit  = "unknown"
)

// errSilent marks a failure whose details were already printed.
var errSilent = errors.New("command failed")

type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type globalFlags struct {
	configPath string
	envFile    string
	apiURL     string
	dbPath     string
	logFile    string
	exportFmt  string
	verbose    bool
	ephemeral  bool
}

// app holds what a command needs once the persistent pre-run has resolved
// the configuration.
type app struct {
	streams  Streams
	flags    globalFlags
	cfg      config.AppConfig
	log      *slog.Logger
	store    store.Store
	sessions *session.Manager
	client   *api.Client
	closers  []io.Closer
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, streams Streams) int {
	a := &app{streams: streams, log: logging.Discard()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	err := root.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errSilent) {
		fmt.Fprintf(streams.Err, "Error: %v\n", err)
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobchat",
		Short: "Chat with the AI job portal from your terminal",
		Long: `jobchat talks to the AI job portal backend. Log in or register, then ask
for what you need in plain language ("show all jobs", "update my profile");
the backend turns it into GraphQL, runs it and jobchat shows both.

Run without a subcommand to open the interactive chat.`,
		Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runChat,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default ~/.config/jobchat/config.toml)")
	pf.StringVar(&a.flags.envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	pf.StringVar(&a.flags.apiURL, "api-url", "", "backend base URL")
	pf.StringVar(&a.flags.dbPath, "db-path", "", "path to the session database")
	pf.StringVar(&a.flags.logFile, "log-file", "", "path to the log file")
	pf.StringVar(&a.flags.exportFmt, "export-format", "", "transcript export format: markdown, json or yaml")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log at debug level")
	pf.BoolVar(&a.flags.ephemeral, "ephemeral", false, "keep the session in memory only")

	root.AddCommand(
		a.chatCmd(),
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.askCmd(),
		a.queryCmd(),
		a.doctorCmd(),
	)
	return root
}

func (a *app) overrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		o.APIURL = &a.flags.apiURL
	}
	if flags.Changed("db-path") {
		o.DBPath = &a.flags.dbPath
	}
	if flags.Changed("log-file") {
		o.LogFile = &a.flags.logFile
	}
	if flags.Changed("export-format") {
		o.ExportFormat = &a.flags.exportFmt
	}
	if flags.Changed("verbose") {
		o.Verbose = &a.flags.verbose
	}
	if flags.Changed("ephemeral") {
		o.Ephemeral = &a.flags.ephemeral
	}
	return o
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: a.flags.configPath,
		EnvFile:    a.flags.envFile,
	})
	if err != nil {
		return err
	}
	cfg.Apply(a.overrides(cmd))
	if err := cfg.Finalize(); err != nil {
		return err
	}
	a.cfg = cfg

	log, closer, err := logging.Open(logging.Options{Path: cfg.LogFile, Level: cfg.LogLevel, Verbose: cfg.Verbose})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closer)
	a.log = log.With("command", cmd.Name())

	if cfg.Ephemeral {
		a.store = store.NewMemory()
	} else {
		sq, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		a.store = sq
	}
	a.closers = append(a.closers, a.store)

	a.sessions, err = session.Open(cmd.Context(), a.store, session.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.client = api.New(api.Options{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout,
		UserAgent: "jobchat/" + version,
		Logger:    a.log,
	})
	a.log.Debug("configured", "api_url", cfg.APIURL, "ephemeral", cfg.Ephemeral, "logged_in", a.sessions.Current().LoggedIn())
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close", "error", err)
		}
	}
	a.closers = nil
}

// requestContext carries the current session and a request id.
func (a *app) requestContext(ctx context.Context) context.Context {
	ctx = session.NewContext(ctx, a.sessions.Current())
	return logging.WithRequestID(ctx, newRequestID())
}
