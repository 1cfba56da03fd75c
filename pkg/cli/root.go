package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/chapteradmin/pkg/app"
	"github.com/platinummonkey/chapteradmin/pkg/client"
	"github.com/platinummonkey/chapteradmin/pkg/config"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
	Out         io.Writer
}

// Env is the state shared by every command
type Env struct {
	Out    io.Writer
	Logger *logrus.Logger

	// Remote sends commands to a running chapterd when BaseURL is set
	Remote client.Config

	// ConfigFile overrides CHAPTERS_CONFIG_FILE in local mode
	ConfigFile string
	// As is the actor recorded on local changes
	As string
	// JSON switches output from tables to JSON
	JSON bool
	// Verbose logs engine internals in local mode
	Verbose bool

	// LoadConfig is config.LoadFile unless replaced
	LoadConfig func(path string) (*config.Config, error)
}

// NewRootCommand creates the root command
func NewRootCommand(env *Env) *Command {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Logger == nil {
		env.Logger = logrus.New()
	}
	if env.LoadConfig == nil {
		env.LoadConfig = config.LoadFile
	}

	root := &Command{
		Name:        "chapterctl",
		Description: "chapterctl - manage schools and chapter admins",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("chapterctl", flag.ContinueOnError),
		Out:         env.Out,
	}
	root.Flags.SetOutput(io.Discard)

	root.Flags.StringVar(&env.Remote.BaseURL, "server", env.Remote.BaseURL, "chapterd base URL; local mode when empty")
	root.Flags.StringVar(&env.Remote.Token, "token", env.Remote.Token, "Bearer token for -server")
	root.Flags.StringVar(&env.Remote.ClientID, "client-id", env.Remote.ClientID, "OAuth2 client ID for -server")
	root.Flags.StringVar(&env.Remote.ClientSecret, "client-secret", env.Remote.ClientSecret, "OAuth2 client secret for -server")
	root.Flags.StringVar(&env.Remote.TokenURL, "token-url", env.Remote.TokenURL, "OAuth2 token endpoint for -server")
	root.Flags.StringVar(&env.ConfigFile, "config", env.ConfigFile, "Config file for local mode")
	root.Flags.StringVar(&env.As, "as", env.As, "Actor recorded on local changes")
	root.Flags.BoolVar(&env.JSON, "json", env.JSON, "Print JSON instead of tables")
	root.Flags.BoolVar(&env.Verbose, "v", env.Verbose, "Verbose logging")

	for _, cmd := range []*Command{
		newMigrateCommand(env),
		newAddSchoolCommand(env),
		newAssignCommand(env),
		newRemoveCommand(env),
		newListCommand(env),
		newStatsCommand(env),
		newPermissionsCommand(env),
		newAuditCommand(env),
		newMaintenanceCommand(env),
	} {
		root.Subcommands[cmd.Name] = cmd
	}

	return root
}

// Execute parses global flags and runs the named subcommand
func (c *Command) Execute(ctx context.Context, args []string) error {
	if c.Flags != nil {
		if err := c.Flags.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return c.usage()
			}
			return err
		}
		args = c.Flags.Args()
	}

	if len(args) == 0 {
		if c.Run != nil {
			return c.Run(ctx, args)
		}
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Execute(ctx, args[1:])
	}
	if c.Run != nil {
		return c.Run(ctx, args)
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "%s\n\n", c.Description)

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(out, "Commands:\n")
		names := make([]string, 0, len(c.Subcommands))
		for name := range c.Subcommands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Flags:\n")
	c.Flags.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(out, "  -%-14s %s\n", f.Name, f.Usage)
	})
	return nil
}

func (e *Env) remote() bool {
	return e.Remote.BaseURL != ""
}

// backend connects to the server in remote mode or opens the configured
// storage in local mode. done releases it.
func (e *Env) backend(ctx context.Context) (Backend, func(), error) {
	if e.Verbose {
		e.Logger.SetLevel(logrus.DebugLevel)
	}
	if e.remote() {
		c, err := client.New(ctx, e.Remote)
		if err != nil {
			return nil, nil, err
		}
		e.Logger.WithField("server", e.Remote.BaseURL).Debug("using remote server")
		return c, func() {}, nil
	}

	a, done, err := e.local(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &localBackend{engine: a.Engine, actor: e.actor()}, done, nil
}

// local opens the application against the configured storage. adjust may
// tweak the loaded configuration first.
func (e *Env) local(ctx context.Context, adjust ...func(*config.Config)) (*app.App, func(), error) {
	cfg, err := e.LoadConfig(e.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	for _, fn := range adjust {
		fn(cfg)
	}
	level := observability.WarnLevel
	if e.Verbose {
		level = observability.DebugLevel
	}
	a, err := app.Open(ctx, cfg, observability.NewLogger(level, os.Stderr), nil)
	if err != nil {
		return nil, nil, err
	}
	e.Logger.WithField("storage", cfg.Storage.Type).Debug("opened local storage")

	done := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			e.Logger.WithError(err).Warn("failed to close storage cleanly")
		}
	}
	return a, done, nil
}

// localOnly fails commands that need direct database access
func (e *Env) localOnly(command string) error {
	if e.remote() {
		return fmt.Errorf("%s works on the database directly; run it without -server", command)
	}
	return nil
}

func (e *Env) actor() string {
	if e.As != "" {
		return e.As
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "chapterctl"
}
