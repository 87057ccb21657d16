package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/feedload/internal/config"
	"github.com/matzehuels/feedload/pkg/buildinfo"
	"github.com/matzehuels/feedload/pkg/cache"
	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/feed"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "feedload"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	flags  globalFlags
	config *config.Config
	stderr io.Writer
}

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	cacheDir   string
	expiry     string
	noCache    bool
	user       string
	pass       string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		stderr: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Feedload fetches, caches and normalizes RSS and Atom feeds",
		Long:         `Feedload is a CLI tool for loading RSS and Atom feeds through a local file cache. Namespaced fields become plain "prefix:local" fields and every item gains a normalized date and a relative age.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/feedload/config.toml)")
	pf.StringVar(&c.flags.cacheDir, "cache-dir", "", "cache directory (overrides config)")
	pf.StringVar(&c.flags.expiry, "expiry", "", `cache expiry, e.g. "2 hours" or "1 day" (overrides config)`)
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the feed cache")
	pf.StringVar(&c.flags.user, "user", "", "basic-auth user")
	pf.StringVar(&c.flags.pass, "pass", "", "basic-auth password")

	// Register all subcommands
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.getCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration, applies flag overrides and attaches the
// logger to the command context.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), c.flags.configPath)
	if err != nil {
		return err
	}
	if c.flags.cacheDir != "" {
		cfg.CacheDir = c.flags.cacheDir
	}
	if c.flags.expiry != "" {
		cfg.CacheExpiry = cache.Expiry(c.flags.expiry)
		if err := cfg.CacheExpiry.Validate(); err != nil {
			return err
		}
	}
	if c.flags.noCache {
		cfg.CacheDir = ""
	}
	c.config = cfg

	c.Logger.SetLevel(cfg.LogLevel())
	if cfg.Log.File != "" {
		c.Logger.SetOutput(io.MultiWriter(c.stderr, newFileSink(cfg.Log)))
	}
	registerLogHooks(c.Logger)
	c.Logger.Debug("config loaded", "config", cfg.String())

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Loader Factory
// =============================================================================

// newLoader creates a feed loader from the loaded configuration.
func (c *CLI) newLoader() (*feed.Loader, error) {
	cfg := c.config
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeInternal, "configuration not loaded")
	}
	return feed.New(feed.Config{
		CacheDir:    cfg.CacheDir,
		CacheExpiry: cfg.CacheExpiry,
		Timeout:     cfg.Timeout,
		NoRedirects: cfg.FollowRedirects != nil && !*cfg.FollowRedirects,
		Location:    cfg.Location(),
		DateParser:  feed.LayoutParser{Layouts: feed.DefaultLayouts, Location: cfg.Location()},
		Logger:      c.Logger,
	})
}

// resolve maps a feed argument to a URL and request options. Credentials
// from flags replace those of a named feed.
func (c *CLI) resolve(arg string) (string, []feed.RequestOption, error) {
	if c.config == nil {
		return "", nil, errors.New(errors.ErrCodeInternal, "configuration not loaded")
	}
	f, err := c.config.Resolve(arg)
	if err != nil {
		return "", nil, err
	}
	if c.flags.user != "" || c.flags.pass != "" {
		f.User, f.Pass = c.flags.user, c.flags.pass
	}

	var opts []feed.RequestOption
	if creds := f.Credentials(); creds != nil {
		opts = append(opts, feed.WithBasicAuth(creds.User, creds.Pass))
	}
	return f.URL, opts, nil
}

// loadOptions selects the non-validating entry point.
type loadOptions struct {
	rss bool
}

// load resolves arg and loads it with a spinner on stderr.
func (c *CLI) load(cmd *cobra.Command, arg string, opts loadOptions) (*feed.Feed, error) {
	ctx := cmd.Context()
	url, reqOpts, err := c.resolve(arg)
	if err != nil {
		return nil, err
	}
	l, err := c.newLoader()
	if err != nil {
		return nil, err
	}

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Loading "+url)
	spinner.Start()

	var f *feed.Feed
	if opts.rss {
		f, err = l.LoadRSS(ctx, url, reqOpts...)
	} else {
		f, err = l.LoadFeed(ctx, url, reqOpts...)
	}
	spinner.Stop()
	if err != nil {
		return nil, err
	}

	prog.done(fmt.Sprintf("Loaded %s feed with %d items", f.Kind(), len(f.Items())))
	return f, nil
}
