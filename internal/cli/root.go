// Package cli implements the artsy command line.
package cli

import (
	"time"

	"github.com/artpar/artsy/internal/app"
	"github.com/artpar/artsy/internal/config"
	"github.com/artpar/artsy/internal/favorites"
	"github.com/artpar/artsy/internal/logging"
	"github.com/spf13/cobra"
)

// RootOptions holds the flags shared by every command. Flags that are set
// override the environment.
type RootOptions struct {
	EnvFile   string
	BaseURL   string
	DataDir   string
	Timeout   time.Duration
	LogLevel  string
	LogFormat string
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "artsy",
		Short:        "Artsy - art catalog session and favorites client",
		Long:         "Artsy signs in to the art catalog API, keeps the session cookie across runs and manages your favorite artists.",
		Version:      version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.EnvFile, "env-file", "", "Load settings from this dotenv file instead of ./.env")
	flags.StringVar(&opts.BaseURL, "base-url", "", "API base URL (ARTSY_BASE_URL)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "Directory holding the cookie database (ARTSY_DATA_DIR)")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "HTTP timeout, 0 for none (ARTSY_HTTP_TIMEOUT)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error (ARTSY_LOG_LEVEL)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Log format: text or json (ARTSY_LOG_FORMAT)")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewDeleteAccountCommand(opts))
	cmd.AddCommand(NewFavoritesCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewSimilarCommand(opts))
	cmd.AddCommand(NewArtistCommand(opts))
	cmd.AddCommand(NewCookiesCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies the flags that were set.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	cfg, err := config.Read(files...)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.DataDir
	}
	if flags.Changed("timeout") {
		cfg.HTTPTimeout = o.Timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.LogFormat
	}
	return cfg, cfg.Validate()
}

// openApp builds the application for one command run. The caller must
// Close it.
func (o *RootOptions) openApp(cmd *cobra.Command, notifier favorites.Notifier) (*app.App, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.FromStrings(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	appOpts := []app.Option{app.WithLogger(logger)}
	if notifier != nil {
		appOpts = append(appOpts, app.WithNotifier(notifier))
	}
	return app.New(cfg, appOpts...)
}
