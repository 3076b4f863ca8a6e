package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"hesapkit.com/internal/app"
	"hesapkit.com/internal/appconf"
	"hesapkit.com/internal/logging"
)

type rootOptions struct {
	configPath string
	env        string
	baseURL    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "hesapkit",
		Short:         "Calculator site server and tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "hesapkit.yaml", "Path to the YAML config file")
	pf.StringVar(&opts.env, "env", "", "Environment (development|test|production), overrides the config file")
	pf.StringVar(&opts.baseURL, "base-url", "", "Public base URL, overrides the config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newSitemapCmd(opts),
		newNotifyCmd(opts),
		newCalcCmd(),
	)
	return cmd
}

// config loads the file, then applies flag overrides on top of the
// environment.
func (o *rootOptions) config() (*appconf.Config, error) {
	cfg, err := appconf.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.env != "" {
		cfg.Env = appconf.EnvFlagToEnvironment(o.env)
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger writes JSON in production and text elsewhere.
func logger(cfg *appconf.Config, w io.Writer) *slog.Logger {
	if cfg.IsProduction() {
		return logging.NewStructuredLogger(w, cfg.Level())
	}
	return logging.NewTextLogger(w, cfg.Level())
}

// open builds the Application for a command. Logs go to the command's
// error stream so stdout stays clean for output.
func (o *rootOptions) open(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, logger(cfg, cmd.ErrOrStderr()))
}
