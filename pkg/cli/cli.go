// Package cli builds the wheretruck command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gamakdragons/wheretruck/pkg/config"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/version"
)

// RunFunc runs a command against the loaded configuration.
type RunFunc func(ctx context.Context, cfg *config.Config, log logger.Logger) error

// Options supplies the behavior behind the commands.
type Options struct {
	Name string
	// RunServer serves until ctx is cancelled.
	RunServer RunFunc
	// CheckDependencies checks the stores once.
	CheckDependencies RunFunc
	// Out receives command output. Defaults to os.Stdout.
	Out io.Writer
}

// NewRootCommand creates the CLI with serve, healthcheck and version subcommands.
// Running the root command without a subcommand serves.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Name == "" {
		opts.Name = "wheretruck"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         "Food truck locator API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(opts.Out)

	var cfgPath, envPrefix string
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config-file", "c", "", "config file path")
	flags.StringVar(&envPrefix, "env-prefix", config.DefaultEnvPrefix, "environment variable prefix")
	flags.Int("port", 0, "HTTP port (overrides http.port)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json, text")

	load := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		return LoadConfigAndLogger(cfgPath, envPrefix, flags)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(opts.Name)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "Go:         %s\n", info.GoVersion)
		},
	})

	if opts.RunServer != nil {
		serveCmd := &cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := load(cmd.Flags())
				if err != nil {
					return err
				}
				defer syncLogger(log)

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return opts.RunServer(ctx, cfg, log)
			},
		}
		rootCmd.AddCommand(serveCmd)
		rootCmd.RunE = serveCmd.RunE
	}

	if opts.CheckDependencies != nil {
		rootCmd.AddCommand(&cobra.Command{
			Use:   "healthcheck",
			Short: "Check connectivity to the search and object stores",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := load(cmd.Flags())
				if err != nil {
					return err
				}
				defer syncLogger(log)
				return opts.CheckDependencies(cmd.Context(), cfg, log)
			},
		})
	}

	return rootCmd
}

// LoadConfigAndLogger loads configuration with flag overrides and builds the zap logger.
func LoadConfigAndLogger(cfgPath, envPrefix string, flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
	loader := config.NewViperLoader(cfgPath, envPrefix)
	if flags != nil {
		loader.WithFlag("http.port", flags.Lookup("port")).
			WithFlag("observability.log_level", flags.Lookup("log-level")).
			WithFlag("observability.log_format", flags.Lookup("log-format"))
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:   logger.LogLevel(cfg.Observability.LogLevel),
		Format:  logger.LogFormat(cfg.Observability.LogFormat),
		Service: cfg.Service.Name,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}

// Execute runs the command and exits with status 1 on error.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func syncLogger(log logger.Logger) {
	if s, ok := log.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
