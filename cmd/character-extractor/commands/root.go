package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	charextractor "github.com/menta2k/character-extractor"
	"github.com/menta2k/character-extractor/internal/config"
	"github.com/menta2k/character-extractor/internal/logger"
	"github.com/menta2k/character-extractor/internal/utils"
)

// App carries the state shared by every subcommand
type App struct {
	ConfigPath string
	Debug      bool
	LogFormat  string

	Config *config.Config
	Logger *zap.Logger
}

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "character-extractor",
		Short:         "Extract character attributes from anime artwork",
		Long:          "Crops every character out of an image, tags it with a DeepDanbooru model and asks a vision-language model about whatever the tags leave open.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				_ = logger.Sync(app.Logger)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "config file (JSON or YAML, default "+config.GetConfigPath()+")")
	cmd.PersistentFlags().BoolVar(&app.Debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", "console", "log format: console|json")

	cmd.AddCommand(NewProcessCmd(app))
	cmd.AddCommand(NewTagCmd(app))
	cmd.AddCommand(NewDetectCmd(app))
	cmd.AddCommand(NewAnnotateCmd(app))
	cmd.AddCommand(NewConfigCmd(app))
	cmd.AddCommand(NewCacheCmd(app))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// setup loads .env, the config file and CHAREX_* overrides, then builds the logger
func (a *App) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	a.Config = cfg

	log, err := logger.New(a.LogFormat, a.Debug)
	if err != nil {
		return err
	}
	a.Logger = log.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("command", cmd.Name()),
	)
	return nil
}

// loadConfig reads the explicit --config file, or the default path when it
// exists, or falls back to defaults
func (a *App) loadConfig() (*config.Config, error) {
	path := a.ConfigPath
	if path == "" {
		if def := config.GetConfigPath(); utils.FileExists(def) {
			path = def
		}
	}
	if path == "" {
		return config.Default(), nil
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// runContext is cancelled on SIGINT/SIGTERM and, when timeout is positive,
// once the whole run exceeds it
func runContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// extractor builds a fully wired extractor from the loaded configuration
func (a *App) extractor(ctx context.Context) (*charextractor.Extractor, error) {
	ex, err := charextractor.New(ctx, a.Config, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}
	return ex, nil
}

// closeExtractor releases the extractor, logging instead of failing
func (a *App) closeExtractor(ex *charextractor.Extractor) {
	if err := ex.Close(); err != nil {
		a.Logger.Warn("failed to close extractor", zap.Error(err))
	}
}
