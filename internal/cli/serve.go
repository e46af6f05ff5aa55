package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/spf13/cobra"
	"github.com/ytakahashi/todo-api/internal/config"
	"github.com/ytakahashi/todo-api/internal/logging"
	"github.com/ytakahashi/todo-api/internal/server"
	"github.com/ytakahashi/todo-api/internal/services"
)

// ServeOptions holds flags for the serve command. Flags only override the
// loaded configuration when set explicitly.
type ServeOptions struct {
	ConfigPath string
	EnvFiles   []string
	Port       int
	Store      string
	LogLevel   string
	LogFormat  string
}

func NewServeCommand() *cobra.Command {
	return newServeCommand(&ServeOptions{})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat))
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "dotenv files to load (missing files are ignored)")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "port to listen on")
	cmd.Flags().StringVar(&opts.Store, "store", "", "todo store backend (memory|firestore)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json|logfmt)")

	return cmd
}

// resolve loads the configuration and applies explicitly set flags on top.
func (o *ServeOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath, o.EnvFiles...)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = o.Port
	}
	if flags.Changed("store") {
		cfg.Store = o.Store
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	deps := server.Deps{Logger: logger}

	switch cfg.Store {
	case config.StoreFirestore:
		firestoreService, err := services.NewFirestoreService(ctx, cfg.FirestoreProject)
		if err != nil {
			return err
		}
		defer firestoreService.Close()
		deps.Store = firestoreService
	default:
		deps.Store = services.NewMemoryStore()
	}

	if cfg.LineEnabled() {
		bot, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken)
		if err != nil {
			return fmt.Errorf("failed to create LINE bot client: %w", err)
		}
		deps.Bot = bot
		logger.Info("LINE webhook enabled", "path", "/webhook")
	}

	return server.New(cfg, deps).Run(ctx)
}
