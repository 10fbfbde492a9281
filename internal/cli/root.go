package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/startupval/internal/config"
	"github.com/me/startupval/internal/logging"
	"github.com/me/startupval/pkg/api"
	"github.com/me/startupval/pkg/auth"
	"github.com/me/startupval/pkg/storage"
)

var (
	flagServer      string
	flagConfig      string
	flagDebug       bool
	flagLogLevel    string
	flagLogFormat   string
	flagTimeout     time.Duration
	flagStorage     string
	flagStoragePath string
	flagRedisAddr   string

	logger  *slog.Logger
	store   storage.Storage
	retrier *api.Retrier
	holder  *auth.Holder
)

// Execute runs the root command and releases the session store afterwards.
func Execute() error {
	defer closeStore()
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root cobra command for the startupval CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "startupval",
		Short: "Startup Idea Validator client",
		Long:  "startupval registers, logs in and talks to the Startup Idea Validator backend, waking it when it is cold.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", api.DefaultBaseURL, "Backend URL (or "+api.BaseURLEnv+" env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.startupval/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log every request and response")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", api.DefaultTimeout, "Per-attempt request timeout")
	root.PersistentFlags().StringVar(&flagStorage, "storage", storage.BackendFile, "Session storage backend (file, sqlite, redis, memory)")
	root.PersistentFlags().StringVar(&flagStoragePath, "storage-path", "", "Directory (file) or database path (sqlite)")
	root.PersistentFlags().StringVar(&flagRedisAddr, "redis-addr", "", "Redis address for --storage=redis")

	root.AddCommand(
		newRegisterCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newWakeCmd(),
		newRequestCmd(),
	)

	return root
}

// setup resolves configuration (defaults, file, env, flags) and restores the
// session for the command about to run.
func setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	path := flagConfig
	if path == "" {
		p, err := config.DefaultPath()
		if err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = flagServer
	}
	if flags.Changed("debug") {
		cfg.Debug = flagDebug
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = flagStorage
	}
	if flags.Changed("storage-path") {
		cfg.Storage.Path = flagStoragePath
	}
	if flags.Changed("redis-addr") {
		cfg.Storage.RedisAddr = flagRedisAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	logger = logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	closeStore()
	store, err = storage.Open(ctx, cfg.StorageOptions(), logger)
	if err != nil {
		return err
	}

	retrier = api.NewRetrier(api.NewClient(cfg.API(), logger), logger)
	holder = auth.Restore(ctx, store, retrier, logger)
	logger.Debug("configured", "server", cfg.Server, "storage", cfg.Storage.Backend, "authenticated", holder.IsAuthenticated())
	return nil
}

func closeStore() {
	if store != nil {
		store.Close()
		store = nil
	}
}
