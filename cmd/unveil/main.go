package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"unveil/internal/api"
	"unveil/internal/config"
	"unveil/internal/logging"
	"unveil/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "unveil",
	Short: "Unveil - verify suspicious contacts and report scams",
	Long: `Unveil searches a community database of reported scams by name, email,
phone or company, lets verified users vote on case verdicts, and submits
new reports.

Run without arguments to start the interactive interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		lc := cfg.Logging
		if err := logging.Initialize(cfg.LogsDir(), logging.Options{
			DebugMode:  lc.DebugMode,
			Level:      lc.Level,
			Format:     lc.Format,
			Categories: lc.Categories,
		}); err != nil {
			logger.Warn("debug logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.unveil/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config and UNVEIL_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (overrides config)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(aboutCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file and applies the command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("api-url") {
		c.API.BaseURL = apiURL
	}
	if cmd.Flags().Changed("timeout") {
		c.API.Timeout = timeout.String()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Debug("configuration loaded",
		zap.String("path", resolvedConfigPath()),
		zap.String("api", c.API.BaseURL),
		zap.Duration("timeout", c.GetAPITimeout()))
	return c, nil
}

func newClient(c *config.Config) *api.Client {
	ep := c.API.Endpoints
	return api.NewClient(api.Options{
		BaseURL: c.API.BaseURL,
		Timeout: c.GetAPITimeout(),
		Endpoints: api.Endpoints{
			Search:    ep.Search,
			Report:    ep.Report,
			Vote:      ep.Vote,
			OTPSend:   ep.OTPSend,
			OTPVerify: ep.OTPVerify,
		},
		DefaultPageSize: c.Search.DefaultPageSize,
	})
}

// openStore opens the local database. Commands keep working without it,
// so failures are logged and nil is returned.
func openStore(c *config.Config) *store.Store {
	st, err := store.Open(c.Store.Driver, c.StorePath())
	if err != nil {
		logger.Warn("local store unavailable", zap.String("path", c.StorePath()), zap.Error(err))
		return nil
	}
	return st
}

func closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}
