package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docsmith/internal/config"
	"docsmith/internal/logging"
)

var (
	v          = viper.New()
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docsmith",
	Short: "Generate, review and publish repository documentation with AI",
	Long: `docsmith builds documentation for source code, pasted snippets or whole
repositories with a completion model, reviews it with a second pass and
publishes the result to GitHub as a commit or a pull request.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configFile)
		if err != nil {
			return err
		}
		var level zap.AtomicLevel
		logger, level, err = logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose {
			level.SetLevel(zapcore.DebugLevel)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	config.Configure(v)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./docsmith.yaml or ~/.config/docsmith/docsmith.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.String("provider", "", "completion provider: openai, anthropic or gemini")
	flags.String("model", "", "completion model API name")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("json-logs", false, "write logs as JSON")
	flags.String("db", "", "SQLite database path")
	_ = v.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = v.BindPFlag("llm.model", flags.Lookup("model"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.json", flags.Lookup("json-logs"))
	_ = v.BindPFlag("database.path", flags.Lookup("db"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(documentsCmd())
	rootCmd.AddCommand(keysCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
