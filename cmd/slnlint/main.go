package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"slnlint/internal/config"
	_ "slnlint/internal/rules/builtin"
	"slnlint/internal/solution"
)

var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:               "slnlint",
		Short:             "Cross-project static analysis for multi-project solutions",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	cfgFile string
)

type ctxKey int

const (
	configKey ctxKey = iota
	loggerKey
)

// exitError carries a process exit code without a message.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 2
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default: ./"+config.FileName+")")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(historyCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if cfg.File != "" {
		log.Debug("using config file", "path", cfg.File)
	}

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, log)
	cmd.SetContext(ctx)
	return nil
}

func configFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey).(*config.Config); ok {
		return c
	}
	return &config.Config{Format: "text", UI: "off", LogLevel: "warn", Color: "auto"}
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// loadSolution reads the descriptor named by the first argument, the
// solution setting, or the one found from the working directory.
func loadSolution(cfg *config.Config, args []string) (*solution.Descriptor, error) {
	path := cfg.Solution
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = "."
	}
	return solution.Load(path)
}
