// Command backoffice runs the pool company's calendar and estimate service
// and its maintenance tasks.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/pool-backoffice/internal/config"
	"github.com/example/pool-backoffice/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error:"), err)
		os.Exit(1)
	}
}

// runEnv carries what every subcommand needs once configuration is loaded.
type runEnv struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "backoffice",
		Short:         "Pool company back-office: calendar events and estimates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `backoffice serves the admin calendar and estimate API and provides the
maintenance commands used to prepare its database.

Configuration is read from BACKOFFICE_* environment variables, layered over
an optional dotenv file.`,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read under the process environment")

	load := func(cmd *cobra.Command) (runEnv, error) {
		cfg, err := config.LoadWithEnvFile(envFile)
		if err != nil {
			return runEnv{}, err
		}
		return runEnv{cfg: cfg, logger: logging.New(cmd.ErrOrStderr(), cfg.LogLevel)}, nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(adminCmd(load))
	rootCmd.AddCommand(customerCmd(load))
	return rootCmd
}

type loader func(cmd *cobra.Command) (runEnv, error)

// withBackend opens the configured store for the duration of fn.
func withBackend(ctx context.Context, rt runEnv, fn func(*backend) error) (err error) {
	b, err := openBackend(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	return fn(b)
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen).Sprint("✓"), fmt.Sprintf(format, args...))
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
