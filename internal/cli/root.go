// Package cli implements the putioarr command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/putioarr/putioarr/internal/config"
	"github.com/putioarr/putioarr/internal/logging"
	"github.com/putioarr/putioarr/internal/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Global logger
	logger *logging.Logger
)

// ExitError carries a process exit code through cobra's error return so main
// can distinguish configuration mistakes from runtime failures.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func exitErr(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "putioarr",
		Short: "put.io download proxy for sonarr, radarr and whisparr",
		Long: `putioarr ` + version.Version + ` - Built: ` + version.BuildTime + `
Serves a Transmission RPC endpoint backed by put.io. Torrents added by
sonarr, radarr or whisparr are forwarded to put.io, fetched to local disk
once the cloud finishes them, and handed back for import.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default ~/.config/putioarr/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newGetTokenCmd())

	return rootCmd
}

// configPath resolves the --config flag, falling back to the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			cancel()
		}
	}()

	err := NewRootCmd().ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}
