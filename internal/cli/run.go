package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/putioarr/putioarr/internal/arr"
	"github.com/putioarr/putioarr/internal/config"
	"github.com/putioarr/putioarr/internal/logging"
	"github.com/putioarr/putioarr/internal/putio"
	"github.com/putioarr/putioarr/internal/transfer"
	"github.com/putioarr/putioarr/internal/transmission"
)

// Exit codes for the run command. Configuration problems exit 1, rejected
// cloud credentials exit 2, runtime failures exit 3.
const (
	exitConfig     = 1
	exitCredential = 2
	exitRuntime    = 3
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the RPC endpoint and the download loop",
		Args:  cobra.NoArgs,
		RunE:  runProxy,
	}
}

func runProxy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path, err := configPath()
	if err != nil {
		return exitErr(exitConfig, err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return exitErr(exitConfig, fmt.Errorf("no configuration at %s, run \"putioarr get-token\" to create one", path))
		}
		return exitErr(exitConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return exitErr(exitConfig, fmt.Errorf("invalid configuration: %w", err))
	}

	// --verbose wins over the configured level.
	if !verbose {
		level, err := logging.ParseLevel(cfg.Loglevel)
		if err != nil {
			return exitErr(exitConfig, err)
		}
		logging.SetGlobalLevel(level)
	}

	cloud := putio.NewClient(cfg.Putio.APIKey)

	var notifiers []transfer.Notifier
	for _, a := range cfg.Arrs() {
		client, err := arr.NewClient(a.Kind, a.Config.URL, a.Config.APIKey)
		if err != nil {
			return exitErr(exitConfig, err)
		}
		notifiers = append(notifiers, client)
		logger.Info().Str("service", a.Kind).Str("url", a.Config.URL).Msg("Import notifications enabled")
	}
	if len(notifiers) == 0 {
		logger.Warn().Msg("No sonarr/radarr/whisparr configured, completed downloads will not be imported")
	}

	orch := transfer.NewOrchestrator(cfg, cloud, notifiers, logger, nil)
	if err := orch.VerifyCredentials(ctx); err != nil {
		return exitErr(exitCredential, err)
	}
	if err := orch.Start(ctx); err != nil {
		return exitErr(exitRuntime, err)
	}
	defer orch.Stop()

	handler := transmission.NewHandler(cfg, cloud, logger)
	if err := handler.ListenAndServe(ctx); err != nil {
		return exitErr(exitRuntime, err)
	}
	return nil
}
