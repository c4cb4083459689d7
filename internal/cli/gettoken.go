package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/putioarr/putioarr/internal/config"
	"github.com/putioarr/putioarr/internal/putio"
)

const oobPollInterval = 5 * time.Second

func newGetTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-token",
		Short: "Link a put.io account and write a starter config",
		Long: `Requests a device code from put.io, waits for you to approve it at
https://put.io/link and prints the resulting API token. When no config
file exists yet, a starter config with the token filled in is written.`,
		Args: cobra.NoArgs,
		RunE: getToken,
	}
}

func getToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// The OOB code endpoints are unauthenticated.
	cloud := putio.NewClient("")

	code, err := cloud.GetOOBCode(ctx)
	if err != nil {
		return exitErr(exitRuntime, fmt.Errorf("failed to request a link code: %w", err))
	}

	fmt.Fprintf(out, "Visit https://put.io/link and enter the code: %s\n", code)
	fmt.Fprintln(out, "Waiting for approval...")

	token, err := cloud.WaitForOOBToken(ctx, code, oobPollInterval)
	if err != nil {
		return exitErr(exitRuntime, fmt.Errorf("failed to obtain the API token: %w", err))
	}
	fmt.Fprintf(out, "Your put.io API token: %s\n", token)

	path, err := configPath()
	if err != nil {
		return exitErr(exitConfig, err)
	}
	if err := config.WriteTemplate(path, token); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			fmt.Fprintf(out, "Config already exists; set api_key in the [putio] section of %s\n", path)
			return nil
		}
		return exitErr(exitConfig, err)
	}
	fmt.Fprintf(out, "Wrote a starter config to %s. Edit it, then start with: putioarr run\n", path)
	return nil
}
