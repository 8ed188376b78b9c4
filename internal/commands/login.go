package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"todoseq/internal/backend/googletasks"
	"todoseq/internal/config"
	"todoseq/internal/exitcode"
	"todoseq/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Authenticate with the task backend" }
func (c *LoginCmd) Usage() string      { return "todoseq login [common flags]" }
func (c *LoginCmd) NeedsBackend() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	switch cfg.Settings.Backend {
	case config.BackendGoogleTasks:
		return c.loginGoogle(ctx, cfg, out, errOut)
	default:
		return c.checkAPIToken(cfg, out, errOut)
	}
}

// loginGoogle runs the browser flow unless a usable token is already saved.
func (c *LoginCmd) loginGoogle(ctx context.Context, cfg *config.Config, out, errOut io.Writer) int {
	if !cfg.HasOAuthClient() {
		printOAuthClientHelp(cfg, errOut)
		return exitcode.AuthError
	}

	if cfg.HasToken() && googletasks.TokenValid(ctx, cfg) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	oc, err := googletasks.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	auth := googletasks.NewAuthorizer(oc, func(authURL string) {
		fmt.Fprintln(errOut, "Open this URL in your browser:")
		fmt.Fprintln(errOut, authURL)
	}, cfg.Logger())

	token, err := auth.Authorize(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(errOut, "error: cancelled")
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return exitcode.AuthError
	}

	if err := googletasks.SaveToken(cfg, token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

func printOAuthClientHelp(cfg *config.Config, errOut io.Writer) {
	fmt.Fprintf(errOut, "error: oauth_client.json not found in %s\n\n", cfg.Dir)
	fmt.Fprintln(errOut, "To use the googletasks backend, create OAuth credentials:")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "1. Enable the Google Tasks API in a Google Cloud project:")
	fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
	fmt.Fprintln(errOut, "2. Create an OAuth client ID of type 'Desktop app' and download the JSON")
	fmt.Fprintf(errOut, "3. Save it as %s/oauth_client.json\n", cfg.Dir)
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "Then run 'todoseq login' again.")
}

// checkAPIToken reports whether a Todoist API token is configured.
// Todoist tokens are issued in the web app, so there is no browser flow.
func (c *LoginCmd) checkAPIToken(cfg *config.Config, out, errOut io.Writer) int {
	if strings.TrimSpace(cfg.Settings.APIToken) != "" {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}
	fmt.Fprintln(errOut, "error: api_token not set")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "1. Copy your API token from Todoist: Settings > Integrations > Developer")
	fmt.Fprintln(errOut, "2. Either add it to:")
	fmt.Fprintf(errOut, "   %s/%s.yaml as api_token: <token>\n", cfg.Dir, config.SettingsFile)
	fmt.Fprintf(errOut, "   or export %s_API_TOKEN=<token>\n", config.EnvPrefix)
	return exitcode.AuthError
}
