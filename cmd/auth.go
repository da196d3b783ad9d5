package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/server"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/shared"
)

const defaultAuthTimeout = 2 * time.Minute

// AuthSpotify runs the OAuth2 login flow and prints the user's access token.
//
// A local callback server listens on the configured redirect URI until the browser
// redirect arrives or the timeout passes. The token is written to the command output only.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	provider, err := r.catalog.Provider(services.PlatformSpotify)
	if err != nil {
		return err
	}
	sp, ok := provider.(*services.SpotifyProvider)
	if !ok {
		return fmt.Errorf("%w: spotify provider does not support browser login", shared.ErrNotImplemented)
	}

	redirect, err := url.Parse(sp.RedirectURL())
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: invalid spotify redirect_uri %q", shared.ErrInvalidConfig, sp.RedirectURL())
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(sp.Exchange, state)
	router := server.NewChiRouter()
	router.Handler(handler)

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	srv := server.New(redirect.Host, router, r.logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Run(ctx) }()

	authURL := sp.AuthURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to log in to Spotify:\n\n  %s\n\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("could not open browser", "error", err)
		r.writePlain("Open this URL to log in to Spotify:\n\n  %s\n\n", authURL)
	} else {
		r.writePlain("Opened the Spotify login page in your browser...\n")
	}

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serveErr:
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: login callback server stopped", shared.ErrAuthFailed)
	case <-ctx.Done():
		return fmt.Errorf("%w: no login redirect within %s", shared.ErrAuthFailed, cmd.Duration("timeout"))
	}
	cancel()
	<-serveErr

	if err := result.Error(); err != nil {
		return err
	}

	r.logger.Info("spotify login complete", "expires", result.Token.Expiry)
	r.writePlain("✓ Logged in to Spotify\n\n")
	r.writePlain("Access token (expires %s):\n%s\n\n", result.Token.Expiry.Local().Format(time.DateTime), result.Token.AccessToken)
	return r.writePlain("Use it with: --source-cred access_token=<token> or --dest-cred access_token=<token>\n")
}

// AuthYouTube converts a "Copy as cURL" request from music.youtube.com into a browser.json auth file.
//
// Only header names are printed; values stay in the file.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	curl, curlFile := cmd.String("curl"), cmd.String("curl-file")
	if (curl == "") == (curlFile == "") {
		return fmt.Errorf("%w: pass exactly one of --curl or --curl-file", shared.ErrInvalidArgument)
	}

	var headers *shared.BrowserHeaders
	var err error
	if curl != "" {
		headers, err = shared.ParseBrowserCurl([]byte(curl))
	} else {
		headers, err = shared.ReadBrowserCurl(curlFile)
	}
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
		path = filepath.Join(home, ".crossfade", "browser.json")
	}

	if err := shared.WriteBrowserAuth(path, headers); err != nil {
		return err
	}
	r.logger.Info("youtube music auth file written", "path", path, "headers", len(headers.Keys()))

	r.writePlain("✓ Wrote %s\n", path)
	r.writePlain("Headers: %s\n", strings.Join(headers.Keys(), ", "))
	return r.writePlain("Use it with: --source-cred auth_file=%s or --dest-cred auth_file=%s\n", path, path)
}
