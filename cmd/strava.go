package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/runx/internal/server"
	"github.com/desertthunder/runx/internal/services"
	"github.com/desertthunder/runx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// StravaAuth performs the OAuth2 authorization flow for Strava.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens saved back to the config file.
func (r *Runner) StravaAuth(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if _, statErr := os.Stat(configPath); statErr == nil {
			config, err = shared.LoadConfig(configPath)
			if err != nil {
				r.logger.Warnf("failed to load config, using defaults %v", err)
				config = shared.DefaultConfig()
			}
		} else {
			config = shared.DefaultConfig()
		}
	}

	if config.Credentials.Strava.ClientID == "" || config.Credentials.Strava.ClientSecret == "" {
		return fmt.Errorf("%w: Strava client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	oauthSrv := r.oauth
	if oauthSrv == nil {
		svc, err := services.NewStravaService(config.Credentials.Strava.Map())
		if err != nil {
			return fmt.Errorf("failed to create Strava service: %w", err)
		}
		oauthSrv = svc
	}

	token, err := r.doOAuth(config, oauthSrv, "authorization")
	if err != nil {
		return err
	}

	if err := config.Credentials.Strava.Update(token); err != nil {
		return fmt.Errorf("failed to update strava configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.config = config
	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: runx transfer upload\n")

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	callback := server.NewAuthCallbackHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(callback)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Strava %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.CallbackResult

	select {
	case result = <-callback.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Err != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Err)
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// stravaToken returns a usable access token from config, refreshing an expired
// token when a refresh token is available and persisting the result.
func (r *Runner) stravaToken(ctx context.Context, configPath string) (*oauth2.Token, error) {
	token := r.config.Credentials.Strava.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: no Strava token saved, run: runx strava auth", shared.ErrNotAuthenticated)
	}

	if token.Expiry.IsZero() || token.Expiry.After(time.Now()) {
		return token, nil
	}

	if token.RefreshToken == "" || r.oauth == nil {
		return nil, fmt.Errorf("%w: run: runx strava auth", shared.ErrTokenExpired)
	}

	r.logger.Info("access token expired, refreshing")
	refreshed, err := r.oauth.Refresh(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if err := r.config.Credentials.Strava.Update(refreshed); err == nil && configPath != "" {
		if err := shared.SaveConfig(configPath, r.config); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	}

	return refreshed, nil
}
