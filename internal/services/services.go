// package services defines interfaces for the source and destination fitness services
//
// MapMyRun (authenticated web session), Strava (OAuth2 REST API)
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/shared"
	"golang.org/x/oauth2"
)

// SourceService is an authenticated session against the source fitness
// service. Implementations own the mechanics of driving the service's export
// surface; callers only see files landing in the working directory.
type SourceService interface {
	// Login authenticates the session. Fails fast with
	// [shared.ErrInvalidCredentials] when the service signals bad credentials.
	Login(ctx context.Context, username, password string) error

	// FetchExportIndex retrieves the workout index into the working directory
	// and returns its path. Returns [shared.ErrNotAuthenticated] when the
	// service redirects to its login surface instead.
	FetchExportIndex(ctx context.Context) (string, error)

	// ExportWorkout drives one entry's export and returns the path of the
	// file that materialized in the working directory.
	ExportWorkout(ctx context.Context, entry models.ExportIndexEntry) (string, error)

	// Name returns the name of the service (e.g. "MapMyRun")
	Name() string
}

// UploadService submits export files to the destination service's
// activities API. The access token is passed by value on every call; the
// service holds no session state.
type UploadService interface {
	// Upload submits one file and returns a handle to the remote processing job.
	// A rate-limit response surfaces as [*RateLimitError].
	Upload(ctx context.Context, accessToken string, req models.UploadRequest) (*models.UploadHandle, error)

	// UploadStatus polls the remote processing job.
	UploadStatus(ctx context.Context, accessToken string, uploadID int64) (*models.UploadStatus, error)

	// Name returns the name of the service (e.g. "Strava")
	Name() string
}

// OAuthService is implemented by destination services authenticating via the
// OAuth2 authorization-code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// RateLimitError is the destination API's distinguished rate-limit signal.
// RetryAfter carries the server-specified delay the caller must honor before
// re-attempting the same item.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return shared.ErrRateLimited
}
