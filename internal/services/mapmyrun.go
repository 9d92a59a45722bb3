// MapMyRun implementation of [SourceService]
//
// MapMyRun has no public API for workout exports, so the session drives the
// same authenticated web surface a user's browser would: a form login, the
// CSV export index, and per-workout TCX export endpoints.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/shared"
)

const (
	loginPath       = "/auth/login"
	exportIndexPath = "/workout/export/csv"
	exportPathFmt   = "/workout/export/%s/tcx"

	// IndexFileName is the fixed name the export index is saved under in the
	// working directory. Repeated harvests overwrite the previous index.
	IndexFileName = "workout_index.csv"

	// loginErrorFragment is the marker MapMyRun renders into the login page
	// when credentials are rejected.
	loginErrorFragment = "password you entered is incorrect"

	// defaultCallTimeout bounds each request against the source service when
	// no timeout is configured. A stalled page must never hang a harvest.
	defaultCallTimeout = 30 * time.Second
)

// MapMyRunService implements [SourceService] as an authenticated HTTP session.
// Session cookies live in the client's jar; each service instance is one
// independent session.
type MapMyRunService struct {
	baseURL    string
	workDir    string
	httpClient *http.Client
	timeout    time.Duration
	loggedIn   bool
}

// NewMapMyRunService creates a session against the given base URL. Exported
// files land in workDir, which is created if missing. Every call against the
// service is bounded by timeout; zero or negative falls back to
// [defaultCallTimeout].
func NewMapMyRunService(baseURL, workDir string, timeout time.Duration) (*MapMyRunService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: missing source base URL", shared.ErrMissingConfig)
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &MapMyRunService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		workDir:    workDir,
		httpClient: &http.Client{Jar: jar},
		timeout:    timeout,
	}, nil
}

// bound caps one call, covering the request and the body copy that follows.
func (s *MapMyRunService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MapMyRunService) Name() string {
	return "MapMyRun"
}

// Login submits the sign-in form. Success is the dashboard redirect; a page
// carrying the credential error fragment fails fast with
// [shared.ErrInvalidCredentials].
func (s *MapMyRunService) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", shared.ErrMissingCredentials)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	form := url.Values{}
	form.Set("email", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: no login response within %s", shared.ErrTimeout, s.timeout)
		}
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.Request.URL.Path == "/dashboard" {
		s.loggedIn = true
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read login response: %v", shared.ErrAuthFailed, err)
	}

	if strings.Contains(string(body), loginErrorFragment) {
		return fmt.Errorf("%w: rejected by %s", shared.ErrInvalidCredentials, s.Name())
	}

	return fmt.Errorf("%w: no dashboard redirect (status %d)", shared.ErrAuthFailed, resp.StatusCode)
}

// FetchExportIndex downloads the workout index CSV into the working directory
// under [IndexFileName] and returns its path.
func (s *MapMyRunService) FetchExportIndex(ctx context.Context) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	resp, err := s.get(ctx, s.baseURL+exportIndexPath)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	path := filepath.Join(s.workDir, IndexFileName)
	if err := writeResponse(path, resp.Body); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrIndexUnavailable, err)
	}

	return path, nil
}

// ExportWorkout drives one entry's TCX export and returns the path of the
// exported file. When the service names a file that already exists in the
// working directory the copy gets a " (n)" suffix, matching how a browser
// disambiguates repeated downloads. An export page that stalls past the
// configured timeout fails with [shared.ErrExportTimeout].
func (s *MapMyRunService) ExportWorkout(ctx context.Context, entry models.ExportIndexEntry) (string, error) {
	id := workoutID(entry.Link)
	if id == "" {
		return "", fmt.Errorf("%w: entry %q has no workout link", shared.ErrInvalidInput, entry.Title)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	resp, err := s.get(ctx, s.baseURL+fmt.Sprintf(exportPathFmt, id))
	if err != nil {
		if errors.Is(err, shared.ErrTimeout) {
			return "", fmt.Errorf("%w: %q after %s", shared.ErrExportTimeout, entry.Title, s.timeout)
		}
		return "", err
	}
	defer resp.Body.Close()

	name := exportFileName(resp.Header.Get("Content-Disposition"), id)
	path := nextFreePath(filepath.Join(s.workDir, name))
	if err := writeResponse(path, resp.Body); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %q after %s", shared.ErrExportTimeout, entry.Title, s.timeout)
		}
		return "", fmt.Errorf("failed to save export for %q: %w", entry.Title, err)
	}

	return path, nil
}

// get performs an authenticated GET. A redirect back to the login surface
// means the session cookie is gone; callers see [shared.ErrNotAuthenticated]
// and may re-login.
func (s *MapMyRunService) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if !s.loggedIn {
		return nil, fmt.Errorf("%w: call Login first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response within %s from %s", shared.ErrTimeout, s.timeout, rawURL)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if strings.HasPrefix(resp.Request.URL.Path, loginPath) {
		resp.Body.Close()
		s.loggedIn = false
		return nil, fmt.Errorf("%w: session expired", shared.ErrNotAuthenticated)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d for %s", shared.ErrAPIRequest, resp.StatusCode, rawURL)
	}

	return resp, nil
}

// workoutID extracts the workout identifier from an index entry link, the
// last non-empty path segment.
func workoutID(link string) string {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// exportFileName picks the filename the service asked for via
// Content-Disposition, falling back to "<id>.tcx".
func exportFileName(disposition, id string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	return id + ".tcx"
}

// nextFreePath appends " (n)" before the extension until the path is unused.
func nextFreePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func writeResponse(path string, body io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
