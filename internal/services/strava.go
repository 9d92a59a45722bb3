// Strava API implementation of [UploadService] and [OAuthService]
//
// Strava API response types based on https://developers.strava.com/docs/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	stravaAuthURL  = "https://www.strava.com/oauth/authorize"
	stravaTokenURL = "https://www.strava.com/oauth/token"
	stravaBaseURL  = "https://www.strava.com/api/v3"

	defaultRetryAfter = 15 * time.Minute
)

// stravaUpload represents an upload resource on Strava's uploads endpoint.
type stravaUpload struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	ActivityID int64  `json:"activity_id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

// StravaService implements [UploadService] and [OAuthService] for Strava API
// interactions. Uses [oauth2] for authentication; the access token is passed
// in on every call rather than held on the service.
type StravaService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// NewStravaService creates a new Strava service with the given OAuth2 credentials.
func NewStravaService(credentials map[string]string) (*StravaService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"activity:write",
			"activity:read_all",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  stravaAuthURL,
			TokenURL: stravaTokenURL,
		},
	}

	return &StravaService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    stravaBaseURL,
	}, nil
}

func (s *StravaService) Name() string {
	return "Strava"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *StravaService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the underlying OAuth2 configuration.
func (s *StravaService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Exchange trades an authorization code for a token.
func (s *StravaService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Refresh obtains a fresh token from the given (possibly expired) token.
func (s *StravaService) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := s.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	return fresh, nil
}

// Upload submits one export file to Strava's uploads endpoint as a multipart
// form and returns a handle to the remote processing job. A 429 response
// surfaces as [*RateLimitError] with the server's Retry-After delay.
func (s *StravaService) Upload(ctx context.Context, accessToken string, upload models.UploadRequest) (*models.UploadHandle, error) {
	file, err := os.Open(upload.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(upload.FilePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	fields := map[string]string{
		"data_type":     upload.DataType,
		"name":          upload.Name,
		"description":   upload.Description,
		"activity_type": upload.ActivityType,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/uploads", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result stravaUpload
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return &models.UploadHandle{ID: result.ID, ExternalID: result.ExternalID}, nil
}

// UploadStatus polls the processing state of a previously submitted upload.
func (s *StravaService) UploadStatus(ctx context.Context, accessToken string, uploadID int64) (*models.UploadStatus, error) {
	endpoint := fmt.Sprintf("%s/uploads/%d", s.baseURL, uploadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result stravaUpload
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &models.UploadStatus{
		ID:         result.ID,
		ActivityID: result.ActivityID,
		Status:     result.Status,
		Error:      result.Error,
	}, nil
}

// checkStatus maps non-2xx responses to errors. 429 becomes [*RateLimitError],
// 401 becomes [shared.ErrNotAuthenticated], other client errors become
// [shared.ErrUploadRejected] carrying the response body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: status %d", shared.ErrNotAuthenticated, resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: status %d: %s", shared.ErrUploadRejected, resp.StatusCode, bytes.TrimSpace(body))
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
