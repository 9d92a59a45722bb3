package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/shared"
)

func newTestStravaService(t *testing.T, handler http.Handler) (*StravaService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewStravaService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.baseURL = server.URL
	srv.httpClient = server.Client()

	return srv, server
}

func writeTCXFixture(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("<TrainingCenterDatabase/>"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestStravaService(t *testing.T) {
	t.Run("NewStravaService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewStravaService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:9999/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Strava" {
				t.Errorf("expected service name 'Strava', got %s", srv.Name())
			}

			if srv.config.RedirectURL != "http://localhost:9999/callback" {
				t.Errorf("unexpected redirect URI %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewStravaService(map[string]string{"client_secret": "s"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewStravaService(map[string]string{"client_id": "c"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewStravaService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://localhost:8000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewStravaService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "strava.com") {
			t.Error("auth URL should contain Strava domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Upload", func(t *testing.T) {
		t.Run("Submits Multipart Form", func(t *testing.T) {
			var gotAuth, gotDataType, gotName, gotFile string
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/uploads" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				gotAuth = r.Header.Get("Authorization")

				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Fatalf("failed to parse multipart form: %v", err)
				}
				gotDataType = r.FormValue("data_type")
				gotName = r.FormValue("name")

				file, header, err := r.FormFile("file")
				if err != nil {
					t.Fatalf("missing file part: %v", err)
				}
				defer file.Close()
				gotFile = header.Filename
				if _, err := io.ReadAll(file); err != nil {
					t.Fatalf("failed to read file part: %v", err)
				}

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id": 12345, "external_id": "run.tcx", "activity_id": 0, "status": "Your activity is still being processed."}`))
			}))

			handle, err := srv.Upload(context.Background(), "token123", models.UploadRequest{
				FilePath:     writeTCXFixture(t, "run.tcx"),
				DataType:     "tcx",
				Name:         "3.1mi Run",
				Description:  "Uploaded from MapMyRun",
				ActivityType: "Run",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if gotAuth != "Bearer token123" {
				t.Errorf("expected bearer token header, got %q", gotAuth)
			}
			if gotDataType != "tcx" {
				t.Errorf("expected data_type tcx, got %q", gotDataType)
			}
			if gotName != "3.1mi Run" {
				t.Errorf("expected name field, got %q", gotName)
			}
			if gotFile != "run.tcx" {
				t.Errorf("expected file part named run.tcx, got %q", gotFile)
			}
			if handle.ID != 12345 {
				t.Errorf("expected upload ID 12345, got %d", handle.ID)
			}
		})

		t.Run("Rate Limited", func(t *testing.T) {
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "42")
				w.WriteHeader(http.StatusTooManyRequests)
			}))

			_, err := srv.Upload(context.Background(), "token123", models.UploadRequest{
				FilePath: writeTCXFixture(t, "run.tcx"),
				DataType: "tcx",
			})
			if !errors.Is(err, shared.ErrRateLimited) {
				t.Fatalf("expected ErrRateLimited, got %v", err)
			}

			var rle *RateLimitError
			if !errors.As(err, &rle) {
				t.Fatal("expected *RateLimitError")
			}
			if rle.RetryAfter != 42*time.Second {
				t.Errorf("expected Retry-After 42s, got %s", rle.RetryAfter)
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error": "file is malformed"}`))
			}))

			_, err := srv.Upload(context.Background(), "token123", models.UploadRequest{
				FilePath: writeTCXFixture(t, "run.tcx"),
				DataType: "tcx",
			})
			if !errors.Is(err, shared.ErrUploadRejected) {
				t.Errorf("expected ErrUploadRejected, got %v", err)
			}
		})

		t.Run("Expired Token", func(t *testing.T) {
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))

			_, err := srv.Upload(context.Background(), "stale", models.UploadRequest{
				FilePath: writeTCXFixture(t, "run.tcx"),
				DataType: "tcx",
			})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Missing File", func(t *testing.T) {
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected when the file is missing")
			}))

			_, err := srv.Upload(context.Background(), "token123", models.UploadRequest{
				FilePath: filepath.Join(t.TempDir(), "missing.tcx"),
				DataType: "tcx",
			})
			if err == nil {
				t.Error("expected error for missing file")
			}
		})
	})

	t.Run("UploadStatus", func(t *testing.T) {
		t.Run("Processed", func(t *testing.T) {
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/uploads/12345" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id": 12345, "activity_id": 67890, "status": "Your activity is ready."}`))
			}))

			status, err := srv.UploadStatus(context.Background(), "token123", 12345)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !status.Processed() {
				t.Error("expected status to report processed")
			}
			if status.ActivityID != 67890 {
				t.Errorf("expected activity ID 67890, got %d", status.ActivityID)
			}
		})

		t.Run("Rejected By Processing", func(t *testing.T) {
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id": 12345, "activity_id": 0, "status": "There was an error processing your activity.", "error": "duplicate of activity 99"}`))
			}))

			status, err := srv.UploadStatus(context.Background(), "token123", 12345)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if status.Processed() {
				t.Error("rejected upload should not report processed")
			}
			if !status.Rejected() {
				t.Error("expected status to report rejected")
			}
		})

		t.Run("Rate Limited", func(t *testing.T) {
			srv, _ := newTestStravaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			}))

			_, err := srv.UploadStatus(context.Background(), "token123", 12345)
			if !errors.Is(err, shared.ErrRateLimited) {
				t.Errorf("expected ErrRateLimited, got %v", err)
			}

			var rle *RateLimitError
			if !errors.As(err, &rle) {
				t.Fatal("expected *RateLimitError")
			}
			if rle.RetryAfter != defaultRetryAfter {
				t.Errorf("expected default retry delay, got %s", rle.RetryAfter)
			}
		})
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"Seconds", "30", 30 * time.Second},
		{"Empty", "", defaultRetryAfter},
		{"Garbage", "soon", defaultRetryAfter},
		{"Negative", "-5", defaultRetryAfter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseRetryAfter(tc.header); got != tc.want {
				t.Errorf("parseRetryAfter(%q) = %s, want %s", tc.header, got, tc.want)
			}
		})
	}
}
