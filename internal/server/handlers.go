package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/progress"
	"github.com/desertthunder/runx/internal/services"
	"github.com/desertthunder/runx/internal/shared"
	"github.com/desertthunder/runx/internal/tasks"
	"golang.org/x/oauth2"
)

// statusResponse is the envelope every JSON endpoint writes.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// progressResponse reports a stage's percentage plus the completion signal the
// percentage alone cannot carry: a failed run and a finished run both sit at
// their last written value.
type progressResponse struct {
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
	Message  string  `json:"message,omitempty"`
	RunID    string  `json:"run_id,omitempty"`
}

// uploadResponse extends the envelope with upload run counts.
type uploadResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Total    int    `json:"total"`
	Uploaded int    `json:"uploaded"`
	Failed   int    `json:"failed"`
}

// runState tracks one trigger endpoint invocation.
type runState struct {
	id      string
	status  models.RunStatus
	message string
}

// TransferHandler exposes the transfer engine over HTTP.
//
// Harvests run asynchronously: the trigger returns immediately and pollers
// follow /download_progress. Uploads run synchronously and respond with the
// run summary. The handler owns the Strava token session; tokens obtained via
// /login are kept in memory and persisted to the config file when one is set.
type TransferHandler struct {
	engine     tasks.TransferEngine
	oauth      services.OAuthService
	store      *progress.Store
	config     *shared.Config
	configPath string
	logger     *log.Logger

	mu          sync.Mutex
	token       *oauth2.Token
	oauthState  string
	harvesting  bool
	downloadRun *runState
	uploadRun   *runState
}

// NewTransferHandler creates a TransferHandler. configPath may be empty, in
// which case tokens are held in memory only.
func NewTransferHandler(engine tasks.TransferEngine, oauth services.OAuthService, store *progress.Store, config *shared.Config, configPath string, logger *log.Logger) *TransferHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TransferHandler{
		engine:     engine,
		oauth:      oauth,
		store:      store,
		config:     config,
		configPath: configPath,
		logger:     logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *TransferHandler) Routes() []string {
	return []string{
		"GET /health",
		"GET /login",
		"GET /callback",
		"POST /transfer/download",
		"POST /transfer/upload",
		"GET /download_progress",
		"GET /upload_progress",
	}
}

// ServeHTTP dispatches to the endpoint implementations by path.
func (h *TransferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		h.handleHealth(w, r)
	case "/login":
		h.handleLogin(w, r)
	case "/callback":
		h.handleCallback(w, r)
	case "/transfer/download":
		h.handleDownload(w, r)
	case "/transfer/upload":
		h.handleUpload(w, r)
	case "/download_progress":
		h.handleProgress(w, progress.StageDownload)
	case "/upload_progress":
		h.handleProgress(w, progress.StageUpload)
	default:
		http.NotFound(w, r)
	}
}

func (h *TransferHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// handleDownload starts a harvest in the background. Only one harvest runs at
// a time; a second trigger while one is in flight gets 409.
func (h *TransferHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" {
		username = h.config.Credentials.MapMyRun.Username
	}
	if password == "" {
		password = h.config.Credentials.MapMyRun.Password
	}
	if username == "" || password == "" {
		h.writeJSON(w, http.StatusBadRequest, statusResponse{
			Status:  "error",
			Message: "missing MapMyRun credentials",
		})
		return
	}

	h.mu.Lock()
	if h.harvesting {
		run := h.downloadRun
		h.mu.Unlock()
		h.writeJSON(w, http.StatusConflict, statusResponse{
			Status:  "busy",
			Message: "a download is already running",
			RunID:   run.id,
		})
		return
	}
	run := &runState{id: shared.GenerateID(), status: models.RunRunning, message: "download started"}
	h.harvesting = true
	h.downloadRun = run
	h.mu.Unlock()

	go func() {
		// Detached from the request context: the trigger response returns
		// before the harvest finishes.
		result, err := h.engine.Harvest(context.Background(), nil, username, password)

		h.mu.Lock()
		defer h.mu.Unlock()
		h.harvesting = false
		if err != nil {
			h.logger.Error("download run failed", "run", run.id, "err", err)
			run.status = models.RunFailed
			run.message = err.Error()
			return
		}
		run.status = models.RunSucceeded
		run.message = fmt.Sprintf("exported %d of %d workouts (%d skipped)", result.Exported, result.Total, result.Failed)
	}()

	h.writeJSON(w, http.StatusAccepted, statusResponse{
		Status:  "started",
		Message: "download started",
		RunID:   run.id,
	})
}

// handleUpload runs an upload synchronously and responds with the summary.
func (h *TransferHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	token, err := h.accessToken(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusUnauthorized, statusResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	h.mu.Lock()
	run := &runState{id: shared.GenerateID(), status: models.RunRunning, message: "upload started"}
	h.uploadRun = run
	h.mu.Unlock()

	result, err := h.engine.Upload(r.Context(), nil, token.AccessToken)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		run.status = models.RunFailed
		run.message = err.Error()

		status := http.StatusInternalServerError
		if errors.Is(err, shared.ErrNotAuthenticated) {
			status = http.StatusUnauthorized
		}
		h.writeJSON(w, status, statusResponse{Status: "error", Message: err.Error(), RunID: run.id})
		return
	}

	message := fmt.Sprintf("uploaded %d of %d workouts (%d skipped)", result.Uploaded, result.Total, result.Failed)
	run.status = models.RunSucceeded
	run.message = message

	h.writeJSON(w, http.StatusOK, uploadResponse{
		Status:   "ok",
		Message:  message,
		Total:    result.Total,
		Uploaded: result.Uploaded,
		Failed:   result.Failed,
	})
}

func (h *TransferHandler) handleProgress(w http.ResponseWriter, stage string) {
	response := progressResponse{
		Progress: h.store.Get(stage),
		Status:   "idle",
	}

	h.mu.Lock()
	run := h.downloadRun
	if stage == progress.StageUpload {
		run = h.uploadRun
	}
	if run != nil {
		response.Status = string(run.status)
		response.Message = run.message
		response.RunID = run.id
	}
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, response)
}

// handleLogin redirects the browser to the Strava authorization page.
func (h *TransferHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, statusResponse{
			Status:  "error",
			Message: "Strava credentials not configured",
		})
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	h.mu.Lock()
	h.oauthState = state
	h.mu.Unlock()

	http.Redirect(w, r, h.oauth.GetAuthURL(state), http.StatusFound)
}

// handleCallback completes the authorization code flow and stores the token.
func (h *TransferHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, statusResponse{
			Status:  "error",
			Message: "Strava credentials not configured",
		})
		return
	}

	h.mu.Lock()
	expected := h.oauthState
	h.oauthState = ""
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if expected == "" || state != expected {
		h.writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "invalid state parameter"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "missing authorization code"})
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.writeJSON(w, http.StatusBadGateway, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	h.setToken(token)
	h.writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: "authorized with Strava"})
}

// accessToken returns a valid Strava token, refreshing an expired one when a
// refresh token is available.
func (h *TransferHandler) accessToken(ctx context.Context) (*oauth2.Token, error) {
	h.mu.Lock()
	token := h.token
	h.mu.Unlock()

	if token == nil {
		token = h.config.Credentials.Strava.Token()
	}
	if token == nil {
		return nil, fmt.Errorf("%w: authorize with Strava via /login first", shared.ErrNotAuthenticated)
	}

	if token.Expiry.IsZero() || token.Expiry.After(time.Now()) {
		return token, nil
	}

	if h.oauth == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: stored token expired", shared.ErrTokenExpired)
	}

	fresh, err := h.oauth.Refresh(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	h.setToken(fresh)
	return fresh, nil
}

// setToken stores the token in memory and persists it when a config path is set.
func (h *TransferHandler) setToken(token *oauth2.Token) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()

	if err := h.config.Credentials.Strava.Update(token); err != nil {
		h.logger.Warn("failed to copy token into config", "err", err)
		return
	}
	if h.configPath == "" {
		return
	}
	if err := shared.SaveConfig(h.configPath, h.config); err != nil {
		h.logger.Warn("failed to persist token", "path", h.configPath, "err", err)
	}
}

func (h *TransferHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := shared.MarshalJSON(payload, false)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
