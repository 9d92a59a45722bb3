// Strava authorization-code callback.
package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// CallbackResult is the outcome of one authorization attempt, delivered to
// the flow waiting on [AuthCallbackHandler.Result].
type CallbackResult struct {
	Token *oauth2.Token
	Err   error
}

// AuthCallbackHandler completes Strava's authorization-code handoff: it
// receives the redirect from strava.com/oauth/authorize, verifies the CSRF
// state, exchanges the code for tokens, and hands the result to the waiting
// flow. The handler is one-shot; whatever the first redirect carries decides
// the attempt, and later hits get a conflict response.
//
// Implements [Handler] for registration with a [Router].
type AuthCallbackHandler struct {
	config *oauth2.Config
	state  string

	mu      sync.Mutex
	handled bool
	once    sync.Once
	results chan CallbackResult
}

// NewAuthCallbackHandler creates a callback handler bound to one
// authorization attempt. The state token must be the same random value
// embedded in the authorization URL.
func NewAuthCallbackHandler(config *oauth2.Config, state string) *AuthCallbackHandler {
	return &AuthCallbackHandler{
		config:  config,
		state:   state,
		results: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthCallbackHandler) Routes() []string {
	return []string{"GET /callback"}
}

// callbackPage is shown in the athlete's browser once the redirect lands;
// the flow itself continues in the terminal.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>runx · Strava</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .card { text-align: center; background: white; padding: 2rem 3rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);
                border-top: 4px solid #FC4C02; }
        h1 { color: #2d2d32; margin: 0 0 1rem 0; font-size: 1.3rem; }
        p { color: #666; margin: 0; max-width: 28rem; }
    </style>
</head>
<body>
    <div class="card">
        <h1>{{.Heading}}</h1>
        <p>{{.Detail}}</p>
    </div>
</body>
</html>
`))

type callbackPageData struct {
	Heading string
	Detail  string
}

// ServeHTTP handles the redirect back from Strava's authorization page.
func (h *AuthCallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	already := h.handled
	h.handled = true
	h.mu.Unlock()
	if already {
		http.Error(w, "authorization already completed", http.StatusConflict)
		return
	}

	query := r.URL.Query()

	switch {
	case query.Get("state") != h.state:
		h.fail(w, http.StatusBadRequest, "This sign-in attempt is stale",
			"The redirect did not match the authorization runx started. Close this window and run the command again.",
			fmt.Errorf("state mismatch on callback"))

	case query.Get("error") == "access_denied":
		// Strava sends error=access_denied when the athlete clicks Cancel.
		h.fail(w, http.StatusOK, "Authorization declined",
			"runx was not granted access to your Strava activities. Run the command again if you change your mind.",
			fmt.Errorf("athlete declined authorization"))

	case query.Get("code") == "":
		h.fail(w, http.StatusBadRequest, "Authorization failed",
			"Strava redirected back without an authorization code. Close this window and run the command again.",
			fmt.Errorf("callback carried no code (error %q)", query.Get("error")))

	default:
		token, err := h.config.Exchange(r.Context(), query.Get("code"))
		if err != nil {
			h.fail(w, http.StatusBadGateway, "Token exchange failed",
				"Strava did not accept the authorization code. Check the client credentials and try again.",
				fmt.Errorf("token exchange failed: %w", err))
			return
		}

		h.deliver(CallbackResult{Token: token})
		h.render(w, http.StatusOK, "Connected to Strava",
			"runx can now upload activities on your behalf. You can close this window and return to the terminal.")
	}
}

func (h *AuthCallbackHandler) fail(w http.ResponseWriter, status int, heading, detail string, err error) {
	h.deliver(CallbackResult{Err: err})
	h.render(w, status, heading, detail)
}

func (h *AuthCallbackHandler) render(w http.ResponseWriter, status int, heading, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, callbackPageData{Heading: heading, Detail: detail})
}

// deliver hands the result to the waiting flow exactly once.
func (h *AuthCallbackHandler) deliver(result CallbackResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel the authorization outcome arrives on. It
// receives exactly one value and is then closed.
func (h *AuthCallbackHandler) Result() <-chan CallbackResult {
	return h.results
}
