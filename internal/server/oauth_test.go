package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// newCallbackHandler wires an AuthCallbackHandler against a fake token
// endpoint so Exchange succeeds without Strava.
func newCallbackHandler(t *testing.T, state string) *AuthCallbackHandler {
	t.Helper()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"granted","refresh_token":"keep","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenServer.Close)

	config := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenServer.URL + "/token"},
	}
	return NewAuthCallbackHandler(config, state)
}

func callbackRequest(handler *AuthCallbackHandler, params url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?"+params.Encode(), nil)
	handler.ServeHTTP(rec, req)
	return rec
}

func awaitResult(t *testing.T, handler *AuthCallbackHandler) CallbackResult {
	t.Helper()
	select {
	case result := <-handler.Result():
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("no callback result delivered")
		return CallbackResult{}
	}
}

func TestAuthCallbackHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		handler := newCallbackHandler(t, "s")
		routes := handler.Routes()
		if len(routes) != 1 || routes[0] != "GET /callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("Exchanges Code For Token", func(t *testing.T) {
		handler := newCallbackHandler(t, "state123")

		rec := callbackRequest(handler, url.Values{"state": {"state123"}, "code": {"abc"}})
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Connected to Strava") {
			t.Errorf("expected success page, got %s", rec.Body.String())
		}

		result := awaitResult(t, handler)
		if result.Err != nil {
			t.Fatalf("expected token, got error %v", result.Err)
		}
		if result.Token.AccessToken != "granted" {
			t.Errorf("unexpected token %q", result.Token.AccessToken)
		}
	})

	t.Run("State Mismatch Fails The Attempt", func(t *testing.T) {
		handler := newCallbackHandler(t, "expected")

		rec := callbackRequest(handler, url.Values{"state": {"forged"}, "code": {"abc"}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := awaitResult(t, handler)
		if result.Err == nil || !strings.Contains(result.Err.Error(), "state mismatch") {
			t.Errorf("expected state mismatch error, got %v", result.Err)
		}
	})

	t.Run("Athlete Decline Is Reported", func(t *testing.T) {
		handler := newCallbackHandler(t, "state123")

		rec := callbackRequest(handler, url.Values{"state": {"state123"}, "error": {"access_denied"}})
		if !strings.Contains(rec.Body.String(), "Authorization declined") {
			t.Errorf("expected decline page, got %s", rec.Body.String())
		}

		result := awaitResult(t, handler)
		if result.Err == nil || !strings.Contains(result.Err.Error(), "declined") {
			t.Errorf("expected decline error, got %v", result.Err)
		}
	})

	t.Run("Missing Code Fails The Attempt", func(t *testing.T) {
		handler := newCallbackHandler(t, "state123")

		rec := callbackRequest(handler, url.Values{"state": {"state123"}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		if result := awaitResult(t, handler); result.Err == nil {
			t.Error("expected error for missing code")
		}
	})

	t.Run("Second Callback Conflicts", func(t *testing.T) {
		handler := newCallbackHandler(t, "state123")

		callbackRequest(handler, url.Values{"state": {"state123"}, "code": {"abc"}})
		rec := callbackRequest(handler, url.Values{"state": {"state123"}, "code": {"abc"}})

		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409 for replayed callback, got %d", rec.Code)
		}
	})
}
