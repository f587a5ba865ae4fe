package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/causerie-chat/server/internal/auth"
	"github.com/causerie-chat/server/internal/config"
	"github.com/causerie-chat/server/internal/core"
	"github.com/causerie-chat/server/internal/store"
	"github.com/causerie-chat/server/internal/store/sqlite"
)

type testEnv struct {
	ts   *httptest.Server
	st   *sqlite.SQLiteStore
	auth *auth.Service
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret-change-me"
	cfg.JWTIssuer = "test"

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    24 * time.Hour,
	})

	logger := zerolog.Nop()
	router := core.NewRouter(st, core.NewPresence(), core.NewHub(), &logger)

	server := NewServer(router, authService, st, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, st: st, auth: authService}
}

// registerUser creates an account and returns the user with a valid token.
func (e *testEnv) registerUser(t *testing.T, username string) (*store.User, string) {
	t.Helper()

	ctx := context.Background()
	user, err := e.auth.Register(ctx, username, username+"@example.com", "password123")
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	token, _, err := e.auth.Login(ctx, user.Email, "password123")
	if err != nil {
		t.Fatalf("failed to log in %s: %v", username, err)
	}
	return user, token
}

// doJSON performs a JSON request against the test server and decodes the
// response body into out when non-nil.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response of %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}
