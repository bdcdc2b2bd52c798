package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-blink/internal/audit"
	"github.com/nerrad567/gray-logic-blink/internal/auth"
	blinkapi "github.com/nerrad567/gray-logic-blink/internal/blink"
	blinkbridge "github.com/nerrad567/gray-logic-blink/internal/bridges/blink"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/logging"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// fakeBridge implements Bridge over a fixed network list.
type fakeBridge struct {
	mu          sync.Mutex
	networks    []blinkapi.Network
	notReady    bool
	commandErr  error
	refreshErr  error
	lastRefresh time.Time
	calls       []string
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		networks: []blinkapi.Network{
			{ID: 9918, Name: "Home", TimeZone: "Europe/London"},
			{ID: 23899, Name: "Cabin", Armed: true},
		},
		lastRefresh: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeBridge) Networks() ([]blinkapi.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notReady {
		return nil, blinkbridge.ErrNotReady
	}
	return append([]blinkapi.Network(nil), f.networks...), nil
}

func (f *fakeBridge) LastRefresh() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRefresh
}

func (f *fakeBridge) Refresh(context.Context) ([]blinkapi.Network, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "refresh")
	err := f.refreshErr
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("refreshing home screen: %w", err)
	}
	f.mu.Lock()
	f.notReady = false
	f.mu.Unlock()
	return f.Networks()
}

func (f *fakeBridge) Command(_ context.Context, index int, command, source, userID string) (*blinkbridge.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s %d %s %s", command, index, source, userID))

	result := &blinkbridge.CommandResult{Index: index, Command: command}
	if f.commandErr != nil {
		return result, f.commandErr
	}
	if index < 0 || index >= len(f.networks) {
		return result, &blinkapi.Error{Kind: blinkapi.KindNetworkIndexOutOfRange, Index: index}
	}
	result.NetworkID = f.networks[index].ID
	result.NetworkName = f.networks[index].Name
	result.CommandID = 500 + int64(index)
	return result, nil
}

func (f *fakeBridge) GetMetrics() blinkbridge.BridgeMetrics {
	return blinkbridge.BridgeMetrics{
		Connected:     true,
		Status:        string(blinkbridge.HealthHealthy),
		Authenticated: true,
		Networks:      len(f.networks),
		CommandsSent:  3,
	}
}

func (f *fakeBridge) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeAudit implements AuditLister.
type fakeAudit struct {
	filter audit.Filter
	err    error
}

func (f *fakeAudit) List(_ context.Context, filter audit.Filter) (*audit.ListResult, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &audit.ListResult{
		Logs: []audit.AuditLog{{
			ID:         "aud-1",
			Action:     audit.ActionCommand,
			EntityType: audit.EntityNetwork,
			EntityID:   "9918",
			Source:     "api",
		}},
		Total: 1,
		Limit: 50,
	}, nil
}

var errAuditDown = errors.New("database is locked")

// testServer creates a Server over a fake bridge and audit lister.
func testServer(t *testing.T) (*Server, *fakeBridge, *fakeAudit) {
	t.Helper()

	bridge := newFakeBridge()
	auditRepo := &fakeAudit{}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
		},
		Logger:    logging.Discard(),
		Bridge:    bridge,
		AuditRepo: auditRepo,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx)
	t.Cleanup(cancel)

	return srv, bridge, auditRepo
}

// mintToken returns a signed token for subject with role.
func mintToken(t *testing.T, subject string, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(subject, role, testSecret, 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return token
}

// doRequest serves one request through the router and returns the recorder.
// An empty token sends no Authorization header.
func doRequest(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}
