package blink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPExecutor_PostEncodesBodyAndHeaders(t *testing.T) {
	var (
		gotMethod  string
		gotHeaders http.Header
		gotBody    LoginRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeaders = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"auth":{"token":"abc"},"account":{"account_id":1,"tier":"prod","client_id":2}}`)
	}))
	defer server.Close()

	exec := NewHTTPExecutor(server.Client())
	headers := map[string]string{
		HeaderContentType: "application/json",
		HeaderUserAgent:   DefaultUserAgent,
		HeaderTokenAuth:   "tok",
	}

	var resp LoginResponse
	err := exec.Post(context.Background(), server.URL, headers, LoginRequest{Email: "a@b.c", Reauth: "true"}, &resp)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotBody.Email != "a@b.c" || gotBody.Reauth != "true" {
		t.Errorf("body = %+v", gotBody)
	}
	for k, v := range headers {
		if gotHeaders.Get(k) != v {
			t.Errorf("header %s = %q, want %q", k, gotHeaders.Get(k), v)
		}
	}
	if resp.Auth == nil || resp.Auth.Token != "abc" {
		t.Errorf("decoded auth = %+v", resp.Auth)
	}
	if resp.Account == nil || resp.Account.AccountID != 1 || resp.Account.ClientID != 2 {
		t.Errorf("decoded account = %+v", resp.Account)
	}
}

func TestHTTPExecutor_PostNilBody(t *testing.T) {
	var gotLength int64 = -2
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotLength = int64(len(data))
		_, _ = io.WriteString(w, `{"id":5,"network_id":9,"command":"arm","state":"new"}`)
	}))
	defer server.Close()

	var resp CommandResponse
	if err := NewHTTPExecutor(server.Client()).Post(context.Background(), server.URL, nil, nil, &resp); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if gotLength != 0 {
		t.Errorf("request body length = %d, want 0", gotLength)
	}
	if resp.ID != 5 || resp.NetworkID != 9 {
		t.Errorf("decoded = %+v", resp)
	}
}

func TestHTTPExecutor_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		_, _ = io.WriteString(w, `{"networks":[{"id":1,"name":"Home","armed":true},{"id":2,"name":"Cabin"}]}`)
	}))
	defer server.Close()

	var home HomeScreen
	if err := NewHTTPExecutor(server.Client()).Get(context.Background(), server.URL, nil, &home); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(home.Networks) != 2 {
		t.Fatalf("networks = %d, want 2", len(home.Networks))
	}
	if home.Networks[0].Name != "Home" || !home.Networks[0].Armed {
		t.Errorf("network 0 = %+v", home.Networks[0])
	}
}

func TestHTTPExecutor_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"unauthorized with message", http.StatusUnauthorized, `{"message":"Unauthorized Access","code":101}`, "Unauthorized Access"},
		{"server error plain body", http.StatusInternalServerError, "oops", "500"},
		{"not found empty body", http.StatusNotFound, "", "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			var out map[string]any
			err := NewHTTPExecutor(server.Client()).Get(context.Background(), server.URL, nil, &out)
			if !errors.Is(err, ErrTransport) {
				t.Fatalf("error = %v, want ErrTransport", err)
			}

			var blinkErr *Error
			if !errors.As(err, &blinkErr) {
				t.Fatalf("error %v is not *Error", err)
			}
			if blinkErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", blinkErr.StatusCode, tt.status)
			}
			if blinkErr.Err == nil || !strings.Contains(blinkErr.Err.Error(), tt.wantMessage) {
				t.Errorf("cause = %v, want it to contain %q", blinkErr.Err, tt.wantMessage)
			}
		})
	}
}

func TestHTTPExecutor_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"networks": "not-an-array"`)
	}))
	defer server.Close()

	var home HomeScreen
	err := NewHTTPExecutor(server.Client()).Get(context.Background(), server.URL, nil, &home)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Error("malformed response must not match ErrTransport")
	}
}

func TestHTTPExecutor_EmptyBodyOrNilOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = io.WriteString(w, `{"ignored":true}`)
	}))
	defer server.Close()

	exec := NewHTTPExecutor(server.Client())

	var resp CommandResponse
	if err := exec.Post(context.Background(), server.URL+"/empty", nil, nil, &resp); err != nil {
		t.Errorf("empty body: error = %v", err)
	}
	if err := exec.Get(context.Background(), server.URL+"/full", nil, nil); err != nil {
		t.Errorf("nil out: error = %v", err)
	}
}

func TestHTTPExecutor_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewHTTPExecutor(nil).Get(context.Background(), url, nil, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	var blinkErr *Error
	if errors.As(err, &blinkErr) && blinkErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 when no response was received", blinkErr.StatusCode)
	}
}

func TestHTTPExecutor_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewHTTPExecutor(server.Client()).Post(ctx, server.URL, nil, VerifyPINRequest{PIN: "1"}, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped DeadlineExceeded", err)
	}
}

func TestNewHTTPExecutor_DefaultClient(t *testing.T) {
	exec := NewHTTPExecutor(nil)
	if exec.client == nil {
		t.Fatal("client should be created")
	}
	if exec.client == http.DefaultClient {
		t.Error("default executor should not share http.DefaultClient")
	}
	if exec.client.Timeout != defaultHTTPTimeout {
		t.Errorf("Timeout = %v, want %v", exec.client.Timeout, defaultHTTPTimeout)
	}
}
