//nolint:goconst // Test files use repeated literals for clarity
package blink

import (
	"context"
	"errors"
	"testing"
	"time"
)

const (
	testAccountID int64 = 333
	testClientID  int64 = 201
	testTier            = "u011"
	testToken           = "tok-abc123"
)

func testCredentials() Credentials {
	return Credentials{
		Username: "user@example.com",
		Password: "hunter2",
		DeviceID: "graylogic-test",
	}
}

func validLogin(verificationRequired bool) *LoginResponse {
	return &LoginResponse{
		Account: &Account{
			AccountID:                  testAccountID,
			Tier:                       testTier,
			ClientID:                   testClientID,
			ClientVerificationRequired: &verificationRequired,
		},
		Auth: &Auth{Token: testToken},
	}
}

func testHomeScreen(networkIDs ...int64) *HomeScreen {
	home := &HomeScreen{Account: &Account{AccountID: testAccountID}}
	for i, id := range networkIDs {
		home.Networks = append(home.Networks, Network{ID: id, Name: "network", Armed: i%2 == 0})
	}
	return home
}

func testEndpoints() *Endpoints {
	return NewEndpoints(testAccountID, testTier, testClientID)
}

// newTestSession returns a session whose executor answers login and home
// screen requests successfully.
func newTestSession(t *testing.T, login *LoginResponse, home *HomeScreen) (*Session, *MockExecutor) {
	t.Helper()
	exec := NewMockExecutor()
	exec.Respond(LoginURL, login)
	exec.Respond(testEndpoints().HomeURL, home)
	return NewSession(testCredentials(), Options{Executor: exec}), exec
}

func assertReason(t *testing.T, err error, want AuthReason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected authentication error %q, got nil", want)
	}
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("error = %v, want ErrAuthentication", err)
	}
	reason, ok := ReasonOf(err)
	if !ok || reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession(Credentials{}, Options{})

	if s.DeviceName() != DefaultDeviceName {
		t.Errorf("DeviceName() = %q, want %q", s.DeviceName(), DefaultDeviceName)
	}
	if s.VerificationTimeout() != 60*time.Second {
		t.Errorf("VerificationTimeout() = %v, want 60s", s.VerificationTimeout())
	}
	if s.Endpoints() != nil {
		t.Error("Endpoints() should be nil before authentication")
	}
	if s.IsAuthenticated() {
		t.Error("IsAuthenticated() = true before authentication")
	}
	if _, ok := s.executor.(*HTTPExecutor); !ok {
		t.Errorf("default executor = %T, want *HTTPExecutor", s.executor)
	}
}

func TestNewSession_Options(t *testing.T) {
	exec := NewMockExecutor()
	endpoints := NewEndpoints(7, "prod", 33)

	s := NewSession(Credentials{}, Options{
		VerificationTimeout: 5 * time.Second,
		DeviceName:          "me",
		Endpoints:           endpoints,
		Executor:            exec,
	})

	if s.DeviceName() != "me" {
		t.Errorf("DeviceName() = %q, want me", s.DeviceName())
	}
	if s.VerificationTimeout() != 5*time.Second {
		t.Errorf("VerificationTimeout() = %v, want 5s", s.VerificationTimeout())
	}
	if s.Endpoints() != endpoints {
		t.Error("Endpoints() should be the injected value")
	}
	if s.executor != exec {
		t.Error("executor should be the injected value")
	}
}

func TestAuthenticate_LoginRequest(t *testing.T) {
	s, exec := newTestSession(t, validLogin(false), testHomeScreen(1))

	if _, err := s.Authenticate(context.Background(), ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	calls := exec.CallsTo(LoginURL)
	if len(calls) != 1 {
		t.Fatalf("login calls = %d, want 1", len(calls))
	}
	call := calls[0]
	if call.Method != "POST" {
		t.Errorf("login method = %s, want POST", call.Method)
	}

	body, ok := call.Body.(LoginRequest)
	if !ok {
		t.Fatalf("login body = %T, want LoginRequest", call.Body)
	}
	want := LoginRequest{
		Email:            "user@example.com",
		Password:         "hunter2",
		UniqueID:         "graylogic-test",
		DeviceIdentifier: "graylogic-test",
		ClientName:       DefaultDeviceName,
		Reauth:           "true",
	}
	if body != want {
		t.Errorf("login body = %+v, want %+v", body, want)
	}

	if call.Headers[HeaderContentType] != "application/json" {
		t.Errorf("Content-Type = %q", call.Headers[HeaderContentType])
	}
	if call.Headers[HeaderUserAgent] != DefaultUserAgent {
		t.Errorf("User-Agent = %q", call.Headers[HeaderUserAgent])
	}
	if _, ok := call.Headers[HeaderTokenAuth]; ok {
		t.Error("login request must not carry token-auth")
	}
}

func TestAuthenticate_MissingIdentity(t *testing.T) {
	tests := []struct {
		name   string
		login  *LoginResponse
		reason AuthReason
	}{
		{
			name:   "empty response",
			login:  &LoginResponse{},
			reason: AuthReasonNoToken,
		},
		{
			name: "no token with full account",
			login: &LoginResponse{
				Account: &Account{AccountID: 1, Tier: "prod", ClientID: 2},
			},
			reason: AuthReasonNoToken,
		},
		{
			name: "empty token",
			login: &LoginResponse{
				Account: &Account{AccountID: 1, Tier: "prod", ClientID: 2},
				Auth:    &Auth{Token: ""},
			},
			reason: AuthReasonNoToken,
		},
		{
			name:   "no account",
			login:  &LoginResponse{Auth: &Auth{Token: "t"}},
			reason: AuthReasonNoAccountID,
		},
		{
			name: "no account id wins over no tier",
			login: &LoginResponse{
				Account: &Account{ClientID: 2},
				Auth:    &Auth{Token: "t"},
			},
			reason: AuthReasonNoAccountID,
		},
		{
			name: "no tier wins over no client id",
			login: &LoginResponse{
				Account: &Account{AccountID: 1},
				Auth:    &Auth{Token: "t"},
			},
			reason: AuthReasonNoTier,
		},
		{
			name: "no client id",
			login: &LoginResponse{
				Account: &Account{AccountID: 1, Tier: "prod"},
				Auth:    &Auth{Token: "t"},
			},
			reason: AuthReasonNoClientID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, exec := newTestSession(t, tt.login, testHomeScreen(1))

			system, err := s.Authenticate(context.Background(), "")
			assertReason(t, err, tt.reason)
			if system != nil {
				t.Error("no System should be returned on failure")
			}
			if len(exec.Calls()) != 1 {
				t.Errorf("calls = %d, want only the login", len(exec.Calls()))
			}
			if s.Token() != "" {
				t.Errorf("Token() = %q, want empty", s.Token())
			}
			if s.IsAuthenticated() {
				t.Error("IsAuthenticated() = true after identity failure")
			}
		})
	}
}

func TestAuthenticate_PINRequiredWithoutPIN(t *testing.T) {
	s, exec := newTestSession(t, validLogin(true), testHomeScreen(1))

	_, err := s.Authenticate(context.Background(), "")
	assertReason(t, err, AuthReasonPINRequired)

	if n := len(exec.CallsTo(testEndpoints().VerifyURL)); n != 0 {
		t.Errorf("verify calls = %d, want 0", n)
	}
	if n := len(exec.CallsTo(testEndpoints().HomeURL)); n != 0 {
		t.Errorf("home screen calls = %d, want 0", n)
	}

	// Token and endpoints survive the failure.
	if s.Token() != testToken {
		t.Errorf("Token() = %q, want %q", s.Token(), testToken)
	}
	if !s.IsAuthenticated() {
		t.Error("endpoints should be set after a successful login")
	}
}

func TestAuthenticate_PINVerification(t *testing.T) {
	tests := []struct {
		name       string
		verify     *VerifyPINResponse
		wantReason AuthReason
	}{
		{
			name:       "invalid pin",
			verify:     &VerifyPINResponse{Valid: false, Message: "Invalid PIN", Code: 1621},
			wantReason: AuthReasonPINInvalid,
		},
		{
			name:       "invalid pin takes precedence over new pin",
			verify:     &VerifyPINResponse{Valid: false, RequireNewPIN: true},
			wantReason: AuthReasonPINInvalid,
		},
		{
			name:       "new pin required",
			verify:     &VerifyPINResponse{Valid: true, RequireNewPIN: true},
			wantReason: AuthReasonNewPINRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, exec := newTestSession(t, validLogin(true), testHomeScreen(1))
			exec.Respond(testEndpoints().VerifyURL, tt.verify)

			_, err := s.Authenticate(context.Background(), "123456")
			assertReason(t, err, tt.wantReason)

			if n := len(exec.CallsTo(testEndpoints().VerifyURL)); n != 1 {
				t.Errorf("verify calls = %d, want 1", n)
			}
			if n := len(exec.CallsTo(testEndpoints().HomeURL)); n != 0 {
				t.Errorf("home screen calls = %d, want 0", n)
			}
		})
	}
}

func TestAuthenticate_VerifiedSuccess(t *testing.T) {
	s, exec := newTestSession(t, validLogin(true), testHomeScreen(11, 22))
	exec.Respond(testEndpoints().VerifyURL, &VerifyPINResponse{Valid: true})

	system, err := s.Authenticate(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if system.NetworkCount() != 2 {
		t.Errorf("NetworkCount() = %d, want 2", system.NetworkCount())
	}

	verify := exec.CallsTo(testEndpoints().VerifyURL)
	if len(verify) != 1 {
		t.Fatalf("verify calls = %d, want 1", len(verify))
	}
	if body, ok := verify[0].Body.(VerifyPINRequest); !ok || body.PIN != "123456" {
		t.Errorf("verify body = %#v, want pin 123456", verify[0].Body)
	}
	if verify[0].Headers[HeaderTokenAuth] != testToken {
		t.Errorf("verify token-auth = %q, want %q", verify[0].Headers[HeaderTokenAuth], testToken)
	}
	if !verify[0].HasDL {
		t.Error("verify request should run under the verification timeout")
	}

	calls := exec.Calls()
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want login, verify, home screen", len(calls))
	}
	if calls[2].URL != testEndpoints().HomeURL || calls[2].Method != "GET" {
		t.Errorf("third call = %s %s, want GET home screen", calls[2].Method, calls[2].URL)
	}
}

func TestAuthenticate_NoVerificationNeeded(t *testing.T) {
	s, exec := newTestSession(t, validLogin(false), testHomeScreen(5, 6, 7))

	system, err := s.Authenticate(context.Background(), "ignored-pin")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	home := exec.CallsTo(testEndpoints().HomeURL)
	if len(home) != 1 {
		t.Fatalf("home screen calls = %d, want exactly 1", len(home))
	}
	if home[0].Headers[HeaderTokenAuth] != testToken {
		t.Errorf("home screen token-auth = %q, want %q", home[0].Headers[HeaderTokenAuth], testToken)
	}
	if n := len(exec.CallsTo(testEndpoints().VerifyURL)); n != 0 {
		t.Errorf("verify calls = %d, want 0", n)
	}
	if system.NetworkCount() != 3 {
		t.Errorf("NetworkCount() = %d, want 3", system.NetworkCount())
	}
	if system.Session() != s {
		t.Error("System should delegate to the authenticating session")
	}
}

func TestAuthenticate_RetryAfterInvalidPIN(t *testing.T) {
	s, exec := newTestSession(t, validLogin(true), testHomeScreen(1))
	exec.Respond(testEndpoints().VerifyURL, &VerifyPINResponse{Valid: false})

	_, err := s.Authenticate(context.Background(), "000000")
	assertReason(t, err, AuthReasonPINInvalid)

	// Same session, corrected PIN.
	exec.Respond(testEndpoints().VerifyURL, &VerifyPINResponse{Valid: true})
	system, err := s.Authenticate(context.Background(), "123456")
	if err != nil {
		t.Fatalf("second Authenticate() error = %v", err)
	}
	if system.NetworkCount() != 1 {
		t.Errorf("NetworkCount() = %d, want 1", system.NetworkCount())
	}
	if n := len(exec.CallsTo(LoginURL)); n != 2 {
		t.Errorf("login calls = %d, want 2 (fresh login on retry)", n)
	}
}

func TestAuthenticate_ReplacesInjectedEndpoints(t *testing.T) {
	injected := NewEndpoints(1, "stage", 2)
	exec := NewMockExecutor()
	exec.Respond(LoginURL, validLogin(false))
	exec.Respond(testEndpoints().HomeURL, testHomeScreen(1))

	s := NewSession(testCredentials(), Options{Executor: exec, Endpoints: injected})
	if _, err := s.Authenticate(context.Background(), ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	got := s.Endpoints()
	if got == injected {
		t.Fatal("injected endpoints should be replaced on success")
	}
	if *got != *testEndpoints() {
		t.Errorf("Endpoints() = %+v, want %+v", got, testEndpoints())
	}
}

func TestAuthenticate_EndpointsMatchDirectConstruction(t *testing.T) {
	s, _ := newTestSession(t, validLogin(false), testHomeScreen(1))
	if _, err := s.Authenticate(context.Background(), ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	internal := s.Endpoints()
	direct := NewEndpoints(testAccountID, testTier, testClientID)

	if internal.BaseURL != direct.BaseURL ||
		internal.HomeURL != direct.HomeURL ||
		internal.VerifyURL != direct.VerifyURL ||
		internal.ArmURL(42) != direct.ArmURL(42) ||
		internal.DisarmURL(42) != direct.DisarmURL(42) {
		t.Errorf("internal endpoints %+v differ from direct %+v", internal, direct)
	}
}

func TestAuthenticate_LoginTransportError(t *testing.T) {
	exec := NewMockExecutor()
	exec.Fail(LoginURL, &Error{Kind: KindTransport, StatusCode: 401})
	s := NewSession(testCredentials(), Options{Executor: exec})

	_, err := s.Authenticate(context.Background(), "")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if errors.Is(err, ErrAuthentication) {
		t.Error("transport failure must not be reported as an authentication failure")
	}
	if s.Token() != "" {
		t.Error("no token should be stored after a failed login")
	}
}

func TestAuthenticate_HomeScreenFailure(t *testing.T) {
	exec := NewMockExecutor()
	exec.Respond(LoginURL, validLogin(false))
	exec.Fail(testEndpoints().HomeURL, &Error{Kind: KindTransport, StatusCode: 500})
	s := NewSession(testCredentials(), Options{Executor: exec})

	system, err := s.Authenticate(context.Background(), "")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if system != nil {
		t.Error("no System should be returned when the home screen fetch fails")
	}
}

// blockingExecutor blocks verification requests until the context expires.
type blockingExecutor struct {
	*MockExecutor
	verifyURL string
}

func (b *blockingExecutor) Post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	if url == b.verifyURL {
		<-ctx.Done()
		return &Error{Kind: KindTransport, Err: ctx.Err()}
	}
	return b.MockExecutor.Post(ctx, url, headers, body, out)
}

func TestAuthenticate_VerificationTimeout(t *testing.T) {
	mock := NewMockExecutor()
	mock.Respond(LoginURL, validLogin(true))
	exec := &blockingExecutor{MockExecutor: mock, verifyURL: testEndpoints().VerifyURL}

	s := NewSession(testCredentials(), Options{Executor: exec, VerificationTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := s.Authenticate(context.Background(), "123456")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("verification took %v, expected it to be bounded", elapsed)
	}
}

func TestSession_NotAuthenticated(t *testing.T) {
	exec := NewMockExecutor()
	s := NewSession(testCredentials(), Options{Executor: exec})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"FetchHomeScreen", func() error { _, err := s.FetchHomeScreen(ctx); return err }},
		{"ArmNetwork", func() error { _, err := s.ArmNetwork(ctx, 1); return err }},
		{"DisarmNetwork", func() error { _, err := s.DisarmNetwork(ctx, 1); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrNotAuthenticated) {
				t.Fatalf("error = %v, want ErrNotAuthenticated", err)
			}
			if !errors.Is(err, ErrProtocol) {
				t.Error("ErrNotAuthenticated should also match ErrProtocol")
			}
			if kind, _ := KindOf(err); !kind.IsCallerError() {
				t.Errorf("kind %q should be a caller error", kind)
			}
		})
	}

	if len(exec.Calls()) != 0 {
		t.Errorf("calls = %d, want 0", len(exec.Calls()))
	}
}

func TestSession_ArmDisarm(t *testing.T) {
	s, exec := newTestSession(t, validLogin(false), testHomeScreen(1))
	endpoints := testEndpoints()
	exec.Respond(endpoints.ArmURL(9918), &CommandResponse{ID: 1, NetworkID: 9918, Command: "arm", State: "new"})
	exec.Respond(endpoints.DisarmURL(9918), &CommandResponse{ID: 2, NetworkID: 9918, Command: "disarm", State: "new"})

	if _, err := s.Authenticate(context.Background(), ""); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	ack, err := s.ArmNetwork(context.Background(), 9918)
	if err != nil {
		t.Fatalf("ArmNetwork() error = %v", err)
	}
	if ack.ID != 1 || ack.Command != "arm" {
		t.Errorf("arm ack = %+v", ack)
	}

	ack, err = s.DisarmNetwork(context.Background(), 9918)
	if err != nil {
		t.Fatalf("DisarmNetwork() error = %v", err)
	}
	if ack.ID != 2 || ack.Command != "disarm" {
		t.Errorf("disarm ack = %+v", ack)
	}

	for _, url := range []string{endpoints.ArmURL(9918), endpoints.DisarmURL(9918)} {
		calls := exec.CallsTo(url)
		if len(calls) != 1 {
			t.Fatalf("%s calls = %d, want 1", url, len(calls))
		}
		if calls[0].Method != "POST" {
			t.Errorf("%s method = %s, want POST", url, calls[0].Method)
		}
		if calls[0].Body != nil {
			t.Errorf("%s body = %#v, want nil", url, calls[0].Body)
		}
		if calls[0].Headers[HeaderTokenAuth] != testToken {
			t.Errorf("%s token-auth = %q", url, calls[0].Headers[HeaderTokenAuth])
		}
	}
}

func TestSession_PreProvisionedEndpoints(t *testing.T) {
	exec := NewMockExecutor()
	endpoints := NewEndpoints(7, "prod", 33)
	exec.Respond(endpoints.HomeURL, testHomeScreen(1, 2))

	s := NewSession(testCredentials(), Options{Executor: exec, Endpoints: endpoints})

	home, err := s.FetchHomeScreen(context.Background())
	if err != nil {
		t.Fatalf("FetchHomeScreen() error = %v", err)
	}
	if len(home.Networks) != 2 {
		t.Errorf("networks = %d, want 2", len(home.Networks))
	}

	calls := exec.Calls()
	if _, ok := calls[0].Headers[HeaderTokenAuth]; ok {
		t.Error("no token-auth header should be sent before a token exists")
	}
}
