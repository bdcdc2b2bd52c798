package blink

import (
	"context"
	"sync"
	"time"
)

// Session defaults.
const (
	// DefaultVerificationTimeout bounds the PIN verification request.
	DefaultVerificationTimeout = 60 * time.Second

	// DefaultDeviceName is sent as client_name on login.
	DefaultDeviceName = "gray-logic-blink"
)

// Logger is the optional structured logger used by Session.
// It is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Credentials identify the Blink user and this client device.
type Credentials struct {
	Username string
	Password string
	DeviceID string
}

// Options configures a Session. All fields are optional.
type Options struct {
	// VerificationTimeout bounds the PIN verification request.
	// Default: 60 seconds.
	VerificationTimeout time.Duration

	// DeviceName is sent as client_name on login.
	// Default: "gray-logic-blink".
	DeviceName string

	// Endpoints pre-provisions account URLs before authentication (e.g. for
	// tests or a known tier). A successful Authenticate always replaces it.
	Endpoints *Endpoints

	// Executor performs HTTP requests. Default: NewHTTPExecutor(nil).
	Executor Executor

	// Logger is an optional structured logger.
	Logger Logger
}

// Session drives the login handshake and owns the bearer token and account
// endpoints once authentication succeeds.
//
// Thread Safety: token and endpoints are guarded, network calls are not
// serialised. A call racing a concurrent Authenticate may see ErrNotAuthenticated.
type Session struct {
	creds               Credentials
	verificationTimeout time.Duration
	deviceName          string
	executor            Executor
	logger              Logger

	token     string
	endpoints *Endpoints
	mu        sync.RWMutex
}

// NewSession creates a session for the given credentials.
// Defaults are applied once here.
func NewSession(creds Credentials, opts Options) *Session {
	s := &Session{
		creds:               creds,
		verificationTimeout: opts.VerificationTimeout,
		deviceName:          opts.DeviceName,
		executor:            opts.Executor,
		logger:              opts.Logger,
		endpoints:           opts.Endpoints,
	}
	if s.verificationTimeout <= 0 {
		s.verificationTimeout = DefaultVerificationTimeout
	}
	if s.deviceName == "" {
		s.deviceName = DefaultDeviceName
	}
	if s.executor == nil {
		s.executor = NewHTTPExecutor(nil)
	}
	return s
}

// Authenticate logs in, completes PIN verification when the account demands
// it, fetches the home screen and returns a System bound to that snapshot.
//
// An empty pin means no PIN was supplied. The sequence is forward-only:
//  1. POST the credentials to the login endpoint
//  2. Require token, account id, tier and client id (first missing fails)
//  3. Store the token and build the account Endpoints
//  4. If client verification is required, POST the PIN
//  5. GET the home screen
//
// A failure after step 3 leaves the token and endpoints in place. Calling
// Authenticate again (for example with a corrected PIN) performs a fresh
// login and replaces them.
//
// Returns:
//   - *System: bound to the fetched home screen
//   - error: *Error of KindAuthentication, KindTransport or KindMalformedResponse
func (s *Session) Authenticate(ctx context.Context, pin string) (*System, error) {
	login, err := s.login(ctx)
	if err != nil {
		return nil, err
	}

	if login.Auth == nil || login.Auth.Token == "" {
		return nil, authError(AuthReasonNoToken)
	}
	account := login.Account
	if account == nil || account.AccountID == 0 {
		return nil, authError(AuthReasonNoAccountID)
	}
	if account.Tier == "" {
		return nil, authError(AuthReasonNoTier)
	}
	if account.ClientID == 0 {
		return nil, authError(AuthReasonNoClientID)
	}

	endpoints := NewEndpoints(account.AccountID, account.Tier, account.ClientID)
	s.mu.Lock()
	s.token = login.Auth.Token
	s.endpoints = endpoints
	s.mu.Unlock()

	s.logInfo("blink login accepted",
		"account_id", account.AccountID,
		"tier", account.Tier,
		"client_verification_required", account.ClientVerificationRequired)

	if account.ClientVerificationRequired != nil && *account.ClientVerificationRequired {
		if pin == "" {
			return nil, authError(AuthReasonPINRequired)
		}
		if err := s.verifyPIN(ctx, endpoints, pin); err != nil {
			return nil, err
		}
		s.logInfo("blink client verified", "account_id", account.AccountID)
	}

	home, err := s.FetchHomeScreen(ctx)
	if err != nil {
		return nil, err
	}

	return NewSystem(s, home), nil
}

// login performs the unauthenticated login POST.
func (s *Session) login(ctx context.Context) (*LoginResponse, error) {
	req := LoginRequest{
		Email:            s.creds.Username,
		Password:         s.creds.Password,
		UniqueID:         s.creds.DeviceID,
		DeviceIdentifier: s.creds.DeviceID,
		ClientName:       s.deviceName,
		Reauth:           "true",
	}

	var resp LoginResponse
	if err := s.executor.Post(ctx, LoginURL, baseHeaders(), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// verifyPIN submits the verification PIN, bounded by the verification timeout.
func (s *Session) verifyPIN(ctx context.Context, endpoints *Endpoints, pin string) error {
	verifyCtx, cancel := context.WithTimeout(ctx, s.verificationTimeout)
	defer cancel()

	var resp VerifyPINResponse
	if err := s.executor.Post(verifyCtx, endpoints.VerifyURL, s.headers(), VerifyPINRequest{PIN: pin}, &resp); err != nil {
		return err
	}
	if !resp.Valid {
		s.logWarn("blink pin rejected", "code", resp.Code, "message", resp.Message)
		return authError(AuthReasonPINInvalid)
	}
	if resp.RequireNewPIN {
		return authError(AuthReasonNewPINRequired)
	}
	return nil
}

// FetchHomeScreen GETs the account home screen.
// It fails with ErrNotAuthenticated if no endpoints are known yet.
func (s *Session) FetchHomeScreen(ctx context.Context) (*HomeScreen, error) {
	endpoints, headers, err := s.authenticated()
	if err != nil {
		return nil, err
	}

	var home HomeScreen
	if err := s.executor.Get(ctx, endpoints.HomeURL, headers, &home); err != nil {
		return nil, err
	}
	s.logDebug("blink home screen fetched", "networks", len(home.Networks), "cameras", len(home.Cameras))
	return &home, nil
}

// ArmNetwork arms the network with the given id. The id is not checked
// against any known network; the server decides whether it is valid.
func (s *Session) ArmNetwork(ctx context.Context, networkID int64) (*CommandResponse, error) {
	endpoints, headers, err := s.authenticated()
	if err != nil {
		return nil, err
	}
	return s.command(ctx, endpoints.ArmURL(networkID), headers)
}

// DisarmNetwork disarms the network with the given id.
func (s *Session) DisarmNetwork(ctx context.Context, networkID int64) (*CommandResponse, error) {
	endpoints, headers, err := s.authenticated()
	if err != nil {
		return nil, err
	}
	return s.command(ctx, endpoints.DisarmURL(networkID), headers)
}

func (s *Session) command(ctx context.Context, url string, headers map[string]string) (*CommandResponse, error) {
	var resp CommandResponse
	if err := s.executor.Post(ctx, url, headers, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// authenticated returns the endpoints and stamped headers, or ErrNotAuthenticated.
func (s *Session) authenticated() (*Endpoints, map[string]string, error) {
	s.mu.RLock()
	endpoints := s.endpoints
	s.mu.RUnlock()

	if endpoints == nil {
		return nil, nil, &Error{Kind: KindNotAuthenticated}
	}
	return endpoints, s.headers(), nil
}

// headers returns the fixed headers plus token-auth once a token exists.
func (s *Session) headers() map[string]string {
	h := baseHeaders()
	s.mu.RLock()
	if s.token != "" {
		h[HeaderTokenAuth] = s.token
	}
	s.mu.RUnlock()
	return h
}

// baseHeaders returns the headers sent on every request.
func baseHeaders() map[string]string {
	return map[string]string{
		HeaderContentType: contentTypeJSON,
		HeaderUserAgent:   DefaultUserAgent,
	}
}

// Token returns the current bearer token, or "" before a successful login.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Endpoints returns the current account endpoints (nil before authentication
// unless pre-provisioned through Options).
func (s *Session) Endpoints() *Endpoints {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoints
}

// IsAuthenticated reports whether account-scoped calls can be made.
func (s *Session) IsAuthenticated() bool {
	return s.Endpoints() != nil
}

// DeviceName returns the client name sent on login.
func (s *Session) DeviceName() string {
	return s.deviceName
}

// VerificationTimeout returns the bound applied to PIN verification.
func (s *Session) VerificationTimeout() time.Duration {
	return s.verificationTimeout
}

func (s *Session) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Session) logWarn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}

func (s *Session) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}
