package blink

import (
	"errors"
	"fmt"
)

// Sentinel errors for Blink operations.
//
// Every error returned by this package is a *Error that matches ErrProtocol
// plus the sentinel for its Kind:
//
//	if errors.Is(err, blink.ErrNotAuthenticated) {
//	    // Authenticate first
//	}
var (
	// ErrProtocol matches every failure produced by this package.
	ErrProtocol = errors.New("blink: protocol error")

	// ErrTransport indicates the HTTP exchange failed or returned a non-success status.
	ErrTransport = errors.New("blink: transport failed")

	// ErrMalformedResponse indicates a response body could not be decoded.
	ErrMalformedResponse = errors.New("blink: malformed response")

	// ErrNotAuthenticated indicates an account-scoped call was made before
	// Authenticate succeeded.
	ErrNotAuthenticated = errors.New("blink: not authenticated")

	// ErrAuthentication indicates the server rejected or did not complete the login.
	// Use ReasonOf to obtain the specific reason.
	ErrAuthentication = errors.New("blink: authentication failed")

	// ErrNoNetworks indicates the home screen contains no networks.
	ErrNoNetworks = errors.New("blink: no networks")

	// ErrNetworkIndexOutOfRange indicates a network index has no element in the home screen.
	ErrNetworkIndexOutOfRange = errors.New("blink: network index out of range")
)

// Kind classifies a failure.
type Kind string

// Failure kinds.
const (
	KindTransport              Kind = "transport"
	KindMalformedResponse      Kind = "malformed_response"
	KindNotAuthenticated       Kind = "not_authenticated"
	KindAuthentication         Kind = "authentication"
	KindNoNetworks             Kind = "no_networks"
	KindNetworkIndexOutOfRange Kind = "network_index_out_of_range"
)

// IsCallerError reports whether the failure was caused by how the API was
// used (calling before Authenticate, indexing past the network list) rather
// than by the remote service or the transport.
func (k Kind) IsCallerError() bool {
	switch k {
	case KindNotAuthenticated, KindNoNetworks, KindNetworkIndexOutOfRange:
		return true
	default:
		return false
	}
}

// AuthReason is the reason attached to a KindAuthentication failure.
type AuthReason string

// Authentication failure reasons, in the order they are checked.
const (
	AuthReasonNoToken        AuthReason = "no token"
	AuthReasonNoAccountID    AuthReason = "no account id"
	AuthReasonNoTier         AuthReason = "no tier"
	AuthReasonNoClientID     AuthReason = "no client id"
	AuthReasonPINRequired    AuthReason = "pin required"
	AuthReasonPINInvalid     AuthReason = "pin invalid"
	AuthReasonNewPINRequired AuthReason = "new pin required"
)

// Error is the single error type returned by this package.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Reason is set for KindAuthentication.
	Reason AuthReason

	// Index is the offending network index for KindNetworkIndexOutOfRange.
	Index int

	// StatusCode is the HTTP status for KindTransport when a response was received.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindAuthentication:
		return fmt.Sprintf("blink: unable to authenticate: %s", e.Reason)
	case KindNetworkIndexOutOfRange:
		return fmt.Sprintf("blink: no network with index %d", e.Index)
	case KindNoNetworks:
		return "blink: no networks"
	case KindNotAuthenticated:
		return "blink: system not yet authenticated"
	case KindTransport:
		if e.StatusCode != 0 {
			return fmt.Sprintf("blink: http error status %d", e.StatusCode)
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("blink: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("blink: %s", e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrProtocol and the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	if target == ErrProtocol {
		return true
	}
	return target == sentinelFor(e.Kind)
}

func sentinelFor(k Kind) error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindNotAuthenticated:
		return ErrNotAuthenticated
	case KindAuthentication:
		return ErrAuthentication
	case KindNoNetworks:
		return ErrNoNetworks
	case KindNetworkIndexOutOfRange:
		return ErrNetworkIndexOutOfRange
	default:
		return nil
	}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ReasonOf returns the authentication reason if err is (or wraps) a
// KindAuthentication *Error.
func ReasonOf(err error) (AuthReason, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindAuthentication {
		return e.Reason, true
	}
	return "", false
}

func authError(reason AuthReason) *Error {
	return &Error{Kind: KindAuthentication, Reason: reason}
}
