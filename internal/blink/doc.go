// Package blink implements a client for the Blink home-security camera REST API.
//
// It covers the session-establishment protocol (login, optional PIN
// verification, home-screen fetch) and arm/disarm commands against the
// networks in the fetched home screen.
//
// # Architecture
//
//	┌──────────────┐  Authenticate  ┌──────────────┐   Executor   ┌──────────────┐
//	│    caller    │───────────────►│   Session    │─────────────►│  Blink REST  │
//	└──────────────┘                └──────┬───────┘              └──────────────┘
//	       │ ArmNetwork(index)             │ Endpoints
//	       ▼                               │
//	┌──────────────┐  ArmNetwork(id)       │
//	│    System    │───────────────────────┘
//	└──────────────┘
//
// A Session owns the credentials, the bearer token and the account-scoped
// Endpoints. A successful Authenticate returns a System bound to one
// home-screen snapshot; System addresses networks by their position in that
// snapshot and delegates commands back to the Session.
//
// # Usage
//
//	session := blink.NewSession(blink.Credentials{
//	    Username: "user@example.com",
//	    Password: password,
//	    DeviceID: "graylogic-01",
//	}, blink.Options{})
//
//	system, err := session.Authenticate(ctx, pin)
//	if err != nil {
//	    if reason, ok := blink.ReasonOf(err); ok && reason == blink.AuthReasonPINRequired {
//	        // ask the user for the PIN sent by email/SMS and retry
//	    }
//	    return err
//	}
//
//	ack, err := system.ArmNetwork(ctx, 0)
//
// # Staleness
//
// The home screen held by a System is never refreshed implicitly, not even
// after a successful arm/disarm. Index N always means "the Nth network as
// ordered when the snapshot was fetched"; if networks are added or removed on
// the server the index may now point elsewhere. Callers that need current
// state must call Session.FetchHomeScreen and build a new System.
//
// # Thread Safety
//
// Session guards its token and endpoints so concurrent use is race-free, but
// it does not serialise network calls: calls issued before Authenticate
// completes may fail with ErrNotAuthenticated. System is immutable.
//
// # References
//
//   - Protocol notes: https://github.com/MattTW/BlinkMonitorProtocol
package blink
