// Package auth issues and validates operator access tokens for the bridge API.
//
// The bridge has no user database. Tokens are HS256 JWTs minted offline
// (blinkbridge -mint-token) with a subject and a role:
//   - viewer may read network state and the audit trail
//   - operator may also arm and disarm networks and force a refresh
//
// Permissions are a static role mapping checked by the API middleware.
package auth
