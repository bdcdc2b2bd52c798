package blink

import "fmt"

// Service constants.
const (
	// VendorDomain is the Blink REST API domain.
	VendorDomain = "immedia-semi.com"

	// ProductionTier is the tier label of the production deployment.
	ProductionTier = "prod"

	// LoginURL is the account login endpoint. It is not account-scoped.
	LoginURL = "https://rest-" + ProductionTier + "." + VendorDomain + "/api/v5/account/login"

	// DefaultUserAgent is sent as the client identifier header on every request.
	DefaultUserAgent = "gray-logic-blink"
)

// Request header names.
const (
	HeaderContentType = "Content-Type"
	HeaderUserAgent   = "User-Agent"
	HeaderTokenAuth   = "token-auth"

	contentTypeJSON = "application/json"
)

// Endpoints holds the account-scoped URLs for one authenticated identity.
//
// It is a pure function of (account id, tier, client id), built once and
// never recomputed. The tier is embedded in the hostname as an opaque
// routing label; an unexpected tier still yields a syntactically valid URL.
// VerifyURL is always rooted at the production host regardless of tier.
type Endpoints struct {
	AccountID int64
	Tier      string
	ClientID  int64

	// BaseURL is https://rest-{tier}.immedia-semi.com
	BaseURL string

	// HomeURL fetches the home screen.
	HomeURL string

	// VerifyURL submits the client verification PIN.
	VerifyURL string
}

// NewEndpoints builds the URL set for an account.
func NewEndpoints(accountID int64, tier string, clientID int64) *Endpoints {
	base := fmt.Sprintf("https://rest-%s.%s", tier, VendorDomain)
	return &Endpoints{
		AccountID: accountID,
		Tier:      tier,
		ClientID:  clientID,
		BaseURL:   base,
		HomeURL:   fmt.Sprintf("%s/api/v3/accounts/%d/homescreen", base, accountID),
		VerifyURL: fmt.Sprintf("https://rest-%s.%s/api/v4/account/%d/client/%d/pin/verify",
			ProductionTier, VendorDomain, accountID, clientID),
	}
}

// ArmURL returns the URL that arms a network.
func (e *Endpoints) ArmURL(networkID int64) string {
	return e.networkStateURL(networkID, "arm")
}

// DisarmURL returns the URL that disarms a network.
func (e *Endpoints) DisarmURL(networkID int64) string {
	return e.networkStateURL(networkID, "disarm")
}

func (e *Endpoints) networkStateURL(networkID int64, state string) string {
	return fmt.Sprintf("%s/api/v1/accounts/%d/networks/%d/state/%s", e.BaseURL, e.AccountID, networkID, state)
}
