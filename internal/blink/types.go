package blink

import "encoding/json"

// Wire types for the Blink REST API. Field names follow the JSON contract.
//
// A decoded response re-encodes with the same keys and values. Flags and
// counters the server may send as false or 0 are pointers, and slices use
// omitzero, so an absent field stays absent and a zero one stays zero.
// Identity fields (account, client and network ids, tier) are plain: their
// zero value is never valid. Network keeps id, name, dst, armed and lv_save
// plain because the server always sends them. Timestamps stay as the
// strings the server sends. Device collections with no control operations
// are kept as raw JSON.

// ErrorResponse is the body the server returns alongside some failures.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LoginRequest is the body of the login POST.
type LoginRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	UniqueID         string `json:"unique_id"`
	DeviceIdentifier string `json:"device_identifier"`
	ClientName       string `json:"client_name"`
	Reauth           string `json:"reauth"`
}

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	Account               *Account      `json:"account,omitempty"`
	Auth                  *Auth         `json:"auth,omitempty"`
	Phone                 *LoginPhone   `json:"phone,omitempty"`
	Verification          *Verification `json:"verification,omitempty"`
	LockoutTimeRemaining  *int          `json:"lockout_time_remaining,omitempty"`
	ForcePasswordReset    *bool         `json:"force_password_reset,omitempty"`
	AllowPINResendSeconds *int          `json:"allow_pin_resend_seconds,omitempty"`
}

// Account describes the authenticated account.
type Account struct {
	AccountID                   int64  `json:"account_id,omitempty"`
	Country                     string `json:"country,omitempty"`
	UserID                      int64  `json:"user_id,omitempty"`
	ClientID                    int64  `json:"client_id,omitempty"`
	ClientTrusted               *bool  `json:"client_trusted,omitempty"`
	NewAccount                  *bool  `json:"new_account,omitempty"`
	Tier                        string `json:"tier,omitempty"`
	Region                      string `json:"region,omitempty"`
	AccountVerificationRequired *bool  `json:"account_verification_required,omitempty"`
	PhoneVerificationRequired   *bool  `json:"phone_verification_required,omitempty"`
	ClientVerificationRequired  *bool  `json:"client_verification_required,omitempty"`
	RequireTrustClientDevice    *bool  `json:"require_trust_client_device,omitempty"`
	CountryRequired             *bool  `json:"country_required,omitempty"`
	VerificationChannel         string `json:"verification_channel,omitempty"`
	User                        *User  `json:"user,omitempty"`
	AmazonAccountLinked         *bool  `json:"amazon_account_linked,omitempty"`
	BrazeExternalID             string `json:"braze_external_id,omitempty"`
}

// User is the user record nested in Account.
type User struct {
	UserID  int64  `json:"user_id,omitempty"`
	Country string `json:"country,omitempty"`
}

// Auth carries the bearer token.
type Auth struct {
	Token string `json:"token,omitempty"`
}

// LoginPhone describes the phone number on file.
type LoginPhone struct {
	Number             string `json:"number,omitempty"`
	Last4Digits        string `json:"last_4_digits,omitempty"`
	CountryCallingCode string `json:"country_calling_code,omitempty"`
	Valid              *bool  `json:"valid,omitempty"`
}

// Verification lists which verification channels are required.
type Verification struct {
	Email *EmailVerification `json:"email,omitempty"`
	Phone *PhoneVerification `json:"phone,omitempty"`
}

// EmailVerification is the email verification requirement.
type EmailVerification struct {
	Required *bool `json:"required,omitempty"`
}

// PhoneVerification is the phone verification requirement.
type PhoneVerification struct {
	Required *bool  `json:"required,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

// VerifyPINRequest is the body of the PIN verification POST.
type VerifyPINRequest struct {
	PIN string `json:"pin"`
}

// VerifyPINResponse is returned by the PIN verification endpoint.
type VerifyPINResponse struct {
	Valid         bool   `json:"valid"`
	RequireNewPIN bool   `json:"require_new_pin"`
	Message       string `json:"message,omitempty"`
	Code          int    `json:"code,omitempty"`
}

// HomeScreen is the aggregate account snapshot.
type HomeScreen struct {
	Account         *Account          `json:"account,omitempty"`
	Networks        []Network         `json:"networks,omitzero"`
	SyncModules     []SyncModule      `json:"sync_modules,omitzero"`
	Cameras         []Camera          `json:"cameras,omitzero"`
	Sirens          []json.RawMessage `json:"sirens,omitzero"`
	Chimes          []json.RawMessage `json:"chimes,omitzero"`
	VideoStats      *VideoStats       `json:"video_stats,omitempty"`
	DoorbellButtons []json.RawMessage `json:"doorbell_buttons,omitzero"`
	Owls            []json.RawMessage `json:"owls,omitzero"`
	AppUpdates      *AppUpdates       `json:"app_updates,omitempty"`
	DeviceLimits    *DeviceLimits     `json:"device_limits,omitempty"`
	WhatsNew        *WhatsNew         `json:"whats_new,omitempty"`
}

// Network is a Blink network (a site with an armed/disarmed state).
type Network struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Name      string `json:"name"`
	TimeZone  string `json:"time_zone,omitempty"`
	DST       bool   `json:"dst"`
	Armed     bool   `json:"armed"`
	LVSave    bool   `json:"lv_save"`
}

// SyncModule is a Blink sync module.
type SyncModule struct {
	ID               int64  `json:"id"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
	Onboarded        *bool  `json:"onboarded,omitempty"`
	Status           string `json:"status,omitempty"`
	Name             string `json:"name,omitempty"`
	Serial           string `json:"serial,omitempty"`
	FWVersion        string `json:"fw_version,omitempty"`
	LastHB           string `json:"last_hb,omitempty"`
	WifiStrength     *int   `json:"wifi_strength,omitempty"`
	NetworkID        int64  `json:"network_id,omitempty"`
	EnableTempAlerts *bool  `json:"enable_temp_alerts,omitempty"`
}

// Camera is a Blink camera.
type Camera struct {
	ID        int64             `json:"id"`
	CreatedAt string            `json:"created_at,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
	Name      string            `json:"name,omitempty"`
	Serial    string            `json:"serial,omitempty"`
	FWVersion string            `json:"fw_version,omitempty"`
	Type      string            `json:"type,omitempty"`
	Enabled   *bool             `json:"enabled,omitempty"`
	Thumbnail string            `json:"thumbnail,omitempty"`
	Status    string            `json:"status,omitempty"`
	Battery   string            `json:"battery,omitempty"`
	UsageRate *bool             `json:"usage_rate,omitempty"`
	NetworkID int64             `json:"network_id,omitempty"`
	Issues    []json.RawMessage `json:"issues,omitzero"`
	Signals   *Signals          `json:"signals,omitempty"`
}

// Signals holds camera signal strengths.
type Signals struct {
	LFR     *int `json:"lfr,omitempty"`
	Wifi    *int `json:"wifi,omitempty"`
	Temp    *int `json:"temp,omitempty"`
	Battery *int `json:"battery,omitempty"`
}

// VideoStats holds clip storage statistics.
type VideoStats struct {
	Storage        *int `json:"storage,omitempty"`
	AutoDeleteDays *int `json:"auto_delete_days,omitempty"`
}

// AppUpdates describes available app updates.
type AppUpdates struct {
	Message         string `json:"message,omitempty"`
	Code            *int   `json:"code,omitempty"`
	UpdateAvailable *bool  `json:"update_available,omitempty"`
	UpdateRequired  *bool  `json:"update_required,omitempty"`
}

// DeviceLimits lists per-type device limits on the account.
type DeviceLimits struct {
	Camera         *int `json:"camera,omitempty"`
	Chime          *int `json:"chime,omitempty"`
	DoorbellButton *int `json:"doorbell_button,omitempty"`
	Owl            *int `json:"owl,omitempty"`
	Siren          *int `json:"siren,omitempty"`
	TotalDevices   *int `json:"total_devices,omitempty"`
}

// WhatsNew points at release notes.
type WhatsNew struct {
	UpdatedAt *int64 `json:"updated_at,omitempty"`
	URL       string `json:"url,omitempty"`
}

// CommandResponse acknowledges an arm/disarm command.
type CommandResponse struct {
	ID        int64             `json:"id"`
	NetworkID int64             `json:"network_id"`
	Command   string            `json:"command,omitempty"`
	State     string            `json:"state,omitempty"`
	Commands  []CommandResponse `json:"commands,omitzero"`
}
