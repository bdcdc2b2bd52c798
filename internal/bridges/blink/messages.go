package blink

import (
	"context"
	"errors"
	"time"

	blinkapi "github.com/nerrad567/gray-logic-blink/internal/blink"
)

// ProtocolBlink is the protocol identifier carried in bridge messages.
const ProtocolBlink = "blink"

// Supported command names.
const (
	CommandArm    = "arm"
	CommandDisarm = "disarm"
)

// Event types sent to the event broadcaster.
const (
	EventNetworkState   = "network.state"
	EventNetworkCommand = "network.command"
)

// CommandMessage is sent from Core to the bridge to arm or disarm a network.
// Topic: graylogic/command/blink/{index}
type CommandMessage struct {
	// ID correlates the command with its acknowledgement.
	ID string `json:"id"`

	// Timestamp is when the command was issued.
	Timestamp time.Time `json:"timestamp"`

	// Command is "arm" or "disarm".
	Command string `json:"command"`

	// Source indicates where the command originated ("automation", "voice").
	// Defaults to "mqtt".
	Source string `json:"source,omitempty"`

	// UserID is the user who triggered the command (if applicable).
	UserID string `json:"user_id,omitempty"`
}

// AckStatus represents the acknowledgement status of a command.
type AckStatus string

const (
	// AckAccepted indicates Blink accepted the command.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates Blink did not answer in time.
	AckTimeout AckStatus = "timeout"
)

// AckMessage is sent from the bridge to Core to acknowledge a command.
// Topic: graylogic/ack/blink/{index}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Command   string    `json:"command"`
	Index     int       `json:"index"`

	// NetworkID is the Blink network the index resolved to, if any.
	NetworkID int64 `json:"network_id,omitempty"`

	// BlinkCommandID is the server-side command id for accepted commands.
	BlinkCommandID int64 `json:"blink_command_id,omitempty"`

	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeNotReady          = "NOT_READY"
	ErrCodeNotAuthenticated  = "NOT_AUTHENTICATED"
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage reports one network's armed state.
// Topic: graylogic/state/blink/{network_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	NetworkID int64     `json:"network_id"`
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Armed     bool      `json:"armed"`
	TimeZone  string    `json:"time_zone,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Protocol  string    `json:"protocol"`
}

// CommandResult describes a command attempt. Fields after Command are
// filled in as far as execution got.
type CommandResult struct {
	Index       int           `json:"index"`
	Command     string        `json:"command"`
	NetworkID   int64         `json:"network_id,omitempty"`
	NetworkName string        `json:"network_name,omitempty"`
	CommandID   int64         `json:"blink_command_id,omitempty"`
	Latency     time.Duration `json:"-"`
}

// CommandEvent is broadcast after every command attempt.
type CommandEvent struct {
	CommandResult
	Status    AckStatus `json:"status"`
	Source    string    `json:"source"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is sent from the bridge to report operational status.
// Topic: graylogic/health/blink
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge          string            `json:"bridge"`
	Timestamp       time.Time         `json:"timestamp"`
	Status          HealthStatus      `json:"status"`
	Version         string            `json:"version"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	Account         *AccountStatus    `json:"account,omitempty"`
	Statistics      *BridgeStatistics `json:"statistics,omitempty"`
	NetworksManaged int               `json:"networks_managed"`
	Reason          string            `json:"reason,omitempty"`
}

// AccountStatus describes the Blink session.
type AccountStatus struct {
	// Status is "authenticated" or "unauthenticated".
	Status      string     `json:"status"`
	Tier        string     `json:"tier,omitempty"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	CommandsSent   uint64 `json:"commands_sent"`
	CommandsFailed uint64 `json:"commands_failed"`
	Refreshes      uint64 `json:"refreshes"`
	RefreshErrors  uint64 `json:"refresh_errors"`
}

// NewAckMessage creates an accepted acknowledgement.
func NewAckMessage(cmd CommandMessage, result *CommandResult) AckMessage {
	return AckMessage{
		CommandID:      cmd.ID,
		Timestamp:      time.Now().UTC(),
		Status:         AckAccepted,
		Protocol:       ProtocolBlink,
		Command:        result.Command,
		Index:          result.Index,
		NetworkID:      result.NetworkID,
		BlinkCommandID: result.CommandID,
	}
}

// NewAckError creates a failed acknowledgement with error details.
func NewAckError(cmd CommandMessage, result *CommandResult, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Protocol:  ProtocolBlink,
		Command:   result.Command,
		Index:     result.Index,
		NetworkID: result.NetworkID,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// NewStateMessage creates the state message for the network at index.
func NewStateMessage(index int, network blinkapi.Network) StateMessage {
	return StateMessage{
		NetworkID: network.ID,
		Index:     index,
		Name:      network.Name,
		Armed:     network.Armed,
		TimeZone:  network.TimeZone,
		Timestamp: time.Now().UTC(),
		Protocol:  ProtocolBlink,
	}
}

// ErrorCode maps a command error to an acknowledgement error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, ErrInvalidCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrNotReady):
		return ErrCodeNotReady
	}

	kind, ok := blinkapi.KindOf(err)
	if !ok {
		return ErrCodeBridgeError
	}
	switch kind {
	case blinkapi.KindNoNetworks, blinkapi.KindNetworkIndexOutOfRange:
		return ErrCodeNotConfigured
	case blinkapi.KindNotAuthenticated, blinkapi.KindAuthentication:
		return ErrCodeNotAuthenticated
	case blinkapi.KindTransport:
		return ErrCodeDeviceUnreachable
	case blinkapi.KindMalformedResponse:
		return ErrCodeProtocolError
	default:
		return ErrCodeBridgeError
	}
}
