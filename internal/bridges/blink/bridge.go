package blink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-blink/internal/audit"
	blinkapi "github.com/nerrad567/gray-logic-blink/internal/blink"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/mqtt"
)

// Bridge operation constants.
const (
	// commandTopicParts is the segment count of graylogic/command/blink/{index}.
	commandTopicParts = 4

	// commandTimeout bounds one arm/disarm round trip.
	commandTimeout = 15 * time.Second

	// refreshTimeout bounds one scheduled home-screen fetch.
	refreshTimeout = 30 * time.Second

	// auditTimeout bounds writing one audit entry.
	auditTimeout = 5 * time.Second

	// defaultSource is recorded for MQTT commands that carry no source.
	defaultSource = "mqtt"
)

// Logger is the structured logger used by the bridge.
// It is satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// AuditRecorder stores audit entries. Satisfied by audit.Repository.
type AuditRecorder interface {
	Create(ctx context.Context, log *audit.AuditLog) error
}

// MetricsWriter records telemetry points. Satisfied by *influxdb.Client.
type MetricsWriter interface {
	WriteNetworkState(networkID int64, name string, armed bool)
	WriteCommand(networkID int64, command, status string, latency time.Duration)
}

// EventBroadcaster pushes events to live subscribers (the WebSocket hub).
type EventBroadcaster interface {
	Broadcast(eventType string, payload any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Session is the Blink session used for refreshes. Required.
	Session *blinkapi.Session

	// System is the snapshot returned by Session.Authenticate, if any.
	// Without it the bridge rejects commands until the first Refresh.
	System *blinkapi.System

	// MQTTClient is the MQTT client implementation. Required.
	MQTTClient MQTTClient

	// BridgeID identifies this bridge in health messages. Default: "blink".
	BridgeID string

	// Version is reported in health messages.
	Version string

	// RefreshInterval re-fetches the home screen periodically. Zero disables.
	RefreshInterval time.Duration

	// HealthInterval is how often health is published. Default: 30s.
	HealthInterval time.Duration

	// Logger is an optional structured logger.
	Logger Logger

	// Audit, Metrics and Events are optional collaborators.
	Audit   AuditRecorder
	Metrics MetricsWriter
	Events  EventBroadcaster
}

// Bridge orchestrates translation between MQTT and the Blink REST client.
// It handles:
//   - Receiving arm/disarm commands via MQTT and acknowledging them
//   - Publishing retained per-network state after every refresh
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	session         *blinkapi.Session
	mqtt            MQTTClient
	health          *HealthReporter
	audit           AuditRecorder
	metrics         MetricsWriter
	events          EventBroadcaster
	refreshInterval time.Duration

	// refreshMu serialises Refresh so a slow fetch cannot overwrite the
	// snapshot from a fetch that started after it.
	refreshMu sync.Mutex

	// Current snapshot, replaced wholesale by Refresh.
	system         *blinkapi.System
	lastRefresh    time.Time
	lastRefreshErr error
	systemMu       sync.RWMutex

	commandsSent   atomic.Uint64
	commandsFailed atomic.Uint64
	refreshes      atomic.Uint64
	refreshErrors  atomic.Uint64

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("blink session is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	bridgeID := opts.BridgeID
	if bridgeID == "" {
		bridgeID = ProtocolBlink
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		session:         opts.Session,
		mqtt:            opts.MQTTClient,
		audit:           opts.Audit,
		metrics:         opts.Metrics,
		events:          opts.Events,
		refreshInterval: opts.RefreshInterval,
		system:          opts.System,
		done:            make(chan struct{}),
		ctx:             ctx,
		ctxCancel:       ctxCancel,
		logger:          opts.Logger,
	}
	if opts.System != nil {
		b.lastRefresh = time.Now().UTC()
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  bridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Stats:     b,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to command topics, publishes the initial network state
// and starts health reporting and the refresh timer.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	commandTopic := mqtt.Topics{}.AllBlinkCommands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	if sys := b.currentSystem(); sys != nil {
		b.publishStates(sys)
	}

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	if b.refreshInterval > 0 {
		b.wg.Add(1)
		go b.refreshLoop(ctx)
	}

	b.logInfo("bridge started",
		"networks", b.networkCount(),
		"refresh_interval", b.refreshInterval.String())

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Cancel bridge context to abort in-flight commands and refreshes
		b.ctxCancel()

		b.wg.Wait()

		// Publishes "stopping"
		b.health.Stop()

		b.logInfo("bridge stopped")
	})
}

// refreshLoop re-fetches the home screen every refreshInterval.
func (b *Bridge) refreshLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(b.ctx, refreshTimeout)
			if _, err := b.Refresh(refreshCtx); err != nil {
				b.logError("scheduled refresh failed", err)
			}
			cancel()
		}
	}
}

// Refresh fetches a new home screen, replaces the current snapshot and
// publishes every network's state.
//
// On failure the previous snapshot stays in place. Concurrent calls run
// one at a time, so the last fetch to start is the one left installed.
func (b *Bridge) Refresh(ctx context.Context) ([]blinkapi.Network, error) {
	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	home, err := b.session.FetchHomeScreen(ctx)
	if err != nil {
		b.refreshErrors.Add(1)
		b.systemMu.Lock()
		b.lastRefreshErr = err
		b.systemMu.Unlock()
		return nil, fmt.Errorf("refreshing home screen: %w", err)
	}

	sys := blinkapi.NewSystem(b.session, home)

	b.systemMu.Lock()
	b.system = sys
	b.lastRefresh = time.Now().UTC()
	b.lastRefreshErr = nil
	b.systemMu.Unlock()

	b.refreshes.Add(1)
	b.publishStates(sys)

	b.logDebug("home screen refreshed", "networks", sys.NetworkCount())
	return sys.Networks(), nil
}

// Networks returns the networks of the current snapshot in index order.
func (b *Bridge) Networks() ([]blinkapi.Network, error) {
	sys := b.currentSystem()
	if sys == nil {
		return nil, ErrNotReady
	}
	return sys.Networks(), nil
}

// LastRefresh returns when the current snapshot was fetched.
func (b *Bridge) LastRefresh() time.Time {
	b.systemMu.RLock()
	defer b.systemMu.RUnlock()
	return b.lastRefresh
}

// Command arms or disarms the network at index in the current snapshot.
//
// The returned result is never nil: on failure it holds whatever was
// resolved before the error (index, command and, when the index was valid,
// the network). Every attempt is audited, measured and broadcast.
func (b *Bridge) Command(ctx context.Context, index int, command, source, userID string) (*CommandResult, error) {
	start := time.Now()
	result := &CommandResult{Index: index, Command: command}

	var resp *blinkapi.CommandResponse
	var err error

	sys := b.currentSystem()
	switch {
	case command != CommandArm && command != CommandDisarm:
		err = fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	case sys == nil:
		err = ErrNotReady
	default:
		if network, nerr := sys.Network(index); nerr == nil {
			result.NetworkID = network.ID
			result.NetworkName = network.Name
		}
		if command == CommandArm {
			resp, err = sys.ArmNetwork(ctx, index)
		} else {
			resp, err = sys.DisarmNetwork(ctx, index)
		}
	}

	result.Latency = time.Since(start)
	if resp != nil {
		result.CommandID = resp.ID
	}

	b.recordCommand(result, source, userID, err)
	return result, err
}

// recordCommand updates counters and notifies the optional collaborators.
func (b *Bridge) recordCommand(result *CommandResult, source, userID string, err error) {
	status := AckAccepted
	if err != nil {
		status = AckFailed
		b.commandsFailed.Add(1)
		b.logWarn("blink command failed",
			"command", result.Command,
			"index", result.Index,
			"source", source,
			"error", err)
	} else {
		b.commandsSent.Add(1)
		b.logInfo("blink command accepted",
			"command", result.Command,
			"index", result.Index,
			"network_id", result.NetworkID,
			"blink_command_id", result.CommandID,
			"source", source)
	}

	if b.metrics != nil && result.NetworkID != 0 {
		b.metrics.WriteCommand(result.NetworkID, result.Command, string(status), result.Latency)
	}

	if b.audit != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(b.ctx), auditTimeout)
		entry := audit.NewCommandLog(audit.CommandEntry{
			Command:   result.Command,
			Index:     result.Index,
			NetworkID: result.NetworkID,
			CommandID: result.CommandID,
			Source:    source,
			UserID:    userID,
			Err:       err,
			Latency:   result.Latency,
		})
		if aerr := b.audit.Create(ctx, entry); aerr != nil {
			b.logError("failed to write audit log", aerr)
		}
		cancel()
	}

	if b.events != nil {
		event := CommandEvent{
			CommandResult: *result,
			Status:        status,
			Source:        source,
			LatencyMS:     result.Latency.Milliseconds(),
		}
		if err != nil {
			event.Error = err.Error()
		}
		b.events.Broadcast(EventNetworkCommand, event)
	}
}

// handleMQTTMessage executes a command received on graylogic/command/blink/{index}
// and publishes the acknowledgement.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	select {
	case <-b.done:
		b.logWarn("ignoring command after shutdown", "topic", topic)
		return
	default:
	}

	index, err := indexFromTopic(topic)
	if err != nil {
		b.logError("invalid command topic", err)
		return
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}
	if cmd.Source == "" {
		cmd.Source = defaultSource
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"index", index,
		"command", cmd.Command)

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	result, err := b.Command(ctx, index, cmd.Command, cmd.Source, cmd.UserID)
	if err != nil {
		b.publishAck(index, NewAckError(cmd, result, ErrorCode(err), err.Error()))
		return
	}
	b.publishAck(index, NewAckMessage(cmd, result))
}

// indexFromTopic extracts the network index from a command topic.
func indexFromTopic(topic string) (int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[1] != "command" || parts[2] != mqtt.ProtocolBlink {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	index, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	return index, nil
}

// publishAck publishes a command acknowledgement.
func (b *Bridge) publishAck(index int, ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	if err := b.mqtt.Publish(mqtt.Topics{}.BlinkAck(index), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishStates publishes retained state for every network in sys.
func (b *Bridge) publishStates(sys *blinkapi.System) {
	for i, network := range sys.Networks() {
		msg := NewStateMessage(i, network)

		payload, err := json.Marshal(msg)
		if err != nil {
			b.logError("failed to marshal state", err)
			continue
		}
		if err := b.mqtt.Publish(mqtt.Topics{}.BlinkState(network.ID), payload, 1, true); err != nil {
			b.logError("failed to publish state", err)
		}

		if b.metrics != nil {
			b.metrics.WriteNetworkState(network.ID, network.Name, network.Armed)
		}
		if b.events != nil {
			b.events.Broadcast(EventNetworkState, msg)
		}
	}
}

func (b *Bridge) currentSystem() *blinkapi.System {
	b.systemMu.RLock()
	defer b.systemMu.RUnlock()
	return b.system
}

func (b *Bridge) networkCount() int {
	if sys := b.currentSystem(); sys != nil {
		return sys.NetworkCount()
	}
	return 0
}

// HealthStats implements StatsProvider.
func (b *Bridge) HealthStats() HealthStats {
	b.systemMu.RLock()
	lastRefresh := b.lastRefresh
	lastErr := b.lastRefreshErr
	b.systemMu.RUnlock()

	stats := HealthStats{
		Authenticated:  b.session.IsAuthenticated(),
		Networks:       b.networkCount(),
		LastRefresh:    lastRefresh,
		LastRefreshErr: lastErr,
		CommandsSent:   b.commandsSent.Load(),
		CommandsFailed: b.commandsFailed.Load(),
		Refreshes:      b.refreshes.Load(),
		RefreshErrors:  b.refreshErrors.Load(),
	}
	if endpoints := b.session.Endpoints(); endpoints != nil {
		stats.Tier = endpoints.Tier
	}
	return stats
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Connected      bool      `json:"connected"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	Authenticated  bool      `json:"authenticated"`
	Networks       int       `json:"networks"`
	CommandsSent   uint64    `json:"commands_sent"`
	CommandsFailed uint64    `json:"commands_failed"`
	Refreshes      uint64    `json:"refreshes"`
	RefreshErrors  uint64    `json:"refresh_errors"`
	LastRefresh    time.Time `json:"last_refresh"`
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() BridgeMetrics {
	stats := b.HealthStats()
	status, reason := b.health.Status()

	return BridgeMetrics{
		Connected:      b.mqtt.IsConnected(),
		Status:         string(status),
		Reason:         reason,
		Authenticated:  stats.Authenticated,
		Networks:       stats.Networks,
		CommandsSent:   stats.CommandsSent,
		CommandsFailed: stats.CommandsFailed,
		Refreshes:      stats.Refreshes,
		RefreshErrors:  stats.RefreshErrors,
		LastRefresh:    stats.LastRefresh,
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
