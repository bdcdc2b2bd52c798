package blink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-blink/internal/audit"
	blinkapi "github.com/nerrad567/gray-logic-blink/internal/blink"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	handler       func(topic string, payload []byte)
	subscribeErr  error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{connected: true}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handler = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

// Deliver simulates the broker routing a message to the bridge's subscription.
func (m *MockMQTTClient) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler != nil {
		handler(topic, payload)
	}
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

// PublishedTo returns messages published to topic, oldest first.
func (m *MockMQTTClient) PublishedTo(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// fakeExecutor implements blinkapi.Executor with canned responses per URL.
type fakeExecutor struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]any
	failures  map[string]error

	// One-shot stall: the next call to holdURL reads its response, signals
	// entered, then waits for release.
	holdURL string
	entered chan struct{}
	release chan struct{}
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{responses: make(map[string]any), failures: make(map[string]error)}
}

func (f *fakeExecutor) Respond(url string, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = body
	delete(f.failures, url)
}

func (f *fakeExecutor) Fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[url] = err
}

// HoldNext stalls the next request to url after its response is read.
// entered closes once the request is stalled; closing the returned release
// channel lets it finish.
func (f *fakeExecutor) HoldNext(url string) (entered <-chan struct{}, release chan<- struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdURL = url
	f.entered = make(chan struct{})
	f.release = make(chan struct{})
	return f.entered, f.release
}

func (f *fakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeExecutor) Get(ctx context.Context, url string, _ map[string]string, out any) error {
	return f.do(ctx, "GET "+url, url, out)
}

func (f *fakeExecutor) Post(ctx context.Context, url string, _ map[string]string, _, out any) error {
	return f.do(ctx, "POST "+url, url, out)
}

func (f *fakeExecutor) do(ctx context.Context, call, url string, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err, failing := f.failures[url]
	body, ok := f.responses[url]
	var entered, release chan struct{}
	if url == f.holdURL {
		entered, release = f.entered, f.release
		f.holdURL = ""
	}
	f.mu.Unlock()

	if release != nil {
		close(entered)
		<-release
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &blinkapi.Error{Kind: blinkapi.KindTransport, Err: ctxErr}
	}
	if failing {
		return err
	}
	if !ok {
		return &blinkapi.Error{Kind: blinkapi.KindTransport, StatusCode: 404, Err: fmt.Errorf("no response for %s", url)}
	}
	if out == nil {
		return nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// recordingAudit implements AuditRecorder.
type recordingAudit struct {
	mu   sync.Mutex
	logs []*audit.AuditLog
	err  error
}

func (r *recordingAudit) Create(_ context.Context, log *audit.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return r.err
}

func (r *recordingAudit) Logs() []*audit.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*audit.AuditLog(nil), r.logs...)
}

// recordingMetrics implements MetricsWriter.
type recordingMetrics struct {
	mu       sync.Mutex
	states   []string
	commands []string
}

func (r *recordingMetrics) WriteNetworkState(networkID int64, name string, armed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, fmt.Sprintf("%d/%s/%t", networkID, name, armed))
}

func (r *recordingMetrics) WriteCommand(networkID int64, command, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, fmt.Sprintf("%d/%s/%s", networkID, command, status))
}

// recordingEvents implements EventBroadcaster.
type recordingEvents struct {
	mu     sync.Mutex
	events []string
	last   any
}

func (r *recordingEvents) Broadcast(eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	r.last = payload
}

// recordingLogger implements Logger and keeps error messages.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

// Test fixture: account 333 on tier u011 with two networks.
var (
	testEndpoints = blinkapi.NewEndpoints(333, "u011", 201)

	testNetworks = []blinkapi.Network{
		{ID: 9918, Name: "Home", Armed: false, TimeZone: "Europe/London"},
		{ID: 23899, Name: "Cabin", Armed: true},
	}
)

type bridgeFixture struct {
	bridge  *Bridge
	mqtt    *MockMQTTClient
	exec    *fakeExecutor
	session *blinkapi.Session
	audit   *recordingAudit
	metrics *recordingMetrics
	events  *recordingEvents
}

// newFixture builds a bridge over a session with pre-provisioned endpoints.
// withSnapshot seeds the bridge with a System over testNetworks.
func newFixture(t *testing.T, withSnapshot bool) *bridgeFixture {
	t.Helper()

	exec := newFakeExecutor()
	exec.Respond(testEndpoints.HomeURL, blinkapi.HomeScreen{Networks: testNetworks})
	exec.Respond(testEndpoints.ArmURL(9918), blinkapi.CommandResponse{ID: 501, NetworkID: 9918, State: "new"})
	exec.Respond(testEndpoints.DisarmURL(9918), blinkapi.CommandResponse{ID: 502, NetworkID: 9918})
	exec.Respond(testEndpoints.ArmURL(23899), blinkapi.CommandResponse{ID: 503, NetworkID: 23899})
	exec.Respond(testEndpoints.DisarmURL(23899), blinkapi.CommandResponse{ID: 504, NetworkID: 23899})

	session := blinkapi.NewSession(blinkapi.Credentials{
		Username: "user@example.com",
		Password: "secret",
		DeviceID: "graylogic-test",
	}, blinkapi.Options{Endpoints: testEndpoints, Executor: exec})

	f := &bridgeFixture{
		mqtt:    NewMockMQTTClient(),
		exec:    exec,
		session: session,
		audit:   &recordingAudit{},
		metrics: &recordingMetrics{},
		events:  &recordingEvents{},
	}

	opts := BridgeOptions{
		Session:        session,
		MQTTClient:     f.mqtt,
		Version:        "test",
		HealthInterval: time.Hour,
		Audit:          f.audit,
		Metrics:        f.metrics,
		Events:         f.events,
	}
	if withSnapshot {
		opts.System = blinkapi.NewSystem(session, &blinkapi.HomeScreen{Networks: testNetworks})
	}

	b, err := NewBridge(opts)
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	t.Cleanup(b.Stop)
	f.bridge = b
	return f
}

// decodeAck decodes the single ack published for index.
func (f *bridgeFixture) decodeAck(t *testing.T, topic string) AckMessage {
	t.Helper()
	acks := f.mqtt.PublishedTo(topic)
	if len(acks) != 1 {
		t.Fatalf("acks on %s = %d, want 1", topic, len(acks))
	}
	var ack AckMessage
	if err := json.Unmarshal(acks[0].Payload, &ack); err != nil {
		t.Fatalf("ack is not JSON: %v", err)
	}
	return ack
}
