package mqtt

import (
	"fmt"
	"strconv"
)

// Topic prefixes.
//
// All bridge topics use the flat scheme: graylogic/{category}/{protocol}/{address}
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"

	// ProtocolBlink is the protocol segment used by the Blink bridge.
	ProtocolBlink = "blink"
)

// Topics provides builders for bridge MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BlinkState(9918)
//	// Returns: "graylogic/state/blink/9918"
type Topics struct{}

// BridgeState returns the topic for state updates from a bridge.
//
// Example: graylogic/state/blink/9918
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic for commands to a bridge.
//
// Example: graylogic/command/blink/0
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
//
// Example: graylogic/ack/blink/0
func (Topics) BridgeAck(protocol, address string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/blink
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// BridgeCommandWildcard returns a pattern matching every command to a bridge.
//
// Pattern: graylogic/command/blink/+
func (Topics) BridgeCommandWildcard(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefixBridge, protocol)
}

// BlinkAck returns the acknowledgement topic for the network at index.
func (t Topics) BlinkAck(index int) string {
	return t.BridgeAck(ProtocolBlink, strconv.Itoa(index))
}

// BlinkState returns the state topic for a Blink network id.
func (t Topics) BlinkState(networkID int64) string {
	return t.BridgeState(ProtocolBlink, strconv.FormatInt(networkID, 10))
}

// BlinkHealth returns the Blink bridge health topic.
func (t Topics) BlinkHealth() string {
	return t.BridgeHealth(ProtocolBlink)
}

// AllBlinkCommands returns the Blink bridge command subscription pattern.
func (t Topics) AllBlinkCommands() string {
	return t.BridgeCommandWildcard(ProtocolBlink)
}

// SystemStatus returns the retained online/offline topic for a client.
//
// Example: graylogic/system/status/graylogic-blink
func (Topics) SystemStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}
