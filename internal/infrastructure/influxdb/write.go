package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementNetworkState = "blink_network"
	MeasurementCommand      = "blink_command"
)

// WriteNetworkState records the armed flag of one network as seen in a
// home screen snapshot.
func (c *Client) WriteNetworkState(networkID int64, name string, armed bool) {
	if !c.open.Load() {
		return
	}
	c.writeAPI.WritePoint(newNetworkStatePoint(networkID, name, armed, time.Now()))
}

// WriteCommand records the outcome of an arm or disarm request.
//
// Parameters:
//   - networkID: Blink network id the command targeted
//   - command: "arm" or "disarm"
//   - status: "accepted" or "failed"
//   - latency: time from receipt to Blink's response
func (c *Client) WriteCommand(networkID int64, command, status string, latency time.Duration) {
	if !c.open.Load() {
		return
	}
	c.writeAPI.WritePoint(newCommandPoint(networkID, command, status, latency, time.Now()))
}

func newNetworkStatePoint(networkID int64, name string, armed bool, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementNetworkState,
		map[string]string{
			"network_id": strconv.FormatInt(networkID, 10),
			"name":       name,
		},
		map[string]interface{}{
			"armed": armed,
		},
		ts,
	)
}

func newCommandPoint(networkID int64, command, status string, latency time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementCommand,
		map[string]string{
			"network_id": strconv.FormatInt(networkID, 10),
			"command":    command,
			"status":     status,
		},
		map[string]interface{}{
			"latency_ms": latency.Milliseconds(),
		},
		ts,
	)
}
