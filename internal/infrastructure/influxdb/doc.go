// Package influxdb provides InfluxDB connectivity for the Blink bridge.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, telemetry writes and health monitoring.
//
// # Measurements
//
//   - blink_network: armed flag per network after each home screen refresh
//   - blink_command: outcome and latency of each arm/disarm request
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "graylogic",
//	    Bucket: "blink",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteNetworkState(9918, "Home", true)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Writes never block and never return errors. Failed batches reach the
// callback given to SetOnError. Connect and HealthCheck return errors
// directly.
//
// # Performance
//
// Writes are batched according to the batch_size and flush_interval settings.
package influxdb
