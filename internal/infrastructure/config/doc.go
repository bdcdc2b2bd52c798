// Package config handles loading and validating the Blink bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Blink credentials, the verification PIN and the JWT secret should be
//     set via environment variables (GRAYLOGIC_BLINK_PASSWORD, GRAYLOGIC_BLINK_PIN,
//     GRAYLOGIC_JWT_SECRET)
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/blinkbridge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Blink.DeviceName)
package config
