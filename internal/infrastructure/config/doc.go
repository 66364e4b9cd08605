// Package config handles loading and validating the Logix service configuration.
//
// This package manages:
//   - Loading configuration from YAML files (optional)
//   - Overriding with environment variables (LOGIX_*)
//   - Overriding with command-line flags via Option values
//   - Validation of required fields
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/logix.yaml",
//	    config.WithEndpoint("0.0.0.0", 5555),
//	    config.WithSimulate(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Endpoint())
package config
