// Package config provides 12-factor configuration management for the shell.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Manifest: deployment manifest location and fetch timeout
//   - Probe: provider probe retry, backoff, and rate limit settings
//   - Telemetry: client log transmission endpoints
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - MANIFEST_URL, SHELL_PATH, MANIFEST_TIMEOUT
//   - PROBE_RETRIES, PROBE_BACKOFF, PROBE_TIMEOUT, PROBE_RPS
//   - TELEMETRY_ENDPOINT, TELEMETRY_WS_ENDPOINT
//   - LOG_LEVEL, LOG_DEV
package config
