package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the poll bounds for every wait in the workflows. Each wait
// is a bounded poll against an explicit readiness predicate, never a bare
// sleep. Values can be customized via environment variables.
type Timeouts struct {
	Dial          time.Duration // SSH dial per attempt
	NodeReady     time.Duration // node Ready after bootstrap or restart
	JoinAppear    time.Duration // new node appearing in the node listing
	ClaimBind     time.Duration // throwaway claim reaching Bound
	ServiceSettle time.Duration // systemd unit reaching active/inactive
	VersionRead   time.Duration // version readback after reinstall
	BatchPause    time.Duration // pause between worker batches
	PollInterval  time.Duration // base interval for readiness polls
	RetryMax      int           // max connection-level retry attempts
	RetryDelay    time.Duration // initial delay between connection retries
}

// DefaultTimeouts returns the built-in poll bounds without consulting
// the environment.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		Dial:          15 * time.Second,
		NodeReady:     5 * time.Minute,
		JoinAppear:    3 * time.Minute,
		ClaimBind:     2 * time.Minute,
		ServiceSettle: 90 * time.Second,
		VersionRead:   60 * time.Second,
		BatchPause:    30 * time.Second,
		PollInterval:  5 * time.Second,
		RetryMax:      5,
		RetryDelay:    2 * time.Second,
	}
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - K3PILOT_TIMEOUT_DIAL (default: 15s)
//   - K3PILOT_TIMEOUT_NODE_READY (default: 5m)
//   - K3PILOT_TIMEOUT_JOIN_APPEAR (default: 3m)
//   - K3PILOT_TIMEOUT_CLAIM_BIND (default: 2m)
//   - K3PILOT_TIMEOUT_SERVICE_SETTLE (default: 90s)
//   - K3PILOT_TIMEOUT_VERSION_READ (default: 60s)
//   - K3PILOT_TIMEOUT_BATCH_PAUSE (default: 30s)
//   - K3PILOT_POLL_INTERVAL (default: 5s)
//   - K3PILOT_RETRY_MAX_ATTEMPTS (default: 5)
//   - K3PILOT_RETRY_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Dial:          parseDuration("K3PILOT_TIMEOUT_DIAL", 15*time.Second),
		NodeReady:     parseDuration("K3PILOT_TIMEOUT_NODE_READY", 5*time.Minute),
		JoinAppear:    parseDuration("K3PILOT_TIMEOUT_JOIN_APPEAR", 3*time.Minute),
		ClaimBind:     parseDuration("K3PILOT_TIMEOUT_CLAIM_BIND", 2*time.Minute),
		ServiceSettle: parseDuration("K3PILOT_TIMEOUT_SERVICE_SETTLE", 90*time.Second),
		VersionRead:   parseDuration("K3PILOT_TIMEOUT_VERSION_READ", 60*time.Second),
		BatchPause:    parseDuration("K3PILOT_TIMEOUT_BATCH_PAUSE", 30*time.Second),
		PollInterval:  parseDuration("K3PILOT_POLL_INTERVAL", 5*time.Second),
		RetryMax:      parseInt("K3PILOT_RETRY_MAX_ATTEMPTS", 5),
		RetryDelay:    parseDuration("K3PILOT_RETRY_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
