package testing

import (
	"context"
	"testing"
	"time"

	"github.com/k3pilot/k3pilot/internal/config"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// FastTimeouts returns poll bounds shrunk to milliseconds so readiness
// loops resolve instantly under test.
func FastTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Dial:          10 * time.Millisecond,
		NodeReady:     200 * time.Millisecond,
		JoinAppear:    200 * time.Millisecond,
		ClaimBind:     200 * time.Millisecond,
		ServiceSettle: 200 * time.Millisecond,
		VersionRead:   200 * time.Millisecond,
		BatchPause:    time.Millisecond,
		PollInterval:  time.Millisecond,
		RetryMax:      2,
		RetryDelay:    time.Millisecond,
	}
}
