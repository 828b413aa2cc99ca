package k8s

import (
	"context"
	"errors"
	"strings"
	"testing"

	testutil "github.com/k3pilot/k3pilot/internal/testing"
)

func TestWaitNodeReady_RecoversAfterTransientFailures(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	reads := 0
	gw.HandleFunc("get nodes", func(testutil.Call) testutil.Response {
		reads++
		switch {
		case reads == 1:
			return testutil.Response{Output: "", Err: errors.New("connection refused")}
		case reads < 4:
			return testutil.Response{Output: "wk1  NotReady  <none>  1d  v1.32.1+k3s1  10.0.0.21  <none>  os  kernel  rt"}
		default:
			return testutil.Response{Output: "wk1  Ready  <none>  1d  v1.32.1+k3s1  10.0.0.21  <none>  os  kernel  rt"}
		}
	})

	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	if err := c.WaitNodeReady(context.Background(), "10.0.0.21"); err != nil {
		t.Fatalf("WaitNodeReady() error = %v", err)
	}
	if reads < 4 {
		t.Errorf("listed nodes %d times, want at least 4", reads)
	}
}

func TestWaitNodeReady_TimeoutCarriesLastState(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	gw.Handle("get nodes", "wk1  NotReady  <none>  1d  v1.32.1+k3s1  10.0.0.21  <none>  os  kernel  rt", nil)

	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	err := c.WaitNodeReady(context.Background(), "10.0.0.21")
	if err == nil {
		t.Fatal("WaitNodeReady() should time out")
	}
	var werr *WaitTimeoutError
	if !errors.As(err, &werr) {
		t.Fatalf("error %T, want *WaitTimeoutError", err)
	}
	if werr.Last != "NotReady" {
		t.Errorf("Last = %q, want the final observed status", werr.Last)
	}
	if !strings.Contains(werr.Error(), "10.0.0.21") {
		t.Errorf("message %q should name the node", werr.Error())
	}
}

func TestWaitNodeVersion(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	reads := 0
	gw.HandleFunc("get nodes", func(testutil.Call) testutil.Response {
		reads++
		if reads < 3 {
			return testutil.Response{Output: "cp1  Ready  control-plane  1d  v1.31.4+k3s1  10.0.0.11  <none>  os  kernel  rt"}
		}
		return testutil.Response{Output: "cp1  Ready  control-plane  1d  v1.32.1+k3s1  10.0.0.11  <none>  os  kernel  rt"}
	})

	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	if err := c.WaitNodeVersion(context.Background(), "10.0.0.11", "v1.32.1+k3s1"); err != nil {
		t.Fatalf("WaitNodeVersion() error = %v", err)
	}
}

func TestWaitClaimBound(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	reads := 0
	gw.HandleFunc("get pvc", func(testutil.Call) testutil.Response {
		reads++
		if reads < 2 {
			return testutil.Response{Output: "Pending"}
		}
		return testutil.Response{Output: "Bound"}
	})

	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	if err := c.WaitClaimBound(context.Background(), "default", "probe"); err != nil {
		t.Fatalf("WaitClaimBound() error = %v", err)
	}
}

func TestWaitClaimBound_Timeout(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	gw.Handle("get pvc", "Pending", nil)

	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	err := c.WaitClaimBound(context.Background(), "default", "probe")
	var werr *WaitTimeoutError
	if !errors.As(err, &werr) {
		t.Fatalf("error %T, want *WaitTimeoutError", err)
	}
	if werr.Last != "Pending" {
		t.Errorf("Last = %q, want Pending", werr.Last)
	}
}

func TestWaitAllNodesReady_CountsRegistrations(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	gw.Handle("get nodes",
		"cp1  Ready  control-plane  1d  v1.32.1+k3s1  10.0.0.11  <none>  os  kernel  rt\n"+
			"wk1  Ready  <none>  1d  v1.32.1+k3s1  10.0.0.21  <none>  os  kernel  rt", nil)

	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	if err := c.WaitAllNodesReady(context.Background(), 2); err != nil {
		t.Fatalf("WaitAllNodesReady(2) error = %v", err)
	}
	if err := c.WaitAllNodesReady(context.Background(), 3); err == nil {
		t.Error("WaitAllNodesReady(3) should time out with only 2 nodes registered")
	}
}
