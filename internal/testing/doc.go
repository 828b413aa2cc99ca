// Package testing provides shared test utilities: a fluent builder for
// cluster configurations, a scriptable fake gateway that stands in for
// SSH connectivity, and timeout presets that keep polling loops fast
// under test.
//
// Usage:
//
//	cluster := testing.NewClusterBuilder().
//	    WithControlPlanes("10.0.0.11", "10.0.0.12", "10.0.0.13").
//	    WithWorkers("10.0.0.21").
//	    Build()
//
//	gw := testing.NewFakeGateway()
//	gw.Handle("k3s -v", "k3s version v1.32.1+k3s1 (6a322f15)", nil)
package testing
