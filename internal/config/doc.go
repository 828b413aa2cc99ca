// Package config defines the cluster descriptor consumed by every workflow.
//
// The [Cluster] struct is the canonical, immutable-after-load description of
// a fleet: the proxy address, the ordered control-plane list (index 0 is the
// cluster-initializing node), the worker list, runtime networking parameters,
// SSH credentials with optional per-role overrides, storage layout, and
// operational tuning. It is produced by [Load] from a YAML file, validated,
// and completed by [Cluster.ApplyDefaults]; workflows never mutate it.
package config
