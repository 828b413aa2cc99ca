// Package k8s queries and manipulates the cluster through kubectl
// executed on a control-plane node over the gateway. Running the
// embedded `k3s kubectl` remotely works from the very first moment a
// server is up, before any local kubeconfig exists, and sees the
// cluster through the same path the nodes themselves use.
//
// Listings are requested with --no-headers and parsed from the wide
// column layout. Readiness checks are bounded polls; a kubectl failure
// mid-poll counts as "not yet", since the API server is expected to
// drop out during upgrades and restores.
package k8s
