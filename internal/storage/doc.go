// Package storage deploys the shared-storage provisioner and proves it
// works.
//
// The first control-plane node exports its storage device over NFS
// (the bootstrap script sets that up); this package renders the
// provisioner manifests pointed at that export, applies them through
// the kubectl surface, and then verifies the result functionally with
// a throwaway claim. A provisioner whose pods are Running but cannot
// bind a claim is broken, so binding is the check, not pod status.
package storage
