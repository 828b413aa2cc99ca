// Package runtime composes the k3s commands the workflows execute on
// cluster nodes: installer invocations with their full argument sets,
// systemd service management, etcd snapshot operations, and certificate
// handling.
//
// Argument synthesis is pure. The same cluster configuration always
// produces the same argument list, so a reinstall during an upgrade
// regenerates exactly the arguments the node was bootstrapped with.
package runtime
