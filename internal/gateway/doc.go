// Package gateway maintains SSH connectivity to every node described in
// the cluster configuration and runs remote commands and file transfers
// on their behalf.
//
// A [Gateway] is constructed once per invocation from the credential
// table derived from the configuration. Connections are established
// lazily, cached per node, and probed for liveness before reuse, so a
// sequence of operations against the same node pays the handshake cost
// once. Commands run through a fresh SSH session each time; file
// transfers ride an SFTP subsystem over the same connection.
//
// Every other package addresses nodes exclusively through the
// [Executor] interface, which keeps workflows testable without real
// hosts.
package gateway
