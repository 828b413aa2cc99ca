// Package provision contains the lifecycle workflows and the shared
// machinery they run on.
//
// Every workflow call threads an explicit Session carrying the
// descriptor, the SSH gateway, timeouts, the observer, and the confirm
// policy. Nothing reads ambient process state; two sessions against
// different clusters can run side by side.
//
// Workflows return a Report rather than failing fast: each per-node
// step lands in an Outcome, and the workflow's failure policy decides
// whether a failed step stops the run (control-plane upgrades), skips
// the node (worker batches), or just gets recorded (backup fan-out).
package provision
