// Package proxy manages the nginx stream load balancer fronting the
// control planes. The API upstream members live between marker comments
// in an otherwise ordinary nginx.conf, so the file can be regenerated
// in full at bootstrap and edited structurally afterwards.
//
// Every mutation of the live configuration runs as a transaction:
// parse the current upstream set, mutate it, render, validate the
// candidate remotely with nginx -t, and only then back up and atomically
// replace the live file. The swapped file is validated once more before
// the reload, and any failure past the swap restores the backup. A
// configuration that fails its syntax check is never put in front of
// the reload.
package proxy
