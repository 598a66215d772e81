// Package netman wraps nmcli as the connection manager used during
// auto-connect: join a candidate network, wait for activation, verify
// internet reachability, and restore the original connection when the
// run ends. Every invocation is bounded by a timeout; the WiFi radio
// is a singly-owned resource, so calls are strictly sequential.
package netman
