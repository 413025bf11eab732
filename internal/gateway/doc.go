// Package gateway is the single choke point between the driver and the
// Govee cloud. Every control call and state fetch passes through one
// throttle that enforces three limits at once:
//
//   - a global minimum interval between any two cloud calls
//   - a larger minimum interval between calls to the same device
//   - a rolling per-minute call cap
//
// Calls that would exceed a limit wait for the next free slot; they are
// queued in arrival order and never dropped. Slot reservation happens
// atomically under one mutex, so concurrent submitters cannot interleave
// into a limit violation.
//
// Transient cloud failures (timeouts, 5xx, 429) are retried with bounded
// exponential backoff; each retry attempt reserves a fresh throttle slot so
// retries count against the same limits. Permanent failures (bad API key,
// unknown device, unsupported capability) fail immediately.
package gateway
