// Package discovery drives driver setup and device enumeration.
//
// Setup validates the API key against the cloud before any page is built,
// retrying transient failures with backoff so a flaky link does not fail
// an otherwise valid key. A valid key with zero devices is its own error
// so the setup UI can say "key works, account is empty" instead of a
// generic failure.
//
// Discovery fetches the account's devices, converts them to the driver
// model, and atomically replaces the registry snapshot. State sync then
// walks the snapshot through the gateway so button toggles and deltas
// start from the devices' real positions rather than defaults.
package discovery
