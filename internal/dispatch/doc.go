// Package dispatch executes UI commands against the Govee cloud.
//
// The dispatcher sits between the synthesized page layout and the rate
// limited gateway:
//
//	┌──────────────┐   command ID   ┌────────────┐   gateway.Command   ┌─────────┐
//	│ remote / api │ ─────────────► │ Dispatcher │ ──────────────────► │ Gateway │
//	└──────────────┘                └────────────┘                     └─────────┘
//	                                      │
//	                                      ▼ last-known state, validation
//	                                ┌──────────┐
//	                                │ Registry │
//	                                └──────────┘
//
// A command ID resolves to a binding from the current layout. The binding
// names the target devices, the capability instance, and the action. Set
// actions carry a fixed value; toggle and delta actions are resolved per
// device from the registry's last-known state before anything is sent.
//
// Every value is validated against the device's declared capability domain
// first. Invalid values never reach the gateway.
//
// Bindings with multiple devices fan out concurrently, one gateway
// submission per device, and the outcome reports per-device results. A
// mixed outcome is surfaced as StatusPartial rather than collapsed into a
// single error.
package dispatch
