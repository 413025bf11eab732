// Package pages turns classified device groups into remote UI pages.
//
// Synthesis is a pure function: the same groups always produce the same
// pages, buttons, and command bindings. Pages are regenerated wholesale
// whenever the registry changes; an item's identity is its position.
//
// Output shape follows the registry size:
//
//   - no devices: a single overview page stating so
//   - one device: overview plus one control page
//   - otherwise: a directory page plus one control page per group
//
// Every button carries a command ID derived from the device name
// (for example KITCHEN_KETTLE_TEMP_80). The bindings returned alongside
// the pages map each ID to its target devices, capability instance, and
// action, which is what the dispatcher executes.
package pages
