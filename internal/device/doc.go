// Package device provides the Device Registry for the Govee remote driver.
//
// The Device Registry is the catalogue of every Govee device the configured
// API key can reach. It holds the capability model that page synthesis and
// command dispatch are built on, and keeps the last-known state snapshot
// used for delta and toggle commands.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                          Device Registry                             │
//	│                                                                      │
//	│  ┌────────────────┐   ┌──────────────────┐   ┌───────────────────┐  │
//	│  │    Registry    │   │    Repository    │   │    Classifier     │  │
//	│  │  (registry.go) │──▶│ (repository.go)  │   │  (classifier.go)  │  │
//	│  │                │   │                  │   │                   │  │
//	│  │ • ReplaceAll   │   │ • SQLite cache   │   │ • SKU grouping    │  │
//	│  │ • ApplyResult  │   │ • JSON columns   │   │ • variant split   │  │
//	│  │ • Snapshot     │   │ • one txn swap   │   │ • stable ordering │  │
//	│  └────────────────┘   └──────────────────┘   └───────────────────┘  │
//	│          │                      │                                    │
//	└──────────│──────────────────────│────────────────────────────────────┘
//	           │                      │
//	           ▼                      ▼
//	┌─────────────────────┐  ┌─────────────────────┐
//	│  Pages / Dispatch   │  │   SQLite Database   │
//	│  • Snapshot()       │  │   (devices table)   │
//	│  • Get(id)          │  └─────────────────────┘
//	│  • ApplyResult      │
//	└─────────────────────┘
//
// # Key Types
//
//   - Device: one cloud device, identified by the (ID, SKU) pair
//   - Capability: tagged variant (on_off, range, enum) with its domain
//   - Group: devices sharing a SKU and capability structure
//
// # Lifecycle
//
// Devices enter the registry two ways only: ReplaceAll with a discovery
// result, or Hydrate from the persisted cache at startup. There is no
// individual add or remove. ApplyResult records confirmed command results
// against the local state snapshot and never performs network I/O.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. ReplaceAll swaps the whole set
// under the write lock, so readers observe either the previous set or the
// new one, never a mix. All reads return deep copies.
package device
