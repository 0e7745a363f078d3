// Package protocol defines the contract between Gray Logic Edge and its
// south-bound protocol drivers.
//
// A driver is one implementation of a field protocol (Modbus, BACnet, a
// vendor serial protocol) able to read and write addressable data points on
// physical devices. Drivers are either compiled into the gateway binary
// (system drivers) or built as Go plugin modules and loaded at runtime
// (custom drivers). Both kinds implement the same Driver interface.
//
// # Architecture
//
//	┌────────────────────────┐        ┌──────────────────────────┐
//	│     Dispatch Engine    │        │  Plugin (.so) / builtin  │
//	│  (internal/dispatch)   │        │                          │
//	│                        │        │  func NewDriver()        │
//	│  builds ReadRequest /  │───────▶│    (protocol.Driver,     │
//	│  WriteRequest, calls   │        │     error)               │
//	│  Driver methods        │◀───────│                          │
//	└────────────────────────┘ Value  └──────────────────────────┘
//
// This package is deliberately dependency-free: out-of-tree plugins import
// it and nothing else from the gateway. The Go plugin runtime requires the
// host and the plugin to agree on the exact types crossing the boundary, so
// the surface here is kept small and stable.
//
// # Contract rules
//
//   - Drivers perform raw device I/O only. Unit scaling (multiplier,
//     precision) is applied by the dispatch engine, never by the driver.
//   - Point addresses are opaque strings; their interpretation belongs to
//     the driver that owns the protocol.
//   - Driver methods must be safe for concurrent calls on different points.
//     If the underlying transport is not concurrency-safe the driver must
//     serialise internally.
//   - Driver methods must honour the context deadline and return
//     ErrTimeout (wrapped) when it expires.
package protocol
