// Package plugin manages the gateway's protocol driver inventory: the live
// registry the dispatch engine routes through, the loader that brings
// driver modules into the process, and the persisted plugin catalogue.
//
//	┌─────────┐  Validate + Open   ┌──────────┐  Get(name)   ┌──────────┐
//	│  Loader  │───────────────────│ Registry │──────────────│ Dispatch │
//	└─────────┘                    └──────────┘              └──────────┘
//	     │  .so modules / builtins       │ name → Handle{Meta, Driver}
//	     │                               │
//	┌─────────┐                          │
//	│ plugins │── reloaded at startup ───┘
//	│  table  │
//	└─────────┘
//
// Two plugin kinds exist. System plugins are compiled into the binary and
// registered through RegisterBuiltin. Custom plugins are Go plugin modules
// (.so) opened at runtime; the loader validates the artifact path before
// plugin.Open because a loaded module can never be unloaded from the
// process.
//
// The registry hands out immutable handles. A request that resolved a
// handle keeps using its driver even if the protocol is replaced
// mid-flight; the displaced driver is returned to the caller for closing
// once it is quiescent.
package plugin
