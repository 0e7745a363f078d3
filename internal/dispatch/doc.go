// Package dispatch routes point reads and writes from the management
// surface to the protocol driver that owns the point's device.
//
//	               ┌──────────────┐
//	  ReadPoint ──▶│              │── fresh? ──▶ shadow value
//	               │    Engine    │
//	  WritePoint ─▶│              │── Registry.Get(protocol) ──▶ Driver
//	               └──────────────┘                                │
//	                      ▲                                        │
//	                      └── commit: scale, shadow.Put, fan out ◀─┘
//
// The engine enforces the split of responsibilities: drivers move raw
// values over their bus and nothing else, while the engine owns access
// modes, value typing, raw/engineering scaling, shadow maintenance, and
// the per-call timeout. Driver panics are recovered and surfaced as
// DriverError, and concurrent live reads of the same point collapse into
// one driver call via singleflight.
//
// The engine never retries. A failed driver call returns a DriverError
// with the shadow untouched; retry policy belongs to callers.
package dispatch
