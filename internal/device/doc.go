// Package device provides the metadata model for field devices and their
// addressable points.
//
// A device belongs to exactly one protocol driver, named by ProtocolName.
// A point is one addressable value on a device: an opaque protocol-specific
// address plus the typing and scaling information the dispatch engine needs
// to route and convert values.
//
//	┌──────────┐ 1      n ┌─────────┐
//	│  Device   │──────────│  Point  │
//	│ protocol  │          │ address │
//	└──────────┘          └─────────┘
//
// Scaling is a core concern, not a driver concern: drivers exchange raw
// values, and the dispatch engine applies each point's multiplier and
// precision on the way in and out.
//
// Persistence goes through the Repository interface; SQLiteRepository is
// the production implementation.
package device
