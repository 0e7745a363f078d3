package protocol

import "context"

// EntrySymbol is the exported symbol a plugin module must provide.
// Its value must have type Factory.
const EntrySymbol = "NewDriver"

// Factory constructs a driver instance. Plugin modules export a value of
// this type under EntrySymbol; the loader calls it exactly once per load.
type Factory = func() (Driver, error)

// ReadRequest describes a single live read, built per operation from point
// metadata. Requests are owned by the call that creates them and are never
// retained by the driver or the core.
type ReadRequest struct {
	PointID  int64
	DeviceID int64

	// Address is the protocol-specific point address, opaque to the core.
	Address string

	// DataType the driver must decode the raw device value as.
	DataType DataType
}

// WriteRequest describes a single live write. Value carries the raw value
// to commit; scaling to raw units has already happened core-side.
type WriteRequest struct {
	PointID  int64
	DeviceID int64
	Address  string
	DataType DataType
	Value    Value
}

// Driver is the contract every protocol driver implements, whether built
// in or loaded from a plugin module.
type Driver interface {
	// ReadPoint performs a live read from the device at the request
	// address. The returned value's kind must match the request data
	// type. No unit scaling is applied by the driver.
	ReadPoint(ctx context.Context, req ReadRequest) (Value, error)

	// WritePoint performs a live write and returns the value actually
	// committed, which may differ from the requested one (device-side
	// clamping, rounding). Must fail with ErrAccessMode if the device
	// itself rejects writes to the address.
	WritePoint(ctx context.Context, req WriteRequest) (Value, error)

	// Close releases driver-held resources (sockets, serial handles,
	// sessions). Called on explicit unload and at gateway shutdown.
	Close() error
}
