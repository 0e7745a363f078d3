package protocol

import "errors"

// Driver error taxonomy. Drivers wrap these sentinels so the core and the
// API layer can classify failures with errors.Is without knowing the
// protocol.
var (
	// ErrConnection indicates the device or its transport is unreachable.
	ErrConnection = errors.New("driver: connection failed")

	// ErrAddressNotFound indicates the address does not exist on the device.
	ErrAddressNotFound = errors.New("driver: address not found on device")

	// ErrTypeMismatch indicates the device value does not match the
	// declared data type.
	ErrTypeMismatch = errors.New("driver: data type mismatch")

	// ErrTimeout indicates the device did not answer within the deadline.
	ErrTimeout = errors.New("driver: operation timed out")

	// ErrAccessMode indicates the device rejected the operation for the
	// point's access mode.
	ErrAccessMode = errors.New("driver: access mode violation")

	// ErrUnsupported indicates the driver does not implement the
	// requested operation for this address.
	ErrUnsupported = errors.New("driver: operation not supported")
)
