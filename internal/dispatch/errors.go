package dispatch

import (
	"errors"
	"fmt"
)

// Domain errors for the dispatch package. Check them with errors.Is().
var (
	// ErrNoSuchProtocol is returned when a point's device names a
	// protocol that no registered driver owns.
	ErrNoSuchProtocol = errors.New("dispatch: no such protocol")

	// ErrTypeMismatch is returned when a write value does not match the
	// point's declared data type.
	ErrTypeMismatch = errors.New("dispatch: value does not match point data type")

	// ErrAccessMode is returned when the point's access mode forbids the
	// requested operation.
	ErrAccessMode = errors.New("dispatch: access mode forbids operation")

	// ErrDriverFailure marks any failure inside a driver call: an error
	// return, a timeout, or a recovered panic. Match it with errors.Is;
	// the concrete *DriverError carries protocol and point context.
	ErrDriverFailure = errors.New("dispatch: driver failure")
)

// DriverError wraps a driver call failure with routing context. The
// underlying driver error stays reachable through Unwrap, so callers can
// still match protocol sentinels like protocol.ErrTimeout.
type DriverError struct {
	Protocol string
	PointID  int64
	Err      error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("dispatch: driver failure: protocol %q point %d: %v",
		e.Protocol, e.PointID, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDriverFailure) match without losing the
// wrapped driver error.
func (e *DriverError) Is(target error) bool { return target == ErrDriverFailure }
