package device

import (
	"fmt"
	"strings"
)

// maxNameLength bounds device and point names.
const maxNameLength = 128

// ValidateDevice checks a device before it is persisted.
func ValidateDevice(d *Device) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDevice, maxNameLength)
	}
	if strings.TrimSpace(d.ProtocolName) == "" {
		return fmt.Errorf("%w: protocol_name is required", ErrInvalidDevice)
	}
	if strings.TrimSpace(d.DeviceType) == "" {
		return fmt.Errorf("%w: device_type is required", ErrInvalidDevice)
	}
	return nil
}

// ValidatePoint checks a point before it is persisted. The address is only
// checked for presence; its format belongs to the owning driver.
func ValidatePoint(p *Point) error {
	if p.DeviceID == 0 {
		return fmt.Errorf("%w: device_id is required", ErrInvalidPoint)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPoint)
	}
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidPoint)
	}
	if !p.DataType.Valid() {
		return fmt.Errorf("%w: unknown data_type %q", ErrInvalidPoint, p.DataType)
	}
	if !p.AccessMode.Valid() {
		return fmt.Errorf("%w: unknown access_mode %q", ErrInvalidPoint, p.AccessMode)
	}
	if p.Multiplier == 0 {
		return fmt.Errorf("%w: multiplier must be non-zero (use 1 for unscaled points)", ErrInvalidPoint)
	}
	if p.Precision < 0 {
		return fmt.Errorf("%w: precision must not be negative", ErrInvalidPoint)
	}
	if p.Precision > 0 && !p.DataType.IsNumeric() {
		return fmt.Errorf("%w: precision only applies to numeric data types", ErrInvalidPoint)
	}
	return nil
}
