package device

import (
	"time"

	"github.com/nerrad567/gray-logic-edge/protocol"
)

// Device represents one physical field device reachable through a protocol
// driver. The core reads devices; creation and mutation happen through the
// management API.
type Device struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// DeviceType is a free-form classification tag ("energy_meter",
	// "vfd", "plc"). The core does not interpret it.
	DeviceType string `json:"device_type"`

	// CustomData is an opaque structured blob whose schema belongs to the
	// device type, not to the core. Stored as JSON.
	CustomData map[string]any `json:"custom_data"`

	// ProtocolName names the driver that owns this device. It is the
	// registry key used by the dispatch engine.
	ProtocolName string `json:"protocol_name"`

	// Points are the device's addressable data points. Populated only by
	// detail queries; list queries leave it nil.
	Points []Point `json:"points,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Point is a single addressable data value on a device (a register, a tag).
type Point struct {
	ID       int64  `json:"id"`
	DeviceID int64  `json:"device_id"`
	Name     string `json:"name"`

	// Address is protocol-specific and opaque to the core; only the
	// owning driver interprets it.
	Address string `json:"address"`

	DataType   protocol.DataType   `json:"data_type"`
	AccessMode protocol.AccessMode `json:"access_mode"`

	// Multiplier scales raw device values into engineering units
	// (engineering = raw * multiplier). Applied core-side, never by the
	// driver.
	Multiplier float64 `json:"multiplier"`

	// Precision is the number of decimal places kept after scaling.
	Precision int `json:"precision"`

	Description string    `json:"description"`
	PartNumber  *string   `json:"part_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PointWithProtocol joins a point with its owning device's protocol name.
// It is the minimal unit the dispatch engine needs to route a request
// without re-fetching the device. Built per request, never cached.
type PointWithProtocol struct {
	Point
	ProtocolName string `json:"protocol_name"`
}

// ReadRequest builds the driver read request for this point.
func (p PointWithProtocol) ReadRequest() protocol.ReadRequest {
	return protocol.ReadRequest{
		PointID:  p.ID,
		DeviceID: p.DeviceID,
		Address:  p.Address,
		DataType: p.DataType,
	}
}

// WriteRequest builds the driver write request for this point carrying the
// raw value to commit.
func (p PointWithProtocol) WriteRequest(v protocol.Value) protocol.WriteRequest {
	return protocol.WriteRequest{
		PointID:  p.ID,
		DeviceID: p.DeviceID,
		Address:  p.Address,
		DataType: p.DataType,
		Value:    v,
	}
}
