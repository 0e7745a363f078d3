package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-edge/internal/device"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

// pointValueMeasurement is the measurement every committed point value
// lands in.
const pointValueMeasurement = "point_values"

// RecordValue writes one committed point value to the history bucket. It
// satisfies the dispatch engine's Recorder interface; the write is
// non-blocking and a dropped sample never fails the originating request.
//
// Tags carry the routing identity (point, device, protocol) for querying;
// the value lands in a kind-specific field so bools, numbers, and strings
// coexist in one measurement.
func (c *Client) RecordValue(pt device.PointWithProtocol, v protocol.Value, at time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"point_id":  strconv.FormatInt(pt.ID, 10),
		"device_id": strconv.FormatInt(pt.DeviceID, 10),
		"protocol":  pt.ProtocolName,
		"point":     pt.Name,
	}

	fields := make(map[string]interface{}, 1)
	switch v.Kind() {
	case protocol.KindBool:
		b, _ := v.AsBool()
		fields["value_bool"] = b
	case protocol.KindInt:
		i, _ := v.AsInt()
		fields["value"] = float64(i)
	case protocol.KindFloat:
		f, _ := v.AsFloat()
		fields["value"] = f
	case protocol.KindString:
		s, _ := v.AsString()
		fields["value_string"] = s
	default:
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(pointValueMeasurement, tags, fields, at))
}

// WritePointWithTime writes a custom measurement with explicit tags,
// fields, and timestamp. Used for gateway-level stats outside the point
// value stream.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
