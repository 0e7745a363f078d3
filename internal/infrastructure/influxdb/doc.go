// Package influxdb is the optional point-value history sink.
//
// The dispatch engine hands every committed value to RecordValue, which
// batches it into the point_values measurement. Writes are asynchronous:
// history is best-effort and must never slow down or fail a live read or
// write on the field bus.
//
// When the sink is disabled in configuration, Connect returns ErrDisabled
// and the engine simply runs without a recorder.
package influxdb
