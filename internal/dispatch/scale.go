package dispatch

import (
	"math"

	"github.com/nerrad567/gray-logic-edge/internal/device"
	"github.com/nerrad567/gray-logic-edge/protocol"
)

// Scaling is a core concern: drivers exchange raw values, and the engine
// converts between raw and engineering units using the point's multiplier
// and precision. Non-numeric points pass through untouched.

// toEngineering converts a raw driver value into engineering units:
// engineering = raw * multiplier, rounded to the point's precision.
func toEngineering(raw protocol.Value, pt device.Point) protocol.Value {
	if !pt.DataType.IsNumeric() {
		return raw
	}

	f, ok := raw.AsFloat()
	if !ok {
		return raw
	}

	// Unscaled points pass through so integer points keep their integer
	// kind and floats are not disturbed.
	if pt.Multiplier == 1 && pt.Precision == 0 {
		return raw
	}

	return protocol.Float(roundTo(f*pt.Multiplier, pt.Precision))
}

// toRaw converts an engineering-unit value into the raw value the driver
// expects: raw = engineering / multiplier, rounded to the wire type.
func toRaw(eng protocol.Value, pt device.Point) protocol.Value {
	if !pt.DataType.IsNumeric() {
		return eng
	}

	f, ok := eng.AsFloat()
	if !ok {
		return eng
	}

	raw := f / pt.Multiplier
	if pt.DataType.IsInteger() {
		return protocol.Int(int64(math.Round(raw)))
	}
	return protocol.Float(raw)
}

// roundTo rounds x to n decimal places. n of zero keeps x untouched so
// points that only scale (precision unset) do not lose resolution.
func roundTo(x float64, n int) float64 {
	if n <= 0 {
		return x
	}
	pow := math.Pow(10, float64(n))
	return math.Round(x*pow) / pow
}
