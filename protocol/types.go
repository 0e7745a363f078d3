package protocol

// DataType declares the wire type of a point's value.
//
// Integer widths matter to drivers (register sizing, byte packing) but the
// core treats all integers as int64 once decoded.
type DataType string

// DataType constants.
const (
	DataTypeBool    DataType = "bool"
	DataTypeInt16   DataType = "int16"
	DataTypeInt32   DataType = "int32"
	DataTypeInt64   DataType = "int64"
	DataTypeFloat32 DataType = "float32"
	DataTypeFloat64 DataType = "float64"
	DataTypeString  DataType = "string"
)

// AllDataTypes returns all valid data type values.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeBool, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeFloat32, DataTypeFloat64, DataTypeString,
	}
}

// Valid reports whether the data type is one of the declared constants.
func (dt DataType) Valid() bool {
	switch dt {
	case DataTypeBool, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeFloat32, DataTypeFloat64, DataTypeString:
		return true
	default:
		return false
	}
}

// IsInteger reports whether the data type is an integer width.
func (dt DataType) IsInteger() bool {
	return dt == DataTypeInt16 || dt == DataTypeInt32 || dt == DataTypeInt64
}

// IsFloat reports whether the data type is a floating-point width.
func (dt DataType) IsFloat() bool {
	return dt == DataTypeFloat32 || dt == DataTypeFloat64
}

// IsNumeric reports whether multiplier/precision scaling applies.
func (dt DataType) IsNumeric() bool {
	return dt.IsInteger() || dt.IsFloat()
}

// AccessMode declares which operations a point permits.
type AccessMode string

// AccessMode constants.
const (
	AccessRead      AccessMode = "read"
	AccessWrite     AccessMode = "write"
	AccessReadWrite AccessMode = "read_write"
)

// AllAccessModes returns all valid access mode values.
func AllAccessModes() []AccessMode {
	return []AccessMode{AccessRead, AccessWrite, AccessReadWrite}
}

// Valid reports whether the access mode is one of the declared constants.
func (m AccessMode) Valid() bool {
	switch m {
	case AccessRead, AccessWrite, AccessReadWrite:
		return true
	default:
		return false
	}
}

// CanRead reports whether live reads are permitted.
func (m AccessMode) CanRead() bool {
	return m == AccessRead || m == AccessReadWrite
}

// CanWrite reports whether writes are permitted.
func (m AccessMode) CanWrite() bool {
	return m == AccessWrite || m == AccessReadWrite
}
