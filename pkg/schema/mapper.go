package schema

// Kind is the declared semantic type of a record field, before it is mapped
// to a storage type.
type Kind int

const (
	// KindInt32 covers 8-, 16- and 32-bit signed integers
	KindInt32 Kind = iota
	// KindInt64 covers 64-bit and platform-sized integers
	KindInt64
	// KindFloat32 is a 32-bit float
	KindFloat32
	// KindFloat64 is a 64-bit float
	KindFloat64
	// KindBool is a boolean
	KindBool
	// KindDecimal is a fixed-precision decimal value
	KindDecimal
	// KindTimestamp is a point in time without an offset
	KindTimestamp
	// KindTimestampTZ is a point in time with an offset
	KindTimestampTZ
	// KindUUID is a unique identifier
	KindUUID
	// KindBytes is a raw byte sequence
	KindBytes
	// KindEnum is a named member of an enumeration, stored by member name
	KindEnum
	// KindString covers strings and any otherwise-unmapped type
	KindString
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindUUID:
		return "uuid"
	case KindBytes:
		return "bytes"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Map converts a semantic field kind to its columnar storage type and
// nullability. The wrapped flag reports whether the field is declared through
// a nullable wrapper (a pointer). Two rules diverge from the wrapper rule and
// must hold regardless of it: a byte-sequence column is always nullable, and
// an enumeration column is non-nullable unless wrapped.
func Map(kind Kind, wrapped bool) (Type, bool) {
	switch kind {
	case KindInt32:
		return TypeInt32, wrapped
	case KindInt64:
		return TypeInt64, wrapped
	case KindFloat32:
		return TypeFloat32, wrapped
	case KindFloat64:
		return TypeFloat64, wrapped
	case KindBool:
		return TypeBool, wrapped
	case KindDecimal:
		return TypeDecimal, wrapped
	case KindTimestamp:
		return TypeTimestamp, wrapped
	case KindTimestampTZ:
		return TypeTimestampTZ, wrapped
	case KindUUID:
		return TypeUUID, wrapped
	case KindBytes:
		return TypeBytes, true
	case KindEnum:
		return TypeString, wrapped
	default:
		return TypeString, wrapped
	}
}

// StorageType returns the storage type for a non-wrapped field of this kind.
func (k Kind) StorageType() Type {
	t, _ := Map(k, false)
	return t
}
