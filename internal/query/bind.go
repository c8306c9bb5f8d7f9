package query

import (
	"encoding/binary"
	"math"

	"github.com/roach88/fragio/internal/ioerr"
)

// BindType tags the wire representation of a bind argument.
//
// The numbering is stable: values may be persisted or transmitted and must
// never be renumbered.
type BindType int

const (
	BindDecimal   BindType = 1
	BindInt32     BindType = 2
	BindFloat     BindType = 3
	BindDouble    BindType = 4
	BindNull      BindType = 5
	BindInt64     BindType = 6
	BindVarString BindType = 7
	BindBit       BindType = 8
	BindLongBlob  BindType = 9
	BindBlob      BindType = 10
)

var bindTypeNames = map[BindType]string{
	BindDecimal:   "DECIMAL",
	BindInt32:     "LONG",
	BindFloat:     "FLOAT",
	BindDouble:    "DOUBLE",
	BindNull:      "NULL",
	BindInt64:     "LONGLONG",
	BindVarString: "VAR_STRING",
	BindBit:       "BIT",
	BindLongBlob:  "LONG_BLOB",
	BindBlob:      "BLOB",
}

// String returns the canonical name of the type.
func (t BindType) String() string {
	if name, ok := bindTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether t belongs to the closed bind type set.
func (t BindType) Valid() bool {
	_, ok := bindTypeNames[t]
	return ok
}

// ParseBindType maps a canonical name back to its type.
func ParseBindType(name string) (BindType, error) {
	for t, n := range bindTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, ioerr.New(ioerr.InvalidParameter, "unknown bind type %q", name)
}

// BindArg is one typed value for a prepared-statement placeholder.
// Fixed-width numeric buffers are little-endian.
type BindArg struct {
	Type   BindType
	Buffer []byte
	Length int
	IsNull bool
}

// Bytes returns the meaningful prefix of Buffer.
func (a BindArg) Bytes() []byte {
	n := a.Length
	if n < 0 || n > len(a.Buffer) {
		n = len(a.Buffer)
	}
	return a.Buffer[:n]
}

// Int32 decodes a BindInt32 buffer.
func (a BindArg) Int32() (int32, error) {
	b := a.Bytes()
	if len(b) < 4 {
		return 0, ioerr.New(ioerr.InvalidParameter, "int32 bind argument needs 4 bytes, got %d", len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Int64 decodes a BindInt64 buffer.
func (a BindArg) Int64() (int64, error) {
	b := a.Bytes()
	if len(b) < 8 {
		return 0, ioerr.New(ioerr.InvalidParameter, "int64 bind argument needs 8 bytes, got %d", len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// Float32 decodes a BindFloat buffer.
func (a BindArg) Float32() (float32, error) {
	b := a.Bytes()
	if len(b) < 4 {
		return 0, ioerr.New(ioerr.InvalidParameter, "float bind argument needs 4 bytes, got %d", len(b))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// Float64 decodes a BindDouble buffer.
func (a BindArg) Float64() (float64, error) {
	b := a.Bytes()
	if len(b) < 8 {
		return 0, ioerr.New(ioerr.InvalidParameter, "double bind argument needs 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// Int32Arg builds a BindInt32 argument.
func Int32Arg(v int32) BindArg {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return BindArg{Type: BindInt32, Buffer: buf, Length: 4}
}

// Int64Arg builds a BindInt64 argument.
func Int64Arg(v int64) BindArg {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return BindArg{Type: BindInt64, Buffer: buf, Length: 8}
}

// FloatArg builds a BindFloat argument.
func FloatArg(v float32) BindArg {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return BindArg{Type: BindFloat, Buffer: buf, Length: 4}
}

// DoubleArg builds a BindDouble argument.
func DoubleArg(v float64) BindArg {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return BindArg{Type: BindDouble, Buffer: buf, Length: 8}
}

// StringArg builds a BindVarString argument.
func StringArg(s string) BindArg {
	return BindArg{Type: BindVarString, Buffer: []byte(s), Length: len(s)}
}

// BlobArg builds a BindBlob argument.
func BlobArg(b []byte) BindArg {
	return BindArg{Type: BindBlob, Buffer: b, Length: len(b)}
}

// NullArg builds a BindNull argument.
func NullArg() BindArg {
	return BindArg{Type: BindNull, IsNull: true}
}
