package exodbc

import (
	"encoding/binary"
	"math"
	"math/big"
	"strings"
	"time"
	"unsafe"
)

// BufferKind is the closed set of column-buffer storage shapes this module
// knows how to allocate and bind (spec.md §4.4).
type BufferKind int

const (
	BufferShort BufferKind = iota
	BufferUShort
	BufferLong
	BufferULong
	BufferBigInt
	BufferUBigInt
	BufferReal
	BufferDouble
	BufferTime
	BufferTypeTime
	BufferDate
	BufferTypeDate
	BufferTimestamp
	BufferTypeTimestamp
	BufferNumeric
	BufferChar
	BufferWChar
	BufferBinary
	BufferOpaque
)

// BufferFlag is a bitmask of the roles a ColumnBuffer plays (spec.md §4.4).
type BufferFlag uint8

const (
	FlagSelect BufferFlag = 1 << iota
	FlagUpdate
	FlagInsert
	FlagNullable
	FlagPrimaryKey
)

func bufferKindCTypes(kind BufferKind) (cType SQLSMALLINT, size int) {
	switch kind {
	case BufferShort:
		return SQL_C_SSHORT, 2
	case BufferUShort:
		return SQL_C_USHORT, 2
	case BufferLong:
		return SQL_C_SLONG, 4
	case BufferULong:
		return SQL_C_ULONG, 4
	case BufferBigInt:
		return SQL_C_SBIGINT, 8
	case BufferUBigInt:
		return SQL_C_UBIGINT, 8
	case BufferReal:
		return SQL_C_FLOAT, 4
	case BufferDouble:
		return SQL_C_DOUBLE, 8
	case BufferTime, BufferTypeTime:
		return SQL_C_TIME, int(unsafe.Sizeof(SQL_TIME_STRUCT{}))
	case BufferDate, BufferTypeDate:
		return SQL_C_DATE, int(unsafe.Sizeof(SQL_DATE_STRUCT{}))
	case BufferTimestamp, BufferTypeTimestamp:
		return SQL_C_TIMESTAMP, int(unsafe.Sizeof(SQL_TIMESTAMP_STRUCT{}))
	case BufferNumeric:
		return SQL_C_NUMERIC, int(unsafe.Sizeof(SQL_NUMERIC_STRUCT{}))
	case BufferChar:
		return SQL_C_CHAR, 0
	case BufferWChar:
		return SQL_C_WCHAR, 0
	case BufferBinary:
		return SQL_C_BINARY, 0
	default:
		return SQL_C_CHAR, 0
	}
}

// ColumnBuffer is a reusable, typed binding target for one column or
// parameter. Unlike the teacher's array-oriented ArrayColumnBuffer (one-shot,
// built fresh per batch execute), a ColumnBuffer is a long-lived value
// rebound across fetches or executions, mirroring spec.md §4.4's unified
// buffer abstraction.
type ColumnBuffer struct {
	Kind     BufferKind
	Name     string
	SQLType  SQLSMALLINT
	ColSize  SQLULEN
	DecDigits SQLSMALLINT
	Flags    BufferFlag

	storage   []byte
	indicator SQLLEN

	bindings map[*StmtHandle]*Subscription
}

// NewColumnBuffer allocates storage sized for kind, reserving extra space
// for character/binary buffers sized by colSize.
func NewColumnBuffer(name string, kind BufferKind, sqlType SQLSMALLINT, colSize SQLULEN, decDigits SQLSMALLINT, flags BufferFlag) *ColumnBuffer {
	_, fixedSize := bufferKindCTypes(kind)
	size := fixedSize
	switch kind {
	case BufferChar, BufferBinary:
		size = int(colSize) + 1
	case BufferWChar:
		size = (int(colSize) + 1) * 2
	}
	if size == 0 {
		size = 256
	}
	return &ColumnBuffer{
		Kind: kind, Name: name, SQLType: sqlType, ColSize: colSize, DecDigits: decDigits, Flags: flags,
		storage:  make([]byte, size),
		bindings: make(map[*StmtHandle]*Subscription),
	}
}

// IsNull reports whether the most recent fetch/bind produced a NULL value.
func (b *ColumnBuffer) IsNull() bool { return b.indicator == SQL_NULL_DATA }

// Ptr returns the address of the buffer's backing storage for FFI calls.
func (b *ColumnBuffer) Ptr() uintptr {
	if len(b.storage) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.storage[0]))
}

// BindAsColumn binds this buffer into a result-set column position on stmt.
// The binding auto-releases when the statement broadcasts columns-unbound,
// so the ColumnBuffer never outlives a driver-side rebind silently.
func (b *ColumnBuffer) BindAsColumn(stmt *StmtHandle, colNum SQLUSMALLINT) error {
	cType, _ := bufferKindCTypes(b.Kind)
	if b.Kind == BufferNumeric {
		if err := bindNumericDescriptor(stmt, colNum, false, b.ColSize, b.DecDigits); err != nil {
			return err
		}
	}
	ret := BindCol(stmt.Native(), colNum, cType, b.Ptr(), SQLLEN(len(b.storage)), &b.indicator)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	var sub *Subscription
	sub = stmt.SubscribeColumnsUnbound(func() {
		b.indicator = SQL_NULL_DATA
		stmt.UnsubscribeColumnsUnbound(sub)
		if b.bindings[stmt] == sub {
			delete(b.bindings, stmt)
		}
	})
	b.bindings[stmt] = sub
	return nil
}

// BindAsParameter binds this buffer as an input parameter on stmt at
// position paramNum. The binding auto-releases on a params-reset broadcast.
func (b *ColumnBuffer) BindAsParameter(stmt *StmtHandle, paramNum SQLUSMALLINT, ioType SQLSMALLINT) error {
	cType, _ := bufferKindCTypes(b.Kind)
	sqlType := b.SQLType
	if b.Kind == BufferNumeric {
		if err := bindNumericDescriptor(stmt, paramNum, true, b.ColSize, b.DecDigits); err != nil {
			return err
		}
	}
	ret := BindParameter(stmt.Native(), paramNum, ioType, cType, sqlType, b.ColSize, b.DecDigits, b.Ptr(), SQLLEN(len(b.storage)), &b.indicator)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	var sub *Subscription
	sub = stmt.SubscribeParamsReset(func() {
		b.indicator = 0
		stmt.UnsubscribeParamsReset(sub)
		if b.bindings[stmt] == sub {
			delete(b.bindings, stmt)
		}
	})
	b.bindings[stmt] = sub
	return nil
}

// BindNumericAsString is the fallback parameter-binding path for drivers
// whose product quirks reject a numeric descriptor bind (spec.md §9:
// Access, Excel always; MySQL for SQL_C_NUMERIC) — callers should check
// DatabaseProduct.SkipsDescribeParam(SQL_C_NUMERIC) before calling
// BindAsParameter on a BufferNumeric buffer, and use this instead when it
// returns true.
func BindNumericAsString(stmt *StmtHandle, paramNum SQLUSMALLINT, ioType SQLSMALLINT, value string, colSize SQLULEN, decDigits SQLSMALLINT) (*ColumnBuffer, error) {
	cb := NewColumnBuffer("", BufferChar, SQL_DECIMAL, colSize, decDigits, 0)
	copy(cb.storage, value)
	cb.indicator = SQLLEN(len(value))
	ret := BindParameter(stmt.Native(), paramNum, ioType, SQL_C_CHAR, SQL_DECIMAL, colSize, decDigits, cb.Ptr(), SQLLEN(len(cb.storage)), &cb.indicator)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	return cb, nil
}

// bindNumericDescriptor writes precision/scale onto the statement's
// application descriptor via SQLSetDescField, the only portable way to bind
// SQL_C_NUMERIC buffers (spec.md §4.4, original_source NumericConverter).
// Shared between ColumnBuffer and OpaqueBuffer, since both can carry a
// SQL_C_NUMERIC payload.
func bindNumericDescriptor(stmt *StmtHandle, recNum SQLUSMALLINT, param bool, colSize SQLULEN, decDigits SQLSMALLINT) error {
	kind := RowDescriptor
	if param {
		kind = ParamDescriptor
	}
	desc, err := Descriptor(stmt, kind)
	if err != nil {
		return err
	}
	precision := SQLINTEGER(colSize)
	scale := SQLINTEGER(decDigits)
	if ret := SetDescField(desc.Native(), SQLSMALLINT(recNum), SQLSMALLINT(SQL_DESC_PRECISION), uintptr(precision), 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	if ret := SetDescField(desc.Native(), SQLSMALLINT(recNum), SQLSMALLINT(SQL_DESC_SCALE), uintptr(scale), 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	return nil
}

// Release undoes a binding on stmt without waiting for the next
// columns-unbound/params-reset broadcast.
func (b *ColumnBuffer) Release(stmt *StmtHandle) {
	if sub, ok := b.bindings[stmt]; ok {
		stmt.UnsubscribeColumnsUnbound(sub)
		stmt.UnsubscribeParamsReset(sub)
		delete(b.bindings, stmt)
	}
}

// String returns the buffer's current value decoded as text, valid for
// BufferChar/BufferWChar kinds.
func (b *ColumnBuffer) String() string {
	if b.IsNull() {
		return ""
	}
	n := int(b.indicator)
	if b.Kind == BufferWChar {
		if n < 0 || n > len(b.storage) {
			n = len(b.storage)
		}
		u := make([]uint16, n/2)
		for i := range u {
			u[i] = uint16(b.storage[i*2]) | uint16(b.storage[i*2+1])<<8
		}
		return utf16ToString(u)
	}
	if n < 0 || n > len(b.storage) {
		n = len(b.storage)
	}
	return string(b.storage[:n])
}

// SetNull marks the buffer's current value as NULL. Invariant (i) of
// spec.md §3 forbids calling this on a buffer whose Nullable flag is unset.
func (b *ColumnBuffer) SetNull() error {
	if b.Flags&FlagNullable == 0 {
		return &NotAllowedError{Message: "column buffer is not nullable"}
	}
	b.indicator = SQL_NULL_DATA
	return nil
}

// Set stores v into the buffer's native storage for its Kind and updates
// the indicator to the element size (or byte count for variable-length
// kinds), per spec.md §8's round-trip law. v must be within the kind's
// representable range; SetNull is required to write NULL even on a
// Nullable buffer.
func (b *ColumnBuffer) Set(v interface{}) error {
	switch b.Kind {
	case BufferShort:
		return b.setFixed(int64(v.(int16)), 2)
	case BufferUShort:
		return b.setFixed(int64(v.(uint16)), 2)
	case BufferLong:
		return b.setFixed(int64(v.(int32)), 4)
	case BufferULong:
		return b.setFixed(int64(v.(uint32)), 4)
	case BufferBigInt:
		return b.setFixed(v.(int64), 8)
	case BufferUBigInt:
		return b.setFixed(int64(v.(uint64)), 8)
	case BufferReal:
		binary.LittleEndian.PutUint32(b.storage, math.Float32bits(v.(float32)))
		b.indicator = 4
		return nil
	case BufferDouble:
		binary.LittleEndian.PutUint64(b.storage, math.Float64bits(v.(float64)))
		b.indicator = 8
		return nil
	case BufferChar, BufferBinary:
		return b.setBytes([]byte(stringOrBytes(v)), b.Kind == BufferChar)
	case BufferWChar:
		return b.setWString(v.(string))
	case BufferDate, BufferTypeDate:
		return b.setDate(v.(time.Time))
	case BufferTime, BufferTypeTime:
		return b.setTime(v.(time.Time))
	case BufferTimestamp, BufferTypeTimestamp:
		return b.setTimestamp(v.(time.Time))
	case BufferNumeric:
		return b.setNumeric(v.(string))
	default:
		return &NotSupportedError{Kind: NotSupportedSqlCType, Message: "Set not supported for this buffer kind"}
	}
}

func (b *ColumnBuffer) setFixed(v int64, size int) error {
	switch size {
	case 2:
		binary.LittleEndian.PutUint16(b.storage, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b.storage, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b.storage, uint64(v))
	}
	b.indicator = SQLLEN(size)
	return nil
}

func stringOrBytes(v interface{}) []byte {
	switch x := v.(type) {
	case string:
		return []byte(x)
	case []byte:
		return x
	default:
		return nil
	}
}

// setBytes writes raw content into storage. For Char buffers, an implicit
// NUL terminator is written if the value doesn't fill the buffer; if the
// value exactly fills the capacity without a terminator, construction
// fails ("not enough space to terminate"), per spec.md §4.4.
func (b *ColumnBuffer) setBytes(v []byte, terminate bool) error {
	if len(v) > len(b.storage) {
		return &IllegalArgumentError{Message: "value exceeds buffer capacity"}
	}
	clear(b.storage)
	copy(b.storage, v)
	if terminate {
		if len(v) == len(b.storage) && (len(v) == 0 || v[len(v)-1] != 0) {
			return &IllegalArgumentError{Message: "not enough space to terminate"}
		}
	}
	b.indicator = SQLLEN(len(v))
	return nil
}

func (b *ColumnBuffer) setWString(v string) error {
	u := stringToUTF16(v)
	need := len(u) * 2
	if need > len(b.storage) {
		return &IllegalArgumentError{Message: "value exceeds buffer capacity"}
	}
	if need == len(b.storage) {
		return &IllegalArgumentError{Message: "not enough space to terminate"}
	}
	clear(b.storage)
	for i, c := range u {
		binary.LittleEndian.PutUint16(b.storage[i*2:], c)
	}
	// u carries a trailing NUL code unit (stringToUTF16); the indicator
	// reports the string's byte length, not counting that terminator.
	b.indicator = SQLLEN(need - 2)
	return nil
}

func (b *ColumnBuffer) setDate(t time.Time) error {
	d := (*SQL_DATE_STRUCT)(unsafe.Pointer(&b.storage[0]))
	d.Year = SQLSMALLINT(t.Year())
	d.Month = SQLUSMALLINT(t.Month())
	d.Day = SQLUSMALLINT(t.Day())
	b.indicator = SQLLEN(unsafe.Sizeof(*d))
	return nil
}

func (b *ColumnBuffer) setTime(t time.Time) error {
	v := (*SQL_TIME_STRUCT)(unsafe.Pointer(&b.storage[0]))
	v.Hour = SQLUSMALLINT(t.Hour())
	v.Minute = SQLUSMALLINT(t.Minute())
	v.Second = SQLUSMALLINT(t.Second())
	b.indicator = SQLLEN(unsafe.Sizeof(*v))
	return nil
}

func (b *ColumnBuffer) setTimestamp(t time.Time) error {
	v := (*SQL_TIMESTAMP_STRUCT)(unsafe.Pointer(&b.storage[0]))
	v.Year = SQLSMALLINT(t.Year())
	v.Month = SQLUSMALLINT(t.Month())
	v.Day = SQLUSMALLINT(t.Day())
	v.Hour = SQLUSMALLINT(t.Hour())
	v.Minute = SQLUSMALLINT(t.Minute())
	v.Second = SQLUSMALLINT(t.Second())
	v.Fraction = SQLUINTEGER(t.Nanosecond())
	b.indicator = SQLLEN(unsafe.Sizeof(*v))
	return nil
}

// encodeNumericStruct encodes a decimal literal (e.g. "-123.45") into a
// SQL_NUMERIC_STRUCT's 16-byte little-endian unscaled magnitude at the
// given scale. The fractional part is zero-padded to that scale; a literal
// with more fractional digits than the declared scale is rejected rather
// than silently truncated. Shared by ColumnBuffer's native SQL_C_NUMERIC
// path and convert.go's string-parameter Decimal path, so both agree on
// the wire layout (spec.md §4.4, original_source NumericConverter).
func encodeNumericStruct(s string, scale int) (SQL_NUMERIC_STRUCT, error) {
	neg := false
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	if len(fracPart) > scale {
		return SQL_NUMERIC_STRUCT{}, &IllegalArgumentError{Message: "value has more fractional digits than the declared scale"}
	}
	fracPart += strings.Repeat("0", scale-len(fracPart))
	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return SQL_NUMERIC_STRUCT{}, &IllegalArgumentError{Message: "invalid numeric literal"}
	}
	magnitude := unscaled.Bytes()
	var n SQL_NUMERIC_STRUCT
	if len(magnitude) > len(n.Val) {
		return SQL_NUMERIC_STRUCT{}, &IllegalArgumentError{Message: "value exceeds SQL_NUMERIC_STRUCT capacity"}
	}
	for i, bt := range magnitude {
		n.Val[len(magnitude)-1-i] = SQLCHAR(bt)
	}
	precision := len(strings.TrimLeft(digits, "0"))
	if precision == 0 {
		precision = 1
	}
	n.Precision = SQLCHAR(precision)
	n.Scale = SQLSCHAR(scale)
	n.Sign = 1
	if neg {
		n.Sign = 0
	}
	return n, nil
}

// decodeNumericStruct decodes a SQL_NUMERIC_STRUCT's little-endian unscaled
// magnitude back into a decimal literal, the inverse of encodeNumericStruct.
func decodeNumericStruct(n SQL_NUMERIC_STRUCT) string {
	magnitude := make([]byte, len(n.Val))
	for i, v := range n.Val {
		magnitude[len(n.Val)-1-i] = byte(v)
	}
	unscaled := new(big.Int).SetBytes(magnitude)
	digits := unscaled.String()
	scale := int(n.Scale)
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if n.Sign == 0 && unscaled.Sign() != 0 {
		digits = "-" + digits
	}
	return digits
}

// setNumeric writes a decimal literal into the buffer's native
// SQL_NUMERIC_STRUCT storage at its declared scale (DecDigits).
func (b *ColumnBuffer) setNumeric(s string) error {
	n, err := encodeNumericStruct(s, int(b.DecDigits))
	if err != nil {
		return err
	}
	*(*SQL_NUMERIC_STRUCT)(unsafe.Pointer(&b.storage[0])) = n
	b.indicator = SQLLEN(unsafe.Sizeof(n))
	return nil
}

// getNumeric decodes the buffer's native SQL_NUMERIC_STRUCT storage back
// into a decimal literal.
func (b *ColumnBuffer) getNumeric() string {
	n := *(*SQL_NUMERIC_STRUCT)(unsafe.Pointer(&b.storage[0]))
	return decodeNumericStruct(n)
}

// Get decodes the buffer's current native storage back into a Go value per
// its Kind. Returns NullValueError if the buffer currently holds NULL.
func (b *ColumnBuffer) Get() (interface{}, error) {
	if b.IsNull() {
		return nil, &NullValueError{Column: b.Name}
	}
	switch b.Kind {
	case BufferShort:
		return int16(binary.LittleEndian.Uint16(b.storage)), nil
	case BufferUShort:
		return binary.LittleEndian.Uint16(b.storage), nil
	case BufferLong:
		return int32(binary.LittleEndian.Uint32(b.storage)), nil
	case BufferULong:
		return binary.LittleEndian.Uint32(b.storage), nil
	case BufferBigInt:
		return int64(binary.LittleEndian.Uint64(b.storage)), nil
	case BufferUBigInt:
		return binary.LittleEndian.Uint64(b.storage), nil
	case BufferReal:
		return math.Float32frombits(binary.LittleEndian.Uint32(b.storage)), nil
	case BufferDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(b.storage)), nil
	case BufferChar, BufferWChar:
		return b.String(), nil
	case BufferBinary:
		n := int(b.indicator)
		if n < 0 || n > len(b.storage) {
			n = len(b.storage)
		}
		out := make([]byte, n)
		copy(out, b.storage[:n])
		return out, nil
	case BufferDate, BufferTypeDate:
		d := (*SQL_DATE_STRUCT)(unsafe.Pointer(&b.storage[0]))
		return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC), nil
	case BufferTime, BufferTypeTime:
		v := (*SQL_TIME_STRUCT)(unsafe.Pointer(&b.storage[0]))
		return time.Date(0, 1, 1, int(v.Hour), int(v.Minute), int(v.Second), 0, time.UTC), nil
	case BufferTimestamp, BufferTypeTimestamp:
		v := (*SQL_TIMESTAMP_STRUCT)(unsafe.Pointer(&b.storage[0]))
		return time.Date(int(v.Year), time.Month(v.Month), int(v.Day), int(v.Hour), int(v.Minute), int(v.Second), int(v.Fraction), time.UTC), nil
	case BufferNumeric:
		return b.getNumeric(), nil
	default:
		return nil, &NotSupportedError{Kind: NotSupportedSqlCType, Message: "Get not supported for this buffer kind"}
	}
}

// TimestampToSqlString formats t as the ODBC-canonical "YYYY-MM-DD
// hh:mm:ss" literal (spec.md §8 round-trip law).
func TimestampToSqlString(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// OpaqueBuffer is the Opaque variant of spec.md §4.4: a binding target over
// caller-owned, caller-sized raw storage the driver should not attempt to
// interpret beyond a caller-declared SQL-C type. Unlike ColumnBuffer, it
// never allocates or frees its backing memory (spec.md §4.4, §9: "it
// carries borrowed storage with caller-controlled lifetime"), so it is not
// built on ColumnBuffer's owned []byte storage.
type OpaqueBuffer struct {
	Name      string
	CType     SQLSMALLINT // caller-declared SQL-C type; never derived from a BufferKind
	SQLType   SQLSMALLINT
	ColSize   SQLULEN
	DecDigits SQLSMALLINT
	Elements  int // caller-declared element count backing Addr

	addr      uintptr
	length    SQLLEN
	indicator SQLLEN

	bindings map[*StmtHandle]*Subscription
}

// NewOpaqueBuffer wraps a caller-owned buffer at addr/length, declared as
// cType for binding purposes (spec.md §4.4: "The caller provides a pointer,
// a byte length, the SQL-C type, an element count, and column-size/decimal-
// digits metadata"). The buffer never copies, allocates, or frees the
// memory at addr.
func NewOpaqueBuffer(name string, addr uintptr, length SQLLEN, cType SQLSMALLINT, sqlType SQLSMALLINT, elements int, colSize SQLULEN, decDigits SQLSMALLINT) *OpaqueBuffer {
	return &OpaqueBuffer{
		Name: name, CType: cType, SQLType: sqlType, ColSize: colSize, DecDigits: decDigits, Elements: elements,
		addr: addr, length: length,
		bindings: make(map[*StmtHandle]*Subscription),
	}
}

// Ptr returns the caller-owned address this buffer binds to.
func (o *OpaqueBuffer) Ptr() uintptr { return o.addr }

// IsNull reports whether the most recent fetch/bind produced a NULL value.
func (o *OpaqueBuffer) IsNull() bool { return o.indicator == SQL_NULL_DATA }

// BindAsColumn binds this buffer into a result-set column position on stmt
// using the caller-declared CType, not a BufferKind-derived one.
func (o *OpaqueBuffer) BindAsColumn(stmt *StmtHandle, colNum SQLUSMALLINT) error {
	if o.CType == SQL_C_NUMERIC {
		if err := bindNumericDescriptor(stmt, colNum, false, o.ColSize, o.DecDigits); err != nil {
			return err
		}
	}
	ret := BindCol(stmt.Native(), colNum, o.CType, o.addr, o.length, &o.indicator)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	sub := stmt.SubscribeColumnsUnbound(func() { o.indicator = SQL_NULL_DATA })
	o.bindings[stmt] = sub
	return nil
}

// BindAsParameter binds this buffer as an input parameter on stmt at
// position paramNum, using the caller-declared CType/SQLType.
func (o *OpaqueBuffer) BindAsParameter(stmt *StmtHandle, paramNum SQLUSMALLINT, ioType SQLSMALLINT) error {
	if o.CType == SQL_C_NUMERIC {
		if err := bindNumericDescriptor(stmt, paramNum, true, o.ColSize, o.DecDigits); err != nil {
			return err
		}
	}
	ret := BindParameter(stmt.Native(), paramNum, ioType, o.CType, o.SQLType, o.ColSize, o.DecDigits, o.addr, o.length, &o.indicator)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	sub := stmt.SubscribeParamsReset(func() { o.indicator = 0 })
	o.bindings[stmt] = sub
	return nil
}

// Release undoes a binding on stmt without waiting for the next
// columns-unbound/params-reset broadcast.
func (o *OpaqueBuffer) Release(stmt *StmtHandle) {
	if sub, ok := o.bindings[stmt]; ok {
		stmt.UnsubscribeColumnsUnbound(sub)
		stmt.UnsubscribeParamsReset(sub)
		delete(o.bindings, stmt)
	}
}

// Bytes returns a view onto the caller-owned backing memory, sized to the
// current indicator (or the declared length if the indicator is out of
// range). The returned slice aliases addr; it is never copied because the
// buffer does not own the memory.
func (o *OpaqueBuffer) Bytes() []byte {
	if o.IsNull() || o.addr == 0 || o.length <= 0 {
		return nil
	}
	n := int(o.indicator)
	if n < 0 || n > int(o.length) {
		n = int(o.length)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(o.addr)), n)
}
