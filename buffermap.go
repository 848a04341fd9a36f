package exodbc

// BufferMapVariant selects one of the four fixed SQL-type-to-buffer-kind
// mapping strategies a connection can use (spec.md §4.4,
// original_source/include/exodbc/Sql2BufferTypeMap.h).
type BufferMapVariant int

const (
	MapDefault BufferMapVariant = iota
	MapAllAsWChar
	MapAllAsChar
	MapDefaultButCharAsWChar
)

// Sql2BufferTypeMap decides which BufferKind a ColumnBuffer should use for
// a given driver-reported SQL type. A zero-value map uses MapDefault with
// a Fallback of BufferShort (the zero BufferKind); NewSql2BufferTypeMap
// sets Fallback to BufferChar.
type Sql2BufferTypeMap struct {
	Variant BufferMapVariant
	// Fallback is used when sqlType matches none of the registered
	// entries; NewSql2BufferTypeMap sets it to BufferChar.
	Fallback BufferKind
}

// NewSql2BufferTypeMap builds a map for the given variant.
func NewSql2BufferTypeMap(variant BufferMapVariant) *Sql2BufferTypeMap {
	return &Sql2BufferTypeMap{Variant: variant, Fallback: BufferChar}
}

func (m *Sql2BufferTypeMap) defaultKind(sqlType SQLSMALLINT) (BufferKind, bool) {
	switch sqlType {
	case SQL_SMALLINT:
		return BufferShort, true
	case SQL_INTEGER:
		return BufferLong, true
	case SQL_BIGINT:
		return BufferBigInt, true
	case SQL_TINYINT:
		return BufferShort, true
	case SQL_REAL:
		return BufferReal, true
	case SQL_FLOAT, SQL_DOUBLE:
		return BufferDouble, true
	case SQL_TYPE_DATE:
		return BufferTypeDate, true
	case SQL_TYPE_TIME:
		return BufferTypeTime, true
	case SQL_TYPE_TIMESTAMP, SQL_DATETIME:
		return BufferTypeTimestamp, true
	case SQL_NUMERIC, SQL_DECIMAL:
		return BufferNumeric, true
	case SQL_BINARY, SQL_VARBINARY, SQL_LONGVARBINARY:
		return BufferBinary, true
	case SQL_WCHAR, SQL_WVARCHAR, SQL_WLONGVARCHAR:
		return BufferWChar, true
	case SQL_CHAR, SQL_VARCHAR, SQL_LONGVARCHAR:
		return BufferChar, true
	default:
		return 0, false
	}
}

// BufferKindFor resolves sqlType to a BufferKind under this map's variant
// (spec.md §4.4):
//   - MapDefault: per-type mapping above, character types stay narrow.
//   - MapAllAsWChar: every character type (narrow or wide) maps to WChar.
//   - MapAllAsChar: every character type maps to narrow Char.
//   - MapDefaultButCharAsWChar: like MapDefault but narrow Char is promoted
//     to WChar (useful against drivers with unreliable narrow-char codepages).
func (m *Sql2BufferTypeMap) BufferKindFor(sqlType SQLSMALLINT) BufferKind {
	kind, ok := m.defaultKind(sqlType)
	if !ok {
		return m.Fallback
	}
	isChar := kind == BufferChar || kind == BufferWChar
	switch m.Variant {
	case MapAllAsWChar:
		if isChar {
			return BufferWChar
		}
	case MapAllAsChar:
		if isChar {
			return BufferChar
		}
	case MapDefaultButCharAsWChar:
		if kind == BufferChar {
			return BufferWChar
		}
	}
	return kind
}
