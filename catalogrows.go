package exodbc

import "unsafe"

// fetchFixed issues one SQLGetData call for a fixed-size C type into ptr and
// returns its null/length indicator. Shared by catalogRows's int64 getter
// and Rows' per-column scalar decoders in rows.go — both read exactly one
// column's current-row value via the same driver call.
func fetchFixed(handle SQLHSTMT, colNum SQLUSMALLINT, cType SQLSMALLINT, ptr uintptr, size int) (SQLLEN, error) {
	var ind SQLLEN
	ret := GetData(handle, colNum, cType, ptr, SQLLEN(size), &ind)
	if !IsSuccess(ret) {
		return 0, NewError(SQL_HANDLE_STMT, SQLHANDLE(handle))
	}
	return ind, nil
}

// fetchVarOnce issues one SQLGetData call for a variable-length C type into
// the size bytes at ptr, tolerating SQL_SUCCESS_WITH_INFO (truncation).
// Shared by catalogRows.str's single-shot read and Rows' growth-loop
// string/bytes/wide-string getters in rows.go, each of which calls this once
// per chunk.
func fetchVarOnce(handle SQLHSTMT, colNum SQLUSMALLINT, cType SQLSMALLINT, ptr uintptr, size int) (SQLRETURN, SQLLEN, error) {
	var ind SQLLEN
	ret := GetData(handle, colNum, cType, ptr, SQLLEN(size), &ind)
	if !IsSuccess(ret) && ret != SQL_SUCCESS_WITH_INFO {
		return ret, ind, NewError(SQL_HANDLE_STMT, SQLHANDLE(handle))
	}
	return ret, ind, nil
}

// catalogRows is a minimal forward-only cursor over a catalog result set
// (SQLTables/SQLColumns/SQLPrimaryKeys/SQLGetTypeInfo/SQLSpecialColumns),
// read by column-as-string or column-as-int64 with null tracking. It does
// not go through the driver.Rows machinery in rows.go since catalog
// results are consumed internally rather than returned to database/sql.
type catalogRows struct {
	handle SQLHSTMT
	err    error
	nulls  map[int]bool
	strs   map[int]string
	ints   map[int]int64
}

func newCatalogRows(handle SQLHSTMT) *catalogRows {
	return &catalogRows{handle: handle}
}

// next fetches the next row, caching every column's value as both string
// and int64 candidates on demand. Returns false at end-of-result or error.
func (r *catalogRows) next() bool {
	if r.err != nil {
		return false
	}
	ret := Fetch(r.handle)
	if ret == SQL_NO_DATA {
		return false
	}
	if !IsSuccess(ret) {
		r.err = NewError(SQL_HANDLE_STMT, SQLHANDLE(r.handle))
		return false
	}
	r.nulls = make(map[int]bool)
	r.strs = make(map[int]string)
	r.ints = make(map[int]int64)
	return true
}

func (r *catalogRows) str(col int) string {
	if v, ok := r.strs[col]; ok {
		return v
	}
	buf := make([]byte, 512)
	_, ind, err := fetchVarOnce(r.handle, SQLUSMALLINT(col), SQL_C_CHAR, uintptr(unsafe.Pointer(&buf[0])), len(buf))
	if err != nil || ind == SQL_NULL_DATA {
		r.nulls[col] = ind == SQL_NULL_DATA
		r.strs[col] = ""
		return ""
	}
	n := int(ind)
	if n < 0 || n > len(buf)-1 {
		n = len(buf) - 1
	}
	v := string(buf[:n])
	r.strs[col] = v
	return v
}

func (r *catalogRows) int64(col int) int64 {
	if v, ok := r.ints[col]; ok {
		return v
	}
	var val int32
	ind, err := fetchFixed(r.handle, SQLUSMALLINT(col), SQL_C_SLONG, uintptr(unsafe.Pointer(&val)), int(unsafe.Sizeof(val)))
	if err != nil || ind == SQL_NULL_DATA {
		r.nulls[col] = ind == SQL_NULL_DATA
		r.ints[col] = 0
		return 0
	}
	r.ints[col] = int64(val)
	return int64(val)
}

// isNull reports whether col was null in the current row. Must be called
// after str or int64 has read the column at least once.
func (r *catalogRows) isNull(col int) bool {
	if _, ok := r.strs[col]; !ok {
		if _, ok := r.ints[col]; !ok {
			r.str(col)
		}
	}
	return r.nulls[col]
}
