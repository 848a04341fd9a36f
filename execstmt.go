package exodbc

import "sync"

// executableState is the state-machine position of an ExecutableStatement
// (spec.md §4.7).
type executableState int

const (
	stateUninitialized executableState = iota
	stateReady
	statePrepared
	stateResultOpen
)

// ColumnDescription is a typed wrapper over SQLDescribeCol, returned by
// ExecutableStatement.DescribeColumn (spec.md §4.7).
type ColumnDescription struct {
	Name          string
	SQLType       SQLSMALLINT
	ColumnSize    SQLULEN
	DecimalDigits SQLSMALLINT
	Nullable      SQLSMALLINT
}

// ParameterDescription is a typed wrapper over SQLDescribeParam, or the
// buffer-derived fallback used when the driver does not support
// describe-param (spec.md §4.4, §4.7: Access, Excel, and MySQL's
// SQL_C_NUMERIC quirk).
type ParameterDescription struct {
	SQLType       SQLSMALLINT
	ColumnSize    SQLULEN
	DecimalDigits SQLSMALLINT
	Nullable      SQLSMALLINT
}

// ExecutableStatement is the typed state machine of spec.md §4.7: prepare,
// bind, execute, fetch-scroll, close-cursor, reset. It owns one StmtHandle
// and tracks whether a prepared plan, bound columns, and bound parameters
// currently exist, distinct from the database/sql-facing Stmt in stmt.go
// (which serves ExecContext/QueryContext instead).
type ExecutableStatement struct {
	mu    sync.Mutex
	conn  *Conn
	db    SQLHDBC
	stmt  *StmtHandle
	state executableState

	scrollable   bool
	prepared     bool
	columnsBound bool
	paramsBound  bool

	columnBuffers map[SQLUSMALLINT]*ColumnBuffer
	paramBuffers  map[SQLUSMALLINT]*ColumnBuffer
}

// NewExecutableStatement returns a statement in the Uninitialized state.
func NewExecutableStatement() *ExecutableStatement {
	return &ExecutableStatement{
		columnBuffers: make(map[SQLUSMALLINT]*ColumnBuffer),
		paramBuffers:  make(map[SQLUSMALLINT]*ColumnBuffer),
	}
}

// Init allocates the statement's handle against db and transitions
// Uninitialized -> Ready. If scrollable is requested, the cursor-type
// attribute is set; if the driver rejects it for any reason, a warning is
// logged and the statement falls back to forward-only (spec.md §4.7).
func (e *ExecutableStatement) Init(db *Conn, scrollable bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateUninitialized {
		return &AssertionError{Condition: "state == Uninitialized", Function: "ExecutableStatement.Init", Message: "statement must be reset before re-init"}
	}
	var h SQLHANDLE
	ret := AllocHandle(SQL_HANDLE_STMT, SQLHANDLE(db.dbc), &h)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_DBC, SQLHANDLE(db.dbc))
	}
	sh := &StmtHandle{handle: SQLHSTMT(h), allocated: true, columnsUnbound: newObserverList(), paramsReset: newObserverList()}
	e.conn = db
	e.db = db.dbc
	e.stmt = sh
	e.scrollable = false
	if scrollable {
		if ret := SetStmtAttr(sh.Native(), SQL_ATTR_CURSOR_TYPE, SQL_CURSOR_STATIC, 0); IsSuccess(ret) {
			e.scrollable = true
		} else {
			Log(LevelWarning, "scrollable cursor not supported, falling back to forward-only")
		}
	}
	e.state = stateReady
	return nil
}

// Prepare sends sql to the driver for planning, transitioning Ready ->
// Prepared.
func (e *ExecutableStatement) Prepare(sql string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateReady {
		return &AssertionError{Condition: "state == Ready", Function: "ExecutableStatement.Prepare", Message: "Prepare requires the Ready state"}
	}
	ret := Prepare(e.stmt.Native(), sql)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(e.stmt.Native()))
	}
	e.prepared = true
	e.state = statePrepared
	return nil
}

// ExecuteDirect runs sql immediately without a prepared plan. Per spec.md
// §9's recorded Open Question decision, calling this after Prepare
// silently invalidates the prior prepared plan rather than rejecting the
// call. Any open cursor is closed first.
func (e *ExecutableStatement) ExecuteDirect(sql string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.closeCursorLocked(true); err != nil {
		return err
	}
	e.prepared = false
	e.state = stateReady
	ret := ExecDirect(e.stmt.Native(), sql)
	return e.afterExecuteLocked(ret)
}

// Execute runs the previously Prepared statement, transitioning to
// ResultOpen when a result set is produced or back to Ready otherwise.
func (e *ExecutableStatement) Execute() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != statePrepared && e.state != stateReady {
		return &AssertionError{Condition: "state in {Ready, Prepared}", Function: "ExecutableStatement.Execute", Message: "Execute requires a prepared or ready statement"}
	}
	if err := e.closeCursorLocked(true); err != nil {
		return err
	}
	ret := Execute(e.stmt.Native())
	return e.afterExecuteLocked(ret)
}

func (e *ExecutableStatement) afterExecuteLocked(ret SQLRETURN) error {
	switch ret {
	case SQL_SUCCESS, SQL_SUCCESS_WITH_INFO:
		if ret == SQL_SUCCESS_WITH_INFO {
			Log(LevelWarning, "execute: success with info")
		}
		var numCols SQLSMALLINT
		if r2 := NumResultCols(e.stmt.Native(), &numCols); IsSuccess(r2) && numCols > 0 {
			e.state = stateResultOpen
		} else {
			e.state = stateReady
		}
		return nil
	case SQL_NO_DATA:
		e.state = stateReady
		return nil
	default:
		e.state = stateReady
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(e.stmt.Native()))
	}
}

// BindColumn binds buf into result-set column position colNum. Valid in
// Ready, Prepared, or ResultOpen states (drivers generally require binding
// before the first fetch but allow it any time after prepare/execute).
func (e *ExecutableStatement) BindColumn(colNum SQLUSMALLINT, buf *ColumnBuffer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateUninitialized {
		return &AssertionError{Condition: "state != Uninitialized", Function: "ExecutableStatement.BindColumn", Message: "statement not initialized"}
	}
	if err := buf.BindAsColumn(e.stmt, colNum); err != nil {
		return err
	}
	e.columnBuffers[colNum] = buf
	e.columnsBound = true
	return nil
}

// BindParameter binds buf as an input parameter at paramNum.
func (e *ExecutableStatement) BindParameter(paramNum SQLUSMALLINT, buf *ColumnBuffer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateUninitialized {
		return &AssertionError{Condition: "state != Uninitialized", Function: "ExecutableStatement.BindParameter", Message: "statement not initialized"}
	}
	if err := buf.BindAsParameter(e.stmt, paramNum, SQL_PARAM_INPUT); err != nil {
		return err
	}
	e.paramBuffers[paramNum] = buf
	e.paramsBound = true
	return nil
}

// SelectNext fetches the next row. Valid from ResultOpen regardless of
// scrollability; returns false (no error) at end-of-data, staying in
// ResultOpen per spec.md §4.7.
func (e *ExecutableStatement) SelectNext() (bool, error) {
	return e.fetchScroll(SQL_FETCH_NEXT, 0, false)
}

// SelectPrev fetches the previous row. Requires a scrollable cursor.
func (e *ExecutableStatement) SelectPrev() (bool, error) {
	return e.fetchScroll(SQL_FETCH_PRIOR, 0, true)
}

// SelectFirst fetches the first row. Requires a scrollable cursor.
func (e *ExecutableStatement) SelectFirst() (bool, error) {
	return e.fetchScroll(SQL_FETCH_FIRST, 0, true)
}

// SelectLast fetches the last row. Requires a scrollable cursor.
func (e *ExecutableStatement) SelectLast() (bool, error) {
	return e.fetchScroll(SQL_FETCH_LAST, 0, true)
}

// SelectAbsolute fetches the row at the given 1-based position. Requires a
// scrollable cursor.
func (e *ExecutableStatement) SelectAbsolute(pos int) (bool, error) {
	return e.fetchScroll(SQL_FETCH_ABSOLUTE, SQLLEN(pos), true)
}

// SelectRelative fetches the row offset from the current position.
// Requires a scrollable cursor.
func (e *ExecutableStatement) SelectRelative(offset int) (bool, error) {
	return e.fetchScroll(SQL_FETCH_RELATIVE, SQLLEN(offset), true)
}

func (e *ExecutableStatement) fetchScroll(orientation SQLSMALLINT, pos SQLLEN, requiresScrollable bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateResultOpen {
		return false, &AssertionError{Condition: "state == ResultOpen", Function: "ExecutableStatement.fetchScroll", Message: "no open result set to fetch from"}
	}
	if requiresScrollable && !e.scrollable {
		return false, &NotSupportedError{Kind: NotSupportedSqlCType, Message: "positional fetch requires a scrollable cursor"}
	}
	ret := FetchScroll(e.stmt.Native(), orientation, pos)
	if ret == SQL_NO_DATA {
		return false, nil
	}
	if ret == SQL_SUCCESS_WITH_INFO {
		Log(LevelWarning, "fetch: success with info")
		return true, nil
	}
	if !IsSuccess(ret) {
		return false, NewError(SQL_HANDLE_STMT, SQLHANDLE(e.stmt.Native()))
	}
	return true, nil
}

// CloseCursor explicitly closes the open result set, transitioning
// ResultOpen -> Ready.
func (e *ExecutableStatement) CloseCursor() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeCursorLocked(true)
}

func (e *ExecutableStatement) closeCursorLocked(ignoreIfNotOpen bool) error {
	if e.state != stateResultOpen {
		return nil
	}
	if err := e.stmt.CloseCursorHandle(ignoreIfNotOpen); err != nil {
		return err
	}
	e.state = stateReady
	return nil
}

// UnbindColumns clears all column bindings on the underlying statement
// handle, notifying every bound ColumnBuffer's subscription.
func (e *ExecutableStatement) UnbindColumns() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stmt.UnbindColumns(); err != nil {
		return err
	}
	e.columnBuffers = make(map[SQLUSMALLINT]*ColumnBuffer)
	e.columnsBound = false
	return nil
}

// UnbindParams clears all parameter bindings, notifying every bound
// ColumnBuffer's subscription.
func (e *ExecutableStatement) UnbindParams() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stmt.ResetParams(); err != nil {
		return err
	}
	e.paramBuffers = make(map[SQLUSMALLINT]*ColumnBuffer)
	e.paramsBound = false
	return nil
}

// NumResultCols returns the number of columns in the current result set.
func (e *ExecutableStatement) NumResultCols() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var n SQLSMALLINT
	ret := NumResultCols(e.stmt.Native(), &n)
	if !IsSuccess(ret) {
		return 0, NewError(SQL_HANDLE_STMT, SQLHANDLE(e.stmt.Native()))
	}
	return int(n), nil
}

// DescribeColumn wraps SQLDescribeCol for 1-based column colNum.
func (e *ExecutableStatement) DescribeColumn(colNum SQLUSMALLINT) (ColumnDescription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	nameBuf := make([]byte, 256)
	nameLen, dataType, colSize, decDigits, nullable, ret := DescribeCol(e.stmt.Native(), colNum, nameBuf)
	if !IsSuccess(ret) {
		return ColumnDescription{}, NewError(SQL_HANDLE_STMT, SQLHANDLE(e.stmt.Native()))
	}
	n := int(nameLen)
	if n < 0 || n > len(nameBuf) {
		n = len(nameBuf)
	}
	return ColumnDescription{
		Name:          string(nameBuf[:n]),
		SQLType:       dataType,
		ColumnSize:    colSize,
		DecimalDigits: decDigits,
		Nullable:      nullable,
	}, nil
}

// DescribeParam wraps SQLDescribeParam for 1-based parameter paramNum,
// preferring the driver's own answer when the statement is prepared and
// the product doesn't reject describe-param (spec.md §4.4/§9: Access,
// Excel always; MySQL for SQL_C_NUMERIC). When the driver call is
// unavailable the caller should fall back to a buffer-derived description
// via DescribeParamFallback.
func (e *ExecutableStatement) DescribeParam(paramNum SQLUSMALLINT) (ParameterDescription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.prepared {
		return ParameterDescription{}, &NotAllowedError{Message: "DescribeParam requires a prepared statement"}
	}
	var cType SQLSMALLINT
	if buf, ok := e.paramBuffers[paramNum]; ok && buf != nil {
		cType, _ = bufferKindCTypes(buf.Kind)
	}
	if e.conn != nil && e.conn.product.SkipsDescribeParam(cType) {
		return ParameterDescription{}, &NotSupportedError{Kind: NotSupportedSqlCType, Code: int(cType), Message: "describe-param is skipped for " + e.conn.product.String()}
	}
	dataType, paramSize, decDigits, nullable, ret := DescribeParam(e.stmt.Native(), paramNum)
	if !IsSuccess(ret) {
		return ParameterDescription{}, NewError(SQL_HANDLE_STMT, SQLHANDLE(e.stmt.Native()))
	}
	return ParameterDescription{SQLType: dataType, ColumnSize: paramSize, DecimalDigits: decDigits, Nullable: nullable}, nil
}

// DescribeParamFallback synthesizes a ParameterDescription from buf's own
// column properties, used when the driver/product rejects describe-param
// (spec.md §4.4).
func DescribeParamFallback(buf *ColumnBuffer) ParameterDescription {
	return ParameterDescription{SQLType: buf.SQLType, ColumnSize: buf.ColSize, DecimalDigits: buf.DecDigits}
}

// Reset releases all bindings and the statement handle, returning the
// statement to the Uninitialized state. Idempotent: a second call after
// the first is a no-op (spec.md §8).
func (e *ExecutableStatement) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateUninitialized {
		return nil
	}
	e.closeCursorLocked(true)
	if e.paramsBound {
		e.stmt.ResetParams()
	}
	if e.columnsBound {
		e.stmt.UnbindColumns()
	}
	err := e.stmt.Free()
	e.columnBuffers = make(map[SQLUSMALLINT]*ColumnBuffer)
	e.paramBuffers = make(map[SQLUSMALLINT]*ColumnBuffer)
	e.columnsBound = false
	e.paramsBound = false
	e.prepared = false
	e.scrollable = false
	e.state = stateUninitialized
	return err
}

// IsScrollable reports whether this statement's cursor supports positional
// fetch.
func (e *ExecutableStatement) IsScrollable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrollable
}

// Handle exposes the underlying StmtHandle for callers that need direct
// access (e.g. binding a ColumnBuffer obtained elsewhere).
func (e *ExecutableStatement) Handle() *StmtHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stmt
}
