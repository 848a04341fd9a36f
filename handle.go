package exodbc

import (
	"sync"
	"unsafe"
)

// EnvHandle wraps a single SQLHENV. It allocates against no parent and sets
// the ODBC version attribute as part of allocation, per spec.md §4.1/§4.5.
type EnvHandle struct {
	mu        sync.Mutex
	handle    SQLHENV
	allocated bool
	version   SQLINTEGER
}

// AllocateOrphan allocates the environment handle and sets its ODBC
// version. It is an error to call this twice without an intervening Free.
func (e *EnvHandle) AllocateOrphan(version SQLINTEGER) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.allocated {
		return &AssertionError{Condition: "!allocated", Function: "EnvHandle.AllocateOrphan", Message: "environment handle already allocated"}
	}
	var h SQLHANDLE
	ret := AllocHandle(SQL_HANDLE_ENV, SQL_NULL_HANDLE, &h)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_ENV, SQLHANDLE(0))
	}
	env := SQLHENV(h)
	ret = SetEnvAttr(env, SQL_ATTR_ODBC_VERSION, uintptr(version), 0)
	if !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_ENV, SQLHANDLE(env))
		FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
		return err
	}
	e.handle = env
	e.version = version
	e.allocated = true
	return nil
}

// IsAllocated reports whether the handle is currently allocated.
func (e *EnvHandle) IsAllocated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allocated
}

// Native returns the underlying SQLHENV. Zero if unallocated.
func (e *EnvHandle) Native() SQLHENV {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

// Version returns the ODBC version this environment was allocated with.
func (e *EnvHandle) Version() SQLINTEGER {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Free releases the environment handle. Idempotent.
func (e *EnvHandle) Free() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.allocated {
		return nil
	}
	ret := FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(e.handle))
	e.allocated = false
	e.handle = 0
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_ENV, SQLHANDLE(e.handle))
	}
	return nil
}

// ConnHandle wraps a single SQLHDBC, parented by an EnvHandle.
type ConnHandle struct {
	mu        sync.Mutex
	handle    SQLHDBC
	allocated bool
}

// AllocateChild allocates the connection handle against parent.
func (c *ConnHandle) AllocateChild(parent *EnvHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.allocated {
		return &AssertionError{Condition: "!allocated", Function: "ConnHandle.AllocateChild", Message: "connection handle already allocated"}
	}
	if !parent.IsAllocated() {
		return &AssertionError{Condition: "parent.allocated", Function: "ConnHandle.AllocateChild", Message: "parent environment handle is not allocated"}
	}
	var h SQLHANDLE
	ret := AllocHandle(SQL_HANDLE_DBC, SQLHANDLE(parent.Native()), &h)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_ENV, SQLHANDLE(parent.Native()))
	}
	c.handle = SQLHDBC(h)
	c.allocated = true
	return nil
}

func (c *ConnHandle) IsAllocated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocated
}

func (c *ConnHandle) Native() SQLHDBC {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Free releases the connection handle. Idempotent.
func (c *ConnHandle) Free() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allocated {
		return nil
	}
	ret := FreeHandle(SQL_HANDLE_DBC, SQLHANDLE(c.handle))
	c.allocated = false
	c.handle = 0
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_DBC, SQLHANDLE(c.handle))
	}
	return nil
}

// StmtHandle wraps a single SQLHSTMT, parented by a ConnHandle. It is the
// only handle kind that publishes observable events: columns-unbound and
// params-reset (spec.md §3, §4.1).
type StmtHandle struct {
	mu             sync.Mutex
	handle         SQLHSTMT
	allocated      bool
	columnsUnbound *observerList
	paramsReset    *observerList
}

// AllocateChild allocates the statement handle against parent.
func (s *StmtHandle) AllocateChild(parent *ConnHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allocated {
		return &AssertionError{Condition: "!allocated", Function: "StmtHandle.AllocateChild", Message: "statement handle already allocated"}
	}
	if !parent.IsAllocated() {
		return &AssertionError{Condition: "parent.allocated", Function: "StmtHandle.AllocateChild", Message: "parent connection handle is not allocated"}
	}
	var h SQLHANDLE
	ret := AllocHandle(SQL_HANDLE_STMT, SQLHANDLE(parent.Native()), &h)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_DBC, SQLHANDLE(parent.Native()))
	}
	s.handle = SQLHSTMT(h)
	s.allocated = true
	s.columnsUnbound = newObserverList()
	s.paramsReset = newObserverList()
	return nil
}

func (s *StmtHandle) IsAllocated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocated
}

func (s *StmtHandle) Native() SQLHSTMT {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// SubscribeColumnsUnbound registers fn to run whenever UnbindColumns runs.
func (s *StmtHandle) SubscribeColumnsUnbound(fn func()) *Subscription {
	return s.columnsUnbound.Subscribe(fn)
}

// SubscribeParamsReset registers fn to run whenever ResetParams runs.
func (s *StmtHandle) SubscribeParamsReset(fn func()) *Subscription {
	return s.paramsReset.Subscribe(fn)
}

// UnsubscribeColumnsUnbound removes a prior columns-unbound registration.
func (s *StmtHandle) UnsubscribeColumnsUnbound(sub *Subscription) {
	s.columnsUnbound.Unsubscribe(sub)
}

// UnsubscribeParamsReset removes a prior params-reset registration.
func (s *StmtHandle) UnsubscribeParamsReset(sub *Subscription) {
	s.paramsReset.Unsubscribe(sub)
}

// ResetParams clears parameter bindings on the driver side, then broadcasts
// params-reset to every subscriber.
func (s *StmtHandle) ResetParams() error {
	ret := FreeStmt(s.Native(), SQL_RESET_PARAMS)
	s.paramsReset.Broadcast()
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(s.Native()))
	}
	return nil
}

// UnbindColumns clears column bindings on the driver side, then broadcasts
// columns-unbound to every subscriber.
func (s *StmtHandle) UnbindColumns() error {
	ret := FreeStmt(s.Native(), SQL_UNBIND)
	s.columnsUnbound.Broadcast()
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(s.Native()))
	}
	return nil
}

// CloseCursorHandle closes any active result set. When ignoreIfNotOpen is
// true, the "invalid cursor state" diagnostic (24000) is swallowed.
func (s *StmtHandle) CloseCursorHandle(ignoreIfNotOpen bool) error {
	ret := CloseCursor(s.Native())
	if IsSuccess(ret) {
		return nil
	}
	err := NewError(SQL_HANDLE_STMT, SQLHANDLE(s.Native()))
	if ignoreIfNotOpen {
		if sqlErr, ok := err.(*Error); ok && sqlErr.SQLState == SQLStateInvalidCursorState {
			return nil
		}
	}
	return err
}

// Free releases the statement handle. Idempotent.
func (s *StmtHandle) Free() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allocated {
		return nil
	}
	ret := FreeHandle(SQL_HANDLE_STMT, SQLHANDLE(s.handle))
	s.allocated = false
	s.handle = 0
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(s.handle))
	}
	return nil
}

// DescKind selects which of a statement's two application descriptors a
// DescHandle views (spec.md §4.1): RowDescriptor for the application row
// descriptor or ParamDescriptor for the application parameter descriptor.
// The implementation descriptors are not offered.
type DescKind int

const (
	RowDescriptor DescKind = iota
	ParamDescriptor
)

// DescHandle is a *view* onto a statement's internal descriptor. Freeing it
// does not affect the owning statement (spec.md §4.1).
type DescHandle struct {
	handle SQLHDESC
	kind   DescKind
	owner  *StmtHandle
}

// Descriptor obtains a view onto one of stmt's descriptors.
func Descriptor(stmt *StmtHandle, kind DescKind) (*DescHandle, error) {
	var attr SQLINTEGER
	switch kind {
	case RowDescriptor:
		attr = SQL_ATTR_APP_ROW_DESC
	case ParamDescriptor:
		attr = SQL_ATTR_APP_PARAM_DESC
	default:
		return nil, &IllegalArgumentError{Message: "unknown descriptor kind"}
	}
	var h SQLHDESC
	var strLen SQLINTEGER
	ret := GetStmtAttr(stmt.Native(), attr, uintptr(unsafe.Pointer(&h)), 0, &strLen)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.Native()))
	}
	return &DescHandle{handle: h, kind: kind, owner: stmt}, nil
}

// Native returns the underlying SQLHDESC.
func (d *DescHandle) Native() SQLHDESC { return d.handle }

// Free is a no-op: a DescHandle is a view, not an owned allocation.
func (d *DescHandle) Free() error { return nil }
