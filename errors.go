package exodbc

import (
	"fmt"
	"strings"
)

// Error represents an ODBC error with diagnostic information
type Error struct {
	SQLState    string
	NativeError int32
	Message     string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s (native error: %d)", e.SQLState, e.Message, e.NativeError)
}

// DiagRecord represents a single diagnostic record from ODBC
type DiagRecord struct {
	SQLState    string
	NativeError int32
	Message     string
}

// Errors represents multiple ODBC errors
type Errors []Error

// Error implements the error interface for multiple errors
func (e Errors) Error() string {
	if len(e) == 0 {
		return "unknown ODBC error"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	for i, err := range e {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// GetDiagRecords retrieves all diagnostic records for a handle
func GetDiagRecords(handleType SQLSMALLINT, handle SQLHANDLE) []DiagRecord {
	var records []DiagRecord
	sqlState := make([]byte, 6)
	message := make([]byte, 1024)

	for i := SQLSMALLINT(1); ; i++ {
		nativeError, msgLen, ret := GetDiagRec(handleType, handle, i, sqlState, message)
		if ret == SQL_NO_DATA {
			break
		}
		if IsSuccess(ret) {
			// Trim null terminator if present
			state := string(sqlState[:5])
			msg := string(message[:msgLen])
			records = append(records, DiagRecord{
				SQLState:    state,
				NativeError: int32(nativeError),
				Message:     msg,
			})
		} else {
			break
		}
	}
	return records
}

// NewError creates an Error from diagnostic records
func NewError(handleType SQLSMALLINT, handle SQLHANDLE) error {
	records := GetDiagRecords(handleType, handle)
	if len(records) == 0 {
		return &Error{
			SQLState: "HY000",
			Message:  "unknown ODBC error",
		}
	}
	if len(records) == 1 {
		return &Error{
			SQLState:    records[0].SQLState,
			NativeError: records[0].NativeError,
			Message:     records[0].Message,
		}
	}
	errors := make(Errors, len(records))
	for i, rec := range records {
		errors[i] = Error{
			SQLState:    rec.SQLState,
			NativeError: rec.NativeError,
			Message:     rec.Message,
		}
	}
	return errors
}

// SQLState constants for common errors
const (
	SQLStateConnectionFailure     = "08001"
	SQLStateConnectionNotOpen     = "08003"
	SQLStateConnectionRejected    = "08004"
	SQLStateConnectionError       = "08S01"
	SQLStateSyntaxError           = "42000"
	SQLStateTableNotFound         = "42S02"
	SQLStateColumnNotFound        = "42S22"
	SQLStateDuplicateKey          = "23000"
	SQLStateConstraintViolation   = "23000"
	SQLStateDataTruncation        = "01004"
	SQLStateInvalidCursorState    = "24000"
	SQLStateInvalidTransState     = "25000"
	SQLStateGeneralError          = "HY000"
	SQLStateMemoryAllocationError = "HY001"
	SQLStateFunctionSequenceError = "HY010"
	SQLStateInvalidStringLength   = "HY090"
	SQLStateInvalidDescIndex      = "HY091"
	SQLStateInvalidAttrValue      = "HY024"
	SQLStateOptionChanged         = "01S02"
)

// IsConnectionError returns true if the error indicates a connection problem
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		switch e.SQLState[:2] {
		case "08": // Connection errors
			return true
		}
	}
	if es, ok := err.(Errors); ok && len(es) > 0 {
		switch es[0].SQLState[:2] {
		case "08":
			return true
		}
	}
	return false
}

// IsDataTruncation returns true if the error indicates data truncation
func IsDataTruncation(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.SQLState == SQLStateDataTruncation
	}
	return false
}

// Is reports whether target is an *Error with the same SQLState. NativeError
// and Message are ignored, matching the "recover by SQLSTATE" contract of
// spec.md §7.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.SQLState == t.SQLState
}

// Unwrap always returns nil: Error is a leaf, carrying no wrapped cause.
func (e *Error) Unwrap() error {
	return nil
}

// HasSQLState reports whether err (an *Error or Errors) carries the given
// SQLSTATE among its records. This is the `has_sqlstate` predicate of
// spec.md §4.2 on the SqlResult failure kind.
func HasSQLState(err error, state string) bool {
	switch e := err.(type) {
	case *Error:
		return e.SQLState == state
	case Errors:
		for _, rec := range e {
			if rec.SQLState == state {
				return true
			}
		}
	}
	return false
}

// IsRetryable reports whether err represents a condition a caller might
// reasonably retry: connection loss, deadlock/serialization failure, or a
// driver-reported timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	state := ""
	switch e := err.(type) {
	case *Error:
		state = e.SQLState
	case Errors:
		if len(e) == 0 {
			return false
		}
		state = e[0].SQLState
	default:
		return false
	}
	if len(state) < 2 {
		return false
	}
	if state[:2] == "08" {
		return true
	}
	switch state {
	case "40001", "40003", "HYT00", "HYT01":
		return true
	}
	return false
}

// AssertionError signals a programmer error: a violated precondition or
// state-machine misuse. It is not meant to be recovered from.
type AssertionError struct {
	Condition string
	File      string
	Line      int
	Function  string
	Message   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s in %s: %s", e.Condition, e.Function, e.Message)
}

// IllegalArgumentError signals an out-of-contract caller argument.
type IllegalArgumentError struct {
	Message string
}

func (e *IllegalArgumentError) Error() string { return "illegal argument: " + e.Message }

// NotSupportedKind distinguishes the two things NotSupportedError can name.
type NotSupportedKind int

const (
	NotSupportedSqlCType NotSupportedKind = iota
	NotSupportedSqlType
)

// NotSupportedError signals a driver- or DBMS-level limitation, such as a
// scrollable cursor request the driver rejects with "optional feature not
// implemented".
type NotSupportedError struct {
	Kind    NotSupportedKind
	Code    int
	Message string
}

func (e *NotSupportedError) Error() string {
	kind := "SqlCType"
	if e.Kind == NotSupportedSqlType {
		kind = "SqlType"
	}
	return fmt.Sprintf("not supported (%s %d): %s", kind, e.Code, e.Message)
}

// NotAllowedError signals an operation forbidden by current state, distinct
// from a state-machine AssertionError in that it is caller-recoverable.
type NotAllowedError struct{ Message string }

func (e *NotAllowedError) Error() string { return "not allowed: " + e.Message }

// NotFoundError signals a catalog search or lookup that found nothing
// where exactly one result was required.
type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return "not found: " + e.Message }

// NotImplementedError signals a code path intentionally left unimplemented.
type NotImplementedError struct{ Message string }

func (e *NotImplementedError) Error() string {
	if e.Message == "" {
		return "not implemented"
	}
	return "not implemented: " + e.Message
}

// NullValueError signals an attempt to read a value from a column/parameter
// currently bound to NULL.
type NullValueError struct{ Column string }

func (e *NullValueError) Error() string { return "null value in column " + e.Column }

// WrapperError adapts a foreign error into the taxonomy while preserving it
// as an unwrap target.
type WrapperError struct{ Inner error }

func (e *WrapperError) Error() string { return e.Inner.Error() }
func (e *WrapperError) Unwrap() error { return e.Inner }

// ConversionDirection names which side of the UTF boundary a ConversionError
// occurred on.
type ConversionDirection int

const (
	ConversionUtf16ToUtf8 ConversionDirection = iota
	ConversionUtf8ToUtf16
)

// ConversionError signals a failure converting between UTF-8 and UTF-16 at
// the ODBC wide-character boundary.
type ConversionError struct {
	Direction ConversionDirection
	Message   string
}

func (e *ConversionError) Error() string {
	dir := "utf16->utf8"
	if e.Direction == ConversionUtf8ToUtf16 {
		dir = "utf8->utf16"
	}
	return fmt.Sprintf("conversion error (%s): %s", dir, e.Message)
}

// Format produces a multi-line human-readable diagnostic block for a failed
// call, pulling diagnostics from whichever of env/dbc/stmt/desc is non-zero.
func Format(env SQLHENV, dbc SQLHDBC, stmt SQLHSTMT, desc SQLHDESC, ret SQLRETURN, function string, msg string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s failed: %s\n", function, FormatReturnCode(ret))
	if msg != "" {
		fmt.Fprintf(&sb, "  message: %s\n", msg)
	}
	collect := func(kind SQLSMALLINT, handle SQLHANDLE, label string) {
		if handle == 0 {
			return
		}
		for _, rec := range GetDiagRecords(kind, handle) {
			fmt.Fprintf(&sb, "  [%s] %s: %d %s\n", label, rec.SQLState, rec.NativeError, rec.Message)
		}
	}
	collect(SQL_HANDLE_DESC, SQLHANDLE(desc), "DESC")
	collect(SQL_HANDLE_STMT, SQLHANDLE(stmt), "STMT")
	collect(SQL_HANDLE_DBC, SQLHANDLE(dbc), "DBC")
	collect(SQL_HANDLE_ENV, SQLHANDLE(env), "ENV")
	return sb.String()
}

// FormatReturnCode returns a string representation of an ODBC return code
func FormatReturnCode(ret SQLRETURN) string {
	switch ret {
	case SQL_SUCCESS:
		return "SQL_SUCCESS"
	case SQL_SUCCESS_WITH_INFO:
		return "SQL_SUCCESS_WITH_INFO"
	case SQL_ERROR:
		return "SQL_ERROR"
	case SQL_INVALID_HANDLE:
		return "SQL_INVALID_HANDLE"
	case SQL_NO_DATA:
		return "SQL_NO_DATA"
	case SQL_NEED_DATA:
		return "SQL_NEED_DATA"
	case SQL_STILL_EXECUTING:
		return "SQL_STILL_EXECUTING"
	default:
		return fmt.Sprintf("SQLRETURN(%d)", ret)
	}
}
