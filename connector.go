package exodbc

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"
)

// Connector implements driver.Connector for efficient connection pooling
type Connector struct {
	dsn    string
	driver *Driver

	// Enhanced Type Handling options
	DefaultTimezone           *time.Location       // Stored only: Connect does not pass it on; retrieved timestamps are always UTC
	DefaultTimestampPrecision TimestampPrecision   // Stored only: Connect does not pass it on; time.Time parameters bind at millisecond precision
	LastInsertIdBehavior      LastInsertIdBehavior // How to handle LastInsertId() (defaults to Auto)

	// Query execution options
	QueryTimeout time.Duration // Default query timeout (0 = no timeout)

	// Database-level options (spec.md §4.6)
	TransactionMode TransactionMode    // Commit mode to request once opened (defaults to manual)
	Isolation       IsolationLevel     // Isolation level to request once opened (defaults to driver default)
	BufferMap       *Sql2BufferTypeMap // Sql-to-buffer-type map (defaults to MapDefault)

	// DSN triple open, used instead of the connection string when set.
	dsnTripleUser string
	dsnTripleAuth string
	useDSNTriple  bool
}

// ConnectorOption configures a Connector
type ConnectorOption func(*Connector)

// WithTimezone sets Connector.DefaultTimezone. The value is not passed on
// to connections and does not change how timestamps are read or bound.
func WithTimezone(tz *time.Location) ConnectorOption {
	return func(c *Connector) {
		c.DefaultTimezone = tz
	}
}

// WithTimestampPrecision sets Connector.DefaultTimestampPrecision. The
// value is not passed on to connections and does not change how
// timestamps are bound.
func WithTimestampPrecision(precision TimestampPrecision) ConnectorOption {
	return func(c *Connector) {
		c.DefaultTimestampPrecision = precision
	}
}

// WithLastInsertIdBehavior sets the behavior for LastInsertId()
func WithLastInsertIdBehavior(behavior LastInsertIdBehavior) ConnectorOption {
	return func(c *Connector) {
		c.LastInsertIdBehavior = behavior
	}
}

// WithQueryTimeout sets the default query timeout for all statements.
// The timeout is applied using SQL_ATTR_QUERY_TIMEOUT and context cancellation.
// A value of 0 means no timeout (the default).
func WithQueryTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		c.QueryTimeout = d
	}
}

// WithTransactionMode requests a commit mode once the connection opens
// (spec.md §4.6 step 7 normally switches to manual automatically; this lets
// a caller request auto-commit instead).
func WithTransactionMode(mode TransactionMode) ConnectorOption {
	return func(c *Connector) {
		c.TransactionMode = mode
	}
}

// WithIsolationLevel requests an isolation level once the connection opens.
func WithIsolationLevel(level IsolationLevel) ConnectorOption {
	return func(c *Connector) {
		c.Isolation = level
	}
}

// WithBufferMap installs a Sql2BufferTypeMap for catalog-driven buffer
// auto-creation (spec.md §4.4).
func WithBufferMap(m *Sql2BufferTypeMap) ConnectorOption {
	return func(c *Connector) {
		c.BufferMap = m
	}
}

// WithDSNTriple opens by (dsn, user, auth) via SQLConnect instead of by
// connection string via SQLDriverConnect (spec.md §4.6).
func WithDSNTriple(user, auth string) ConnectorOption {
	return func(c *Connector) {
		c.dsnTripleUser = user
		c.dsnTripleAuth = auth
		c.useDSNTriple = true
	}
}

// EnableConnectionPooling sets SQL_ATTR_CONNECTION_POOLING at the driver
// manager level. Per ODBC rules this must run before any environment
// handle in the process is allocated (spec.md §4.5); call it once at
// startup, not per-Connector.
func EnableConnectionPooling(mode uintptr) error {
	ret := SetEnvAttr(0, SQL_ATTR_CONNECTION_POOLING, mode, 0)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_ENV, SQLHANDLE(0))
	}
	return nil
}

// ListDataSources enumerates data source names known to the driver
// manager (spec.md §4.5). scope selects user-only, system-only, or all.
func ListDataSources(scope SQLUSMALLINT) ([]string, error) {
	var env SQLHENV
	ret := AllocHandle(SQL_HANDLE_ENV, SQL_NULL_HANDLE, (*SQLHANDLE)(&env))
	if !IsSuccess(ret) {
		return nil, &Error{SQLState: SQLStateGeneralError, Message: "failed to allocate environment handle"}
	}
	defer FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
	if ret := SetEnvAttr(env, SQL_ATTR_ODBC_VERSION, uintptr(SQL_OV_ODBC3), 0); !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_ENV, SQLHANDLE(env))
	}
	var names []string
	direction := scope
	for {
		dsn, _, ret := DataSources(env, direction)
		if ret == SQL_NO_DATA {
			break
		}
		if !IsSuccess(ret) {
			return names, NewError(SQL_HANDLE_ENV, SQLHANDLE(env))
		}
		names = append(names, dsn)
		direction = SQL_FETCH_NEXT_DS
	}
	return names, nil
}

// Connect establishes a new connection to the database, following the
// eight-step open sequence of spec.md §4.6. Any failure frees every
// partially-allocated resource before returning.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	// Allocate environment handle
	var env SQLHENV
	ret := AllocHandle(SQL_HANDLE_ENV, SQL_NULL_HANDLE, (*SQLHANDLE)(&env))
	if !IsSuccess(ret) {
		return nil, errors.New("failed to allocate ODBC environment handle")
	}

	// Set ODBC version to 3.x
	ret = SetEnvAttr(env, SQL_ATTR_ODBC_VERSION, uintptr(SQL_OV_ODBC3), 0)
	if !IsSuccess(ret) {
		FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
		return nil, NewError(SQL_HANDLE_ENV, SQLHANDLE(env))
	}

	// Allocate connection handle
	var dbc SQLHDBC
	ret = AllocHandle(SQL_HANDLE_DBC, SQLHANDLE(env), (*SQLHANDLE)(&dbc))
	if !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_ENV, SQLHANDLE(env))
		FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
		return nil, err
	}

	// Open either by DSN triple or by connection string.
	if c.useDSNTriple {
		ret = Connect(dbc, c.dsn, c.dsnTripleUser, c.dsnTripleAuth)
	} else {
		outConnStr := make([]byte, 1024)
		_, ret = DriverConnect(dbc, 0, c.dsn, outConnStr, SQL_DRIVER_NOPROMPT)
	}
	if !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		FreeHandle(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
		return nil, err
	}

	conn := &Conn{
		env:                  env,
		dbc:                  dbc,
		lastInsertIdBehavior: c.LastInsertIdBehavior,
		queryTimeout:         c.QueryTimeout,
	}

	// Step 1: load all registered info properties.
	conn.info = NewSqlInfoProperties(dbc)
	conn.info.ReadAll()

	// Step 2: warn if the environment's ODBC version exceeds the driver's.
	if driverVer := conn.info.DriverODBCVersion(); driverVer == "2.0" {
		Log(LevelWarning, "driver reports ODBC %s, environment requested 3.x", driverVer)
	}

	// Step 3: instantiate a default buffer map if none was configured.
	conn.bufferMap = c.BufferMap
	if conn.bufferMap == nil {
		conn.bufferMap = NewSql2BufferTypeMap(MapDefault)
	}

	// Step 4: detect DBMS product.
	conn.product = conn.info.DetectDBMS()

	// Step 5: instantiate the DatabaseCatalog.
	catalog, err := newDatabaseCatalog(conn, dbc, conn.info)
	if err != nil {
		Disconnect(dbc)
		FreeHandle(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
		return nil, err
	}
	conn.catalog = catalog

	// Step 6: apply initial connection attributes (isolation, if requested).
	if c.Isolation != IsolationUnknown {
		if ret := SetConnectAttr(dbc, SQL_ATTR_TXN_ISOLATION, c.Isolation.odbcValue(), 0); IsSuccess(ret) {
			conn.isolation = c.Isolation
		}
	}

	// Step 7: switch to manual commit mode if the database supports
	// transactions and the caller didn't explicitly request auto-commit.
	conn.txMode = TransactionAuto
	if conn.info.SupportsTransactions() && c.TransactionMode != TransactionAuto {
		if err := conn.SetTransactionMode(TransactionManual); err != nil {
			catalog.Close()
			Disconnect(dbc)
			FreeHandle(SQL_HANDLE_DBC, SQLHANDLE(dbc))
			FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
			return nil, err
		}
	}

	// Step 8: load the type-info vector via the catalog.
	if _, err := catalog.ReadSqlTypeInfo(); err != nil {
		Log(LevelWarning, "failed to preload SQL type info: %v", err)
	}

	// Detect database type for LastInsertId support (teacher's feature,
	// now driven by the already-loaded info properties instead of its own
	// GetInfo call).
	if conn.lastInsertIdBehavior == LastInsertIdAuto {
		if p := conn.info.Get(SQL_DBMS_NAME); p != nil {
			conn.dbType = p.StringValue()
		}
	}

	return conn, nil
}

// Driver returns the underlying Driver
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Ensure Connector implements driver.Connector
var _ driver.Connector = (*Connector)(nil)
