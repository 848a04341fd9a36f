package exodbc

import (
	"strconv"
	"strings"
	"sync"
)

// InfoCategory tags a SqlInfoProperty with the registration list it belongs
// to (spec.md §3, §4.3).
type InfoCategory int

const (
	CategoryDriver InfoCategory = iota
	CategoryDBMS
	CategoryDataSource
	CategorySupportedSql
	CategorySqlLimits
	CategoryScalarFunction
	CategoryConversion
)

// InfoValueKind selects how a SqlInfoProperty's value is read from the
// driver (spec.md §3).
type InfoValueKind int

const (
	InfoUSmallInt InfoValueKind = iota
	InfoUInt
	InfoStringYN
	InfoString
)

// SqlInfoProperty is one lazily-read, typed piece of driver/DBMS metadata
// (spec.md §3). Value is read on first access or by SqlInfoProperties.ReadAll.
type SqlInfoProperty struct {
	ID          SQLUSMALLINT
	DisplayName string
	Category    InfoCategory
	Kind        InfoValueKind

	mu       sync.Mutex
	read     bool
	strVal   string
	numVal   uint32
}

func (p *SqlInfoProperty) defaultValue() {
	switch p.Kind {
	case InfoStringYN:
		p.strVal = "N"
	case InfoString:
		p.strVal = ""
	default:
		p.numVal = 0
	}
}

// ValueRead reports whether read() has succeeded at least once.
func (p *SqlInfoProperty) ValueRead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read
}

// StringValue returns the property's current string value (meaningful for
// InfoStringYN/InfoString kinds).
func (p *SqlInfoProperty) StringValue() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strVal
}

// NumericValue returns the property's current numeric value (meaningful for
// InfoUSmallInt/InfoUInt kinds).
func (p *SqlInfoProperty) NumericValue() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numVal
}

// read dispatches on value kind: small int/int go through the fixed-size
// GetInfo call, string goes through the two-phase probe-then-read call,
// tolerating SQL_SUCCESS_WITH_INFO (truncation warning).
func (p *SqlInfoProperty) read(dbc SQLHDBC) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.Kind {
	case InfoUSmallInt:
		buf := make([]byte, 2)
		_, ret := GetInfo(dbc, p.ID, buf)
		if !IsSuccess(ret) && ret != SQL_SUCCESS_WITH_INFO {
			return NewError(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		}
		p.numVal = uint32(buf[0]) | uint32(buf[1])<<8
	case InfoUInt:
		buf := make([]byte, 4)
		_, ret := GetInfo(dbc, p.ID, buf)
		if !IsSuccess(ret) && ret != SQL_SUCCESS_WITH_INFO {
			return NewError(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		}
		p.numVal = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	case InfoStringYN, InfoString:
		buf := make([]byte, 256)
		n, ret := GetInfo(dbc, p.ID, buf)
		if !IsSuccess(ret) && ret != SQL_SUCCESS_WITH_INFO {
			return NewError(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		}
		end := int(n)
		if end > len(buf) {
			end = len(buf)
		}
		p.strVal = strings.TrimRight(string(buf[:end]), "\x00")
	}
	p.read = true
	return nil
}

// SqlInfoProperties is the registry of all known properties for a single
// open connection (spec.md §3).
type SqlInfoProperties struct {
	dbc   SQLHDBC
	props map[SQLUSMALLINT]*SqlInfoProperty
}

// NewSqlInfoProperties builds the registry from the category-specific
// registration lists, grounded on original_source/include/exodbc/
// SqlInfoProperty.h's registration tables.
func NewSqlInfoProperties(dbc SQLHDBC) *SqlInfoProperties {
	sp := &SqlInfoProperties{dbc: dbc, props: make(map[SQLUSMALLINT]*SqlInfoProperty)}
	register := func(id SQLUSMALLINT, name string, cat InfoCategory, kind InfoValueKind) {
		p := &SqlInfoProperty{ID: id, DisplayName: name, Category: cat, Kind: kind}
		p.defaultValue()
		sp.props[id] = p
	}
	// Driver category.
	register(SQL_DRIVER_NAME, "DriverName", CategoryDriver, InfoString)
	register(SQL_DRIVER_VER, "DriverVer", CategoryDriver, InfoString)
	register(SQL_DRIVER_ODBC_VER, "DriverODBCVer", CategoryDriver, InfoString)
	register(SQL_ODBC_VER, "ODBCVer", CategoryDriver, InfoString)
	// DBMS category.
	register(SQL_DBMS_NAME, "DBMSName", CategoryDBMS, InfoString)
	register(SQL_DBMS_VER, "DBMSVer", CategoryDBMS, InfoString)
	register(SQL_DATABASE_NAME, "DatabaseName", CategoryDBMS, InfoString)
	register(SQL_SERVER_NAME, "ServerName", CategoryDBMS, InfoString)
	register(SQL_USER_NAME, "UserName", CategoryDBMS, InfoString)
	register(SQL_IDENTIFIER_QUOTE_CHAR, "IdentifierQuoteChar", CategoryDBMS, InfoString)
	// DataSource category.
	register(SQL_MAX_IDENTIFIER_LEN, "MaxIdentifierLen", CategoryDataSource, InfoUSmallInt)
	register(SQL_CATALOG_TERM, "CatalogTerm", CategoryDataSource, InfoString)
	register(SQL_SCHEMA_TERM, "SchemaTerm", CategoryDataSource, InfoString)
	register(SQL_CATALOG_NAME, "CatalogName", CategoryDataSource, InfoStringYN)
	register(SQL_CATALOG_NAME_SEPARATOR, "CatalogNameSeparator", CategoryDataSource, InfoString)
	register(SQL_MAX_TABLE_NAME_LEN, "MaxTableNameLen", CategoryDataSource, InfoUSmallInt)
	register(SQL_MAX_SCHEMA_NAME_LEN, "MaxSchemaNameLen", CategoryDataSource, InfoUSmallInt)
	register(SQL_MAX_CATALOG_NAME_LEN, "MaxCatalogNameLen", CategoryDataSource, InfoUSmallInt)
	// SupportedSql / SqlLimits category.
	register(SQL_TXN_CAPABLE, "TxnCapable", CategorySupportedSql, InfoUSmallInt)
	register(SQL_TXN_ISOLATION_OPTION, "TxnIsolationOption", CategorySqlLimits, InfoUInt)
	register(SQL_SEARCH_PATTERN_ESCAPE, "SearchPatternEscape", CategorySqlLimits, InfoString)
	return sp
}

// Get returns the property for id, or nil if unregistered.
func (sp *SqlInfoProperties) Get(id SQLUSMALLINT) *SqlInfoProperty {
	return sp.props[id]
}

// ReadAll eagerly reads every registered property. Properties the driver
// does not support are marked unsupported (left unread) rather than
// raising, per spec.md §4.3.
func (sp *SqlInfoProperties) ReadAll() {
	for _, p := range sp.props {
		_ = p.read(sp.dbc)
	}
}

// All returns every registered property, for dump/inspection tools like
// exodbcexec's !dbInfo command.
func (sp *SqlInfoProperties) All() []*SqlInfoProperty {
	out := make([]*SqlInfoProperty, 0, len(sp.props))
	for _, p := range sp.props {
		out = append(out, p)
	}
	return out
}

// readLazy reads a single property on first access.
func (sp *SqlInfoProperties) readLazy(id SQLUSMALLINT) *SqlInfoProperty {
	p := sp.props[id]
	if p == nil {
		return nil
	}
	if !p.ValueRead() {
		_ = p.read(sp.dbc)
	}
	return p
}

// DetectDBMS performs the case-insensitive substring match of spec.md §4.3.
func (sp *SqlInfoProperties) DetectDBMS() DatabaseProduct {
	p := sp.readLazy(SQL_DBMS_NAME)
	if p == nil {
		return ProductUnknown
	}
	return detectProduct(p.StringValue())
}

// DriverODBCVersion parses the driver's "ma.mi" ODBC version string and
// maps it to the nearest supported version per spec.md §4.3.
func (sp *SqlInfoProperties) DriverODBCVersion() string {
	p := sp.readLazy(SQL_DRIVER_ODBC_VER)
	if p == nil {
		return "unknown"
	}
	parts := strings.SplitN(p.StringValue(), ".", 2)
	if len(parts) != 2 {
		return "unknown"
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return "unknown"
	}
	switch {
	case major >= 3 && minor >= 80:
		return "3.8"
	case major >= 3:
		return "3.0"
	case major >= 2:
		return "2.0"
	default:
		return "unknown"
	}
}

// SupportsTransactions is true iff the transaction-capable property is not
// "none" (SQL_TC_NONE).
func (sp *SqlInfoProperties) SupportsTransactions() bool {
	p := sp.readLazy(SQL_TXN_CAPABLE)
	if p == nil {
		return false
	}
	return p.NumericValue() != SQL_TC_NONE
}

// SupportsCatalogs is true iff the catalog-term property is non-empty and,
// under ODBC >= 3, the catalog-name property reads "Y".
func (sp *SqlInfoProperties) SupportsCatalogs() bool {
	term := sp.readLazy(SQL_CATALOG_TERM)
	if term == nil || term.StringValue() == "" {
		return false
	}
	name := sp.readLazy(SQL_CATALOG_NAME)
	if name != nil && strings.HasPrefix(sp.DriverODBCVersion(), "3") {
		return name.StringValue() == "Y"
	}
	return true
}

// SupportsSchemas is true iff the schema-term property is non-empty.
func (sp *SqlInfoProperties) SupportsSchemas() bool {
	p := sp.readLazy(SQL_SCHEMA_TERM)
	return p != nil && p.StringValue() != ""
}

// SearchPatternEscape returns the driver's catalog-pattern escape
// character, or "" if the driver reports none.
func (sp *SqlInfoProperties) SearchPatternEscape() string {
	p := sp.readLazy(SQL_SEARCH_PATTERN_ESCAPE)
	if p == nil {
		return ""
	}
	return p.StringValue()
}

// MaxTableNameLen returns the reported value or the documented default
// (128) if the driver reports 0.
func (sp *SqlInfoProperties) MaxTableNameLen() int {
	return maxNameLenOrDefault(sp.readLazy(SQL_MAX_TABLE_NAME_LEN))
}

// MaxSchemaNameLen returns the reported value or the documented default.
func (sp *SqlInfoProperties) MaxSchemaNameLen() int {
	return maxNameLenOrDefault(sp.readLazy(SQL_MAX_SCHEMA_NAME_LEN))
}

// MaxCatalogNameLen returns the reported value or the documented default.
func (sp *SqlInfoProperties) MaxCatalogNameLen() int {
	return maxNameLenOrDefault(sp.readLazy(SQL_MAX_CATALOG_NAME_LEN))
}

func maxNameLenOrDefault(p *SqlInfoProperty) int {
	const defaultNameLen = 128
	if p == nil {
		return defaultNameLen
	}
	if v := int(p.NumericValue()); v > 0 {
		return v
	}
	return defaultNameLen
}
