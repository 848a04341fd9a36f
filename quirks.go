package exodbc

import "strings"

// DatabaseProduct is the closed set of DBMS families whose quirks this
// module knows how to work around (spec.md §3, §9).
type DatabaseProduct int

const (
	ProductUnknown DatabaseProduct = iota
	ProductMsSqlServer
	ProductMySql
	ProductDb2
	ProductExcel
	ProductAccess
	ProductPostgreSql
)

func (p DatabaseProduct) String() string {
	switch p {
	case ProductMsSqlServer:
		return "MsSqlServer"
	case ProductMySql:
		return "MySql"
	case ProductDb2:
		return "Db2"
	case ProductExcel:
		return "Excel"
	case ProductAccess:
		return "Access"
	case ProductPostgreSql:
		return "PostgreSql"
	default:
		return "Unknown"
	}
}

// detectProduct performs the case-insensitive substring match spec.md §4.3
// describes for detect_dbms(), generalizing the teacher's ad hoc
// lastInsertIdQueries substring map in conn.go into the full six-member
// DatabaseProduct set.
func detectProduct(dbmsName string) DatabaseProduct {
	lower := strings.ToLower(dbmsName)
	switch {
	case strings.Contains(lower, "microsoft sql server"), strings.Contains(lower, "sql server"):
		return ProductMsSqlServer
	case strings.Contains(lower, "mysql"), strings.Contains(lower, "mariadb"):
		return ProductMySql
	case strings.Contains(lower, "db2"):
		return ProductDb2
	case strings.Contains(lower, "excel"):
		return ProductExcel
	case strings.Contains(lower, "access"):
		return ProductAccess
	case strings.Contains(lower, "postgresql"), strings.Contains(lower, "postgres"):
		return ProductPostgreSql
	default:
		return ProductUnknown
	}
}

// SkipsPrimaryKeys reports whether SQLPrimaryKeys should not be issued for
// this product (spec.md §9: Access and Excel).
func (p DatabaseProduct) SkipsPrimaryKeys() bool {
	return p == ProductAccess || p == ProductExcel
}

// SkipsDescribeParam reports whether the driver's describe-param call
// should be bypassed in favor of a buffer-derived ParameterDescription
// (spec.md §4.4, §9: Access, Excel always; MySQL for SQL_C_NUMERIC only).
func (p DatabaseProduct) SkipsDescribeParam(cType SQLSMALLINT) bool {
	if p == ProductAccess || p == ProductExcel {
		return true
	}
	if p == ProductMySql && cType == SQL_C_NUMERIC {
		return true
	}
	return false
}

// QuoteTableName applies the product's identifier quoting convention
// (spec.md §3 TableInfo::query_name, §9: Excel brackets, Access bare,
// others fully-qualified with no extra quoting here — callers add
// catalog/schema qualification separately).
func (p DatabaseProduct) QuoteTableName(name string) string {
	switch p {
	case ProductExcel:
		return "[" + name + "]"
	case ProductAccess:
		return name
	default:
		return name
	}
}

// SupportsScrollableCursors reports the driver-family default for
// scrollable-cursor support (spec.md §9, §4.6 detect_dbms_scrollable_cursor_support).
// This is a static fallback; Database.DetectScrollableCursorSupport probes
// the live driver and should be preferred when a connection is available.
func (p DatabaseProduct) SupportsScrollableCursors() bool {
	return p != ProductAccess && p != ProductPostgreSql
}
