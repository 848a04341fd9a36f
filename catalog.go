package exodbc

import "strings"

// CatalogMode selects how SearchTables' table/schema/catalog arguments are
// interpreted by the driver (spec.md §4.8).
type CatalogMode int

const (
	PatternOrOrdinary CatalogMode = iota
	Identifier
)

// TableInfo is a value record for one row of a SQLTables result (spec.md §3).
type TableInfo struct {
	Catalog       string
	CatalogIsNull bool
	Schema        string
	SchemaIsNull  bool
	Name          string
	Type          string
	Remarks       string
	RemarksIsNull bool

	product DatabaseProduct
}

// QueryName computes the fully-qualified identifier honoring catalog/schema
// support flags and DBMS-specific quoting (spec.md §3: Access bare name,
// Excel brackets).
func (t TableInfo) QueryName(supportsCatalogs, supportsSchemas bool) string {
	if t.product == ProductAccess {
		return t.Name
	}
	if t.product == ProductExcel {
		return t.product.QuoteTableName(t.Name)
	}
	var parts []string
	if supportsCatalogs && !t.CatalogIsNull && t.Catalog != "" {
		parts = append(parts, t.Catalog)
	}
	if supportsSchemas && !t.SchemaIsNull && t.Schema != "" {
		parts = append(parts, t.Schema)
	}
	parts = append(parts, t.Name)
	return strings.Join(parts, ".")
}

// ColumnInfo is a value record for one row of a SQLColumns result.
type ColumnInfo struct {
	Catalog        string
	Schema         string
	TableName      string
	ColumnName     string
	SQLType        SQLSMALLINT
	TypeName       string
	ColumnSize     SQLULEN
	DecimalDigits  SQLSMALLINT
	Nullable       SQLSMALLINT
	OrdinalPosition int
	Remarks        string
	RemarksIsNull  bool
}

// PrimaryKeyInfo is a value record for one row of a SQLPrimaryKeys result.
type PrimaryKeyInfo struct {
	Catalog     string
	Schema      string
	TableName   string
	ColumnName  string
	KeySeq      int
	PKName      string
	PKNameIsNull bool
}

// SpecialColumnInfo is a value record for one row of a SQLSpecialColumns
// result. Scope is absent (ScopeIsNull) for row-version requests, where
// the driver reports the SCOPE column as null (spec.md §4.8).
type SpecialColumnInfo struct {
	Scope        SQLSMALLINT
	ScopeIsNull  bool
	ColumnName   string
	SQLType      SQLSMALLINT
	TypeName     string
	ColumnSize   SQLULEN
	BufferLength int32
	DecimalDigits SQLSMALLINT
	Pseudo       SQLSMALLINT
}

// SqlTypeInfo is a value record for one row of a SQLGetTypeInfo result.
type SqlTypeInfo struct {
	TypeName          string
	SQLType           SQLSMALLINT
	ColumnSize        SQLULEN
	LiteralPrefix     string
	LiteralPrefixNull bool
	LiteralSuffix     string
	LiteralSuffixNull bool
	CreateParams      string
	CreateParamsNull  bool
	Nullable          SQLSMALLINT
	CaseSensitive     bool
	Searchable        SQLSMALLINT
	UnsignedAttribute bool
	FixedPrecScale    bool
	AutoUniqueValue   bool
}

// DatabaseCatalog owns one statement handle dedicated to metadata calls, a
// reference to the owning connection's SqlInfoProperties, and a cached
// metadata-attribute mode to avoid redundant attribute sets (spec.md §3,
// §4.8).
type DatabaseCatalog struct {
	conn    *Conn
	stmt    *StmtHandle
	info    *SqlInfoProperties
	mode    CatalogMode
	modeSet bool
}

// newDatabaseCatalog allocates the catalog's dedicated statement handle
// directly against the connection's raw SQLHDBC (Conn predates the
// EnvHandle/ConnHandle wrapper types and manages its handles inline, the
// way the teacher's conn.go already does for the exec statement).
func newDatabaseCatalog(conn *Conn, dbc SQLHDBC, info *SqlInfoProperties) (*DatabaseCatalog, error) {
	var h SQLHANDLE
	ret := AllocHandle(SQL_HANDLE_STMT, SQLHANDLE(dbc), &h)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_DBC, SQLHANDLE(dbc))
	}
	sh := &StmtHandle{handle: SQLHSTMT(h), allocated: true, columnsUnbound: newObserverList(), paramsReset: newObserverList()}
	return &DatabaseCatalog{conn: conn, stmt: sh, info: info}, nil
}

// Close frees the catalog's dedicated statement handle.
func (c *DatabaseCatalog) Close() error {
	return c.stmt.Free()
}

// setMode pushes mode to the driver via SQL_ATTR_METADATA_ID whenever it
// differs from the cached value, so table/schema/catalog arguments are
// treated as patterns (SQL_FALSE) or literal identifiers (SQL_TRUE) on the
// next catalog call (spec.md §4.8: "the cached attribute is updated on
// demand").
func (c *DatabaseCatalog) setMode(mode CatalogMode) error {
	if c.modeSet && c.mode == mode {
		return nil
	}
	value := uintptr(SQL_FALSE)
	if mode == Identifier {
		value = uintptr(SQL_TRUE)
	}
	ret := SetStmtAttr(c.stmt.Native(), SQL_ATTR_METADATA_ID, value, 0)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt.Native()))
	}
	c.mode = mode
	c.modeSet = true
	return nil
}

// SearchTables is the primitive catalog search (spec.md §4.8). A nil
// pointer argument means "all"; an empty but non-nil string matches only
// the empty string under pattern mode.
func (c *DatabaseCatalog) SearchTables(table, schema, catalog *string, tableType string, mode CatalogMode) ([]TableInfo, error) {
	if err := c.setMode(mode); err != nil {
		return nil, err
	}
	if !c.info.SupportsCatalogs() {
		catalog = nil
	}
	if !c.info.SupportsSchemas() {
		schema = nil
	}
	var ttPtr *string
	if tableType != "" {
		ttPtr = &tableType
	}
	ret := Tables(c.stmt.Native(), catalog, schema, table, ttPtr)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt.Native()))
	}
	rows := newCatalogRows(c.stmt.Native())
	var results []TableInfo
	product := c.info.DetectDBMS()
	for rows.next() {
		ti := TableInfo{
			Catalog: rows.str(1), CatalogIsNull: rows.isNull(1),
			Schema: rows.str(2), SchemaIsNull: rows.isNull(2),
			Name: rows.str(3),
			Type: rows.str(4),
			Remarks: rows.str(5), RemarksIsNull: rows.isNull(5),
			product: product,
		}
		results = append(results, ti)
	}
	return results, rows.err
}

// SearchTablesOneArg is the one-arg overload: schema and catalog are null.
func (c *DatabaseCatalog) SearchTablesOneArg(table string) ([]TableInfo, error) {
	t := table
	return c.SearchTables(&t, nil, nil, "", PatternOrOrdinary)
}

// SearchTablesOrSchemaOrCatalog routes a single qualifier to schema or
// catalog depending on which the driver supports (spec.md §4.8).
func (c *DatabaseCatalog) SearchTablesOrSchemaOrCatalog(table, qualifier string) ([]TableInfo, error) {
	t := table
	if c.info.SupportsSchemas() {
		q := qualifier
		return c.SearchTables(&t, &q, nil, "", PatternOrOrdinary)
	}
	if c.info.SupportsCatalogs() {
		q := qualifier
		return c.SearchTables(&t, nil, &q, "", PatternOrOrdinary)
	}
	return c.SearchTables(&t, nil, nil, "", PatternOrOrdinary)
}

// FindOneTable performs a search and raises NotFoundError if the result
// count is not exactly one.
func (c *DatabaseCatalog) FindOneTable(table, schema, catalog *string, tableType string, mode CatalogMode) (TableInfo, error) {
	results, err := c.SearchTables(table, schema, catalog, tableType, mode)
	if err != nil {
		return TableInfo{}, err
	}
	if len(results) != 1 {
		return TableInfo{}, &NotFoundError{Message: "expected exactly one matching table"}
	}
	return results[0], nil
}

// ReadColumnInfo issues SQLColumns with catalog as an ordinary argument and
// schema/table as pattern values drawn from ti. Verifies ordinal positions
// are strictly increasing by one starting at one (spec.md §4.8).
func (c *DatabaseCatalog) ReadColumnInfo(ti TableInfo) ([]ColumnInfo, error) {
	if err := c.setMode(PatternOrOrdinary); err != nil {
		return nil, err
	}
	var catalog, schema, table *string
	if !ti.CatalogIsNull && ti.Catalog != "" {
		catalog = &ti.Catalog
	}
	if !ti.SchemaIsNull && ti.Schema != "" {
		schema = &ti.Schema
	}
	table = &ti.Name
	ret := Columns(c.stmt.Native(), catalog, schema, table, nil)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt.Native()))
	}
	rows := newCatalogRows(c.stmt.Native())
	var results []ColumnInfo
	expectedOrdinal := 1
	for rows.next() {
		ci := ColumnInfo{
			Catalog:         rows.str(1),
			Schema:          rows.str(2),
			TableName:       rows.str(3),
			ColumnName:      rows.str(4),
			SQLType:         SQLSMALLINT(rows.int64(5)),
			TypeName:        rows.str(6),
			ColumnSize:      SQLULEN(rows.int64(7)),
			DecimalDigits:   SQLSMALLINT(rows.int64(9)),
			Nullable:        SQLSMALLINT(rows.int64(11)),
			OrdinalPosition: int(rows.int64(17)),
			Remarks:         rows.str(12), RemarksIsNull: rows.isNull(12),
		}
		if ci.OrdinalPosition != expectedOrdinal {
			return nil, &AssertionError{Condition: "ordinal == expected", Function: "ReadColumnInfo", Message: "ordinal positions are not strictly increasing by one"}
		}
		expectedOrdinal++
		results = append(results, ci)
	}
	return results, rows.err
}

// ReadPrimaryKeys issues SQLPrimaryKeys. Not supported on Access.
func (c *DatabaseCatalog) ReadPrimaryKeys(ti TableInfo) ([]PrimaryKeyInfo, error) {
	if c.info.DetectDBMS().SkipsPrimaryKeys() {
		return nil, &AssertionError{Condition: "!product.SkipsPrimaryKeys()", Function: "ReadPrimaryKeys", Message: "primary keys are not supported on this DBMS"}
	}
	var catalog, schema *string
	if !ti.CatalogIsNull && ti.Catalog != "" {
		catalog = &ti.Catalog
	}
	if !ti.SchemaIsNull && ti.Schema != "" {
		schema = &ti.Schema
	}
	table := ti.Name
	ret := PrimaryKeys(c.stmt.Native(), catalog, schema, &table)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt.Native()))
	}
	rows := newCatalogRows(c.stmt.Native())
	var results []PrimaryKeyInfo
	for rows.next() {
		results = append(results, PrimaryKeyInfo{
			Catalog: rows.str(1), Schema: rows.str(2), TableName: rows.str(3),
			ColumnName: rows.str(4), KeySeq: int(rows.int64(5)),
			PKName: rows.str(6), PKNameIsNull: rows.isNull(6),
		})
	}
	return results, rows.err
}

// ReadSqlTypeInfo issues SQLGetTypeInfo(SQL_ALL_TYPES).
func (c *DatabaseCatalog) ReadSqlTypeInfo() ([]SqlTypeInfo, error) {
	ret := GetTypeInfo(c.stmt.Native(), SQL_ALL_TYPES)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt.Native()))
	}
	rows := newCatalogRows(c.stmt.Native())
	var results []SqlTypeInfo
	for rows.next() {
		results = append(results, SqlTypeInfo{
			TypeName:          rows.str(1),
			SQLType:           SQLSMALLINT(rows.int64(2)),
			ColumnSize:        SQLULEN(rows.int64(3)),
			LiteralPrefix:     rows.str(4), LiteralPrefixNull: rows.isNull(4),
			LiteralSuffix:     rows.str(5), LiteralSuffixNull: rows.isNull(5),
			CreateParams:      rows.str(6), CreateParamsNull: rows.isNull(6),
			Nullable:          SQLSMALLINT(rows.int64(7)),
			CaseSensitive:     rows.int64(8) != 0,
			Searchable:        SQLSMALLINT(rows.int64(9)),
			UnsignedAttribute: rows.int64(10) != 0,
			FixedPrecScale:    rows.int64(11) != 0,
			AutoUniqueValue:   rows.int64(12) != 0,
		})
	}
	return results, rows.err
}

// ReadSpecialColumns issues SQLSpecialColumns.
func (c *DatabaseCatalog) ReadSpecialColumns(table string, identType SQLSMALLINT, scope SQLSMALLINT, includeNullable bool) ([]SpecialColumnInfo, error) {
	nullable := SQL_NO_NULLS_SPECIAL_COLUMNS
	if includeNullable {
		nullable = SQL_NULLABLE_SPECIAL_COLUMNS
	}
	ret := SpecialColumns(c.stmt.Native(), identType, nil, nil, &table, scope, SQLSMALLINT(nullable))
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt.Native()))
	}
	rows := newCatalogRows(c.stmt.Native())
	var results []SpecialColumnInfo
	for rows.next() {
		results = append(results, SpecialColumnInfo{
			Scope: SQLSMALLINT(rows.int64(1)), ScopeIsNull: rows.isNull(1),
			ColumnName:    rows.str(2),
			SQLType:       SQLSMALLINT(rows.int64(3)),
			TypeName:      rows.str(4),
			ColumnSize:    SQLULEN(rows.int64(5)),
			BufferLength:  int32(rows.int64(6)),
			DecimalDigits: SQLSMALLINT(rows.int64(7)),
			Pseudo:        SQLSMALLINT(rows.int64(8)),
		})
	}
	return results, rows.err
}

// ListCatalogs issues SQLTables with the all-catalogs sentinel.
func (c *DatabaseCatalog) ListCatalogs() ([]string, error) {
	return c.listTablesColumn(true, false, false)
}

// ListSchemas issues SQLTables with the all-schemas sentinel.
func (c *DatabaseCatalog) ListSchemas() ([]string, error) {
	return c.listTablesColumn(false, true, false)
}

// ListTableTypes issues SQLTables with the all-table-types sentinel.
func (c *DatabaseCatalog) ListTableTypes() ([]string, error) {
	return c.listTablesColumn(false, false, true)
}

func (c *DatabaseCatalog) listTablesColumn(catalogSentinel, schemaSentinel, typeSentinel bool) ([]string, error) {
	empty := ""
	var catalog, schema, table, tableType *string
	col := 1
	switch {
	case catalogSentinel:
		catalog = &percentAll
		schema = &empty
		table = &empty
		col = 1
	case schemaSentinel:
		catalog = &empty
		schema = &percentAll
		table = &empty
		col = 2
	case typeSentinel:
		catalog = &empty
		schema = &empty
		table = &empty
		tableType = &percentAll
		col = 4
	}
	ret := Tables(c.stmt.Native(), catalog, schema, table, tableType)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt.Native()))
	}
	rows := newCatalogRows(c.stmt.Native())
	var results []string
	for rows.next() {
		v := rows.str(col)
		if v != "" {
			results = append(results, v)
		}
	}
	return results, rows.err
}

var percentAll = "%"

// EscapePattern prefixes every `_` and `%` in input with the driver's
// search-pattern escape character.
func (c *DatabaseCatalog) EscapePattern(input string) string {
	escape := c.info.SearchPatternEscape()
	if escape == "" {
		return input
	}
	var sb strings.Builder
	for _, r := range input {
		if r == '_' || r == '%' {
			sb.WriteString(escape)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
