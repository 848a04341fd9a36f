// Command exodbcexec is a small interactive client over the exodbc
// driver: it opens a connection, reads SQL and `!`-prefixed commands from
// standard input, and prints results.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/exodbc-go/exodbc"
	"github.com/spf13/cobra"
)

var exitCode int

const (
	exitBadArguments   = 2
	exitSqlError       = 10
	exitUnexpected     = 20
	exitCaughtTopLevel = 1
)

func main() {
	var (
		dsn              string
		user             string
		password         string
		connString       string
		silent           bool
		odbcVersion      string
		forwardOnlyCursors bool
		exitOnError      bool
		logLevel         string
	)

	root := &cobra.Command{
		Use:   "exodbcexec",
		Short: "Interactive SQL client over the exodbc ODBC driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := parseLogLevel(logLevel)
			handler, err := exodbc.NewLogHandler(level, exodbc.SinkStderr, "")
			if err != nil {
				return err
			}
			exodbc.SetDefaultLogHandler(handler)

			connStr := buildConnString(dsn, user, password, connString)
			if connStr == "" {
				fmt.Fprintln(os.Stderr, "exodbcexec: one of -CS or -DSN must be given")
				exitCode = exitBadArguments
				return nil
			}

			drv := &exodbc.Driver{}
			connector, err := drv.OpenConnector(connStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "exodbcexec: open: %v\n", err)
				exitCode = exitSqlError
				return nil
			}
			rawConn, err := connector.Connect(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "exodbcexec: connect: %v\n", err)
				exitCode = exitSqlError
				return nil
			}
			conn, ok := rawConn.(*exodbc.Conn)
			if !ok {
				fmt.Fprintln(os.Stderr, "exodbcexec: driver did not return a typed connection")
				exitCode = exitUnexpected
				return nil
			}
			defer conn.Close()

			sess := newSession(conn, !forwardOnlyCursors, exitOnError, silent)
			sess.run(bufio.NewScanner(os.Stdin))
			exitCode = sess.exitCode
			return nil
		},
	}

	root.Flags().StringVar(&dsn, "DSN", "", "data source name")
	root.Flags().StringVar(&user, "U", "", "user name")
	root.Flags().StringVar(&password, "P", "", "password")
	root.Flags().StringVar(&connString, "CS", "", "full ODBC connection string")
	root.Flags().BoolVar(&silent, "silent", false, "suppress informational output")
	root.Flags().StringVar(&odbcVersion, "odbcVersion", "3", "ODBC version: 2, 3, or 3.8 (accepted but not applied; connections always request ODBC 3.x)")
	root.Flags().BoolVar(&forwardOnlyCursors, "forwardOnlyCursors", false, "never request scrollable cursors")
	root.Flags().BoolVar(&exitOnError, "exitOnError", false, "stop reading input on the first SQL error")
	root.Flags().StringVar(&logLevel, "logLevel", "Warning", "log level: Debug, Info, Warning, or Error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCaughtTopLevel)
	}
	os.Exit(exitCode)
}

func parseLogLevel(s string) exodbc.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return exodbc.LevelDebug
	case "info":
		return exodbc.LevelInfo
	case "warning":
		return exodbc.LevelWarning
	case "error":
		return exodbc.LevelError
	default:
		return exodbc.LevelWarning
	}
}

func buildConnString(dsn, user, password, cs string) string {
	if cs != "" {
		return cs
	}
	if dsn == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "DSN=%s;", dsn)
	if user != "" {
		fmt.Fprintf(&b, "UID=%s;", user)
	}
	if password != "" {
		fmt.Fprintf(&b, "PWD=%s;", password)
	}
	return b.String()
}

// session holds the state a running exodbcexec REPL needs between lines:
// the open connection, the statement currently bound for select-motion
// commands, and its column buffers.
type session struct {
	conn        *exodbc.Conn
	stmt        *exodbc.ExecutableStatement
	columns     []*exodbc.ColumnBuffer
	colNames    []string
	scrollable  bool
	exitOnError bool
	silent      bool
	exitCode    int
	done        bool
}

func newSession(conn *exodbc.Conn, scrollable, exitOnError, silent bool) *session {
	return &session{conn: conn, scrollable: scrollable, exitOnError: exitOnError, silent: silent}
}

func (s *session) run(scanner *bufio.Scanner) {
	for !s.done && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "!") {
			s.dispatch(line)
			continue
		}
		s.execSelect(line)
	}
}

func (s *session) dispatch(line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]
	switch cmd {
	case "!exit", "!e", "!quit", "!q":
		s.done = true
	case "!help", "!h":
		printHelp()
	case "!next", "!sn":
		s.move(func() (bool, error) { return s.stmt.SelectNext() })
	case "!prev", "!sp":
		s.move(func() (bool, error) { return s.stmt.SelectPrev() })
	case "!first", "!sf":
		s.move(func() (bool, error) { return s.stmt.SelectFirst() })
	case "!last", "!sl":
		s.move(func() (bool, error) { return s.stmt.SelectLast() })
	case "!printCurrent", "!pc":
		s.printCurrent()
	case "!printAll", "!pa":
		s.printAll()
	case "!commitTrans", "!ct":
		s.handleErr(s.conn.Commit())
	case "!rollbackTrans", "!rt":
		s.handleErr(s.conn.Rollback())
	case "!find", "!f":
		s.find(args)
	case "!listTypes", "!lt":
		s.listTypes()
	case "!listSchemas", "!ls":
		s.list(s.conn.Catalog().ListSchemas)
	case "!listCatalogs", "!lc":
		s.list(s.conn.Catalog().ListCatalogs)
	case "!dbInfo":
		s.dbInfo()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (try !help)\n", cmd)
	}
}

func printHelp() {
	fmt.Println(`commands:
  !exit !e !quit !q               terminate
  !help !h                        print this help
  !next !sn / !prev !sp           cursor motion
  !first !sf / !last !sl          cursor motion
  !printCurrent !pc / !printAll !pa
  !commitTrans !ct / !rollbackTrans !rt
  !find !f name [schema] [catalog] [type] [-pc]
  !listTypes !lt / !listSchemas !ls / !listCatalogs !lc
  !dbInfo`)
}

func (s *session) handleErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if s.exitOnError {
		s.exitCode = exitSqlError
		s.done = true
	}
}

func (s *session) execSelect(sql string) {
	if s.stmt != nil {
		s.stmt.Reset()
		s.stmt = nil
		s.columns = nil
		s.colNames = nil
	}
	stmt := exodbc.NewExecutableStatement()
	if err := stmt.Init(s.conn, s.scrollable); err != nil {
		s.handleErr(err)
		return
	}
	if err := stmt.ExecuteDirect(sql); err != nil {
		s.handleErr(err)
		stmt.Reset()
		return
	}
	numCols, err := stmt.NumResultCols()
	if err != nil {
		s.handleErr(err)
		stmt.Reset()
		return
	}
	if numCols == 0 {
		if !s.silent {
			fmt.Println("OK")
		}
		stmt.Reset()
		return
	}
	bufferMap := s.conn.BufferMap()
	columns := make([]*exodbc.ColumnBuffer, 0, numCols)
	names := make([]string, 0, numCols)
	for i := 1; i <= numCols; i++ {
		desc, err := stmt.DescribeColumn(exodbc.SQLUSMALLINT(i))
		if err != nil {
			s.handleErr(err)
			stmt.Reset()
			return
		}
		kind := bufferMap.BufferKindFor(desc.SQLType)
		buf := exodbc.NewColumnBuffer(desc.Name, kind, desc.SQLType, desc.ColumnSize, desc.DecimalDigits, 0)
		if err := stmt.BindColumn(exodbc.SQLUSMALLINT(i), buf); err != nil {
			s.handleErr(err)
			stmt.Reset()
			return
		}
		columns = append(columns, buf)
		names = append(names, desc.Name)
	}
	s.stmt = stmt
	s.columns = columns
	s.colNames = names
	s.move(func() (bool, error) { return s.stmt.SelectNext() })
}

func (s *session) move(fn func() (bool, error)) {
	if s.stmt == nil {
		fmt.Fprintln(os.Stderr, "no open result set")
		return
	}
	ok, err := fn()
	if err != nil {
		s.handleErr(err)
		return
	}
	if !ok {
		if !s.silent {
			fmt.Println("(no more rows)")
		}
		return
	}
	s.printCurrent()
}

func (s *session) printCurrent() {
	if s.stmt == nil || len(s.columns) == 0 {
		fmt.Fprintln(os.Stderr, "no current row")
		return
	}
	for i, buf := range s.columns {
		fmt.Printf("%s = %s\n", s.colNames[i], buf.String())
	}
}

func (s *session) printAll() {
	if s.stmt == nil {
		fmt.Fprintln(os.Stderr, "no open result set")
		return
	}
	s.printCurrent()
	for {
		ok, err := s.stmt.SelectNext()
		if err != nil {
			s.handleErr(err)
			return
		}
		if !ok {
			return
		}
		s.printCurrent()
	}
}

func (s *session) find(args []string) {
	var table, schema, catalog, tableType string
	printColumns := false
	for _, a := range args {
		if a == "-pc" {
			printColumns = true
			continue
		}
		switch {
		case table == "":
			table = a
		case schema == "":
			schema = a
		case catalog == "":
			catalog = a
		case tableType == "":
			tableType = a
		}
	}
	if table == "" {
		fmt.Fprintln(os.Stderr, "usage: !find name [schema] [catalog] [type] [-pc]")
		return
	}
	var schemaPtr, catalogPtr *string
	if schema != "" {
		schemaPtr = &schema
	}
	if catalog != "" {
		catalogPtr = &catalog
	}
	results, err := s.conn.Catalog().SearchTables(&table, schemaPtr, catalogPtr, tableType, exodbc.PatternOrOrdinary)
	if err != nil {
		s.handleErr(err)
		return
	}
	supportsCatalogs := s.conn.Info().SupportsCatalogs()
	supportsSchemas := s.conn.Info().SupportsSchemas()
	for _, t := range results {
		fmt.Printf("%s\n", t.QueryName(supportsCatalogs, supportsSchemas))
		if printColumns {
			cols, err := s.conn.Catalog().ReadColumnInfo(t)
			if err != nil {
				s.handleErr(err)
				continue
			}
			for _, c := range cols {
				fmt.Printf("  %s\n", c.ColumnName)
			}
		}
	}
}

func (s *session) listTypes() {
	types, err := s.conn.Catalog().ReadSqlTypeInfo()
	if err != nil {
		s.handleErr(err)
		return
	}
	for _, t := range types {
		fmt.Println(t.TypeName)
	}
}

func (s *session) list(fn func() ([]string, error)) {
	names, err := fn()
	if err != nil {
		s.handleErr(err)
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func (s *session) dbInfo() {
	for _, p := range s.conn.Info().All() {
		switch p.Kind {
		case exodbc.InfoString, exodbc.InfoStringYN:
			fmt.Printf("%-24s %s\n", p.DisplayName, p.StringValue())
		default:
			fmt.Printf("%-24s %s\n", p.DisplayName, strconv.FormatUint(uint64(p.NumericValue()), 10))
		}
	}
}
