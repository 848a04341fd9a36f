package exodbc

import "testing"

func TestExecutableStatement_InitialState(t *testing.T) {
	e := NewExecutableStatement()
	if e.state != stateUninitialized {
		t.Errorf("expected stateUninitialized, got %d", e.state)
	}
	if e.IsScrollable() {
		t.Error("expected IsScrollable() false before Init")
	}
}

func TestExecutableStatement_PrepareBeforeInit(t *testing.T) {
	e := NewExecutableStatement()
	err := e.Prepare("SELECT 1")
	if err == nil {
		t.Fatal("expected error preparing before Init")
	}
	if _, ok := err.(*AssertionError); !ok {
		t.Errorf("expected *AssertionError, got %T", err)
	}
}

func TestExecutableStatement_BindColumnBeforeInit(t *testing.T) {
	e := NewExecutableStatement()
	buf := NewColumnBuffer("c1", BufferLong, SQL_INTEGER, 10, 0, 0)
	err := e.BindColumn(1, buf)
	if err == nil {
		t.Fatal("expected error binding column before Init")
	}
	if _, ok := err.(*AssertionError); !ok {
		t.Errorf("expected *AssertionError, got %T", err)
	}
}

func TestExecutableStatement_BindParameterBeforeInit(t *testing.T) {
	e := NewExecutableStatement()
	buf := NewColumnBuffer("p1", BufferLong, SQL_INTEGER, 10, 0, 0)
	err := e.BindParameter(1, buf)
	if err == nil {
		t.Fatal("expected error binding parameter before Init")
	}
	if _, ok := err.(*AssertionError); !ok {
		t.Errorf("expected *AssertionError, got %T", err)
	}
}

func TestExecutableStatement_FetchWithoutResultOpen(t *testing.T) {
	e := NewExecutableStatement()
	_, err := e.SelectNext()
	if err == nil {
		t.Fatal("expected error fetching with no open result set")
	}
	if _, ok := err.(*AssertionError); !ok {
		t.Errorf("expected *AssertionError, got %T", err)
	}
}

func TestExecutableStatement_ResetIdempotentWhenUninitialized(t *testing.T) {
	e := NewExecutableStatement()
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset on Uninitialized statement should be a no-op, got %v", err)
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("second Reset call should still be a no-op, got %v", err)
	}
	if e.state != stateUninitialized {
		t.Errorf("expected stateUninitialized after Reset, got %d", e.state)
	}
}

func TestExecutableStatement_CloseCursorWhenNotOpen(t *testing.T) {
	e := NewExecutableStatement()
	if err := e.CloseCursor(); err != nil {
		t.Errorf("CloseCursor with no open cursor should be a no-op, got %v", err)
	}
}

func TestDescribeParamFallback(t *testing.T) {
	buf := NewColumnBuffer("p1", BufferLong, SQL_DECIMAL, 10, 2, 0)
	desc := DescribeParamFallback(buf)
	if desc.SQLType != SQL_DECIMAL {
		t.Errorf("expected SQLType SQL_DECIMAL, got %d", desc.SQLType)
	}
	if desc.ColumnSize != 10 {
		t.Errorf("expected ColumnSize 10, got %d", desc.ColumnSize)
	}
	if desc.DecimalDigits != 2 {
		t.Errorf("expected DecimalDigits 2, got %d", desc.DecimalDigits)
	}
}

func TestExecutableStatement_DescribeParamRequiresPrepared(t *testing.T) {
	e := NewExecutableStatement()
	_, err := e.DescribeParam(1)
	if err == nil {
		t.Fatal("expected error describing param without a prepared statement")
	}
	if _, ok := err.(*NotAllowedError); !ok {
		t.Errorf("expected *NotAllowedError, got %T", err)
	}
}
