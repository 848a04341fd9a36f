package exodbc

import (
	"testing"
	"time"
)

func TestColumnBuffer_SetGet_Short(t *testing.T) {
	b := NewColumnBuffer("c", BufferShort, SQL_SMALLINT, 0, 0, 0)
	if err := b.Set(int16(-42)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(int16) != -42 {
		t.Errorf("expected -42, got %v", v)
	}
}

func TestColumnBuffer_SetGet_Long(t *testing.T) {
	b := NewColumnBuffer("c", BufferLong, SQL_INTEGER, 0, 0, 0)
	if err := b.Set(int32(123456)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(int32) != 123456 {
		t.Errorf("expected 123456, got %v", v)
	}
}

func TestColumnBuffer_SetGet_BigInt(t *testing.T) {
	b := NewColumnBuffer("c", BufferBigInt, SQL_BIGINT, 0, 0, 0)
	if err := b.Set(int64(-9000000000)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(int64) != -9000000000 {
		t.Errorf("expected -9000000000, got %v", v)
	}
}

func TestColumnBuffer_SetGet_Double(t *testing.T) {
	b := NewColumnBuffer("c", BufferDouble, SQL_DOUBLE, 0, 0, 0)
	if err := b.Set(float64(3.14159)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(float64) != 3.14159 {
		t.Errorf("expected 3.14159, got %v", v)
	}
}

func TestColumnBuffer_SetGet_Char(t *testing.T) {
	b := NewColumnBuffer("c", BufferChar, SQL_VARCHAR, 32, 0, 0)
	if err := b.Set("hello"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(string) != "hello" {
		t.Errorf("expected %q, got %q", "hello", v)
	}
	if b.String() != "hello" {
		t.Errorf("String(): expected %q, got %q", "hello", b.String())
	}
}

func TestColumnBuffer_SetGet_WChar(t *testing.T) {
	b := NewColumnBuffer("c", BufferWChar, SQL_WVARCHAR, 32, 0, 0)
	if err := b.Set("中文😀"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(string) != "中文😀" {
		t.Errorf("expected %q, got %q", "中文😀", v)
	}
}

func TestColumnBuffer_SetGet_Binary(t *testing.T) {
	b := NewColumnBuffer("c", BufferBinary, SQL_VARBINARY, 8, 0, 0)
	input := []byte{1, 2, 3, 4}
	if err := b.Set(input); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got := v.([]byte)
	if len(got) != len(input) {
		t.Fatalf("expected length %d, got %d", len(input), len(got))
	}
	for i := range input {
		if got[i] != input[i] {
			t.Errorf("at index %d: expected %d, got %d", i, input[i], got[i])
		}
	}
}

func TestColumnBuffer_SetGet_Timestamp(t *testing.T) {
	b := NewColumnBuffer("c", BufferTimestamp, SQL_TYPE_TIMESTAMP, 23, 3, 0)
	in := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)
	if err := b.Set(in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	out := v.(time.Time)
	if !out.Equal(in) {
		t.Errorf("expected %v, got %v", in, out)
	}
}

func TestColumnBuffer_SetNull_RequiresFlag(t *testing.T) {
	b := NewColumnBuffer("c", BufferLong, SQL_INTEGER, 0, 0, 0)
	if err := b.SetNull(); err == nil {
		t.Fatal("expected error setting null on non-nullable buffer")
	}
}

func TestColumnBuffer_SetNull_ThenGetFails(t *testing.T) {
	b := NewColumnBuffer("c", BufferLong, SQL_INTEGER, 0, 0, FlagNullable)
	if err := b.Set(int32(7)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if b.IsNull() {
		t.Fatal("expected IsNull() false after Set")
	}
	if err := b.SetNull(); err != nil {
		t.Fatalf("SetNull failed: %v", err)
	}
	if !b.IsNull() {
		t.Fatal("expected IsNull() true after SetNull")
	}
	if _, err := b.Get(); err == nil {
		t.Fatal("expected error getting a null buffer")
	} else if _, ok := err.(*NullValueError); !ok {
		t.Errorf("expected *NullValueError, got %T", err)
	}
}

func TestColumnBuffer_SetGet_Numeric(t *testing.T) {
	cases := []struct {
		colSize SQLULEN
		scale   SQLSMALLINT
		in      string
	}{
		{10, 2, "123.45"},
		{10, 2, "-123.45"},
		{5, 0, "7"},
		{5, 0, "0"},
		{20, 4, "-0.0001"},
	}
	for _, tc := range cases {
		b := NewColumnBuffer("c", BufferNumeric, SQL_NUMERIC, tc.colSize, tc.scale, 0)
		if err := b.Set(tc.in); err != nil {
			t.Fatalf("Set(%q) failed: %v", tc.in, err)
		}
		v, err := b.Get()
		if err != nil {
			t.Fatalf("Get() after Set(%q) failed: %v", tc.in, err)
		}
		if v.(string) != tc.in {
			t.Errorf("round-trip %q: got %q", tc.in, v)
		}
	}
}

func TestColumnBuffer_Set_NumericTooManyFracDigits(t *testing.T) {
	b := NewColumnBuffer("c", BufferNumeric, SQL_NUMERIC, 10, 2, 0)
	if err := b.Set("1.2345"); err == nil {
		t.Fatal("expected error for value exceeding the declared scale")
	}
}

func TestColumnBuffer_Set_CharTooLarge(t *testing.T) {
	b := NewColumnBuffer("c", BufferChar, SQL_VARCHAR, 4, 0, 0)
	if err := b.Set("this value is too long"); err == nil {
		t.Fatal("expected error for value exceeding buffer capacity")
	}
}
