package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(MustMoney(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseOptionalMoney(t *testing.T) {
	m, err := ParseOptionalMoney("  ")
	if err != nil || !m.IsZero() {
		t.Fatalf("blank should be zero, got %s err=%v", m, err)
	}
	if _, err := ParseOptionalMoney("x"); err == nil {
		t.Fatalf("expected error for garbage")
	}
	if m, err := ParseOptionalMoney("0,00"); err != nil || !m.IsZero() {
		t.Fatalf("explicit zero should be zero, got %s err=%v", m, err)
	}
	if _, err := ParseOptionalMoney("-5"); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustMoney("5000")
	b := MustMoney("300.10")
	if got := a.Add(b); !got.Equal(MustMoney("5300.1")) {
		t.Fatalf("add: got %s", got)
	}
	if got := b.Sub(a); !got.IsNegative() || got.Cents() != -469990 {
		t.Fatalf("sub: got %s", got)
	}
	if MoneyFromCents(123).String() != "1.23" {
		t.Fatalf("from cents: got %s", MoneyFromCents(123))
	}
	var zero Money
	if !zero.IsZero() || zero.Cents() != 0 {
		t.Fatalf("zero value should be 0")
	}
}

func TestMoneyMarshalJSON(t *testing.T) {
	b, err := MustMoney("12.50").MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"12.5"` {
		t.Fatalf("got %s", b)
	}
}
