package ttime

import "testing"

func TestAddCarry(t *testing.T) {
	a := New(1, 900_000)
	b := New(0, 200_000)
	got := Add(a, b)
	want := New(2, 100_000)
	if got != want {
		t.Errorf("Add(%v, %v) = %v, want %v", a, b, got, want)
	}
}

func TestSubtractBorrow(t *testing.T) {
	a := New(2, 100_000)
	b := New(0, 200_000)
	got := Subtract(a, b)
	want := New(1, 900_000)
	if got != want {
		t.Errorf("Subtract(%v, %v) = %v, want %v", a, b, got, want)
	}
}

func TestDifferenceIsReversed(t *testing.T) {
	a := New(1, 0)
	b := New(3, 500_000)
	diff := Difference(a, b)
	sub := Subtract(b, a)
	if diff != sub {
		t.Errorf("Difference(a,b) = %v, want Subtract(b,a) = %v", diff, sub)
	}
	if diff == Subtract(a, b) {
		t.Errorf("Difference(a,b) should not equal Subtract(a,b)")
	}
}

func TestDivideBy(t *testing.T) {
	total := New(5, 0)
	got := DivideBy(total, 2)
	want := New(2, 500_000)
	if got != want {
		t.Errorf("DivideBy(5s, 2) = %v, want %v", got, want)
	}
}

func TestCompare(t *testing.T) {
	lo := New(1, 0)
	hi := New(1, 1)
	if lo.Compare(hi) != -1 {
		t.Errorf("expected lo < hi")
	}
	if hi.Compare(lo) != 1 {
		t.Errorf("expected hi > lo")
	}
	if lo.Compare(lo) != 0 {
		t.Errorf("expected lo == lo")
	}
}

func TestNormalizeNegativeUsec(t *testing.T) {
	got := New(5, -1_500_000)
	want := New(3, 500_000)
	if got != want {
		t.Errorf("New(5, -1500000) = %v, want %v", got, want)
	}
}

func TestZero(t *testing.T) {
	if !(Time{}).Zero() {
		t.Errorf("zero value should report Zero() == true")
	}
	if New(0, 1).Zero() {
		t.Errorf("non-zero usec should report Zero() == false")
	}
}
