package value

import "testing"

func TestHashKeyMatchesEqualAcrossNumericKinds(t *testing.T) {
	i := NewInt64(1)
	f := NewFloat64(1.0)

	if !Equal(i, f) {
		t.Fatalf("Equal(Int64(1), Float64(1.0)) = false, want true")
	}
	if i.HashKey() != f.HashKey() {
		t.Fatalf("HashKey() disagrees with Equal: Int64(1).HashKey()=%q, Float64(1.0).HashKey()=%q", i.HashKey(), f.HashKey())
	}
}

func TestHashKeyDistinguishesUnequalNumbers(t *testing.T) {
	a := NewInt64(1)
	b := NewFloat64(2.0)
	if a.HashKey() == b.HashKey() {
		t.Fatalf("HashKey() collided for unequal values Int64(1) and Float64(2.0)")
	}
}

func TestHashKeyDistinguishesNumberFromString(t *testing.T) {
	n := NewInt64(1)
	s := NewString("1")
	if Equal(n, s) {
		t.Fatalf("Equal(Int64(1), String(\"1\")) = true, want false")
	}
	if n.HashKey() == s.HashKey() {
		t.Fatalf("HashKey() collided for Int64(1) and String(\"1\")")
	}
}
