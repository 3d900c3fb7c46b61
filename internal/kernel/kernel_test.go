package kernel

import (
	"math"
	"testing"
)

func TestRecomputeMetadataSkipsNaN(t *testing.T) {
	k := New(3, 1, 1, 0, []float64{1, math.NaN(), -2})
	if k.PositiveRange != 1 {
		t.Errorf("positive range = %v, want 1", k.PositiveRange)
	}
	if k.NegativeRange != -2 {
		t.Errorf("negative range = %v, want -2", k.NegativeRange)
	}
	if k.Maximum != 1 || k.Minimum != -2 {
		t.Errorf("min/max = %v/%v, want -2/1", k.Minimum, k.Maximum)
	}
}

func TestRecomputeMetadataClampsNearZero(t *testing.T) {
	k := New(1, 1, 0, 0, []float64{1e-9})
	if k.Values[0] != 0 {
		t.Errorf("near-zero value not clamped: %v", k.Values[0])
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := New(1, 1, 0, 0, []float64{1})
	orig.Next = New(1, 1, 0, 0, []float64{2})

	clone := orig.Clone()
	clone.Values[0] = 99
	clone.Next.Values[0] = 98

	if orig.Values[0] != 1 {
		t.Errorf("mutating clone head affected original: %v", orig.Values[0])
	}
	if orig.Next.Values[0] != 2 {
		t.Errorf("mutating clone tail affected original: %v", orig.Next.Values[0])
	}
}

func TestLastAndLen(t *testing.T) {
	a := New(1, 1, 0, 0, []float64{1})
	b := New(1, 1, 0, 0, []float64{2})
	c := New(1, 1, 0, 0, []float64{3})
	a.Next = b
	b.Next = c

	if a.Last() != c {
		t.Error("Last did not return tail")
	}
	if a.Len() != 3 {
		t.Errorf("Len = %d, want 3", a.Len())
	}
}

func TestAppend(t *testing.T) {
	a := New(1, 1, 0, 0, []float64{1})
	b := New(1, 1, 0, 0, []float64{2})
	a.Append(b)
	if a.Next != b {
		t.Error("Append did not attach to tail")
	}
}

func TestIsNaN(t *testing.T) {
	if !IsNaN(math.NaN()) {
		t.Error("IsNaN(NaN) = false")
	}
	if IsNaN(0) {
		t.Error("IsNaN(0) = true")
	}
}
