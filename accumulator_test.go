package protojson

import (
	"bytes"
	"fmt"
	"math"
	"testing"
)

func TestAccumulatorAliasUntilSecondAppend(t *testing.T) {
	var a accumulator
	a.clear()

	chunk := []byte("hello")
	if err := a.append(chunk, true); err != nil {
		t.Fatalf("append: %v", err)
	}
	if &a.get()[0] != &chunk[0] {
		t.Errorf("single aliased append should not copy")
	}

	if err := a.append([]byte(" world"), true); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := string(a.get()); got != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
	if &a.get()[0] == &chunk[0] {
		t.Errorf("second append should have copied into owned buffer")
	}
}

func TestAccumulatorForcedCopy(t *testing.T) {
	var a accumulator
	a.clear()
	chunk := []byte("abc")
	if err := a.append(chunk, false); err != nil {
		t.Fatalf("append: %v", err)
	}
	chunk[0] = 'z'
	if got := string(a.get()); got != "abc" {
		t.Errorf("got %q, want %q (mutation of source should not be visible)", got, "abc")
	}
}

func TestAccumulatorClearReusesBuffer(t *testing.T) {
	var a accumulator
	var first *byte
	for _, test := range []struct {
		input string
	}{
		{"first"}, {"second value"}, {"x"},
	} {
		t.Run(test.input, func(t *testing.T) {
			a.clear()
			if err := a.append([]byte(test.input), false); err != nil {
				t.Fatalf("append: %v", err)
			}
			if got := string(a.get()); got != test.input {
				t.Errorf("got %q, want %q", got, test.input)
			}
			if first == nil {
				first = &a.owned[0]
			} else if &a.owned[0] != first {
				t.Errorf("clear should keep the owned buffer, but append reallocated it")
			}
		})
	}
}

func TestAccumulatorGrowth(t *testing.T) {
	var a accumulator
	a.clear()
	var want bytes.Buffer
	for i := 0; i < 500; i++ {
		piece := []byte(fmt.Sprintf("%d,", i))
		want.Write(piece)
		if err := a.append(piece, false); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if got := string(a.get()); got != want.String() {
		t.Errorf("accumulated value mismatch after growth")
	}
}

func TestAccumulatorReserveOverflow(t *testing.T) {
	var a accumulator
	if err := a.reserve(math.MaxInt); err == nil {
		t.Errorf("reserve(MaxInt) should overflow the doubling loop, got nil error")
	}
}

func TestAccumulatorEmptyAppendIsNoop(t *testing.T) {
	var a accumulator
	a.clear()
	if err := a.append(nil, true); err != nil {
		t.Fatalf("append(nil): %v", err)
	}
	if len(a.get()) != 0 {
		t.Errorf("accumulator should remain empty")
	}
}
