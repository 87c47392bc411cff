package protojson

import "fmt"

// accumulatorInitialCap is the size of the owned buffer's first
// allocation, chosen the way the teacher sizes its fixed frame arrays:
// a small constant sized for the common case, grown geometrically past
// that. See spec.md §4.1.
const accumulatorInitialCap = 128

// accumulator holds a logical byte string assembled from zero or more
// input slices (spec.md §4.1, component 1). While empty, it aliases an
// input chunk by reference; once a second slice must be appended, or an
// aliased slice would outlive the chunk it points into, it copies
// everything into an owned, geometrically-growing buffer.
//
// The zero value is ready to use.
type accumulator struct {
	owned   []byte // growable buffer; len(owned) may be 0 even after use
	logical []byte // current logical value: either a view into owned, or an alias of caller-supplied input
	aliased bool   // true iff logical currently points into caller-supplied input rather than owned
}

// clear resets the accumulator to empty. The owned buffer's backing
// array is retained so repeated use across values in the same document
// doesn't reallocate.
func (a *accumulator) clear() {
	a.logical = a.owned[:0]
	a.aliased = false
}

// append adds b to the logical value. If the accumulator is currently
// empty and canAlias holds, b is adopted by reference with no copy;
// otherwise the owned buffer is grown as needed and b is copied in.
//
// canAlias must be false whenever b's backing array will be reused or
// mutated before the accumulator is next read (e.g. b lives in an input
// chunk that the caller will overwrite on the next Write call without
// the parser having suspended a capture over it).
func (a *accumulator) append(b []byte, canAlias bool) error {
	if len(b) == 0 {
		return nil
	}
	if len(a.logical) == 0 && canAlias {
		a.logical = b
		a.aliased = true
		return nil
	}
	if a.aliased {
		// The current logical content is a borrowed slice; it must be
		// copied into the owned buffer before anything more is appended,
		// since further input may invalidate it.
		if err := a.reserve(len(a.logical) + len(b)); err != nil {
			return err
		}
		a.owned = a.owned[:len(a.logical)]
		copy(a.owned, a.logical)
		a.logical = a.owned
		a.aliased = false
	} else {
		if err := a.reserve(len(a.logical) + len(b)); err != nil {
			return err
		}
	}
	base := len(a.logical)
	a.owned = a.owned[:base+len(b)]
	copy(a.owned[base:], b)
	a.logical = a.owned
	return nil
}

// reserve ensures the owned buffer has capacity for at least n bytes,
// doubling from accumulatorInitialCap and checking for overflow on the
// way, matching spec.md §4.1's geometric-growth-with-overflow-check
// requirement.
func (a *accumulator) reserve(n int) error {
	if cap(a.owned) >= n {
		return nil
	}
	newCap := cap(a.owned)
	if newCap == 0 {
		newCap = accumulatorInitialCap
	}
	for newCap < n {
		doubled := newCap * 2
		if doubled <= newCap {
			return fmt.Errorf("%w: accumulator growth overflowed", ErrValue)
		}
		newCap = doubled
	}
	grown := make([]byte, len(a.owned), newCap)
	copy(grown, a.owned)
	a.owned = grown
	return nil
}

// get returns the current logical (possibly aliased) content. The
// returned slice is valid only until the next append call whose
// argument is not itself aliased, or until the next clear.
func (a *accumulator) get() []byte {
	return a.logical
}
