package protojson

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// frameKind records which JSON bracket opened a frame, purely for
// lexical bookkeeping: it decides which comma/close state to return to
// once the value at this depth is finished. It has no effect on the
// semantic events raised.
type frameKind uint8

const (
	frameKindObject frameKind = iota
	frameKindArray
)

// frame is the per-depth semantic state of the parser: which message is
// currently open, which field is being populated, and whether this
// depth is synthesizing a map. spec.md §3, component 7.
type frame struct {
	sink  Sink
	msg   protoreflect.MessageDescriptor
	field protoreflect.FieldDescriptor // nil while a member name is being parsed
	names nameTable
	kind  frameKind

	// ownField is the field whose value this frame represents — the
	// selector used when this frame is popped and EndSubMessage or
	// EndSequence is emitted on the parent. Unset (nil) only for the
	// root frame, whose pop emits EndMessage and no parent-side call.
	ownField protoreflect.FieldDescriptor

	isMap      bool
	isMapEntry bool
	mapField   protoreflect.FieldDescriptor // the map field: set on both the is_map sequence frame and its map-entry children
}

// frameStack is a bounded-depth stack of frames, one per open JSON
// object or array and one per synthesized map entry. String values do
// not push a frame (the Parser's stringField/stringParentSink track
// them), so they do not count toward the depth limit. Implemented as a fixed-capacity array with
// a top index rather than a language-level slice-of-slices append
// pattern, per spec.md §9's "frame stack aliasing via top+1" preference
// for a design that's language-neutral — and directly mirrors the
// teacher's own modeStack/valueStack arrays-with-top-index.
type frameStack struct {
	frames []frame
	top    int // -1 when empty
}

func newFrameStack(maxDepth int) *frameStack {
	return &frameStack{frames: make([]frame, maxDepth), top: -1}
}

// push adds a new frame at depth+1. Returns ErrDepth if the stack is
// already at its configured maximum (spec.md §3 invariant: depth ≤ 64).
func (s *frameStack) push(f frame) error {
	if s.top+1 >= len(s.frames) {
		return fmt.Errorf("%w: frame stack exceeds %d levels", ErrDepth, len(s.frames))
	}
	s.top++
	s.frames[s.top] = f
	return nil
}

// pop removes and returns the top frame. Callers must check depth() > 0
// first; popping an empty stack is an internal-invariant violation.
func (s *frameStack) pop() frame {
	f := s.frames[s.top]
	s.frames[s.top] = frame{}
	s.top--
	return f
}

// current returns a pointer to the top frame for in-place mutation
// (setting f.field, f.isMapEntry, etc. without a push/pop round trip).
func (s *frameStack) current() *frame {
	return &s.frames[s.top]
}

// depth returns the number of frames currently open.
func (s *frameStack) depth() int {
	return s.top + 1
}

// reset empties the stack for reuse across documents.
func (s *frameStack) reset() {
	for i := 0; i <= s.top; i++ {
		s.frames[i] = frame{}
	}
	s.top = -1
}
