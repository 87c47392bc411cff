package protojson

import "google.golang.org/protobuf/reflect/protoreflect"

// Sink is the output-side protocol spec.md §6 describes as an "opaque
// handler bundle": the parser is the producer of a sequence of these
// calls, and never inspects or retains the values it's handed to build
// with. Callers implement Sink directly, or use the dynamicsink
// subpackage's reference implementation backed by a dynamicpb.Message.
//
// Every handler is parameterized by the protoreflect.FieldDescriptor of
// the field it concerns — spec.md's "selector," realized directly as
// the field descriptor rather than a separate opaque handle, since the
// descriptor already uniquely identifies the handler to invoke.
//
// StartSubMessage, StartSequence, and StartString return a (possibly
// different) Sink to use for the nested scope; returning the receiver
// itself is valid when a single Sink implementation handles an entire
// message tree. Any handler may return a non-nil error to abort parsing
// of the current document; the parser does not attempt to recover or
// resynchronize (spec.md §7 "no local recovery").
type Sink interface {
	// StartMessage/EndMessage bracket the content of a protobuf message:
	// the root, each submessage, and each synthesized map-entry message.
	// A JSON object bound to a map field is not itself bracketed by
	// them; it is bracketed by StartSequence/EndSequence, with
	// StartSubMessage/EndSubMessage around each entry (spec.md §4.8).
	StartMessage() error
	EndMessage() error

	// StartSubMessage/EndSubMessage bracket a singular message-typed
	// field, and also each synthesized map-entry element (selector is
	// the map field in that case).
	StartSubMessage(field protoreflect.FieldDescriptor) (Sink, error)
	EndSubMessage(field protoreflect.FieldDescriptor) error

	// StartSequence/EndSequence bracket a repeated field's elements, and
	// also a map field's synthesized sequence of map-entry submessages.
	StartSequence(field protoreflect.FieldDescriptor) (Sink, error)
	EndSequence(field protoreflect.FieldDescriptor) error

	// StartString/EndString bracket a string or bytes field's value.
	// sizeHint is the number of bytes captured so far when known (0 if
	// unknown), purely advisory.
	StartString(field protoreflect.FieldDescriptor, sizeHint int) (Sink, error)
	EndString(field protoreflect.FieldDescriptor) error

	// PutString delivers one chunk of a string or bytes field's value.
	// May be called zero or more times between StartString and
	// EndString; chunk is valid only for the duration of the call.
	PutString(field protoreflect.FieldDescriptor, chunk []byte) error

	PutInt32(field protoreflect.FieldDescriptor, v int32) error
	PutInt64(field protoreflect.FieldDescriptor, v int64) error
	PutUint32(field protoreflect.FieldDescriptor, v uint32) error
	PutUint64(field protoreflect.FieldDescriptor, v uint64) error
	PutFloat(field protoreflect.FieldDescriptor, v float32) error
	PutDouble(field protoreflect.FieldDescriptor, v float64) error
	PutBool(field protoreflect.FieldDescriptor, v bool) error
}
