package protojson

import "google.golang.org/protobuf/reflect/protoreflect"

// multipartMode is one of the three states a value-in-progress can be
// in. spec.md §4.3, component 3.
type multipartMode uint8

const (
	multipartInactive multipartMode = iota
	multipartAccumulate
	multipartPushEagerly
)

// multipartRouter directs the text of a value being assembled either
// into the accumulator (for later inspection — member names, numbers,
// enum names, bytes fields, map keys) or straight through to the
// output sink's string handler (for ordinary string fields, so large
// strings never need to be buffered in full).
type multipartRouter struct {
	mode multipartMode
	acc  accumulator

	// sink/field are set only in PUSH_EAGERLY mode: the destination and
	// selector for string chunks forwarded directly to the sink.
	sink  Sink
	field protoreflect.FieldDescriptor
}

// startAccumulate begins assembling a value into the accumulator.
func (m *multipartRouter) startAccumulate() {
	m.mode = multipartAccumulate
	m.acc.clear()
}

// startPushEagerly begins forwarding a string field's chunks directly to
// sink under field, with no local buffering.
func (m *multipartRouter) startPushEagerly(sink Sink, field protoreflect.FieldDescriptor) {
	m.mode = multipartPushEagerly
	m.sink = sink
	m.field = field
	m.acc.clear()
}

// text delivers the next chunk of a multipart value. canAlias indicates
// whether b may be held by reference until the current Write call
// returns (true only for ranges forwarded directly out of a capture.end
// call on the current chunk); Write copies any such alias out of the
// accumulator before it returns.
func (m *multipartRouter) text(b []byte, canAlias bool) error {
	switch m.mode {
	case multipartAccumulate:
		return m.acc.append(b, canAlias)
	case multipartPushEagerly:
		if len(b) == 0 {
			return nil
		}
		return wrapSinkErr(m.sink.PutString(m.field, b))
	default:
		return nil
	}
}

// accumulated returns the bytes accumulated so far. Valid only in
// multipartAccumulate mode.
func (m *multipartRouter) accumulated() []byte {
	return m.acc.get()
}

// end returns the router to INACTIVE and clears the accumulator.
func (m *multipartRouter) end() {
	m.mode = multipartInactive
	m.sink = nil
	m.field = nil
	m.acc.clear()
}

// active reports whether a value is currently being assembled.
func (m *multipartRouter) active() bool {
	return m.mode != multipartInactive
}
