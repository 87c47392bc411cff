// Package dynamicsink implements protojson.Sink over google.golang.org/
// protobuf/types/dynamicpb, so a document can be parsed against any
// message descriptor known only at runtime (no generated Go type
// required). It exists primarily as this module's own test fixture —
// building a dynamicpb.Message and comparing it with proto.Equal is the
// simplest way to assert a document was decoded correctly — but is
// exported since any caller without a generated type faces the same
// problem.
package dynamicsink

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/mcvoid/protojson"
)

// New wraps msg as a protojson.Sink for use as the root sink passed to
// ParserMethod.NewParser. msg is mutated in place as the parser delivers events.
func New(msg protoreflect.Message) protojson.Sink {
	return &messageSink{msg: msg}
}

// NewMessage is a convenience that allocates a fresh dynamicpb.Message
// for desc and wraps it, returning both so a caller can inspect the
// message once parsing finishes.
func NewMessage(desc protoreflect.MessageDescriptor) (*dynamicpb.Message, protojson.Sink) {
	msg := dynamicpb.NewMessage(desc)
	return msg, New(msg)
}

// messageSink backs a message value: the document root, an ordinary
// submessage, or a map entry's message-typed value.
type messageSink struct {
	msg    protoreflect.Message
	strBuf []byte
}

func (s *messageSink) StartMessage() error { return nil }
func (s *messageSink) EndMessage() error   { return nil }

func (s *messageSink) StartSubMessage(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	v := s.msg.NewField(field)
	s.msg.Set(field, v)
	return &messageSink{msg: v.Message()}, nil
}

func (s *messageSink) EndSubMessage(field protoreflect.FieldDescriptor) error { return nil }

func (s *messageSink) StartSequence(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	v := s.msg.NewField(field)
	s.msg.Set(field, v)
	if field.IsMap() {
		return &mapSink{m: v.Map(), entryDesc: field.Message()}, nil
	}
	return &listSink{list: v.List()}, nil
}

func (s *messageSink) EndSequence(field protoreflect.FieldDescriptor) error { return nil }

// StartString returns the receiver: PutString chunks accumulate into
// strBuf and EndString commits the joined value, since the Sink
// contract brackets a field's string value on the parent regardless of
// which sink instance carried its chunks.
func (s *messageSink) StartString(field protoreflect.FieldDescriptor, sizeHint int) (protojson.Sink, error) {
	s.strBuf = s.strBuf[:0]
	return s, nil
}

func (s *messageSink) EndString(field protoreflect.FieldDescriptor) error {
	s.msg.Set(field, stringFieldValue(field, s.strBuf))
	s.strBuf = nil
	return nil
}

func (s *messageSink) PutString(field protoreflect.FieldDescriptor, chunk []byte) error {
	s.strBuf = append(s.strBuf, chunk...)
	return nil
}

func (s *messageSink) PutInt32(field protoreflect.FieldDescriptor, v int32) error {
	s.msg.Set(field, int32FieldValue(field, v))
	return nil
}
func (s *messageSink) PutInt64(field protoreflect.FieldDescriptor, v int64) error {
	s.msg.Set(field, protoreflect.ValueOfInt64(v))
	return nil
}
func (s *messageSink) PutUint32(field protoreflect.FieldDescriptor, v uint32) error {
	s.msg.Set(field, protoreflect.ValueOfUint32(v))
	return nil
}
func (s *messageSink) PutUint64(field protoreflect.FieldDescriptor, v uint64) error {
	s.msg.Set(field, protoreflect.ValueOfUint64(v))
	return nil
}
func (s *messageSink) PutFloat(field protoreflect.FieldDescriptor, v float32) error {
	s.msg.Set(field, protoreflect.ValueOfFloat32(v))
	return nil
}
func (s *messageSink) PutDouble(field protoreflect.FieldDescriptor, v float64) error {
	s.msg.Set(field, protoreflect.ValueOfFloat64(v))
	return nil
}
func (s *messageSink) PutBool(field protoreflect.FieldDescriptor, v bool) error {
	s.msg.Set(field, protoreflect.ValueOfBool(v))
	return nil
}

// listSink backs a repeated (non-map) field's elements.
type listSink struct {
	list   protoreflect.List
	strBuf []byte
}

func (s *listSink) StartMessage() error { return nil }
func (s *listSink) EndMessage() error   { return nil }

func (s *listSink) StartSubMessage(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	v := s.list.NewElement()
	s.list.Append(v)
	return &messageSink{msg: v.Message()}, nil
}
func (s *listSink) EndSubMessage(field protoreflect.FieldDescriptor) error { return nil }

func (s *listSink) StartSequence(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	return nil, fmt.Errorf("%w: array of array not representable for field %s", protojson.ErrSchema, field.Name())
}
func (s *listSink) EndSequence(field protoreflect.FieldDescriptor) error { return nil }

func (s *listSink) StartString(field protoreflect.FieldDescriptor, sizeHint int) (protojson.Sink, error) {
	s.strBuf = s.strBuf[:0]
	return s, nil
}
func (s *listSink) EndString(field protoreflect.FieldDescriptor) error {
	s.list.Append(stringFieldValue(field, s.strBuf))
	s.strBuf = nil
	return nil
}
func (s *listSink) PutString(field protoreflect.FieldDescriptor, chunk []byte) error {
	s.strBuf = append(s.strBuf, chunk...)
	return nil
}

func (s *listSink) PutInt32(field protoreflect.FieldDescriptor, v int32) error {
	s.list.Append(int32FieldValue(field, v))
	return nil
}
func (s *listSink) PutInt64(field protoreflect.FieldDescriptor, v int64) error {
	s.list.Append(protoreflect.ValueOfInt64(v))
	return nil
}
func (s *listSink) PutUint32(field protoreflect.FieldDescriptor, v uint32) error {
	s.list.Append(protoreflect.ValueOfUint32(v))
	return nil
}
func (s *listSink) PutUint64(field protoreflect.FieldDescriptor, v uint64) error {
	s.list.Append(protoreflect.ValueOfUint64(v))
	return nil
}
func (s *listSink) PutFloat(field protoreflect.FieldDescriptor, v float32) error {
	s.list.Append(protoreflect.ValueOfFloat32(v))
	return nil
}
func (s *listSink) PutDouble(field protoreflect.FieldDescriptor, v float64) error {
	s.list.Append(protoreflect.ValueOfFloat64(v))
	return nil
}
func (s *listSink) PutBool(field protoreflect.FieldDescriptor, v bool) error {
	s.list.Append(protoreflect.ValueOfBool(v))
	return nil
}

// mapSink backs a map field's synthesized sequence of entries. Each
// StartSubMessage call opens one entry; the entry buffers its own key
// and value and is committed to the underlying protoreflect.Map only
// when the matching EndSubMessage arrives, signaling the entry (not
// just a message-typed value nested inside it) is complete.
type mapSink struct {
	m         protoreflect.Map
	entryDesc protoreflect.MessageDescriptor
	pending   *mapEntrySink
}

func (s *mapSink) StartMessage() error { return nil }
func (s *mapSink) EndMessage() error   { return nil }

func (s *mapSink) StartSubMessage(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	s.pending = &mapEntrySink{
		keyField: s.entryDesc.Fields().ByNumber(1),
		valField: s.entryDesc.Fields().ByNumber(2),
	}
	return s.pending, nil
}

func (s *mapSink) EndSubMessage(field protoreflect.FieldDescriptor) error {
	e := s.pending
	s.pending = nil
	if e == nil || !e.haveKey || !e.haveValue {
		return fmt.Errorf("%w: incomplete map entry for field %s", protojson.ErrSchema, field.Name())
	}
	s.m.Set(e.key, e.value)
	return nil
}

func (s *mapSink) StartSequence(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	return nil, fmt.Errorf("%w: map value directly on a map sequence for field %s", protojson.ErrSchema, field.Name())
}
func (s *mapSink) EndSequence(field protoreflect.FieldDescriptor) error { return nil }
func (s *mapSink) StartString(field protoreflect.FieldDescriptor, sizeHint int) (protojson.Sink, error) {
	return nil, fmt.Errorf("%w: string value directly on a map sequence for field %s", protojson.ErrSchema, field.Name())
}
func (s *mapSink) EndString(field protoreflect.FieldDescriptor) error { return nil }
func (s *mapSink) PutString(field protoreflect.FieldDescriptor, chunk []byte) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}
func (s *mapSink) PutInt32(field protoreflect.FieldDescriptor, v int32) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}
func (s *mapSink) PutInt64(field protoreflect.FieldDescriptor, v int64) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}
func (s *mapSink) PutUint32(field protoreflect.FieldDescriptor, v uint32) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}
func (s *mapSink) PutUint64(field protoreflect.FieldDescriptor, v uint64) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}
func (s *mapSink) PutFloat(field protoreflect.FieldDescriptor, v float32) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}
func (s *mapSink) PutDouble(field protoreflect.FieldDescriptor, v float64) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}
func (s *mapSink) PutBool(field protoreflect.FieldDescriptor, v bool) error {
	return fmt.Errorf("%w: scalar value directly on a map sequence for field %s", protojson.ErrSink, field.Name())
}

// mapEntrySink buffers one map entry's key and value as they arrive —
// key first (protobuf always numbers it field 1), value second (field
// 2, possibly itself a submessage) — and is discarded once its parent
// mapSink commits it.
type mapEntrySink struct {
	keyField protoreflect.FieldDescriptor
	valField protoreflect.FieldDescriptor

	key     protoreflect.MapKey
	haveKey bool

	value     protoreflect.Value
	haveValue bool

	strBuf []byte
}

func (s *mapEntrySink) StartMessage() error { return nil }
func (s *mapEntrySink) EndMessage() error   { return nil }

func (s *mapEntrySink) isKey(field protoreflect.FieldDescriptor) bool {
	return field.Number() == s.keyField.Number()
}

func (s *mapEntrySink) set(field protoreflect.FieldDescriptor, v protoreflect.Value) error {
	if s.isKey(field) {
		s.key = v.MapKey()
		s.haveKey = true
	} else {
		s.value = v
		s.haveValue = true
	}
	return nil
}

func (s *mapEntrySink) StartSubMessage(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	msg := dynamicpb.NewMessage(s.valField.Message())
	s.value = protoreflect.ValueOfMessage(msg)
	s.haveValue = true
	return &messageSink{msg: msg}, nil
}

// EndSubMessage closes the map value's own nested submessage, not the
// entry itself — the entry commits when mapSink.EndSubMessage fires.
func (s *mapEntrySink) EndSubMessage(field protoreflect.FieldDescriptor) error { return nil }

func (s *mapEntrySink) StartSequence(field protoreflect.FieldDescriptor) (protojson.Sink, error) {
	return nil, fmt.Errorf("%w: repeated map value not supported for field %s", protojson.ErrSchema, field.Name())
}
func (s *mapEntrySink) EndSequence(field protoreflect.FieldDescriptor) error { return nil }

func (s *mapEntrySink) StartString(field protoreflect.FieldDescriptor, sizeHint int) (protojson.Sink, error) {
	s.strBuf = s.strBuf[:0]
	return s, nil
}
func (s *mapEntrySink) EndString(field protoreflect.FieldDescriptor) error {
	err := s.set(field, stringFieldValue(field, s.strBuf))
	s.strBuf = nil
	return err
}
func (s *mapEntrySink) PutString(field protoreflect.FieldDescriptor, chunk []byte) error {
	s.strBuf = append(s.strBuf, chunk...)
	return nil
}

func (s *mapEntrySink) PutInt32(field protoreflect.FieldDescriptor, v int32) error {
	return s.set(field, int32FieldValue(field, v))
}
func (s *mapEntrySink) PutInt64(field protoreflect.FieldDescriptor, v int64) error {
	return s.set(field, protoreflect.ValueOfInt64(v))
}
func (s *mapEntrySink) PutUint32(field protoreflect.FieldDescriptor, v uint32) error {
	return s.set(field, protoreflect.ValueOfUint32(v))
}
func (s *mapEntrySink) PutUint64(field protoreflect.FieldDescriptor, v uint64) error {
	return s.set(field, protoreflect.ValueOfUint64(v))
}
func (s *mapEntrySink) PutFloat(field protoreflect.FieldDescriptor, v float32) error {
	return s.set(field, protoreflect.ValueOfFloat32(v))
}
func (s *mapEntrySink) PutDouble(field protoreflect.FieldDescriptor, v float64) error {
	return s.set(field, protoreflect.ValueOfFloat64(v))
}
func (s *mapEntrySink) PutBool(field protoreflect.FieldDescriptor, v bool) error {
	return s.set(field, protoreflect.ValueOfBool(v))
}

func stringFieldValue(field protoreflect.FieldDescriptor, buf []byte) protoreflect.Value {
	if field.Kind() == protoreflect.BytesKind {
		b := make([]byte, len(buf))
		copy(b, buf)
		return protoreflect.ValueOfBytes(b)
	}
	return protoreflect.ValueOfString(string(buf))
}

func int32FieldValue(field protoreflect.FieldDescriptor, v int32) protoreflect.Value {
	if field.Kind() == protoreflect.EnumKind {
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(v))
	}
	return protoreflect.ValueOfInt32(v)
}
