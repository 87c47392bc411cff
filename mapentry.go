package protojson

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// mapKeyFieldNumber and mapValueFieldNumber are the field numbers the
// protobuf compiler always assigns to a map entry's synthetic key and
// value fields — fixed by the language, not looked up by name.
const (
	mapKeyFieldNumber   protoreflect.FieldNumber = 1
	mapValueFieldNumber protoreflect.FieldNumber = 2
)

// handleMapEntry synthesizes one repeated map-entry submessage for a
// JSON object member encountered while the current frame is a map
// field's sequence (current().isMap == true). spec.md §4.8, component
// 9's JSON-object-as-map binding.
//
// name is the already-accumulated, already-unescaped member name text;
// it becomes the map key, coerced according to the key field's declared
// type rather than delivered as a generic string.
func (p *Parser) handleMapEntry(name string) error {
	seq := p.frames.current()
	mapField := seq.mapField
	entryDesc := seq.msg

	child, err := seq.sink.StartSubMessage(mapField)
	if err != nil {
		return wrapSinkErr(err)
	}
	if err := child.StartMessage(); err != nil {
		return wrapSinkErr(err)
	}
	if err := p.frames.push(frame{
		sink:     child,
		msg:      entryDesc,
		names:    p.method.binder.table(entryDesc),
		kind:     frameKindObject,
		ownField: mapField,
		mapField: mapField,
	}); err != nil {
		return err
	}

	entry := p.frames.current()
	keyField := entryDesc.Fields().ByNumber(mapKeyFieldNumber)
	valueField := entryDesc.Fields().ByNumber(mapValueFieldNumber)
	if keyField == nil || valueField == nil {
		return fmt.Errorf("%w: mapentry message %s has no key/value", ErrSchema, entryDesc.FullName())
	}

	// is_mapentry stays false for the duration of key emission so that
	// the generic string/bool/number handlers invoked for the key don't
	// mistake this frame for one awaiting end-member popping.
	if err := p.emitMapKey(entry, keyField, name); err != nil {
		return err
	}

	entry.field = valueField
	entry.isMapEntry = true
	return nil
}

// emitMapKey coerces the JSON member name text into keyField's declared
// type and delivers it to entry.sink via the handler that type's
// coercion path uses.
func (p *Parser) emitMapKey(entry *frame, keyField protoreflect.FieldDescriptor, name string) error {
	switch keyField.Kind() {
	case protoreflect.StringKind, protoreflect.BytesKind:
		child, err := entry.sink.StartString(keyField, len(name))
		if err != nil {
			return wrapSinkErr(err)
		}
		if len(name) > 0 {
			if err := child.PutString(keyField, []byte(name)); err != nil {
				return wrapSinkErr(err)
			}
		}
		return wrapSinkErr(entry.sink.EndString(keyField))

	case protoreflect.BoolKind:
		switch name {
		case "true":
			return wrapSinkErr(entry.sink.PutBool(keyField, true))
		case "false":
			return wrapSinkErr(entry.sink.PutBool(keyField, false))
		default:
			return fmt.Errorf("%w: map bool key not \"true\" or \"false\": %q", ErrSchema, name)
		}

	default:
		// Integer-keyed maps present their key as a quoted JSON string
		// ("123"), same text, same coercion path as a bare number.
		return parseNumber([]byte(name), keyField, entry.sink)
	}
}
