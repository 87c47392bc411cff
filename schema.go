package protojson

import "google.golang.org/protobuf/reflect/protoreflect"

// nameTable maps a JSON member name (either the field's declared
// json_name or its proto name, whichever is presented) to the field
// descriptor it binds to. spec.md §4.7, component 6.
type nameTable map[string]protoreflect.FieldDescriptor

// schemaBinder owns the per-message-descriptor name tables, built
// eagerly by recursive descent over every message type reachable from
// a root descriptor — submessage fields, and the value side of map
// fields. spec.md §3 "ParserMethod ... owns ... name->fielddef tables
// for that descriptor and recursively all submessage descriptors
// reachable through it."
//
// Built once and read-only after construction: safe to share across
// every Parser built from the same ParserMethod without locking,
// matching spec.md §5's shared-resource policy.
type schemaBinder struct {
	tables map[protoreflect.FullName]nameTable
}

func newSchemaBinder(root protoreflect.MessageDescriptor) *schemaBinder {
	b := &schemaBinder{tables: make(map[protoreflect.FullName]nameTable)}
	b.build(root)
	return b
}

// build constructs (or returns the already-built) name table for md,
// recursing into every message-typed field — including map value types
// and the synthetic map-entry message itself — so that every reachable
// descriptor has a table ready before any parser runs.
func (b *schemaBinder) build(md protoreflect.MessageDescriptor) nameTable {
	if t, ok := b.tables[md.FullName()]; ok {
		return t
	}
	fields := md.Fields()
	t := make(nameTable, fields.Len()*2)
	// Inserted before recursing so a cyclic message graph (a message
	// that (indirectly) contains itself) terminates instead of looping.
	b.tables[md.FullName()] = t

	for i := 0; i < fields.Len(); i++ {
		f := fields.Get(i)
		t[f.JSONName()] = f
		if string(f.Name()) != f.JSONName() {
			t[string(f.Name())] = f
		}

		switch {
		case f.IsMap():
			b.build(f.Message()) // the synthetic map-entry message (key/value)
			if f.MapValue().Kind() == protoreflect.MessageKind || f.MapValue().Kind() == protoreflect.GroupKind {
				b.build(f.MapValue().Message())
			}
		case f.Kind() == protoreflect.MessageKind || f.Kind() == protoreflect.GroupKind:
			b.build(f.Message())
		}
	}
	return t
}

// table returns the name table for md, building it on demand if md was
// not reachable from the root descriptor this binder was constructed
// with (e.g. a google.protobuf.Any payload resolved at runtime).
func (b *schemaBinder) table(md protoreflect.MessageDescriptor) nameTable {
	if t, ok := b.tables[md.FullName()]; ok {
		return t
	}
	return b.build(md)
}

// lookup resolves name against md's name table.
func (b *schemaBinder) lookup(md protoreflect.MessageDescriptor, name string) (protoreflect.FieldDescriptor, bool) {
	f, ok := b.table(md)[name]
	return f, ok
}
