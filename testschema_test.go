package protojson

import (
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// buildTestSchema constructs a small message graph entirely in memory
// via descriptorpb/protodesc — the same route google.golang.org/
// protobuf's own tests use to exercise dynamicpb without a .proto file
// and protoc — covering each field shape the parser handles: scalars
// (int32, string, bool, bytes, double), an enum, a nested message, a repeated scalar, a repeated
// message, and two map fields (scalar-valued and message-valued).
func buildTestSchema() protoreflect.MessageDescriptor {
	const pkg = "protojson.testschema"

	str := func(s string) *string { return &s }
	i32 := func(i int32) *int32 { return &i }
	yes := func() *bool { b := true; return &b }
	label := func(l descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto_Label {
		return &l
	}
	typ := func(t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto_Type {
		return &t
	}
	opt := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	rep := descriptorpb.FieldDescriptorProto_LABEL_REPEATED

	addrDesc := &descriptorpb.DescriptorProto{
		Name: str("Address"),
		Field: []*descriptorpb.FieldDescriptorProto{
			{Name: str("street"), Number: i32(1), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_STRING), JsonName: str("street")},
			{Name: str("zip"), Number: i32(2), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_STRING), JsonName: str("zip")},
		},
	}

	itemDesc := &descriptorpb.DescriptorProto{
		Name: str("Item"),
		Field: []*descriptorpb.FieldDescriptorProto{
			{Name: str("name"), Number: i32(1), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_STRING), JsonName: str("name")},
			{Name: str("qty"), Number: i32(2), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_INT32), JsonName: str("qty")},
		},
	}

	colorEnum := &descriptorpb.EnumDescriptorProto{
		Name: str("Color"),
		Value: []*descriptorpb.EnumValueDescriptorProto{
			{Name: str("UNKNOWN"), Number: i32(0)},
			{Name: str("RED"), Number: i32(1)},
			{Name: str("GREEN"), Number: i32(2)},
			{Name: str("BLUE"), Number: i32(3)},
		},
	}

	mapEntry := func(name string, keyType, valType descriptorpb.FieldDescriptorProto_Type, valTypeName string) *descriptorpb.DescriptorProto {
		valField := &descriptorpb.FieldDescriptorProto{
			Name: str("value"), Number: i32(2), Label: label(opt), Type: typ(valType), JsonName: str("value"),
		}
		if valTypeName != "" {
			valField.TypeName = str(valTypeName)
		}
		return &descriptorpb.DescriptorProto{
			Name: str(name),
			Field: []*descriptorpb.FieldDescriptorProto{
				{Name: str("key"), Number: i32(1), Label: label(opt), Type: typ(keyType), JsonName: str("key")},
				valField,
			},
			Options: &descriptorpb.MessageOptions{MapEntry: yes()},
		}
	}

	countsEntry := mapEntry("CountsEntry", descriptorpb.FieldDescriptorProto_TYPE_STRING, descriptorpb.FieldDescriptorProto_TYPE_INT32, "")
	peopleEntry := mapEntry("PeopleEntry", descriptorpb.FieldDescriptorProto_TYPE_STRING, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, "."+pkg+".Address")

	rootDesc := &descriptorpb.DescriptorProto{
		Name: str("Root"),
		Field: []*descriptorpb.FieldDescriptorProto{
			{Name: str("a"), Number: i32(1), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_INT32), JsonName: str("a")},
			{Name: str("b"), Number: i32(2), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_STRING), JsonName: str("b")},
			{Name: str("flag"), Number: i32(3), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_BOOL), JsonName: str("flag")},
			{Name: str("data"), Number: i32(4), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_BYTES), JsonName: str("data")},
			{Name: str("color"), Number: i32(5), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_ENUM), TypeName: str("." + pkg + ".Color"), JsonName: str("color")},
			{Name: str("addr"), Number: i32(6), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), TypeName: str("." + pkg + ".Address"), JsonName: str("addr")},
			{Name: str("tags"), Number: i32(7), Label: label(rep), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_STRING), JsonName: str("tags")},
			{Name: str("items"), Number: i32(8), Label: label(rep), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), TypeName: str("." + pkg + ".Item"), JsonName: str("items")},
			{Name: str("counts"), Number: i32(9), Label: label(rep), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), TypeName: str("." + pkg + ".Root.CountsEntry"), JsonName: str("counts")},
			{Name: str("people"), Number: i32(10), Label: label(rep), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), TypeName: str("." + pkg + ".Root.PeopleEntry"), JsonName: str("people")},
			{Name: str("double_val"), Number: i32(11), Label: label(opt), Type: typ(descriptorpb.FieldDescriptorProto_TYPE_DOUBLE), JsonName: str("doubleVal")},
		},
		NestedType: []*descriptorpb.DescriptorProto{countsEntry, peopleEntry},
	}

	fd := &descriptorpb.FileDescriptorProto{
		Name:        str("testschema.proto"),
		Package:     str(pkg),
		Syntax:      str("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{addrDesc, itemDesc, rootDesc},
		EnumType:    []*descriptorpb.EnumDescriptorProto{colorEnum},
	}

	file, err := protodesc.NewFile(fd, protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}
	return file.Messages().ByName("Root")
}
