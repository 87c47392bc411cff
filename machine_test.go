package protojson

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/mcvoid/protojson/dynamicsink"
)

// buildRecursiveSchema returns a message type with a single field that
// nests another instance of itself, used only to drive the parser past
// its configured depth limit — none of buildTestSchema's types
// self-nest deeply enough for that.
func buildRecursiveSchema() protoreflect.MessageDescriptor {
	str := func(s string) *string { return &s }
	i32 := func(i int32) *int32 { return &i }
	opt := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	typ := descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	label := func(l descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto_Label { return &l }

	nodeDesc := &descriptorpb.DescriptorProto{
		Name: str("Node"),
		Field: []*descriptorpb.FieldDescriptorProto{
			{Name: str("child"), Number: i32(1), Label: label(opt), Type: &typ, TypeName: str(".protojson.testschema.recursive.Node"), JsonName: str("child")},
		},
	}
	fd := &descriptorpb.FileDescriptorProto{
		Name:        str("testschema_recursive.proto"),
		Package:     str("protojson.testschema.recursive"),
		Syntax:      str("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{nodeDesc},
	}
	file, err := protodesc.NewFile(fd, protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}
	return file.Messages().ByName("Node")
}

// parseDocument feeds doc through a fresh Parser for desc, split into
// chunks of size chunkSize (or as one chunk if chunkSize <= 0), and
// returns the populated message.
func parseDocument(t *testing.T, desc protoreflect.MessageDescriptor, doc string, chunkSize int) (*dynamicpb.Message, error) {
	t.Helper()
	msg, sink := dynamicsink.NewMessage(desc)
	method := NewParserMethod(desc)
	p := method.NewParser(sink)

	b := []byte(doc)
	if chunkSize <= 0 {
		chunkSize = len(b)
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	for len(b) > 0 {
		n := chunkSize
		if n > len(b) {
			n = len(b)
		}
		if _, err := p.Write(b[:n]); err != nil {
			return msg, err
		}
		b = b[n:]
	}
	if err := p.Close(); err != nil {
		return msg, err
	}
	return msg, nil
}

// everyChunkSplit runs check against every chunk size from 1 up to the
// full document length, asserting the resulting message is identical
// regardless of where the input happened to be split — the parser's
// output must not depend on Write call boundaries.
func everyChunkSplit(t *testing.T, desc protoreflect.MessageDescriptor, doc string, check func(t *testing.T, msg *dynamicpb.Message)) {
	t.Helper()
	for size := 1; size <= len(doc); size++ {
		size := size
		t.Run(sizeLabel(size), func(t *testing.T) {
			msg, err := parseDocument(t, desc, doc, size)
			if err != nil {
				t.Fatalf("Write/Close: %v", err)
			}
			check(t, msg)
		})
	}
}

func sizeLabel(n int) string {
	switch n {
	case 1:
		return "chunk1"
	default:
		return "chunk" + itoa(n)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestSimpleScalars(t *testing.T) {
	root := buildTestSchema()
	doc := `{"a":1,"b":"hi","flag":true,"doubleVal":2.5}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		fields := root.Fields()
		if v := msg.Get(fields.ByName("a")).Int(); v != 1 {
			t.Errorf("a = %d, want 1", v)
		}
		if v := msg.Get(fields.ByName("b")).String(); v != "hi" {
			t.Errorf("b = %q, want hi", v)
		}
		if v := msg.Get(fields.ByName("flag")).Bool(); !v {
			t.Errorf("flag = false, want true")
		}
		if v := msg.Get(fields.ByName("doubleVal")).Float(); v != 2.5 {
			t.Errorf("doubleVal = %v, want 2.5", v)
		}
	})
}

func TestNestedSubmessage(t *testing.T) {
	root := buildTestSchema()
	doc := `{"addr":{"street":"Main St","zip":"12345"}}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		addr := msg.Get(root.Fields().ByName("addr")).Message()
		af := addr.Descriptor().Fields()
		if v := addr.Get(af.ByName("street")).String(); v != "Main St" {
			t.Errorf("street = %q", v)
		}
		if v := addr.Get(af.ByName("zip")).String(); v != "12345" {
			t.Errorf("zip = %q", v)
		}
	})
}

func TestRepeatedScalarAndMessage(t *testing.T) {
	root := buildTestSchema()
	doc := `{"tags":["a","b","c"],"items":[{"name":"x","qty":1},{"name":"y","qty":2}]}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		tags := msg.Get(root.Fields().ByName("tags")).List()
		if tags.Len() != 3 || tags.Get(0).String() != "a" || tags.Get(2).String() != "c" {
			t.Errorf("tags = %v", tags)
		}
		items := msg.Get(root.Fields().ByName("items")).List()
		if items.Len() != 2 {
			t.Fatalf("items len = %d, want 2", items.Len())
		}
		itemFields := root.Fields().ByName("items").Message().Fields()
		if items.Get(1).Message().Get(itemFields.ByName("qty")).Int() != 2 {
			t.Errorf("items[1].qty wrong")
		}
	})
}

func TestScalarMap(t *testing.T) {
	root := buildTestSchema()
	doc := `{"counts":{"k":1,"l":2,"m":3}}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		m := msg.Get(root.Fields().ByName("counts")).Map()
		if m.Len() != 3 {
			t.Fatalf("map len = %d, want 3", m.Len())
		}
		if v := m.Get(protoreflect.ValueOfString("l").MapKey()).Int(); v != 2 {
			t.Errorf("counts[l] = %d, want 2", v)
		}
	})
}

func TestMessageValuedMap(t *testing.T) {
	root := buildTestSchema()
	doc := `{"people":{"alice":{"street":"1st","zip":"00001"},"bob":{"street":"2nd","zip":"00002"}}}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		m := msg.Get(root.Fields().ByName("people")).Map()
		if m.Len() != 2 {
			t.Fatalf("map len = %d, want 2", m.Len())
		}
		bob := m.Get(protoreflect.ValueOfString("bob").MapKey()).Message()
		if v := bob.Get(bob.Descriptor().Fields().ByName("zip")).String(); v != "00002" {
			t.Errorf("people[bob].zip = %q, want 00002", v)
		}
	})
}

func TestEnumByName(t *testing.T) {
	root := buildTestSchema()
	doc := `{"color":"GREEN"}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		v := msg.Get(root.Fields().ByName("color")).Enum()
		if v != 2 {
			t.Errorf("color = %d, want 2 (GREEN)", v)
		}
	})
}

func TestEnumByNumber(t *testing.T) {
	root := buildTestSchema()
	doc := `{"color":3}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		v := msg.Get(root.Fields().ByName("color")).Enum()
		if v != 3 {
			t.Errorf("color = %d, want 3 (BLUE)", v)
		}
	})
}

func TestBytesFieldBase64(t *testing.T) {
	root := buildTestSchema()
	// "hello" base64-encoded, chosen so the 4-char groups don't align
	// with every possible chunk split cleanly, exercising the
	// suspend/resume path.
	doc := `{"data":"aGVsbG8="}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		v := msg.Get(root.Fields().ByName("data")).Bytes()
		if string(v) != "hello" {
			t.Errorf("data = %q, want hello", v)
		}
	})
}

func TestUnicodeEscape(t *testing.T) {
	root := buildTestSchema()
	doc := "{\"b\":\"\\u0041\\u00e9\"}"
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		v := msg.Get(root.Fields().ByName("b")).String()
		want := "Aé"
		if v != want {
			t.Errorf("b = %q, want %q", v, want)
		}
	})
}

func TestSimpleEscapes(t *testing.T) {
	root := buildTestSchema()
	doc := `{"b":"line1\nline2\ttab\\slash\/end"}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		v := msg.Get(root.Fields().ByName("b")).String()
		want := "line1\nline2\ttab\\slash/end"
		if v != want {
			t.Errorf("b = %q, want %q", v, want)
		}
	})
}

func TestNullSkipsField(t *testing.T) {
	root := buildTestSchema()
	doc := `{"a":1,"b":null}`
	msg, err := parseDocument(t, root, doc, 0)
	if err != nil {
		t.Fatalf("Write/Close: %v", err)
	}
	if msg.Has(root.Fields().ByName("b")) {
		t.Errorf("b should be unset after explicit null")
	}
}

func TestSplitNumberAcrossChunks(t *testing.T) {
	root := buildTestSchema()
	doc := `{"a":123456}`
	everyChunkSplit(t, root, doc, func(t *testing.T, msg *dynamicpb.Message) {
		if v := msg.Get(root.Fields().ByName("a")).Int(); v != 123456 {
			t.Errorf("a = %d, want 123456", v)
		}
	})
}

func TestUnknownFieldRejected(t *testing.T) {
	root := buildTestSchema()
	_, err := parseDocument(t, root, `{"nope":1}`, 0)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestBoolOnNonBoolFieldRejected(t *testing.T) {
	root := buildTestSchema()
	_, err := parseDocument(t, root, `{"a":true}`, 0)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

func TestIntegerRejectsScientificNotation(t *testing.T) {
	root := buildTestSchema()
	_, err := parseDocument(t, root, `{"a":1e6}`, 0)
	if !errors.Is(err, ErrValue) {
		t.Fatalf("err = %v, want ErrValue", err)
	}
}

func TestDepthLimitExceeded(t *testing.T) {
	root := buildRecursiveSchema()
	method := NewParserMethod(root, WithMaxDepth(4))
	_, sink := dynamicsink.NewMessage(root)
	p := method.NewParser(sink)

	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString(`{"child":`)
	}
	_, err := p.Write([]byte(b.String()))
	if !errors.Is(err, ErrDepth) {
		t.Fatalf("err = %v, want ErrDepth", err)
	}
}

func TestMalformedBase64Padding(t *testing.T) {
	root := buildTestSchema()
	_, err := parseDocument(t, root, `{"data":"aGVs=G8="}`, 0)
	if !errors.Is(err, ErrValue) {
		t.Fatalf("err = %v, want ErrValue", err)
	}
}

func TestUnknownEnumName(t *testing.T) {
	root := buildTestSchema()
	_, err := parseDocument(t, root, `{"color":"PURPLE"}`, 0)
	if !errors.Is(err, ErrValue) {
		t.Fatalf("err = %v, want ErrValue", err)
	}
}

func TestTrailingCommaRejected(t *testing.T) {
	root := buildTestSchema()
	_, err := parseDocument(t, root, `{"a":1,}`, 0)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v, want ErrSyntax", err)
	}
}

func TestEquivalentDocumentsProduceEqualMessages(t *testing.T) {
	root := buildTestSchema()
	a, err := parseDocument(t, root, `{"a":1,"tags":["x","y"]}`, 3)
	if err != nil {
		t.Fatalf("a: %v", err)
	}
	b, err := parseDocument(t, root, ` { "a" : 1 , "tags" : [ "x" , "y" ] } `, 7)
	if err != nil {
		t.Fatalf("b: %v", err)
	}
	if !proto.Equal(a, b) {
		t.Errorf("messages differ:\na=%v\nb=%v", a, b)
	}
}
