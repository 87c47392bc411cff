package protojson

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// lexState is the parser's lexical position: what kind of token is
// expected (or in progress) at the next input byte. This replaces the
// teacher's stateTransitionTable array with a hand-written switch per
// state, an allowed re-architecture for readability over a literal
// ported transition table.
type lexState uint8

const (
	lsRootStart lexState = iota
	lsObjectKeyOrEnd
	lsObjectKeyStart
	lsObjectColon
	lsObjectCommaOrEnd
	lsArrayFirstOrEnd
	lsArrayCommaOrEnd
	lsValue
	lsString
	lsStringEscape
	lsStringUnicode1
	lsStringUnicode2
	lsStringUnicode3
	lsStringUnicode4
	lsNumberMinus
	lsNumberZero
	lsNumberInt
	lsNumberFracStart
	lsNumberFrac
	lsNumberExpSign
	lsNumberExpStart
	lsNumberExp
	lsLiteral
	lsEndDocument
)

type stringRole uint8

const (
	roleKey stringRole = iota
	roleValue
)

type literalKind uint8

const (
	litNone literalKind = iota
	litTrue
	litFalse
	litNull
)

var simpleEscapes = map[byte]byte{
	'"': '"', '\\': '\\', '/': '/',
	'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t',
}

// Parser drives one streaming JSON-to-protobuf-message conversion. It
// holds no buffered copy of the input beyond what a chunk-spanning
// token requires, and delivers every decoded value to a Sink as soon
// as its bytes are seen. spec.md §3, §7.
//
// A Parser is not safe for concurrent use; build one per document
// (ParserMethod.NewParser or Reset to reuse the allocation).
type Parser struct {
	method   *ParserMethod
	rootSink Sink

	frames *frameStack
	ls     lexState
	pos    int
	err    error
	closed bool

	router  multipartRouter
	capture capture

	stringRole       stringRole
	stringField      protoreflect.FieldDescriptor
	stringParentSink Sink

	unicodeAcc uint16

	litTarget   string
	litKind     literalKind
	litProgress int

	onTrace func(event string, pos int)
}

func (p *Parser) trace(event string) {
	if p.onTrace != nil {
		p.onTrace(event, p.pos)
	}
}

// resetState returns the parser to its just-constructed condition so
// it can be reused for a new document (the Parser.Reset supplemental
// feature in SPEC_FULL.md).
func (p *Parser) resetState() {
	p.frames.reset()
	p.ls = lsRootStart
	p.pos = 0
	p.err = nil
	p.closed = false
	p.router.end()
	p.capture.abort()
	p.stringRole = roleKey
	p.stringField = nil
	p.stringParentSink = nil
	p.unicodeAcc = 0
	p.litTarget = ""
	p.litKind = litNone
	p.litProgress = 0
}

// Write feeds the next chunk of input. It returns the number of bytes
// consumed before any error; on error fewer bytes than len(chunk) may
// have been consumed, and every subsequent call returns the same error
// (spec.md §7: no local recovery once a document fails). chunk need
// not be retained by the caller after Write returns — any bytes the
// parser must keep past a buffer seam are copied out via the
// accumulator before Write returns.
func (p *Parser) Write(chunk []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if p.err != nil {
		return 0, p.err
	}

	p.capture.resume(0)

	i := 0
	for i < len(chunk) {
		advance, err := p.step(chunk, i)
		if err != nil {
			p.capture.abort()
			p.err = err
			return i, err
		}
		if advance {
			i++
			p.pos++
		}
	}

	if p.capture.active() {
		forwarded, rewindTo, wasActive := p.capture.suspend(chunk)
		if wasActive {
			if err := p.router.text(forwarded, false); err != nil {
				p.capture.abort()
				p.err = err
				return rewindTo, err
			}
		}
	}
	// Accumulated text that still aliases chunk (the chunk ended inside
	// an escape sequence) is copied out before chunk is released.
	if p.router.acc.aliased {
		held := p.router.acc.get()
		p.router.acc.clear()
		if err := p.router.acc.append(held, false); err != nil {
			p.err = err
			return len(chunk), err
		}
	}
	return len(chunk), nil
}

// Done reports whether a complete document (root message plus only
// trailing whitespace) has been consumed.
func (p *Parser) Done() bool {
	return p.err == nil && p.ls == lsEndDocument
}

func (p *Parser) step(chunk []byte, i int) (bool, error) {
	switch p.ls {
	case lsRootStart:
		return p.stepRootStart(chunk, i)
	case lsObjectKeyOrEnd:
		return p.stepObjectKeyOrEnd(chunk, i)
	case lsObjectKeyStart:
		return p.stepObjectKeyStart(chunk, i)
	case lsObjectColon:
		return p.stepObjectColon(chunk, i)
	case lsObjectCommaOrEnd:
		return p.stepObjectCommaOrEnd(chunk, i)
	case lsArrayFirstOrEnd:
		return p.stepArrayFirstOrEnd(chunk, i)
	case lsArrayCommaOrEnd:
		return p.stepArrayCommaOrEnd(chunk, i)
	case lsValue:
		return p.stepValue(chunk, i)
	case lsString:
		return p.stepString(chunk, i)
	case lsStringEscape:
		return p.stepStringEscape(chunk, i)
	case lsStringUnicode1, lsStringUnicode2, lsStringUnicode3, lsStringUnicode4:
		return p.stepStringUnicode(chunk, i)
	case lsNumberMinus:
		return p.stepNumberMinus(chunk, i)
	case lsNumberZero:
		return p.stepNumberZero(chunk, i)
	case lsNumberInt:
		return p.stepNumberInt(chunk, i)
	case lsNumberFracStart:
		return p.stepNumberFracStart(chunk, i)
	case lsNumberFrac:
		return p.stepNumberFrac(chunk, i)
	case lsNumberExpSign:
		return p.stepNumberExpSign(chunk, i)
	case lsNumberExpStart:
		return p.stepNumberExpStart(chunk, i)
	case lsNumberExp:
		return p.stepNumberExp(chunk, i)
	case lsLiteral:
		return p.stepLiteral(chunk, i)
	case lsEndDocument:
		return p.stepEndDocument(chunk, i)
	default:
		return false, fmt.Errorf("%w: internal error: unknown lex state", ErrSyntax)
	}
}

func (p *Parser) stepRootStart(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	if b != '{' {
		return false, fmt.Errorf("%w: expected '{' to start root message at byte %d", ErrSyntax, p.pos)
	}
	if err := p.rootSink.StartMessage(); err != nil {
		return false, wrapSinkErr(err)
	}
	if err := p.frames.push(frame{
		sink:  p.rootSink,
		msg:   p.method.root,
		names: p.method.binder.table(p.method.root),
		kind:  frameKindObject,
	}); err != nil {
		return false, err
	}
	p.trace("start_root")
	p.ls = lsObjectKeyOrEnd
	return true, nil
}

func (p *Parser) stepEndDocument(chunk []byte, i int) (bool, error) {
	if isWS(chunk[i]) {
		return true, nil
	}
	return false, fmt.Errorf("%w: unexpected trailing data at byte %d", ErrSyntax, p.pos)
}

func (p *Parser) stepObjectKeyOrEnd(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	switch b {
	case '"':
		return p.beginKeyCapture(i)
	case '}':
		if err := p.performCloseObjectOrRoot(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: expected string key or '}' at byte %d", ErrSyntax, p.pos)
	}
}

func (p *Parser) stepObjectKeyStart(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	if b != '"' {
		return false, fmt.Errorf("%w: expected string key at byte %d", ErrSyntax, p.pos)
	}
	return p.beginKeyCapture(i)
}

func (p *Parser) beginKeyCapture(i int) (bool, error) {
	p.router.startAccumulate()
	p.stringRole = roleKey
	if err := p.capture.begin(i + 1); err != nil {
		return false, err
	}
	p.ls = lsString
	return true, nil
}

func (p *Parser) stepObjectColon(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	if b != ':' {
		return false, fmt.Errorf("%w: expected ':' at byte %d", ErrSyntax, p.pos)
	}
	p.ls = lsValue
	return true, nil
}

func (p *Parser) stepObjectCommaOrEnd(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	switch b {
	case ',':
		p.ls = lsObjectKeyStart
		return true, nil
	case '}':
		if err := p.performCloseObjectOrRoot(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: expected ',' or '}' at byte %d", ErrSyntax, p.pos)
	}
}

func (p *Parser) stepArrayFirstOrEnd(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	if b == ']' {
		if err := p.performCloseArray(); err != nil {
			return false, err
		}
		return true, nil
	}
	p.ls = lsValue
	return false, nil
}

func (p *Parser) stepArrayCommaOrEnd(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	switch b {
	case ',':
		p.ls = lsValue
		return true, nil
	case ']':
		if err := p.performCloseArray(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: expected ',' or ']' at byte %d", ErrSyntax, p.pos)
	}
}

// stepValue dispatches on the first byte of a value: the target field
// is always current().field, set by the enclosing object (from the
// preceding member name) or by the enclosing array (fixed for the
// whole array). spec.md §4.6/§4.7, components 5/6.
func (p *Parser) stepValue(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if isWS(b) {
		return true, nil
	}
	cur := p.frames.current()
	field := cur.field
	if field == nil {
		return false, fmt.Errorf("%w: internal error: no target field at byte %d", ErrSchema, p.pos)
	}

	switch {
	case b == '{':
		if field.IsMap() {
			if err := p.pushMapSequence(field); err != nil {
				return false, err
			}
		} else if field.Kind() == protoreflect.MessageKind || field.Kind() == protoreflect.GroupKind {
			if err := p.pushSubMessage(field); err != nil {
				return false, err
			}
		} else {
			return false, fmt.Errorf("%w: object value for non-message field %s at byte %d", ErrSchema, field.Name(), p.pos)
		}
		p.ls = lsObjectKeyOrEnd
		return true, nil

	case b == '[':
		if field.IsMap() {
			return false, fmt.Errorf("%w: array value for map field %s at byte %d", ErrSchema, field.Name(), p.pos)
		}
		if field.Cardinality() != protoreflect.Repeated {
			return false, fmt.Errorf("%w: array value for non-repeated field %s at byte %d", ErrSchema, field.Name(), p.pos)
		}
		if err := p.pushArraySequence(field); err != nil {
			return false, err
		}
		p.ls = lsArrayFirstOrEnd
		return true, nil

	case b == '"':
		return p.beginValueStringCapture(field, i)

	case b == '-' || isDigit(b):
		if err := validateNumberField(field); err != nil {
			return false, fmt.Errorf("%w at byte %d", err, p.pos)
		}
		p.router.startAccumulate()
		if err := p.capture.begin(i); err != nil {
			return false, err
		}
		switch {
		case b == '-':
			p.ls = lsNumberMinus
		case b == '0':
			p.ls = lsNumberZero
		default:
			p.ls = lsNumberInt
		}
		return true, nil

	case b == 't':
		if field.Kind() != protoreflect.BoolKind {
			return false, fmt.Errorf("%w: bool value for non-bool field %s at byte %d", ErrSchema, field.Name(), p.pos)
		}
		p.litTarget, p.litKind, p.litProgress = "rue", litTrue, 0
		p.ls = lsLiteral
		return true, nil

	case b == 'f':
		if field.Kind() != protoreflect.BoolKind {
			return false, fmt.Errorf("%w: bool value for non-bool field %s at byte %d", ErrSchema, field.Name(), p.pos)
		}
		p.litTarget, p.litKind, p.litProgress = "alse", litFalse, 0
		p.ls = lsLiteral
		return true, nil

	case b == 'n':
		// Explicit null is legal for any field: it means the member is
		// left unset, the same as if it had been omitted.
		p.litTarget, p.litKind, p.litProgress = "ull", litNull, 0
		p.ls = lsLiteral
		return true, nil

	default:
		return false, fmt.Errorf("%w: unexpected character %q at byte %d", ErrSyntax, b, p.pos)
	}
}

func validateNumberField(field protoreflect.FieldDescriptor) error {
	switch field.Kind() {
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind,
		protoreflect.FloatKind, protoreflect.DoubleKind, protoreflect.EnumKind:
		return nil
	default:
		return fmt.Errorf("%w: number value for non-numeric field %s", ErrSchema, field.Name())
	}
}

func (p *Parser) beginValueStringCapture(field protoreflect.FieldDescriptor, i int) (bool, error) {
	cur := p.frames.current()
	switch field.Kind() {
	case protoreflect.StringKind:
		child, err := cur.sink.StartString(field, 0)
		if err != nil {
			return false, wrapSinkErr(err)
		}
		p.router.startPushEagerly(child, field)
	case protoreflect.BytesKind, protoreflect.EnumKind:
		p.router.startAccumulate()
	default:
		return false, fmt.Errorf("%w: string value for field %s at byte %d", ErrSchema, field.Name(), p.pos)
	}
	p.stringRole = roleValue
	p.stringField = field
	p.stringParentSink = cur.sink
	if err := p.capture.begin(i + 1); err != nil {
		return false, err
	}
	p.ls = lsString
	return true, nil
}

func (p *Parser) stepString(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	switch {
	case b == '"':
		if err := p.capture.end(chunk, i, &p.router); err != nil {
			return false, err
		}
		if p.stringRole == roleKey {
			return true, p.finishKey()
		}
		return true, p.finishStringValue()
	case b == '\\':
		if err := p.capture.end(chunk, i, &p.router); err != nil {
			return false, err
		}
		p.ls = lsStringEscape
		return true, nil
	case b < 0x20:
		return false, fmt.Errorf("%w: control character in string at byte %d", ErrSyntax, p.pos)
	default:
		return true, nil
	}
}

func (p *Parser) stepStringEscape(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if b == 'u' {
		p.unicodeAcc = 0
		p.ls = lsStringUnicode1
		return true, nil
	}
	decoded, ok := simpleEscapes[b]
	if !ok {
		return false, fmt.Errorf("%w: invalid escape character %q at byte %d", ErrSyntax, b, p.pos)
	}
	if err := p.router.text([]byte{decoded}, false); err != nil {
		return false, err
	}
	if err := p.capture.begin(i + 1); err != nil {
		return false, err
	}
	p.ls = lsString
	return true, nil
}

// stepStringUnicode accumulates one of a \uXXXX escape's four hex
// digits. Each completed escape is encoded independently as 1-3 bytes
// of UTF-8 the instant its fourth digit lands — surrogate halves of an
// astral character are never combined, matching spec.md §4.6's
// acknowledged divergence from RFC 8259 (each 16-bit unit is treated
// as its own code point).
func (p *Parser) stepStringUnicode(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	v := hexVal(b)
	if v < 0 {
		return false, fmt.Errorf("%w: invalid unicode escape digit %q at byte %d", ErrSyntax, b, p.pos)
	}
	p.unicodeAcc = p.unicodeAcc<<4 | uint16(v)
	switch p.ls {
	case lsStringUnicode1:
		p.ls = lsStringUnicode2
		return true, nil
	case lsStringUnicode2:
		p.ls = lsStringUnicode3
		return true, nil
	case lsStringUnicode3:
		p.ls = lsStringUnicode4
		return true, nil
	default: // lsStringUnicode4
		encoded := encodeUTF8BMP(p.unicodeAcc)
		if err := p.router.text(encoded, false); err != nil {
			return false, err
		}
		if err := p.capture.begin(i + 1); err != nil {
			return false, err
		}
		p.ls = lsString
		return true, nil
	}
}

func (p *Parser) finishKey() error {
	name := string(p.router.accumulated())
	p.router.end()
	f := p.frames.current()
	if f.isMap {
		if err := p.handleMapEntry(name); err != nil {
			return err
		}
	} else {
		field, ok := p.method.binder.lookup(f.msg, name)
		if !ok {
			return fmt.Errorf("%w: unknown field %q for message %s at byte %d", ErrSchema, name, f.msg.FullName(), p.pos)
		}
		f.field = field
	}
	p.ls = lsObjectColon
	return nil
}

func (p *Parser) finishStringValue() error {
	field := p.stringField
	parentSink := p.stringParentSink

	switch field.Kind() {
	case protoreflect.StringKind:
		if err := parentSink.EndString(field); err != nil {
			return wrapSinkErr(err)
		}

	case protoreflect.BytesKind:
		raw := p.router.accumulated()
		child, err := parentSink.StartString(field, len(raw))
		if err != nil {
			return wrapSinkErr(err)
		}
		if err := decodeBase64(raw, field, child); err != nil {
			return err
		}
		if err := parentSink.EndString(field); err != nil {
			return wrapSinkErr(err)
		}

	case protoreflect.EnumKind:
		name := string(p.router.accumulated())
		ev := field.Enum().Values().ByName(protoreflect.Name(name))
		if ev == nil {
			return fmt.Errorf("%w: unknown enum name %q for field %s at byte %d", ErrValue, name, field.Name(), p.pos)
		}
		if err := parentSink.PutInt32(field, int32(ev.Number())); err != nil {
			return wrapSinkErr(err)
		}
	}

	p.router.end()
	p.stringField = nil
	p.stringParentSink = nil
	return p.finishValueTransition()
}

func (p *Parser) stepLiteral(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	if b != p.litTarget[p.litProgress] {
		return false, fmt.Errorf("%w: invalid literal at byte %d", ErrSyntax, p.pos)
	}
	p.litProgress++
	if p.litProgress < len(p.litTarget) {
		return true, nil
	}
	return true, p.finishLiteral()
}

func (p *Parser) finishLiteral() error {
	cur := p.frames.current()
	switch p.litKind {
	case litTrue:
		if err := cur.sink.PutBool(cur.field, true); err != nil {
			return wrapSinkErr(err)
		}
	case litFalse:
		if err := cur.sink.PutBool(cur.field, false); err != nil {
			return wrapSinkErr(err)
		}
	case litNull:
		// left unset
	}
	p.litKind = litNone
	return p.finishValueTransition()
}

func isNumberTerminator(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', ',', '}', ']':
		return true
	}
	return false
}

func (p *Parser) finishNumber(chunk []byte, i int) error {
	if err := p.capture.end(chunk, i, &p.router); err != nil {
		return err
	}
	cur := p.frames.current()
	if err := parseNumber(p.router.accumulated(), cur.field, cur.sink); err != nil {
		return err
	}
	p.router.end()
	return p.finishValueTransition()
}

func (p *Parser) stepNumberMinus(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	switch {
	case b == '0':
		p.ls = lsNumberZero
		return true, nil
	case isDigit(b):
		p.ls = lsNumberInt
		return true, nil
	default:
		return false, fmt.Errorf("%w: expected digit after '-' at byte %d", ErrSyntax, p.pos)
	}
}

func (p *Parser) stepNumberZero(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	switch {
	case b == '.':
		p.ls = lsNumberFracStart
		return true, nil
	case b == 'e' || b == 'E':
		p.ls = lsNumberExpSign
		return true, nil
	case isDigit(b):
		return false, fmt.Errorf("%w: leading zero in number at byte %d", ErrSyntax, p.pos)
	case isNumberTerminator(b):
		return false, p.finishNumber(chunk, i)
	default:
		return false, fmt.Errorf("%w: unexpected character %q in number at byte %d", ErrSyntax, b, p.pos)
	}
}

func (p *Parser) stepNumberInt(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	switch {
	case isDigit(b):
		return true, nil
	case b == '.':
		p.ls = lsNumberFracStart
		return true, nil
	case b == 'e' || b == 'E':
		p.ls = lsNumberExpSign
		return true, nil
	case isNumberTerminator(b):
		return false, p.finishNumber(chunk, i)
	default:
		return false, fmt.Errorf("%w: unexpected character %q in number at byte %d", ErrSyntax, b, p.pos)
	}
}

func (p *Parser) stepNumberFracStart(chunk []byte, i int) (bool, error) {
	if !isDigit(chunk[i]) {
		return false, fmt.Errorf("%w: expected digit after decimal point at byte %d", ErrSyntax, p.pos)
	}
	p.ls = lsNumberFrac
	return true, nil
}

func (p *Parser) stepNumberFrac(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	switch {
	case isDigit(b):
		return true, nil
	case b == 'e' || b == 'E':
		p.ls = lsNumberExpSign
		return true, nil
	case isNumberTerminator(b):
		return false, p.finishNumber(chunk, i)
	default:
		return false, fmt.Errorf("%w: unexpected character %q in number at byte %d", ErrSyntax, b, p.pos)
	}
}

func (p *Parser) stepNumberExpSign(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	switch {
	case b == '+' || b == '-':
		p.ls = lsNumberExpStart
		return true, nil
	case isDigit(b):
		p.ls = lsNumberExp
		return true, nil
	default:
		return false, fmt.Errorf("%w: expected digit or sign in exponent at byte %d", ErrSyntax, p.pos)
	}
}

func (p *Parser) stepNumberExpStart(chunk []byte, i int) (bool, error) {
	if !isDigit(chunk[i]) {
		return false, fmt.Errorf("%w: expected digit in exponent at byte %d", ErrSyntax, p.pos)
	}
	p.ls = lsNumberExp
	return true, nil
}

func (p *Parser) stepNumberExp(chunk []byte, i int) (bool, error) {
	b := chunk[i]
	switch {
	case isDigit(b):
		return true, nil
	case isNumberTerminator(b):
		return false, p.finishNumber(chunk, i)
	default:
		return false, fmt.Errorf("%w: unexpected character %q in number at byte %d", ErrSyntax, b, p.pos)
	}
}

// pushSubMessage opens a singular (or repeated-element) message-typed
// field. The parent's Start/EndSubMessage pair brackets it; the sink
// returned is used only for the submessage's own content.
func (p *Parser) pushSubMessage(field protoreflect.FieldDescriptor) error {
	parent := p.frames.current()
	child, err := parent.sink.StartSubMessage(field)
	if err != nil {
		return wrapSinkErr(err)
	}
	if err := child.StartMessage(); err != nil {
		return wrapSinkErr(err)
	}
	if err := p.frames.push(frame{
		sink:     child,
		msg:      field.Message(),
		names:    p.method.binder.table(field.Message()),
		kind:     frameKindObject,
		ownField: field,
	}); err != nil {
		return err
	}
	p.trace("start_submessage")
	return nil
}

// pushMapSequence opens a map field's JSON object: it is bracketed by
// Start/EndSequence (not a submessage bracket), and each "key": value
// pair inside it synthesizes one map-entry submessage via
// handleMapEntry. spec.md §4.8, component 9.
func (p *Parser) pushMapSequence(field protoreflect.FieldDescriptor) error {
	parent := p.frames.current()
	child, err := parent.sink.StartSequence(field)
	if err != nil {
		return wrapSinkErr(err)
	}
	if err := p.frames.push(frame{
		sink:     child,
		msg:      field.Message(),
		kind:     frameKindObject,
		ownField: field,
		isMap:    true,
		mapField: field,
	}); err != nil {
		return err
	}
	p.trace("start_map")
	return nil
}

// pushArraySequence opens a repeated field's JSON array. field is
// reused as the target for every element, scalar or message.
func (p *Parser) pushArraySequence(field protoreflect.FieldDescriptor) error {
	parent := p.frames.current()
	child, err := parent.sink.StartSequence(field)
	if err != nil {
		return wrapSinkErr(err)
	}
	if err := p.frames.push(frame{
		sink:     child,
		field:    field,
		kind:     frameKindArray,
		ownField: field,
	}); err != nil {
		return err
	}
	p.trace("start_array")
	return nil
}

// performCloseObjectOrRoot handles a '}': closing the root message,
// an ordinary submessage, or a map field's synthesized sequence (the
// three shapes a JSON object can be bound to). spec.md §4.7/§4.8.
func (p *Parser) performCloseObjectOrRoot() error {
	popped := p.frames.pop()

	if popped.isMap {
		parent := p.frames.current()
		if err := parent.sink.EndSequence(popped.ownField); err != nil {
			return wrapSinkErr(err)
		}
		p.trace("end_map")
		return p.finishValueTransition()
	}

	if err := popped.sink.EndMessage(); err != nil {
		return wrapSinkErr(err)
	}
	if p.frames.depth() == 0 {
		p.trace("end_root")
		p.ls = lsEndDocument
		return nil
	}

	parent := p.frames.current()
	if err := parent.sink.EndSubMessage(popped.ownField); err != nil {
		return wrapSinkErr(err)
	}
	p.trace("end_submessage")
	return p.finishValueTransition()
}

func (p *Parser) performCloseArray() error {
	popped := p.frames.pop()
	parent := p.frames.current()
	if err := parent.sink.EndSequence(popped.ownField); err != nil {
		return wrapSinkErr(err)
	}
	p.trace("end_array")
	return p.finishValueTransition()
}

// finishValueTransition is called once a value has been fully
// delivered for the frame now on top of the stack. A synthesized
// map-entry frame is popped immediately — it only ever holds one
// key/value pair — after which its enclosing map's comma/end state
// governs. Otherwise the transition depends on whether the enclosing
// container is a JSON object (expect ',' or '}', and the consumed
// member's field is cleared) or array (expect ',' or ']', field is
// left set for the next element).
func (p *Parser) finishValueTransition() error {
	f := p.frames.current()
	if f.isMapEntry {
		popped := p.frames.pop()
		if err := popped.sink.EndMessage(); err != nil {
			return wrapSinkErr(err)
		}
		parent := p.frames.current()
		if err := parent.sink.EndSubMessage(popped.ownField); err != nil {
			return wrapSinkErr(err)
		}
		p.trace("end_mapentry")
		p.ls = lsObjectCommaOrEnd
		return nil
	}
	if f.kind == frameKindObject {
		f.field = nil
		p.ls = lsObjectCommaOrEnd
	} else {
		p.ls = lsArrayCommaOrEnd
	}
	return nil
}

func wrapSinkErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSink, err)
}

func isWS(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func hexVal(b byte) int8 {
	switch {
	case b >= '0' && b <= '9':
		return int8(b - '0')
	case b >= 'a' && b <= 'f':
		return int8(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int8(b-'A') + 10
	default:
		return -1
	}
}

// encodeUTF8BMP hand-encodes a 16-bit \uXXXX escape's code unit as
// 1-3 bytes of UTF-8 using the plain bit-packing formula, not
// unicode/utf8: stdlib's EncodeRune rejects surrogate halves (it
// substitutes the replacement character), while each half must be
// encoded on its own here regardless of whether it's part of a
// surrogate pair. See spec.md §4.6.
func encodeUTF8BMP(u uint16) []byte {
	switch {
	case u < 0x80:
		return []byte{byte(u)}
	case u < 0x800:
		return []byte{
			byte(0xC0 | (u >> 6)),
			byte(0x80 | (u & 0x3F)),
		}
	default:
		return []byte{
			byte(0xE0 | (u >> 12)),
			byte(0x80 | ((u >> 6) & 0x3F)),
			byte(0x80 | (u & 0x3F)),
		}
	}
}
