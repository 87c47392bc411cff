package protojson

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// b64Table maps an ASCII byte to its 6-bit base64 value, or -1 if the
// byte is not part of the base64 alphabet. spec.md §4.4, component 4.
var b64Table = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// decodeBase64 decodes the accumulated text of a bytes field and
// forwards the decoded bytes to sink.PutString(field, ...) in one
// chunk per 4-character group (1, 2, or 3 decoded bytes per chunk).
// Padding follows the standard rules: "==" in the last group's final
// two positions yields one output byte, a single "=" in the last
// group's final position yields two, and any other placement of "="
// is rejected. The decoder is fully buffered (spec.md's acknowledged
// non-goal of streaming base64): the whole value must already be in
// text.
func decodeBase64(text []byte, field protoreflect.FieldDescriptor, sink Sink) error {
	if len(text)%4 != 0 {
		return fmt.Errorf("%w: base64 input not a multiple of 4 for field %s", ErrValue, field.Name())
	}

	var out [3]byte
	for i := 0; i < len(text); i += 4 {
		group := text[i : i+4]
		isLastGroup := i+4 == len(text)

		c0, c1, c2, c3 := group[0], group[1], group[2], group[3]
		if c0 == '=' || c1 == '=' {
			return fmt.Errorf("%w: incorrect base64 padding for field %s", ErrValue, field.Name())
		}

		n := 3
		switch {
		case c2 == '=':
			if c3 != '=' || !isLastGroup {
				return fmt.Errorf("%w: incorrect base64 padding for field %s", ErrValue, field.Name())
			}
			n = 1
		case c3 == '=':
			if !isLastGroup {
				return fmt.Errorf("%w: incorrect base64 padding for field %s", ErrValue, field.Name())
			}
			n = 2
		}

		v0, v1 := b64Table[c0], b64Table[c1]
		var v2, v3 int8
		if n >= 2 {
			v2 = b64Table[c2]
		}
		if n >= 3 {
			v3 = b64Table[c3]
		}
		// A single OR across all four lookups would let the sentinel's
		// high bit (-1 is all-ones in two's complement) flag any invalid
		// character in one branch; Go's bounds-checked int8 comparisons
		// make that micro-optimization unnecessary, so each is checked
		// directly instead.
		if v0 < 0 || v1 < 0 || (n >= 2 && v2 < 0) || (n >= 3 && v3 < 0) {
			return fmt.Errorf("%w: non-base64 characters in field %s", ErrValue, field.Name())
		}

		word := uint32(v0)<<18 | uint32(v1)<<12 | uint32(v2)<<6 | uint32(v3)
		out[0] = byte(word >> 16)
		out[1] = byte(word >> 8)
		out[2] = byte(word)

		if err := sink.PutString(field, out[:n]); err != nil {
			return fmt.Errorf("%w: %v", ErrSink, err)
		}
	}
	return nil
}
