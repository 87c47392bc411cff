package protojson

import "errors"

// Sentinel errors. Every error the parser returns wraps one of these with
// fmt.Errorf("%w: ...", ...) so callers can classify failures with
// errors.Is without parsing message text.
var (
	// ErrSyntax covers malformed JSON: unexpected characters, unterminated
	// strings, bad literals.
	ErrSyntax = errors.New("protojson: parse error")

	// ErrDepth means the frame stack would exceed its maximum depth
	// (MaxDepth, or the value set with WithMaxDepth).
	ErrDepth = errors.New("protojson: nesting too deep")

	// ErrSchema covers structural mismatches between the JSON shape and
	// the target message descriptor: unknown fields, a string where a
	// submessage was expected, a map value presented as a scalar, etc.
	ErrSchema = errors.New("protojson: schema mismatch")

	// ErrValue covers scalar coercion failures: numbers out of range,
	// unparsable numeric literals, unknown enum names, malformed base64.
	ErrValue = errors.New("protojson: invalid value")

	// ErrSink is returned when a Sink callback reports an error; the
	// parser stops raising further events for the current document but
	// does not attempt to interpret the sink's error further.
	ErrSink = errors.New("protojson: sink error")

	// ErrClosed is returned by Write after Close has been called, or by
	// Close when called twice.
	ErrClosed = errors.New("protojson: parser closed")
)
