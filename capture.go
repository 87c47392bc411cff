package protojson

import "fmt"

// captureState is a tagged sum of the three states a capture can be in:
// no capture in flight, a capture anchored in the current chunk, or a
// capture that ran off the end of a chunk and is waiting to be
// re-anchored in the next one. spec.md's design notes (§9) call out the
// source's "sentinel pointer" trick as exactly the kind of thing that
// should become a tagged sum in a reimplementation; this is that sum.
type captureState uint8

const (
	captureInactive captureState = iota
	captureActive
	captureSuspended
)

// capture marks a start offset in the chunk currently being scanned and,
// on a matching end event, forwards the captured range to the multipart
// router. It survives a buffer seam (the chunk ending before the token
// does) by suspending: the partial range seen so far is forwarded as a
// forced copy, and resume re-anchors at the start of the next chunk.
// spec.md §4.2, component 2.
//
// At most one capture is active at a time (spec.md §3 invariant); begin
// on an already-active capture is an internal-invariant violation, not
// a user-facing parse error.
type capture struct {
	state captureState
	start int
}

// begin anchors a new capture at offset i in the chunk that will be
// passed to end/suspend.
func (c *capture) begin(i int) error {
	if c.state == captureActive {
		return fmt.Errorf("protojson: internal error: capture already active")
	}
	c.state = captureActive
	c.start = i
	return nil
}

// resume must be called at the top of every chunk's processing loop,
// before any byte of the new chunk is scanned. If a capture was
// suspended at the end of the previous chunk, it re-anchors at i (which
// will normally be 0, the start of the new chunk).
func (c *capture) resume(i int) {
	if c.state == captureSuspended {
		c.state = captureActive
		c.start = i
	}
}

// active reports whether a capture is currently open.
func (c *capture) active() bool {
	return c.state == captureActive
}

// end closes the capture at offset i (exclusive) in chunk and forwards
// chunk[start:i] to mp as an aliasable slice, then clears the capture.
func (c *capture) end(chunk []byte, i int, mp *multipartRouter) error {
	if c.state != captureActive {
		return fmt.Errorf("protojson: internal error: end with no active capture")
	}
	b := chunk[c.start:i]
	c.state = captureInactive
	return mp.text(b, true)
}

// suspend is called when a chunk is exhausted while a capture is still
// open. It returns the remaining bytes of chunk (from the capture start
// to the end of the chunk), which the caller forwards as a forced copy
// since the chunk's backing array is not guaranteed to outlive this
// Write call, and marks the capture suspended so resume can re-anchor
// it next time.
//
// rewindTo is the capture's start offset in chunk. If the forward fails
// (accumulator overflow or a sink error), Write drops the capture and
// reports rewindTo as the number of bytes consumed.
func (c *capture) suspend(chunk []byte) (forwarded []byte, rewindTo int, wasActive bool) {
	if c.state != captureActive {
		return nil, 0, false
	}
	b := chunk[c.start:]
	start := c.start
	c.state = captureSuspended
	return b, start, true
}

// abort drops an in-flight or suspended capture without forwarding
// anything, used when a parse error aborts the document outright.
func (c *capture) abort() {
	c.state = captureInactive
}
