package xlrd

import "encoding/binary"

// chunk is one BIFF record as yielded by chunkCursor.next: its absolute
// start offset, its symbolic kind, the raw opcode, and a slice over its
// body (no copy — callers that need to retain bytes past the next call
// must copy them themselves).
type chunk struct {
	offset int
	opcode int
	kind   recordKind
	body   []byte
}

// chunkCursor is a position-tracked iterator over a workbook byte buffer.
// It never allocates beyond the chunk.body slice reference, and any
// decoder that needs to re-enter a sub-stream (sheet directory pass,
// lazy row fetch, formula STRING peek) does so by reseating pos.
type chunkCursor struct {
	buf []byte
	pos int
}

func newChunkCursor(buf []byte, pos int) *chunkCursor {
	return &chunkCursor{buf: buf, pos: pos}
}

// seek reseats the cursor at an absolute offset. All decoders that need
// to restart a sub-scan (sheet directory, lazy row fetch, formula STRING
// lookahead) go through this rather than mutating pos directly.
func (c *chunkCursor) seek(p int) {
	c.pos = p
}

func (c *chunkCursor) tell() int {
	return c.pos
}

func (c *chunkCursor) atEnd() bool {
	return c.pos+4 > len(c.buf)
}

// next reads the next record header and body and advances past it. The
// returned ok is false when the buffer is exhausted or a full 4-byte
// header can't be read (the "end" case from §4.A) — it is not itself an
// error; callers decide whether that's expected (EOF already seen) or a
// TruncatedStreamError.
func (c *chunkCursor) next() (ch chunk, ok bool) {
	if c.pos+4 > len(c.buf) {
		return chunk{}, false
	}
	start := c.pos
	opcode := int(binary.LittleEndian.Uint16(c.buf[c.pos : c.pos+2]))
	length := int(binary.LittleEndian.Uint16(c.buf[c.pos+2 : c.pos+4]))
	c.pos += 4
	if c.pos+length > len(c.buf) {
		// Body not fully available. Still advance as far as the header
		// promised so a caller treating this as fatal reports a sane
		// offset; most callers instead just stop iterating.
		c.pos = len(c.buf)
		return chunk{offset: start, opcode: opcode, kind: kindOf(opcode), body: nil}, false
	}
	body := c.buf[c.pos : c.pos+length]
	c.pos += length
	return chunk{offset: start, opcode: opcode, kind: kindOf(opcode), body: body}, true
}
