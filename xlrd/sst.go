package xlrd

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

const (
	sstPhaseIdle = iota
	sstPhaseChars
	sstPhaseSkip
)

// sstBuilder assembles the Shared String Table (§4.H) across an SST record
// and any number of trailing CONTINUE records, tolerating strings that
// straddle a record boundary. Each CONTINUE body that resumes mid-string
// begins with a fresh compression-flag byte, which is re-honored rather
// than treated as the start of a new string.
type sstBuilder struct {
	totalRefs int
	unique    int
	strs      []string

	phase          int
	remainingChars int
	remainingSkip  int
	pendingRich    int
	pendingExt     int
	runes          []rune
}

func newSSTBuilder() *sstBuilder {
	return &sstBuilder{}
}

// start parses the SST record header (total_refs, unique_count) and begins
// consuming the strings that follow in the same body.
func (b *sstBuilder) start(body []byte) error {
	if len(body) < 8 {
		return NewReaderError("sst: header truncated")
	}
	b.totalRefs = int(binary.LittleEndian.Uint32(body[0:4]))
	b.unique = int(binary.LittleEndian.Uint32(body[4:8]))
	return b.consume(body[8:])
}

// continueRecord forwards a CONTINUE record's body into the in-progress
// assembly. Call only when the immediately preceding record kind was SST or
// another CONTINUE belonging to the same SST (book.go tracks that).
func (b *sstBuilder) continueRecord(body []byte) error {
	return b.consume(body)
}

func (b *sstBuilder) done() bool {
	return len(b.strs) >= b.unique
}

func (b *sstBuilder) strings() []string {
	return b.strs
}

func (b *sstBuilder) consume(body []byte) error {
	pos := 0
	for pos < len(body) {
		switch b.phase {
		case sstPhaseChars:
			if pos >= len(body) {
				return nil
			}
			flags := body[pos]
			pos++
			wide := flags&0x01 != 0
			pos = b.readChars(body, pos, wide)
			if b.remainingChars > 0 {
				return nil // exhausted this body; resume on next CONTINUE
			}
			b.finishString()
		case sstPhaseSkip:
			avail := len(body) - pos
			n := b.remainingSkip
			if n > avail {
				n = avail
			}
			pos += n
			b.remainingSkip -= n
			if b.remainingSkip > 0 {
				return nil
			}
			b.phase = sstPhaseIdle
		default:
			if b.done() {
				return nil
			}
			if pos+3 > len(body) {
				return NewReaderError("sst: truncated string header at offset %d", pos)
			}
			nchars := int(binary.LittleEndian.Uint16(body[pos : pos+2]))
			pos += 2
			flags := body[pos]
			pos++
			wide := flags&0x01 != 0
			var richRunCount, extBytes int
			if flags&0x08 != 0 {
				if pos+2 > len(body) {
					return NewReaderError("sst: truncated rich-run count")
				}
				richRunCount = int(binary.LittleEndian.Uint16(body[pos : pos+2]))
				pos += 2
			}
			if flags&0x04 != 0 {
				if pos+4 > len(body) {
					return NewReaderError("sst: truncated ext byte count")
				}
				extBytes = int(binary.LittleEndian.Uint32(body[pos : pos+4]))
				pos += 4
			}
			b.remainingChars = nchars
			b.pendingRich = richRunCount
			b.pendingExt = extBytes
			b.runes = nil
			pos = b.readChars(body, pos, wide)
			if b.remainingChars > 0 {
				b.phase = sstPhaseChars
				return nil
			}
			b.finishString()
		}
	}
	return nil
}

// readChars consumes as many of the remaining characters as body[pos:] has
// room for, decoding 1 or 2 bytes per character depending on wide.
func (b *sstBuilder) readChars(body []byte, pos int, wide bool) int {
	avail := len(body) - pos
	maxChars := avail
	if wide {
		maxChars = avail / 2
	}
	n := b.remainingChars
	if n > maxChars {
		n = maxChars
	}
	if wide {
		for i := 0; i < n; i++ {
			w := binary.LittleEndian.Uint16(body[pos+i*2 : pos+i*2+2])
			b.runes = append(b.runes, rune(w))
		}
		pos += n * 2
	} else {
		for i := 0; i < n; i++ {
			b.runes = append(b.runes, rune(body[pos+i]))
		}
		pos += n
	}
	b.remainingChars -= n
	return pos
}

func (b *sstBuilder) finishString() {
	b.strs = append(b.strs, string(b.runes))
	b.runes = nil
	skip := b.pendingRich*4 + b.pendingExt
	b.pendingRich, b.pendingExt = 0, 0
	if skip > 0 {
		b.remainingSkip = skip
		b.phase = sstPhaseSkip
	} else {
		b.phase = sstPhaseIdle
	}
}

// logSSTMismatch is invoked by book.go when the assembled string count
// doesn't match unique_count at globals EOF (§8 property 4).
func logSSTMismatch(logger *logrus.Logger, got, want int) {
	logger.WithField("record", "SST").Warnf("assembled %d shared strings, header declared %d", got, want)
}
