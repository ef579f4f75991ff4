package xlrd

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// decodeRK decodes a 4-byte packed RK value (§4.C).
//
// Bit 0 of w means "divide the final value by 100". Bit 1 means "w holds
// a signed 30-bit integer"; otherwise w holds the top 32 bits of an
// IEEE-754 double (the low 32 bits are implicitly zero).
func decodeRK(w uint32) float64 {
	var v float64
	if w&0x02 != 0 {
		v = float64(int32(w) >> 2)
	} else {
		bits := uint64(w&^0x03) << 32
		v = math.Float64frombits(bits)
	}
	if w&0x01 != 0 {
		v /= 100
	}
	return v
}

// decodeDouble decodes 8 little-endian bytes as an IEEE-754 binary64.
// Go's float64 is always 8 bytes, so the "extended form" fallback the
// spec describes for historical wider-than-8-byte platforms never
// triggers here; it's noted, not implemented, per §4.C.
func decodeDouble(b []byte) (float64, error) {
	if len(b) < 8 {
		return 0, NewReaderError("decodeDouble: need 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:8])), nil
}

// unpackUnicodeString decodes a BIFF8 unicode string (§4.C): a length
// field (1 or 2 bytes, per lenlen), a flags byte, optional rich-text run
// count and phonetic-extension byte count, then the character data
// itself (1 byte/char if compressed, 2 bytes/char little-endian UCS-2
// otherwise). It returns the decoded string and the number of bytes
// consumed starting at pos (NOT including bytes before pos).
//
// Rich-text runs and the phonetic tail are skipped, not parsed and not
// returned; the consumed count includes their bytes, so a caller can
// slice them out of data[pos:pos+consumed] after the character data.
func unpackUnicodeString(data []byte, pos int, lenlen int) (string, int, error) {
	start := pos
	if pos+lenlen > len(data) {
		return "", 0, NewReaderError("unpackUnicodeString: insufficient data for length")
	}
	var nchars int
	if lenlen == 1 {
		nchars = int(data[pos])
	} else {
		nchars = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
	}
	pos += lenlen

	if nchars == 0 {
		// A zero-length BIFF8 unicode string still carries a flags byte
		// unless the caller is in a context (e.g. some FORMAT records)
		// that omits it entirely; §4.C always includes it, so we do too.
		if pos < len(data) {
			pos++
		}
		return "", pos - start, nil
	}

	if pos >= len(data) {
		return "", 0, NewReaderError("unpackUnicodeString: insufficient data for flags byte")
	}
	flags := data[pos]
	pos++

	var richRunCount int
	if flags&0x08 != 0 {
		if pos+2 > len(data) {
			return "", 0, NewReaderError("unpackUnicodeString: insufficient data for rich-run count")
		}
		richRunCount = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
	}
	var extBytes int
	if flags&0x04 != 0 {
		if pos+4 > len(data) {
			return "", 0, NewReaderError("unpackUnicodeString: insufficient data for ext byte count")
		}
		extBytes = int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
	}

	var str string
	if flags&0x01 != 0 {
		if pos+2*nchars > len(data) {
			return "", 0, NewReaderError("unpackUnicodeString: insufficient data for UTF-16 chars")
		}
		words := make([]uint16, nchars)
		for i := 0; i < nchars; i++ {
			words[i] = binary.LittleEndian.Uint16(data[pos+i*2 : pos+i*2+2])
		}
		str = string(utf16.Decode(words))
		pos += 2 * nchars
	} else {
		if pos+nchars > len(data) {
			return "", 0, NewReaderError("unpackUnicodeString: insufficient data for compressed chars")
		}
		// Compressed means each char is the low byte of a UCS-2 code
		// point with the high byte forced to zero, i.e. Latin-1.
		runes := make([]rune, nchars)
		for i, b := range data[pos : pos+nchars] {
			runes[i] = rune(b)
		}
		str = string(runes)
		pos += nchars
	}

	if richRunCount > 0 {
		consumed := richRunCount * 4
		if pos+consumed > len(data) {
			return "", 0, NewReaderError("unpackUnicodeString: insufficient data for rich-run list")
		}
		pos += consumed
	}
	if extBytes > 0 {
		if pos+extBytes > len(data) {
			return "", 0, NewReaderError("unpackUnicodeString: insufficient data for phonetic tail")
		}
		pos += extBytes
	}

	return str, pos - start, nil
}

// unpackByteString decodes a BIFF5/7 length-prefixed byte string (§4.C),
// translating it through enc (the codepage-derived decoder). lenlen is 1
// or 2 depending on the record that embeds it.
func unpackByteString(data []byte, pos int, lenlen int, enc Encoder) (string, int, error) {
	start := pos
	if pos+lenlen > len(data) {
		return "", 0, NewReaderError("unpackByteString: insufficient data for length")
	}
	var nchars int
	if lenlen == 1 {
		nchars = int(data[pos])
	} else {
		nchars = int(binary.LittleEndian.Uint16(data[pos : pos+2]))
	}
	pos += lenlen
	if pos+nchars > len(data) {
		return "", 0, NewReaderError("unpackByteString: insufficient data for %d chars", nchars)
	}
	raw := data[pos : pos+nchars]
	pos += nchars
	if enc == nil {
		return string(raw), pos - start, nil
	}
	str, err := enc.Decode(raw)
	if err != nil {
		return "", 0, fmt.Errorf("unpackByteString: %w", err)
	}
	return str, pos - start, nil
}
