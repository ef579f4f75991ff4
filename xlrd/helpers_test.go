package xlrd

import (
	"encoding/binary"
	"math"
)

// recordBuilder assembles a byte-accurate BIFF stream one record at a
// time, for tests that exercise the decoders against known-shape input
// without needing a real .xls fixture on disk.
type recordBuilder struct {
	buf []byte
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{}
}

func (b *recordBuilder) add(opcode int, body []byte) *recordBuilder {
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(opcode))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(body)))
	b.buf = append(b.buf, hdr...)
	b.buf = append(b.buf, body...)
	return b
}

func u16le(v int) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, uint16(v))
	return out
}

func u32le(v int) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(v))
	return out
}

func u32rawle(word uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, word)
	return out
}

func f64le(v float64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, math.Float64bits(v))
	return out
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// unicodeStringBody builds a BIFF8 unicode string: an lenlen-byte length
// field, a compressed-flag byte (0), and the raw ASCII chars.
func unicodeStringBody(s string, lenlen int) []byte {
	var lenBytes []byte
	if lenlen == 1 {
		lenBytes = []byte{byte(len(s))}
	} else {
		lenBytes = u16le(len(s))
	}
	return concatBytes(lenBytes, []byte{0}, []byte(s))
}

func xfBody(formatKey int) []byte {
	body := make([]byte, 20)
	binary.LittleEndian.PutUint16(body[2:4], uint16(formatKey))
	return body
}

func boundsheetBody(offset int, name string) []byte {
	return concatBytes(u32le(offset), []byte{0, 0}, unicodeStringBody(name, 1))
}

func sstBody(total, unique int, strs []string) []byte {
	body := concatBytes(u32le(total), u32le(unique))
	for _, s := range strs {
		body = concatBytes(body, u16le(len(s)), []byte{0}, []byte(s))
	}
	return body
}

func dimensionsBody(lastRowPlusOne, firstCol, lastColPlusOne int) []byte {
	return concatBytes(u32le(0), u32le(lastRowPlusOne), u16le(firstCol), u16le(lastColPlusOne))
}

func rowBody(index, firstUsedCol, firstUnusedCol int) []byte {
	return concatBytes(u16le(index), u16le(firstUsedCol), u16le(firstUnusedCol), []byte{0, 0})
}

func labelSSTBody(row, col, xf, sstIndex int) []byte {
	return concatBytes(u16le(row), u16le(col), u16le(xf), u32le(sstIndex))
}

func labelBody(row, col, xf int, s string) []byte {
	return concatBytes(u16le(row), u16le(col), u16le(xf), unicodeStringBody(s, 2))
}

func numberBody(row, col, xf int, val float64) []byte {
	return concatBytes(u16le(row), u16le(col), u16le(xf), f64le(val))
}

func rkBody(row, col, xf int, word uint32) []byte {
	return concatBytes(u16le(row), u16le(col), u16le(xf), u32rawle(word))
}

func blankBody(row, col, xf int) []byte {
	return concatBytes(u16le(row), u16le(col), u16le(xf))
}

func formulaNumberBody(row, col, xf int, val float64) []byte {
	return concatBytes(u16le(row), u16le(col), u16le(xf), f64le(val), u16le(0), u32le(0))
}

func boolerrBody(row, col, xf int, val bool, isErr bool) []byte {
	b := byte(0)
	if val {
		b = 1
	}
	e := byte(0)
	if isErr {
		e = 1
	}
	return concatBytes(u16le(row), u16le(col), u16le(xf), []byte{b, e})
}

// mulRKBody builds a MULRK record body: row, first_col, an (xf, packed-RK)
// pair per entry, then last_col.
func mulRKBody(row, firstCol int, xfs []int, words []uint32) []byte {
	body := concatBytes(u16le(row), u16le(firstCol))
	for i, xf := range xfs {
		body = concatBytes(body, u16le(xf), u32rawle(words[i]))
	}
	lastCol := firstCol + len(xfs) - 1
	return concatBytes(body, u16le(lastCol))
}

// mulBlankBody builds a MULBLANK record body: row, first_col, an xf per
// entry, then last_col.
func mulBlankBody(row, firstCol int, xfs []int) []byte {
	body := concatBytes(u16le(row), u16le(firstCol))
	for _, xf := range xfs {
		body = concatBytes(body, u16le(xf))
	}
	lastCol := firstCol + len(xfs) - 1
	return concatBytes(body, u16le(lastCol))
}

func mergedCellsBody(ranges [][4]int) []byte {
	body := u16le(len(ranges))
	for _, r := range ranges {
		body = concatBytes(body, u16le(r[0]), u16le(r[1]), u16le(r[2]), u16le(r[3]))
	}
	return body
}

// syntheticWorkbook bundles a built BIFF byte stream with the facts a
// test needs to assert against it, so the layout only has to be reasoned
// about once.
type syntheticWorkbook struct {
	buf []byte
}

// buildSyntheticWorkbook assembles a complete, internally-consistent
// BIFF8 workbook byte-for-byte: a globals substream (date mode, code
// page, one font, one custom number format, three XFs, one worksheet
// directory entry, a two-string SST) followed by one worksheet substream
// exercising every cell-record kind the lazy row materializer handles,
// plus a merged range.
//
// Layout (row, col -> content, xf):
//
//	(0,0) LABELSST  -> "PROFIL"           xf 2 (General)
//	(0,1) NUMBER    -> 100.0              xf 0 (format "0.00")
//	(0,2) RK        -> 1638.4 (packed)    xf 0
//	(1,0) BLANK                           xf 2
//	(1,1) FORMULA   -> 44562.0            xf 1 (format 14, date)
//	(1,2) BOOLERR   -> true                xf 2
//	(2,0) LABELSST  -> "MERGED"           xf 2
//
// MergedCells covers rows [2,4) x cols [0,2); (2,0) is the anchor.
func buildSyntheticWorkbook() []byte {
	globals := newRecordBuilder()
	globals.add(xlBOF, []byte{0x00, 0x06, 0x05, 0x00})
	globals.add(xlDATEMODE, u16le(0))
	globals.add(xlCODEPAGE, u16le(1252))
	globals.add(xlFONT, concatBytes(u16le(200), u16le(0), u16le(0), u16le(400), u16le(0), []byte{0, 0, 0, 0}))
	globals.add(xlFORMAT, concatBytes(u16le(100), unicodeStringBody("0.00", 2)))
	globals.add(xlXF, xfBody(100)) // index 0: custom number format
	globals.add(xlXF, xfBody(14))  // index 1: built-in date format
	globals.add(xlXF, xfBody(0))   // index 2: General

	boundsheetHeaderStart := len(globals.buf)
	globals.add(xlBOUNDSHEET, boundsheetBody(0, "Sheet1"))
	patchPos := boundsheetHeaderStart + 4 // skip the 4-byte record header

	globals.add(xlSST, sstBody(4, 2, []string{"PROFIL", "MERGED"}))
	globals.add(xlEOF, nil)

	globalsLen := len(globals.buf)
	binary.LittleEndian.PutUint32(globals.buf[patchPos:patchPos+4], uint32(globalsLen))

	sheet := newRecordBuilder()
	sheet.add(xlBOF, []byte{0x00, 0x06, 0x10, 0x00})
	sheet.add(xlDIMENSIONS, dimensionsBody(4, 0, 3))
	sheet.add(xlROW, rowBody(0, 0, 3))
	sheet.add(xlROW, rowBody(1, 0, 3))
	sheet.add(xlROW, rowBody(2, 0, 2))
	sheet.add(xlLABELSST, labelSSTBody(0, 0, 2, 0))
	sheet.add(xlNUMBER, numberBody(0, 1, 0, 100.0))
	sheet.add(xlRK, rkBody(0, 2, 0, 0x000A0003))
	sheet.add(xlBLANK, blankBody(1, 0, 2))
	sheet.add(xlFORMULA, formulaNumberBody(1, 1, 1, 44562.0))
	sheet.add(xlBOOLERR, boolerrBody(1, 2, 2, true, false))
	sheet.add(xlLABELSST, labelSSTBody(2, 0, 2, 1))
	sheet.add(xlDBCELL, []byte{0, 0, 0, 0})
	sheet.add(xlMERGEDCELLS, mergedCellsBody([][4]int{{2, 3, 0, 1}}))
	sheet.add(xlEOF, nil)

	return concatBytes(globals.buf, sheet.buf)
}

func mustBuildBook() *Book {
	bk, err := NewReader(ReaderOptions{}).Read(buildSyntheticWorkbook())
	if err != nil {
		panic(err)
	}
	return bk
}
