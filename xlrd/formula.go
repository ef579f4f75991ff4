package xlrd

import (
	"encoding/binary"
	"math"
)

// FormulaError represents an error while decoding a FORMULA record's
// stored result.
type FormulaError struct {
	Message string
}

func (e *FormulaError) Error() string {
	return e.Message
}

// FormulaResult is what a FORMULA record contributes to a cell (§4.I).
// RPN holds the raw token bytes verbatim; nothing in this module decompiles
// them, per the "formula token-tree evaluation" non-goal in §1.
type FormulaResult struct {
	Value    interface{}
	CType    int
	Shared   bool
	RPN      []byte
	Restored bool // true when a MissingFollowUpString recovery restored the cursor
}

// decodeFormula decodes a FORMULA record's header and result slot, and, if
// the result is the "string pending" sentinel, consumes the STRING record
// that must immediately follow. body is the FORMULA record's own payload
// (not including its own 4-byte chunk header); cur is positioned just past
// the FORMULA record so the peek can seek back on mismatch.
func decodeFormula(bk *Book, cur *chunkCursor, body []byte) (row, col, xf int, res FormulaResult, err error) {
	if len(body) < 20 {
		return 0, 0, 0, res, newMalformedRecordError(xlFORMULA, cur.tell())
	}
	row = int(binary.LittleEndian.Uint16(body[0:2]))
	col = int(binary.LittleEndian.Uint16(body[2:4]))
	xf = int(binary.LittleEndian.Uint16(body[4:6]))
	slot := body[6:14]
	flags := binary.LittleEndian.Uint16(body[14:16])
	res.Shared = flags&0x08 != 0
	res.RPN = append([]byte(nil), body[20:]...)

	if slot[6] != 0xFF || slot[7] != 0xFF {
		res.Value = math.Float64frombits(binary.LittleEndian.Uint64(slot))
		res.CType = XL_CELL_NUMBER
		return row, col, xf, res, nil
	}

	typeByte := slot[0]
	switch {
	case typeByte > 3:
		res.Value = math.Float64frombits(binary.LittleEndian.Uint64(slot))
		res.CType = XL_CELL_NUMBER
	case typeByte == 0:
		saved := cur.tell()
		next, ok := cur.next()
		if ok && next.kind == kString {
			str, _, decErr := decodeInlineString(bk, next.body, 2)
			if decErr != nil {
				return row, col, xf, res, decErr
			}
			res.Value = str
			res.CType = XL_CELL_TEXT
			return row, col, xf, res, nil
		}
		bk.Logger.WithField("record", "StringExpectedAfterFormula").Warn("formula result pending but next record was not STRING")
		cur.seek(saved)
		res.Value = byte(0x2A)
		res.CType = XL_CELL_ERROR
		res.Restored = true
	case typeByte == 1:
		res.Value = slot[2] > 0
		res.CType = XL_CELL_BOOLEAN
	case typeByte == 2:
		res.Value = slot[2]
		res.CType = XL_CELL_ERROR
	default: // 3: empty
		res.Value = nil
		res.CType = XL_CELL_EMPTY
	}
	return row, col, xf, res, nil
}

// decodeInlineString decodes a BIFF5/7 byte string or BIFF8 unicode string
// depending on bk's version, using lenlen bytes for the length prefix.
func decodeInlineString(bk *Book, data []byte, lenlen int) (string, int, error) {
	if bk.BiffVersion >= BIFF_FIRST_UNICODE {
		return unpackUnicodeString(data, 0, lenlen)
	}
	return unpackByteString(data, 0, lenlen, bk.Encoder)
}
