package xlrd

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testBook() *Book {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Book{BiffVersion: 80, Logger: logger}
}

func formulaBody(row, col, xf int, slot [8]byte, flags int, rpn []byte) []byte {
	return concatBytes(u16le(row), u16le(col), u16le(xf), slot[:], u16le(flags), []byte{0, 0, 0, 0}, rpn)
}

func TestDecodeFormulaNumericResult(t *testing.T) {
	bk := testBook()
	var slot [8]byte
	copy(slot[:], f64le(42.5))
	body := formulaBody(0, 1, 2, slot, 0, nil)
	cur := newChunkCursor(body, len(body))

	row, col, xf, res, err := decodeFormula(bk, cur, body)
	if err != nil {
		t.Fatalf("decodeFormula error: %v", err)
	}
	if row != 0 || col != 1 || xf != 2 {
		t.Errorf("decodeFormula header = (%d,%d,%d), want (0,1,2)", row, col, xf)
	}
	if res.CType != XL_CELL_NUMBER || res.Value != 42.5 {
		t.Errorf("res = %+v, want numeric 42.5", res)
	}
}

func TestDecodeFormulaStringResultFollowedBySTRING(t *testing.T) {
	bk := testBook()
	slot := [8]byte{0, 0, 0, 0, 0, 0, 0xFF, 0xFF}
	formula := formulaBody(1, 0, 0, slot, 0, nil)

	strBody := unicodeStringBody("RESULT", 2)
	buf := newRecordBuilder().add(xlSTRING, strBody).buf

	cur := newChunkCursor(buf, 0)
	_, _, _, res, err := decodeFormula(bk, cur, formula)
	if err != nil {
		t.Fatalf("decodeFormula error: %v", err)
	}
	if res.CType != XL_CELL_TEXT || res.Value != "RESULT" {
		t.Errorf("res = %+v, want text RESULT", res)
	}
	if res.Restored {
		t.Error("res.Restored should be false when a STRING record follows")
	}
}

func TestDecodeFormulaMissingFollowUpStringRestoresCursor(t *testing.T) {
	bk := testBook()
	slot := [8]byte{0, 0, 0, 0, 0, 0, 0xFF, 0xFF}
	formula := formulaBody(1, 0, 0, slot, 0, nil)

	// A NUMBER record, not STRING, follows: the peek must fail and restore.
	buf := newRecordBuilder().add(xlNUMBER, numberBody(2, 2, 0, 7.0)).buf
	cur := newChunkCursor(buf, 0)
	before := cur.tell()

	_, _, _, res, err := decodeFormula(bk, cur, formula)
	if err != nil {
		t.Fatalf("decodeFormula error: %v", err)
	}
	if !res.Restored {
		t.Error("res.Restored should be true when no STRING record follows")
	}
	if res.CType != XL_CELL_ERROR || res.Value != byte(0x2A) {
		t.Errorf("res = %+v, want substituted #N/A error", res)
	}
	if cur.tell() != before {
		t.Errorf("cursor = %d after restore, want %d", cur.tell(), before)
	}
}

func TestDecodeFormulaBooleanResult(t *testing.T) {
	bk := testBook()
	slot := [8]byte{1, 0, 1, 0, 0, 0, 0xFF, 0xFF}
	body := formulaBody(0, 0, 0, slot, 0, nil)
	cur := newChunkCursor(body, len(body))

	_, _, _, res, err := decodeFormula(bk, cur, body)
	if err != nil {
		t.Fatalf("decodeFormula error: %v", err)
	}
	if res.CType != XL_CELL_BOOLEAN || res.Value != true {
		t.Errorf("res = %+v, want boolean true", res)
	}
}

func TestDecodeFormulaErrorResult(t *testing.T) {
	bk := testBook()
	slot := [8]byte{2, 0, 0x07, 0, 0, 0, 0xFF, 0xFF}
	body := formulaBody(0, 0, 0, slot, 0, nil)
	cur := newChunkCursor(body, len(body))

	_, _, _, res, err := decodeFormula(bk, cur, body)
	if err != nil {
		t.Fatalf("decodeFormula error: %v", err)
	}
	if res.CType != XL_CELL_ERROR || res.Value != byte(0x07) {
		t.Errorf("res = %+v, want error code 0x07", res)
	}
}

func TestDecodeFormulaEmptyResult(t *testing.T) {
	bk := testBook()
	slot := [8]byte{3, 0, 0, 0, 0, 0, 0xFF, 0xFF}
	body := formulaBody(0, 0, 0, slot, 0, nil)
	cur := newChunkCursor(body, len(body))

	_, _, _, res, err := decodeFormula(bk, cur, body)
	if err != nil {
		t.Fatalf("decodeFormula error: %v", err)
	}
	if res.CType != XL_CELL_EMPTY {
		t.Errorf("res.CType = %d, want XL_CELL_EMPTY", res.CType)
	}
}

func TestDecodeFormulaSharedFlag(t *testing.T) {
	bk := testBook()
	var slot [8]byte
	copy(slot[:], f64le(1.0))
	body := formulaBody(0, 0, 0, slot, 0x08, nil)
	cur := newChunkCursor(body, len(body))

	_, _, _, res, err := decodeFormula(bk, cur, body)
	if err != nil {
		t.Fatalf("decodeFormula error: %v", err)
	}
	if !res.Shared {
		t.Error("res.Shared should be true when flags bit 0x08 is set")
	}
}

func TestDecodeFormulaTruncatedBody(t *testing.T) {
	bk := testBook()
	cur := newChunkCursor(nil, 0)
	if _, _, _, _, err := decodeFormula(bk, cur, make([]byte, 10)); err == nil {
		t.Error("decodeFormula with a truncated body should have errored")
	}
}
