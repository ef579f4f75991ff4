package xlrd

import "encoding/binary"

// buildOneSheetWorkbook wraps a single worksheet's records (already
// including its own BOF/EOF) in a minimal globals stream, patching the
// BOUNDSHEET offset to the worksheet's actual position. Used by tests
// that only need one sheet's cell-record decoding exercised.
func buildOneSheetWorkbook(sheetBuf []byte) []byte {
	globals := newRecordBuilder()
	globals.add(xlBOF, []byte{0x00, 0x06, 0x05, 0x00})
	bsPos := len(globals.buf)
	globals.add(xlBOUNDSHEET, boundsheetBody(0, "Sheet1"))
	patchPos := bsPos + 4
	globals.add(xlEOF, nil)
	globalsLen := len(globals.buf)
	binary.LittleEndian.PutUint32(globals.buf[patchPos:patchPos+4], uint32(globalsLen))
	return concatBytes(globals.buf, sheetBuf)
}

func mustOpenSheetOf(buf []byte) *Sheet {
	bk, err := NewReader(ReaderOptions{}).Read(buf)
	if err != nil {
		panic(err)
	}
	sh, err := bk.SheetByIndex(0)
	if err != nil {
		panic(err)
	}
	return sh
}
