package xlrd

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testReader() *Reader {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewReader(ReaderOptions{Logger: logger})
}

// buildGlobalsWithBadRecords assembles a globals stream carrying one
// malformed FONT, one malformed BOUNDSHEET, and one malformed XF record
// ahead of a valid BOUNDSHEET/SST, followed by a sheet substream.
func buildGlobalsWithBadRecords() []byte {
	globals := newRecordBuilder()
	globals.add(xlBOF, []byte{0x00, 0x06, 0x05, 0x00})
	globals.add(xlFONT, make([]byte, 4))       // too short: needs >= 14
	globals.add(xlBOUNDSHEET, make([]byte, 2)) // too short: needs >= 6
	globals.add(xlXF, make([]byte, 5))         // too short: needs >= 20

	boundsheetPos := len(globals.buf)
	globals.add(xlBOUNDSHEET, boundsheetBody(0, "Sheet1"))
	patchPos := boundsheetPos + 4

	// unique=5 but only 1 string supplied: forces an SST mismatch.
	globals.add(xlSST, sstBody(5, 5, []string{"ONLY"}))
	globals.add(xlEOF, nil)
	globalsLen := len(globals.buf)
	binary.LittleEndian.PutUint32(globals.buf[patchPos:patchPos+4], uint32(globalsLen))

	sheet := newRecordBuilder()
	sheet.add(xlBOF, []byte{0x00, 0x06, 0x10, 0x00})
	sheet.add(xlDIMENSIONS, dimensionsBody(0, 0, 0))
	sheet.add(xlEOF, nil)

	return concatBytes(globals.buf, sheet.buf)
}

func TestMalformedFontBoundsheetXFAreSkippedNotFatal(t *testing.T) {
	bk, err := testReader().Read(buildGlobalsWithBadRecords())
	if err != nil {
		t.Fatalf("Read should tolerate malformed FONT/BOUNDSHEET/XF records, got error: %v", err)
	}
	if len(bk.FontList) != 0 {
		t.Errorf("len(FontList) = %d, want 0 (the only FONT record was malformed)", len(bk.FontList))
	}
	if len(bk.XFList) != 0 {
		t.Errorf("len(XFList) = %d, want 0 (the only XF record was malformed)", len(bk.XFList))
	}
	if bk.NSheets != 1 {
		t.Errorf("NSheets = %d, want 1 (the malformed BOUNDSHEET should have been skipped, not the valid one)", bk.NSheets)
	}
}

func TestSSTMismatchIsLoggedNotFatal(t *testing.T) {
	bk, err := testReader().Read(buildGlobalsWithBadRecords())
	if err != nil {
		t.Fatalf("Read should tolerate an SST count mismatch, got error: %v", err)
	}
	if len(bk.SST) != 1 {
		t.Errorf("len(SST) = %d, want 1 (assembled strings despite declared-count mismatch)", len(bk.SST))
	}
	if bk.SST[0] != "ONLY" {
		t.Errorf("SST[0] = %q, want ONLY", bk.SST[0])
	}
}

func TestMissingLeadingBOFIsFatal(t *testing.T) {
	_, err := testReader().Read([]byte{0x00, 0x00, 0x00, 0x00})
	if err == nil {
		t.Error("Read of a buffer not starting with BOF should error")
	}
}

func TestUnsupportedBiffVersionWarnsButContinues(t *testing.T) {
	globals := newRecordBuilder()
	// BOF body version word 0x0200 doesn't match any known BIFF8/5 marker,
	// decodeBOFVersion falls through to version 0 (unrecognized).
	globals.add(xlBOF, []byte{0x00, 0x02, 0x05, 0x00})
	globals.add(xlEOF, nil)

	_, err := testReader().Read(globals.buf)
	if err != nil {
		t.Fatalf("Read of an unrecognized-but-wellformed BOF should not be fatal, got: %v", err)
	}
}
