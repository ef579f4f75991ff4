package xlrd

import "testing"

// buildGlobalsWithSSTAndContinue assembles a globals-only stream (no
// worksheets) whose SST record's last string is deliberately cut off,
// followed by a CONTINUE record that resumes it. Used to drive both of
// sstBuilder's resume paths without a real .xls sample.
func buildGlobalsWithSSTAndContinue(sstBody, continueBody []byte) []byte {
	globals := newRecordBuilder()
	globals.add(xlBOF, []byte{0x00, 0x06, 0x05, 0x00})
	globals.add(xlSST, sstBody)
	globals.add(xlCONTINUE, continueBody)
	globals.add(xlEOF, nil)
	return globals.buf
}

// TestSSTContinueResumesMidCharacterRun covers sstPhaseChars: the SST
// record's only string declares 2 compressed chars but supplies just the
// first ("A"), forcing sstBuilder to stash phase state; the CONTINUE
// record re-reads a fresh compression-flag byte and supplies the rest
// ("B"), completing "AB".
func TestSSTContinueResumesMidCharacterRun(t *testing.T) {
	sstBody := concatBytes(
		u32le(1), u32le(1), // total_refs=1, unique=1
		u16le(2), []byte{0x00}, []byte("A"), // nchars=2, flags=compressed(0), first char only
	)
	continueBody := concatBytes([]byte{0x00}, []byte("B")) // fresh flags byte, remaining char

	buf := buildGlobalsWithSSTAndContinue(sstBody, continueBody)
	bk, err := NewReader(ReaderOptions{}).Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(bk.SST) != 1 || bk.SST[0] != "AB" {
		t.Fatalf("SST = %v, want [AB]", bk.SST)
	}
}

// TestSSTContinueResumesSkipBytes covers sstPhaseSkip: the string's
// character data completes exactly at the end of the SST record body, but
// its rich-run byte count (flags bit 0x08) declares 4 trailing bytes that
// aren't present yet; sstBuilder must carry the pending skip across into
// the CONTINUE record rather than misreading those bytes as a new string
// header.
func TestSSTContinueResumesSkipBytes(t *testing.T) {
	sstBody := concatBytes(
		u32le(1), u32le(1), // total_refs=1, unique=1
		u16le(1),           // nchars=1
		[]byte{0x08},       // flags: compressed, rich-run count present
		u16le(1),           // one rich-text run (4 bytes to skip)
		[]byte("X"),        // the single character
	)
	continueBody := make([]byte, 4) // the skipped rich-run bytes, arriving late

	buf := buildGlobalsWithSSTAndContinue(sstBody, continueBody)
	bk, err := NewReader(ReaderOptions{}).Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(bk.SST) != 1 || bk.SST[0] != "X" {
		t.Fatalf("SST = %v, want [X]", bk.SST)
	}
}

// TestSSTRoundTripMultipleStrings is the plain, non-straddling round trip
// (spec §8 property 4): every string declared in the SST header is
// recovered, in order, with no CONTINUE involved.
func TestSSTRoundTripMultipleStrings(t *testing.T) {
	strs := []string{"one", "two", "three"}
	body := sstBody(len(strs), len(strs), strs)
	globals := newRecordBuilder()
	globals.add(xlBOF, []byte{0x00, 0x06, 0x05, 0x00})
	globals.add(xlSST, body)
	globals.add(xlEOF, nil)

	bk, err := NewReader(ReaderOptions{}).Read(globals.buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(bk.SST) != len(strs) {
		t.Fatalf("SST = %v, want %v", bk.SST, strs)
	}
	for i, s := range strs {
		if bk.SST[i] != s {
			t.Errorf("SST[%d] = %q, want %q", i, bk.SST[i], s)
		}
	}
}
