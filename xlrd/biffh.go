package xlrd

import (
	"fmt"
	"io"
)

// ReaderError is the base error type for anything that goes wrong while
// decoding a BIFF stream.
type ReaderError struct {
	Message string
}

func (e *ReaderError) Error() string {
	return e.Message
}

// NewReaderError creates a new ReaderError with the given message.
func NewReaderError(format string, args ...interface{}) *ReaderError {
	return &ReaderError{Message: fmt.Sprintf(format, args...)}
}

// UnknownCodePageError is raised when a CODEPAGE record names a codepage
// this module has no decoder for. It is fatal: every string decoded from
// that point on would be garbage.
type UnknownCodePageError struct {
	ReaderError
	CodePage int
}

func newUnknownCodePageError(codepage int) *UnknownCodePageError {
	return &UnknownCodePageError{
		ReaderError: ReaderError{Message: fmt.Sprintf("unknown codepage: %d", codepage)},
		CodePage:    codepage,
	}
}

// UnsupportedBiffVersionError describes a BOF record naming a BIFF
// version this module has never heard of. Unlike UnknownCodePageError this
// is non-fatal: the globals pass in book.go does not return it, it logs a
// warning and keeps reading.
type UnsupportedBiffVersionError struct {
	ReaderError
	Version int
}

func newUnsupportedBiffVersionError(version int) *UnsupportedBiffVersionError {
	return &UnsupportedBiffVersionError{
		ReaderError: ReaderError{Message: fmt.Sprintf("BIFF version %s is not supported", BiffTextFromNum(version))},
		Version:     version,
	}
}

// MalformedRecordError is raised for a record whose body is too short to
// hold the fields its decoder reads.
type MalformedRecordError struct {
	ReaderError
	Opcode int
	Offset int
}

func newMalformedRecordError(opcode, offset int) *MalformedRecordError {
	return &MalformedRecordError{
		ReaderError: ReaderError{Message: fmt.Sprintf("malformed record 0x%04x at offset %d", opcode, offset)},
		Opcode:      opcode,
		Offset:      offset,
	}
}

// TruncatedStreamError is raised when the cursor cannot read a full
// 4-byte record header and no EOF marker has been seen yet.
type TruncatedStreamError struct {
	ReaderError
	Offset int
}

func newTruncatedStreamError(offset int) *TruncatedStreamError {
	return &TruncatedStreamError{
		ReaderError: ReaderError{Message: fmt.Sprintf("truncated stream at offset %d", offset)},
		Offset:      offset,
	}
}

// Cell types, as returned by Cell.CType.
const (
	XL_CELL_EMPTY   = 0
	XL_CELL_TEXT    = 1
	XL_CELL_NUMBER  = 2
	XL_CELL_DATE    = 3
	XL_CELL_BOOLEAN = 4
	XL_CELL_ERROR   = 5
	XL_CELL_BLANK   = 6 // for use in debugging, gathering stats, etc
)

// Format types, classifying a number-format string.
const (
	FUN = 0 // unknown
	FDT = 1 // date
	FNU = 2 // number
	FGE = 3 // general
	FTX = 4 // text
)

// BIFF_FIRST_UNICODE is the first BIFF version (BIFF8) whose strings are
// natively unicode rather than byte strings decoded with the codepage.
const BIFF_FIRST_UNICODE = 80

var biffTextFromNum = map[int]string{
	0:  "(not BIFF)",
	20: "2.0",
	21: "2.1",
	30: "3",
	40: "4S",
	45: "4W",
	50: "5",
	70: "7",
	80: "8",
	85: "8X",
}

// BiffTextFromNum returns a human-readable label for a BIFF version number.
func BiffTextFromNum(num int) string {
	if text, ok := biffTextFromNum[num]; ok {
		return text
	}
	return fmt.Sprintf("Unknown(%d)", num)
}

// ErrorTextFromCode maps a BIFF error-cell byte value to its Excel display text.
var ErrorTextFromCode = map[byte]string{
	0x00: "#NULL!",  // Intersection of two cell ranges is empty
	0x07: "#DIV/0!", // Division by zero
	0x0F: "#VALUE!", // Wrong type of operand
	0x17: "#REF!",   // Illegal or deleted cell reference
	0x1D: "#NAME?",  // Wrong function or range name
	0x24: "#NUM!",   // Value range overflow
	0x2A: "#N/A",    // Argument or function not available
}

// BIFF record opcodes this module recognizes. Anything not in this list
// (or in the exhaustive switch in book.go/sheet.go) is skipped: its
// length bytes are still consumed, its body is not.
const (
	xlBOF         = 0x0809
	xlBOF5        = 0x0409
	xlBOF7        = 0x0209
	xlBOF2        = 0x0009
	xlEOF         = 0x000A
	xlBOUNDSHEET  = 0x0085
	xlCODEPAGE    = 0x0042
	xlDATEMODE    = 0x0022
	xlCOUNTRY     = 0x008C
	xlWRITEACCESS = 0x005C
	xlFONT        = 0x0031
	xlFORMAT      = 0x041E
	xlFORMAT2     = 0x001E // BIFF2/3
	xlXF          = 0x00E0
	xlXF2         = 0x0043
	xlXF3         = 0x0243
	xlXF4         = 0x0443
	xlSTYLE       = 0x0293
	xlPALETTE     = 0x0092
	xlNAME        = 0x0018
	xlEXTERNSHEET = 0x0017
	xlSUPBOOK     = 0x01AE
	xlSST         = 0x00FC
	xlEXTSST      = 0x00FF
	xlCONTINUE    = 0x003C
	xlDIMENSIONS  = 0x0200
	xlDIMENSIONS2 = 0x0000
	xlROW         = 0x0208
	xlROW2        = 0x0008
	xlDBCELL      = 0x00D7
	xlBLANK       = 0x0201
	xlBLANK2      = 0x0001
	xlMULBLANK    = 0x00BE
	xlMULRK       = 0x00BD
	xlNUMBER      = 0x0203
	xlNUMBER2     = 0x0003
	xlRK          = 0x027E
	xlLABEL       = 0x0204
	xlLABEL2      = 0x0004
	xlLABELSST    = 0x00FD
	xlRSTRING     = 0x00D6
	xlBOOLERR     = 0x0205
	xlBOOLERR2    = 0x0005
	xlFORMULA     = 0x0006
	xlFORMULA3    = 0x0206
	xlFORMULA4    = 0x0406
	xlSTRING      = 0x0207
	xlSTRING2     = 0x0007
	xlINTEGER2    = 0x0002 // BIFF2 only
	xlMERGEDCELLS = 0x00E5
)

// SupportedVersions lists every BIFF version this reader understands.
var SupportedVersions = []int{80, 70, 50, 45, 40, 30, 21, 20}

// EncodingFromCodepage maps a Windows/Mac codepage id to an encoding name.
// It is a naming table only: resolveEncoder does not consult it, and
// decodes only the codepages listed in its own codepageEncoders table,
// returning UnknownCodePageError for any other.
var EncodingFromCodepage = map[int]string{
	1200:  "utf_16_le",
	10000: "mac_roman",
	10006: "mac_greek",
	10007: "mac_cyrillic",
	10029: "mac_latin2",
	10079: "mac_iceland",
	10081: "mac_turkish",
	32768: "mac_roman",
	32769: "cp1252",
}

// recordKind is the symbolic name a raw opcode is mapped to before
// dispatch. Grouping opcodes this way keeps the globals/worksheet passes
// as an exhaustive switch on a small enum instead of a scatter of magic
// numbers, and lets BIFF5/7 vs BIFF8 record variants (e.g. xlROW vs
// xlROW2) collapse to one case.
type recordKind int

const (
	kUnknown recordKind = iota
	kBOF
	kEOF
	kBoundsheet
	kCodepage
	kDatemode
	kCountry
	kWriteAccess
	kFont
	kFormat
	kXF
	kStyle
	kPalette
	kName
	kExternsheet
	kSupbook
	kSST
	kContinue
	kDimensions
	kRow
	kDBCell
	kBlank
	kMulBlank
	kNumber
	kRK
	kMulRK
	kLabel
	kLabelSST
	kRString
	kBoolErr
	kFormula
	kString
	kInteger2
	kMergedCells
)

var opcodeToKind = map[int]recordKind{
	xlBOF:         kBOF,
	xlBOF5:        kBOF,
	xlBOF7:        kBOF,
	xlBOF2:        kBOF,
	xlEOF:         kEOF,
	xlBOUNDSHEET:  kBoundsheet,
	xlCODEPAGE:    kCodepage,
	xlDATEMODE:    kDatemode,
	xlCOUNTRY:     kCountry,
	xlWRITEACCESS: kWriteAccess,
	xlFONT:        kFont,
	xlFORMAT:      kFormat,
	xlFORMAT2:     kFormat,
	xlXF:          kXF,
	xlXF2:         kXF,
	xlXF3:         kXF,
	xlXF4:         kXF,
	xlSTYLE:       kStyle,
	xlPALETTE:     kPalette,
	xlNAME:        kName,
	xlEXTERNSHEET: kExternsheet,
	xlSUPBOOK:     kSupbook,
	xlSST:         kSST,
	xlCONTINUE:    kContinue,
	xlDIMENSIONS:  kDimensions,
	xlDIMENSIONS2: kDimensions,
	xlROW:         kRow,
	xlROW2:        kRow,
	xlDBCELL:      kDBCell,
	xlBLANK:       kBlank,
	xlBLANK2:      kBlank,
	xlMULBLANK:    kMulBlank,
	xlNUMBER:      kNumber,
	xlNUMBER2:     kNumber,
	xlRK:          kRK,
	xlMULRK:       kMulRK,
	xlLABEL:       kLabel,
	xlLABEL2:      kLabel,
	xlLABELSST:    kLabelSST,
	xlRSTRING:     kRString,
	xlBOOLERR:     kBoolErr,
	xlBOOLERR2:    kBoolErr,
	xlFORMULA:     kFormula,
	xlFORMULA3:    kFormula,
	xlFORMULA4:    kFormula,
	xlSTRING:      kString,
	xlSTRING2:     kString,
	xlINTEGER2:    kInteger2,
	xlMERGEDCELLS: kMergedCells,
}

// kindOf maps a raw opcode to its symbolic record kind, or kUnknown for
// anything this module doesn't special-case. Unknown opcodes are still
// walked over correctly by the chunk cursor; they're just not acted on.
func kindOf(opcode int) recordKind {
	if kind, ok := opcodeToKind[opcode]; ok {
		return kind
	}
	return kUnknown
}

// rowBlockKinds is the set of record kinds that make up a row block: a
// ROW header followed by any number of cell records, terminated by
// DBCELL. Used by the worksheet pass (§4.F) to detect the end of a block.
var rowBlockKinds = map[recordKind]bool{
	kRow:      true,
	kDBCell:   true,
	kBlank:    true,
	kBoolErr:  true,
	kFormula:  true,
	kLabel:    true,
	kLabelSST: true,
	kMulBlank: true,
	kMulRK:    true,
	kNumber:   true,
	kRK:       true,
	kRString:  true,
}

// isCellKind reports whether a record kind carries a cell value that the
// lazy row materializer (§4.G) knows how to decode.
func isCellKind(k recordKind) bool {
	switch k {
	case kBlank, kBoolErr, kFormula, kLabel, kLabelSST, kMulBlank, kMulRK, kNumber, kRK, kRString:
		return true
	default:
		return false
	}
}

// BaseObject exists purely so the sub-objects it's embedded in (Font,
// Format, XF, ColInfo, RowInfo...) share a Dump method, mirroring the
// layout of the wider example pack's debugging helpers.
type BaseObject struct{}

// Dump writes minimal debugging framing to w. None of the concrete types
// embedding BaseObject override it.
func (b *BaseObject) Dump(w io.Writer, header, footer string, indent int) {
	if header != "" {
		fmt.Fprintf(w, "%s\n", header)
	}
	if footer != "" {
		fmt.Fprintf(w, "%s\n", footer)
	}
}
