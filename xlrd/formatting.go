package xlrd

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"
)

// Font represents font information (§3).
type Font struct {
	BaseObject

	Name         string
	Bold         bool
	Italic       bool
	Underline    int
	Escapement   int
	ColourIndex  int
	Height       int // twips (1/20 of a point)
	Weight       int
	Family       int
	CharacterSet int
}

// Format represents a number-format string plus its classification.
type Format struct {
	BaseObject

	FormatKey    int
	Type         int // FUN, FDT, FNU, FGE, FTX
	FormatString string
}

// XF represents a cell's Extended Format record (§4.H′): font, number
// format, and the alignment/border/fill/protection attribute bag, captured
// verbatim. Colour fields carry the raw palette index; resolving a palette
// index to an RGB triple is the consumer's job (see NearestColourIndex).
type XF struct {
	BaseObject

	FontIndex        int
	FormatKey        int
	Locked           bool
	Hidden           bool
	ParentStyleIndex int
	Alignment        *XFAlignment
	Border           *XFBorder
	Background       *XFBackground
	Protection       *XFProtection
}

type XFAlignment struct {
	BaseObject

	Horizontal    int
	Vertical      int
	Rotation      int
	IndentLevel   int
	ShrinkToFit   bool
	WrapText      bool
	TextDirection int
}

type XFBorder struct {
	BaseObject

	Left, Right, Top, Bottom                                     int
	LeftColourIndex, RightColourIndex, TopColourIndex, BottomColourIndex int
}

type XFBackground struct {
	BaseObject

	FillPattern           int
	PatternColourIndex    int
	BackgroundColourIndex int
}

type XFProtection struct {
	BaseObject

	CellLocked    bool
	FormulaHidden bool
}

// decodeFont decodes a BIFF FONT record (§3: name, size, weight, style
// flags, colour index, escapement, underline, family, encoding).
func decodeFont(bk *Book, body []byte) (*Font, error) {
	if len(body) < 14 {
		return nil, newMalformedRecordError(xlFONT, 0)
	}
	height := int(binary.LittleEndian.Uint16(body[0:2]))
	options := binary.LittleEndian.Uint16(body[2:4])
	colourIndex := int(binary.LittleEndian.Uint16(body[4:6]))
	weight := int(binary.LittleEndian.Uint16(body[6:8]))
	escapement := int(binary.LittleEndian.Uint16(body[8:10]))
	underline := int(body[10])
	family := int(body[11])
	characterSet := int(body[12])

	name := ""
	if len(body) > 14 {
		var err error
		if bk.BiffVersion >= BIFF_FIRST_UNICODE {
			name, _, err = unpackUnicodeString(body, 14, 1)
		} else {
			name, _, err = unpackByteString(body, 14, 1, bk.Encoder)
		}
		if err != nil {
			name = ""
		}
	}

	return &Font{
		Name:         name,
		Bold:         weight >= 700,
		Italic:       options&0x0001 != 0,
		Underline:    underline,
		Escapement:   escapement,
		ColourIndex:  colourIndex,
		Height:       height,
		Weight:       weight,
		Family:       family,
		CharacterSet: characterSet,
	}, nil
}

// decodeFormat decodes a FORMAT record and stores it in bk.FormatTable,
// classifying the format string along the way.
func decodeFormat(bk *Book, body []byte) error {
	if len(body) < 4 {
		return newMalformedRecordError(xlFORMAT, 0)
	}
	key := int(binary.LittleEndian.Uint16(body[0:2]))
	var str string
	var err error
	if bk.BiffVersion >= BIFF_FIRST_UNICODE {
		str, _, err = unpackUnicodeString(body, 2, 2)
	} else {
		str, _, err = unpackByteString(body, 2, 1, bk.Encoder)
	}
	if err != nil {
		return err
	}
	bk.FormatTable[key] = &Format{FormatKey: key, Type: classifyFormat(bk, str), FormatString: str}
	return nil
}

func classifyFormat(bk *Book, formatStr string) int {
	switch strings.TrimSpace(formatStr) {
	case "", "General", "general", "GENERAL":
		return FGE
	case "@":
		return FTX
	}
	if IsDateFormatString(bk, formatStr) {
		return FDT
	}
	return FNU
}

// decodeXF decodes a fixed 20-byte XF record (§4.H′). Every field named
// there is captured; none are inferred or defaulted beyond the raw bits.
func decodeXF(bk *Book, body []byte) (*XF, error) {
	if len(body) < 20 {
		return nil, newMalformedRecordError(xlXF, 0)
	}
	fontIndex := int(binary.LittleEndian.Uint16(body[0:2]))
	formatKey := int(binary.LittleEndian.Uint16(body[2:4]))
	flags := binary.LittleEndian.Uint16(body[4:6])
	locked := flags&0x0001 != 0
	formulaHidden := flags&0x0002 != 0
	parentStyleIndex := int(flags >> 4)

	align1 := body[6]
	horizontal := int(align1 & 0x07)
	wrapText := align1&0x08 != 0
	vertical := int((align1 >> 4) & 0x07)
	rotation := int(body[7])

	align2 := body[8]
	indentLevel := int(align2 & 0x0F)
	shrinkToFit := align2&0x10 != 0
	textDirection := int((align2 >> 6) & 0x03)

	borderBits1 := binary.LittleEndian.Uint16(body[10:12])
	left := int(borderBits1 & 0x0F)
	right := int((borderBits1 >> 4) & 0x0F)
	top := int((borderBits1 >> 8) & 0x0F)
	bottom := int((borderBits1 >> 12) & 0x0F)

	borderBits2 := binary.LittleEndian.Uint16(body[12:14])
	leftColour := int(borderBits2 & 0x7F)
	rightColour := int((borderBits2 >> 7) & 0x7F)

	packed := binary.LittleEndian.Uint32(body[14:18])
	topColour := int(packed & 0x7F)
	bottomColour := int((packed >> 7) & 0x7F)
	fillPattern := int((packed >> 26) & 0x3F)

	patternBits := binary.LittleEndian.Uint16(body[18:20])
	patternFore := int(patternBits & 0x7F)
	patternBack := int((patternBits >> 7) & 0x7F)

	return &XF{
		FontIndex:        fontIndex,
		FormatKey:        formatKey,
		Locked:           locked,
		Hidden:           formulaHidden,
		ParentStyleIndex: parentStyleIndex,
		Alignment: &XFAlignment{
			Horizontal:    horizontal,
			Vertical:      vertical,
			Rotation:      rotation,
			IndentLevel:   indentLevel,
			ShrinkToFit:   shrinkToFit,
			WrapText:      wrapText,
			TextDirection: textDirection,
		},
		Border: &XFBorder{
			Left: left, Right: right, Top: top, Bottom: bottom,
			LeftColourIndex: leftColour, RightColourIndex: rightColour,
			TopColourIndex: topColour, BottomColourIndex: bottomColour,
		},
		Background: &XFBackground{
			FillPattern:           fillPattern,
			PatternColourIndex:    patternFore,
			BackgroundColourIndex: patternBack,
		},
		Protection: &XFProtection{CellLocked: locked, FormulaHidden: formulaHidden},
	}, nil
}

// builtinFormats pre-populates the number-format table with Excel's
// built-in formats (§4.H′), keyed by their fixed format index. A FORMAT
// record for the same key later in the stream overrides these.
func builtinFormats() map[int]*Format {
	entries := map[int]string{
		0:  "General",
		1:  "0",
		2:  "0.00",
		3:  "#,##0",
		4:  "#,##0.00",
		9:  "0%",
		10: "0.00%",
		11: "0.00E+00",
		14: "M/D/YYYY",
		15: "D-MMM-YY",
		16: "D-MMM",
		17: "MMM-YY",
		18: "h:mm AM/PM",
		19: "h:mm:ss AM/PM",
		20: "h:mm",
		21: "h:mm:ss",
		22: "M/D/YYYY h:mm",
		37: "#,##0 ;(#,##0)",
		38: "#,##0 ;[Red](#,##0)",
		39: "#,##0.00;(#,##0.00)",
		40: "#,##0.00;[Red](#,##0.00)",
		45: "mm:ss",
		46: "[h]:mm:ss",
		47: "mm:ss.0",
		48: "##0.0E+0",
		49: "@",
	}
	table := make(map[int]*Format, len(entries))
	for key, str := range entries {
		table[key] = &Format{FormatKey: key, Type: classifyFormat(nil, str), FormatString: str}
	}
	return table
}

var dateCharDict = map[rune]int{
	'y': 5, 'Y': 5, 'm': 5, 'M': 5, 'd': 5, 'D': 5, 'h': 5, 'H': 5, 's': 5, 'S': 5,
}

var skipCharDict = map[rune]bool{
	'$': true, '-': true, '+': true, '/': true, '(': true, ')': true, ':': true, ' ': true,
}

var numCharDict = map[rune]int{
	'0': 5, '#': 5, '?': 5,
}

var nonDateFormats = map[string]bool{
	"0.00E+00": true,
	"##0.0E+0": true,
	"General":  true,
	"GENERAL":  true,
	"general":  true,
	"@":        true,
}

// IsDateFormatString applies xlrd's classic heuristic: strip quoted
// literals and escaped chars, drop bracketed expressions, then check for
// date characters (ymdhs, caseless) with no numeric-format characters.
// bk is accepted for symmetry with the rest of the decoder API but isn't
// consulted; the heuristic is pure.
func IsDateFormatString(bk *Book, formatStr string) bool {
	state := 0
	var s strings.Builder

	for _, c := range formatStr {
		switch state {
		case 0:
			switch {
			case c == '"':
				state = 1
			case c == '\\' || c == '_' || c == '*':
				state = 2
			case skipCharDict[c]:
				// skip
			default:
				s.WriteRune(c)
			}
		case 1:
			if c == '"' {
				state = 0
			}
		case 2:
			state = 0
		}
	}

	reducedFmt := s.String()
	re := regexp.MustCompile(`\[.*?\]`)
	reducedFmt = re.ReplaceAllString(reducedFmt, "")

	if nonDateFormats[reducedFmt] {
		return false
	}

	dateCount, numCount := 0, 0
	for _, c := range reducedFmt {
		if count, ok := dateCharDict[c]; ok {
			dateCount += count
		} else if count, ok := numCharDict[c]; ok {
			numCount += count
		}
	}
	return dateCount > 0 && numCount == 0
}

// NearestColourIndex finds the palette index whose RGB triple is closest
// (Euclidean) to rgb. Nothing in this package calls it.
func NearestColourIndex(colourMap map[int][3]int, rgb [3]int, debug int) int {
	bestMetric := 3 * 256 * 256
	bestColourx := 0

	for colourx, candRGB := range colourMap {
		if candRGB == [3]int{} {
			continue
		}
		metric := 0
		for i := 0; i < 3; i++ {
			diff := rgb[i] - candRGB[i]
			metric += diff * diff
		}
		if metric < bestMetric {
			bestMetric = metric
			bestColourx = colourx
			if metric == 0 {
				break
			}
		}
	}

	if debug > 0 {
		fmt.Printf("nearest_colour_index for %v is %d -> %v; best_metric is %d\n",
			rgb, bestColourx, colourMap[bestColourx], bestMetric)
	}
	return bestColourx
}
