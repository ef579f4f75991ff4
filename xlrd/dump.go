package xlrd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// safeChar maps a byte to a printable stand-in for the character gutter
// in HexCharDump: NUL gets its own marker since it's by far the most
// common non-printable byte in a BIFF stream (string padding, reserved
// fields), everything else non-printable collapses to '?'.
func safeChar(b byte) byte {
	switch {
	case b == 0:
		return '~'
	case b < 32 || b > 126:
		return '?'
	default:
		return b
	}
}

// HexCharDump writes data[base:base+size] to w as hex byte pairs
// alongside a character gutter, sixteen bytes per line, mirroring the
// classic xlrd dump format. When unnumbered is true the leading offset
// column is omitted so two dumps of near-identical files diff cleanly.
func HexCharDump(data []byte, base, size, indent int, w io.Writer, unnumbered bool) {
	end := base + size
	if end > len(data) {
		end = len(data)
	}
	if base < 0 {
		base = 0
	}
	const width = 16
	pad := strings.Repeat(" ", indent)
	for off := base; off < end; off += width {
		lineEnd := off + width
		if lineEnd > end {
			lineEnd = end
		}
		line := data[off:lineEnd]
		hexParts := make([]string, len(line))
		chars := make([]byte, len(line))
		for i, b := range line {
			hexParts[i] = fmt.Sprintf("%02x", b)
			chars[i] = safeChar(b)
		}
		if unnumbered {
			fmt.Fprintf(w, "%s%-47s  %s\n", pad, strings.Join(hexParts, " "), string(chars))
		} else {
			fmt.Fprintf(w, "%s%06x %-47s  %s\n", pad, off, strings.Join(hexParts, " "), string(chars))
		}
	}
}

// loadBiffStream reads filename and, if it's an OLE2 compound document,
// extracts the "Workbook"/"Book" substream from it; otherwise it assumes
// the file is already a bare BIFF stream.
func loadBiffStream(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if len(content) >= 8 && isOLE2Signature(content) {
		return (CompoundFileSource{}).WorkbookStream(content)
	}
	return content, nil
}

// Dump dumps an XLS file's BIFF records in char & hex format for debugging.
//
// filename: The path to the file to be dumped.
// outfile: An open file, to which the dump is written.
// unnumbered: If true, omit offsets (for meaningful diffs).
func Dump(filename string, outfile io.Writer, unnumbered bool) error {
	buf, err := loadBiffStream(filename)
	if err != nil {
		return err
	}
	cur := newChunkCursor(buf, 0)
	for {
		ch, ok := cur.next()
		if !ok {
			break
		}
		if unnumbered {
			fmt.Fprintf(outfile, "opcode 0x%04x, %d bytes\n", ch.opcode, len(ch.body))
		} else {
			fmt.Fprintf(outfile, "offset %d: opcode 0x%04x, %d bytes\n", ch.offset, ch.opcode, len(ch.body))
		}
		HexCharDump(ch.body, 0, len(ch.body), 4, outfile, unnumbered)
	}
	return nil
}

// CountRecords summarises the file's BIFF records.
// It writes one "opcode count" line per distinct opcode, sorted by opcode.
//
// filename: The path to the file to be summarised.
// outfile: An open file, to which the summary is written.
func CountRecords(filename string, outfile io.Writer) error {
	buf, err := loadBiffStream(filename)
	if err != nil {
		return err
	}
	counts := map[int]int{}
	cur := newChunkCursor(buf, 0)
	for {
		ch, ok := cur.next()
		if !ok {
			break
		}
		counts[ch.opcode]++
	}
	opcodes := make([]int, 0, len(counts))
	for op := range counts {
		opcodes = append(opcodes, op)
	}
	sort.Ints(opcodes)
	for _, op := range opcodes {
		fmt.Fprintf(outfile, "0x%04x %6d\n", op, counts[op])
	}
	return nil
}
