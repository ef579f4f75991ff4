package xlrd

import "encoding/binary"

// Sheet contains the data for one worksheet.
//
// In the cell access functions, rowx is a row index, counting from zero,
// and colx is a column index, counting from zero.
//
// You don't instantiate this type yourself. You access Sheet objects via
// the Book object that was returned when you called OpenWorkbook or
// (*Reader).Read.
type Sheet struct {
	BaseObject

	// Name is the name of the sheet.
	Name string

	// Book is a reference to the Book object to which this sheet belongs.
	Book *Book

	// NRows is one more than the highest row index seen, from DIMENSIONS
	// or the highest ROW record indexed, whichever is larger.
	NRows int

	// NCols is one more than the highest column index found, ignoring
	// trailing empty cells.
	NCols int

	// ColInfoMap is the map from a column index to a Colinfo object.
	ColInfoMap map[int]*ColInfo

	// RowInfoMap is the map from a row index to a Rowinfo object.
	RowInfoMap map[int]*RowInfo

	// ColLabelRanges is a list of address ranges of cells containing column labels.
	ColLabelRanges [][4]int

	// RowLabelRanges is a list of address ranges of cells containing row labels.
	RowLabelRanges [][4]int

	// MergedCells is a list of (row_first, row_last_plus_one,
	// col_first, col_last_plus_one) ranges, as decoded from MERGEDCELLS.
	MergedCells [][4]int

	// bofOffset, rangeOffset and rangeLength describe this sheet's byte
	// range within Book.Buf, resolved in §4.E from the BOUNDSHEET
	// directory. bofOffset points at the sheet's own BOF record;
	// rangeOffset/rangeLength bound the whole sheet substream.
	bofOffset   int
	rangeOffset int
	rangeLength int

	// rowIndex maps a row number to where its cell records live, built by
	// the worksheet pass (§4.F). A row with no entry has no cell records
	// at all (fully empty row).
	rowIndex map[int]*RowAddress

	indexed bool

	// cache holds the single most recently materialized row (§4.G): the
	// reader never keeps more than one row's cells decoded at a time.
	cacheIndex int
	cacheValid bool
	cacheCells map[int]*Cell
}

// RowAddress records where a row's cell records begin, for the lazy row
// materializer (§4.G) to seek to on a cache miss.
type RowAddress struct {
	Index                int
	FirstUsedCol         int
	FirstUnusedCol       int
	RowBlockStart        int
	RowOffsetWithinBlock int
}

// Cell represents a cell in a worksheet.
type Cell struct {
	BaseObject

	// CType is the type of the cell.
	// One of: XL_CELL_EMPTY, XL_CELL_TEXT, XL_CELL_NUMBER, XL_CELL_DATE, XL_CELL_BOOLEAN, XL_CELL_ERROR, XL_CELL_BLANK
	CType int

	// Value is the value of the cell.
	Value interface{}

	// XFIndex is the index of the XF record for this cell.
	XFIndex int
}

// ColInfo contains information about a column.
type ColInfo struct {
	BaseObject

	// Width is the column width.
	Width int

	// Hidden indicates if the column is hidden.
	Hidden bool

	// XFIndex is the index of the XF record for this column.
	XFIndex int
}

// RowInfo contains information about a row.
type RowInfo struct {
	BaseObject

	// Height is the row height.
	Height int

	// Hidden indicates if the row is hidden.
	Hidden bool

	// XFIndex is the index of the XF record for this row.
	XFIndex int
}

// indexRows runs the worksheet pass (§4.F): it reads sh's own BOF,
// captures DIMENSIONS, and walks ROW records to build sh.rowIndex, using
// DBCELL (or the next record that doesn't belong to a row block) to close
// off the row block currently being tracked. It never decodes a single
// cell value; that's the lazy materializer's job.
func (r *Reader) indexRows(bk *Book, sh *Sheet) error {
	cur := newChunkCursor(bk.Buf, sh.rangeOffset)
	end := sh.rangeOffset + sh.rangeLength

	first, ok := cur.next()
	if !ok || first.kind != kBOF {
		return NewReaderError("worksheet %q substream does not start with BOF", sh.Name)
	}

	blockStart := -1
	seenEOF := false

	for cur.tell() < end {
		ch, ok := cur.next()
		if !ok {
			break
		}

		switch ch.kind {
		case kEOF:
			seenEOF = true
		case kDimensions:
			decodeDimensions(sh, ch.body)
			blockStart = -1
		case kRow:
			if blockStart < 0 {
				blockStart = ch.offset
			}
			ra, derr := decodeRowRecord(ch.body)
			if derr != nil {
				r.logger.WithField("sheet", sh.Name).WithField("offset", ch.offset).Warn("malformed ROW record, skipping")
				break
			}
			ra.RowBlockStart = blockStart
			ra.RowOffsetWithinBlock = ch.offset - blockStart
			sh.rowIndex[ra.Index] = &ra
			if ra.Index+1 > sh.NRows {
				sh.NRows = ra.Index + 1
			}
			if ra.FirstUnusedCol > sh.NCols {
				sh.NCols = ra.FirstUnusedCol
			}
		case kMergedCells:
			decodeMergedCells(sh, ch.body)
			blockStart = -1
		case kDBCell:
			blockStart = -1
		default:
			if blockStart >= 0 && !rowBlockKinds[ch.kind] {
				blockStart = -1
			}
		}

		if seenEOF {
			break
		}
	}

	sh.indexed = true
	return nil
}

// decodeDimensions decodes a DIMENSIONS record's row/column bounds into
// sh.NRows/sh.NCols. A DIMENSIONS record is only ever an upper bound
// hint; a corrupt or absent one is tolerated, with NRows/NCols growing
// from actual ROW records instead (see indexRows).
func decodeDimensions(sh *Sheet, body []byte) {
	if len(body) < 12 {
		return
	}
	// first_row, last_row_plus_one are u32 in BIFF8's 0x0200 layout; the
	// BIFF5/7 0x0000 layout uses u16 for the same fields at the same
	// relative position when the record body is 10 bytes, so this only
	// trusts the u32 form and leaves NRows/NCols to grow from ROW records
	// otherwise.
	lastRow := int(binary.LittleEndian.Uint32(body[4:8]))
	firstCol := int(binary.LittleEndian.Uint16(body[8:10]))
	lastCol := int(binary.LittleEndian.Uint16(body[10:12]))
	if lastRow > sh.NRows {
		sh.NRows = lastRow
	}
	if lastCol > sh.NCols {
		sh.NCols = lastCol
	}
	_ = firstCol
}

// decodeRowRecord decodes a ROW record's row index and used-column range
// (§4.F). The row's own height/hidden flags are captured into RowInfoMap
// by the caller if desired; this module keeps only what the row index
// needs.
func decodeRowRecord(body []byte) (RowAddress, error) {
	if len(body) < 8 {
		return RowAddress{}, NewReaderError("ROW record truncated")
	}
	index := int(binary.LittleEndian.Uint16(body[0:2]))
	firstUsed := int(binary.LittleEndian.Uint16(body[2:4]))
	firstUnused := int(binary.LittleEndian.Uint16(body[4:6]))
	return RowAddress{Index: index, FirstUsedCol: firstUsed, FirstUnusedCol: firstUnused}, nil
}

// decodeMergedCells appends the ranges in a MERGEDCELLS record to
// sh.MergedCells: (row_first, row_last_plus_one, col_first,
// col_last_plus_one) per range, prefixed by a u16 count.
func decodeMergedCells(sh *Sheet, body []byte) {
	if len(body) < 2 {
		return
	}
	count := int(binary.LittleEndian.Uint16(body[0:2]))
	pos := 2
	for i := 0; i < count && pos+8 <= len(body); i++ {
		firstRow := int(binary.LittleEndian.Uint16(body[pos : pos+2]))
		lastRow := int(binary.LittleEndian.Uint16(body[pos+2 : pos+4]))
		firstCol := int(binary.LittleEndian.Uint16(body[pos+4 : pos+6]))
		lastCol := int(binary.LittleEndian.Uint16(body[pos+6 : pos+8]))
		sh.MergedCells = append(sh.MergedCells, [4]int{firstRow, lastRow + 1, firstCol, lastCol + 1})
		pos += 8
	}
}

// row returns rowx's cells, materializing them from the byte stream on a
// cache miss (§4.G) and reusing the cached decode otherwise. A row with
// no RowAddress entry has no cell records at all: an empty map, not an
// error.
func (sh *Sheet) row(rowx int) map[int]*Cell {
	if sh.cacheValid && sh.cacheIndex == rowx {
		return sh.cacheCells
	}
	ra, ok := sh.rowIndex[rowx]
	if !ok {
		sh.cacheValid = true
		sh.cacheIndex = rowx
		sh.cacheCells = map[int]*Cell{}
		return sh.cacheCells
	}

	cells := map[int]*Cell{}
	cur := newChunkCursor(sh.Book.Buf, ra.RowBlockStart)
	end := sh.rangeOffset + sh.rangeLength

	// Scan the whole row block from its start, skipping ROW headers;
	// row blocks interleave several rows' cell records so every record
	// in the block is inspected and assigned to its own row via the
	// record's own row field.
	for cur.tell() < end {
		ch, ok := cur.next()
		if !ok {
			break
		}
		if ch.kind == kDBCell || ch.kind == kEOF {
			break
		}
		if ch.kind == kRow || !isCellKind(ch.kind) {
			continue
		}
		if len(ch.body) < 2 {
			continue
		}
		cellRow := int(binary.LittleEndian.Uint16(ch.body[0:2]))
		if cellRow != rowx {
			continue
		}
		decodeCellRecord(sh.Book, cur, ch, cells)
	}

	sh.cacheValid = true
	sh.cacheIndex = rowx
	sh.cacheCells = cells
	return cells
}

// decodeCellRecord decodes one cell-bearing record into cells, keyed by
// column (§4.G). MULBLANK and MULRK expand into one Cell per column in
// their range.
func decodeCellRecord(bk *Book, cur *chunkCursor, ch chunk, cells map[int]*Cell) {
	body := ch.body
	switch ch.kind {
	case kBlank:
		if len(body) < 6 {
			return
		}
		col := int(binary.LittleEndian.Uint16(body[2:4]))
		xf := int(binary.LittleEndian.Uint16(body[4:6]))
		cells[col] = &Cell{CType: XL_CELL_BLANK, XFIndex: xf}
	case kBoolErr:
		if len(body) < 8 {
			return
		}
		col := int(binary.LittleEndian.Uint16(body[2:4]))
		xf := int(binary.LittleEndian.Uint16(body[4:6]))
		val := body[6]
		isErr := body[7]
		if isErr != 0 {
			cells[col] = &Cell{CType: XL_CELL_ERROR, Value: val, XFIndex: xf}
		} else {
			cells[col] = &Cell{CType: XL_CELL_BOOLEAN, Value: val != 0, XFIndex: xf}
		}
	case kNumber:
		if len(body) < 14 {
			return
		}
		col := int(binary.LittleEndian.Uint16(body[2:4]))
		xf := int(binary.LittleEndian.Uint16(body[4:6]))
		v, err := decodeDouble(body[6:14])
		if err != nil {
			return
		}
		cells[col] = &Cell{CType: cellNumberType(bk, xf), Value: v, XFIndex: xf}
	case kRK:
		if len(body) < 10 {
			return
		}
		col := int(binary.LittleEndian.Uint16(body[2:4]))
		xf := int(binary.LittleEndian.Uint16(body[4:6]))
		v := decodeRK(binary.LittleEndian.Uint32(body[6:10]))
		cells[col] = &Cell{CType: cellNumberType(bk, xf), Value: v, XFIndex: xf}
	case kMulRK:
		decodeMulRK(bk, body, cells)
	case kMulBlank:
		decodeMulBlank(body, cells)
	case kLabel:
		if len(body) < 6 {
			return
		}
		col := int(binary.LittleEndian.Uint16(body[2:4]))
		xf := int(binary.LittleEndian.Uint16(body[4:6]))
		var str string
		var err error
		if bk.BiffVersion >= BIFF_FIRST_UNICODE {
			str, _, err = unpackUnicodeString(body, 6, 2)
		} else {
			str, _, err = unpackByteString(body, 6, 2, bk.Encoder)
		}
		if err != nil {
			return
		}
		cells[col] = &Cell{CType: XL_CELL_TEXT, Value: str, XFIndex: xf}
	case kRString:
		if len(body) < 6 {
			return
		}
		col := int(binary.LittleEndian.Uint16(body[2:4]))
		xf := int(binary.LittleEndian.Uint16(body[4:6]))
		str, _, err := unpackByteString(body, 6, 2, bk.Encoder)
		if err != nil {
			return
		}
		cells[col] = &Cell{CType: XL_CELL_TEXT, Value: str, XFIndex: xf}
	case kLabelSST:
		if len(body) < 10 {
			return
		}
		col := int(binary.LittleEndian.Uint16(body[2:4]))
		xf := int(binary.LittleEndian.Uint16(body[4:6]))
		sstIdx := int(binary.LittleEndian.Uint32(body[6:10]))
		var str string
		if sstIdx >= 0 && sstIdx < len(bk.SST) {
			str = bk.SST[sstIdx]
		}
		cells[col] = &Cell{CType: XL_CELL_TEXT, Value: str, XFIndex: xf}
	case kFormula:
		row, col, xf, res, err := decodeFormula(bk, cur, body)
		if err != nil {
			return
		}
		ctype := res.CType
		if ctype == XL_CELL_NUMBER {
			ctype = cellNumberType(bk, xf)
		}
		_ = row
		cells[col] = &Cell{CType: ctype, Value: res.Value, XFIndex: xf}
	}
}

// cellNumberType promotes XL_CELL_NUMBER to XL_CELL_DATE when the cell's
// XF names a date-classified number format (§4.H′/§8).
func cellNumberType(bk *Book, xfIndex int) int {
	if xfIndex < 0 || xfIndex >= len(bk.XFList) {
		return XL_CELL_NUMBER
	}
	xf := bk.XFList[xfIndex]
	fmtEntry, ok := bk.FormatMap[xf.FormatKey]
	if !ok || fmtEntry.Type != FDT {
		return XL_CELL_NUMBER
	}
	return XL_CELL_DATE
}

func decodeMulRK(bk *Book, body []byte, cells map[int]*Cell) {
	if len(body) < 6 {
		return
	}
	firstCol := int(binary.LittleEndian.Uint16(body[2:4]))
	lastCol := int(binary.LittleEndian.Uint16(body[len(body)-2:]))
	pos := 4
	for col := firstCol; col <= lastCol && pos+6 <= len(body)-2; col++ {
		xf := int(binary.LittleEndian.Uint16(body[pos : pos+2]))
		v := decodeRK(binary.LittleEndian.Uint32(body[pos+2 : pos+6]))
		cells[col] = &Cell{CType: cellNumberType(bk, xf), Value: v, XFIndex: xf}
		pos += 6
	}
}

func decodeMulBlank(body []byte, cells map[int]*Cell) {
	if len(body) < 6 {
		return
	}
	firstCol := int(binary.LittleEndian.Uint16(body[2:4]))
	lastCol := int(binary.LittleEndian.Uint16(body[len(body)-2:]))
	pos := 4
	for col := firstCol; col <= lastCol && pos+2 <= len(body)-2; col++ {
		xf := int(binary.LittleEndian.Uint16(body[pos : pos+2]))
		cells[col] = &Cell{CType: XL_CELL_BLANK, XFIndex: xf}
		pos += 2
	}
}

// RawCellType returns the type of the physical cell at (rowx, colx),
// ignoring merged-cell resolution.
func (s *Sheet) RawCellType(rowx, colx int) int {
	if c, ok := s.row(rowx)[colx]; ok {
		return c.CType
	}
	return XL_CELL_EMPTY
}

// RawCellValue returns the value of the physical cell at (rowx, colx),
// ignoring merged-cell resolution.
func (s *Sheet) RawCellValue(rowx, colx int) interface{} {
	if c, ok := s.row(rowx)[colx]; ok {
		return c.Value
	}
	return nil
}

// RawCellXFIndex returns the XF index of the physical cell at (rowx,
// colx), ignoring merged-cell resolution.
func (s *Sheet) RawCellXFIndex(rowx, colx int) int {
	if c, ok := s.row(rowx)[colx]; ok {
		return c.XFIndex
	}
	return 0
}

// mergeAnchor returns the top-left (rowx, colx) of the merged range
// containing (rowx, colx), or the cell itself if it isn't part of one.
func (s *Sheet) mergeAnchor(rowx, colx int) (int, int) {
	for _, rng := range s.MergedCells {
		if rowx >= rng[0] && rowx < rng[1] && colx >= rng[2] && colx < rng[3] {
			return rng[0], rng[2]
		}
	}
	return rowx, colx
}

// CellType returns the type of the cell at (rowx, colx), resolving
// merged ranges to their anchor cell's value.
func (s *Sheet) CellType(rowx, colx int) int {
	ar, ac := s.mergeAnchor(rowx, colx)
	return s.RawCellType(ar, ac)
}

// CellValue returns the value of the cell at (rowx, colx), resolving
// merged ranges to their anchor cell's value.
func (s *Sheet) CellValue(rowx, colx int) interface{} {
	ar, ac := s.mergeAnchor(rowx, colx)
	return s.RawCellValue(ar, ac)
}

// CellXFIndex returns the XF index of the cell at (rowx, colx), resolving
// merged ranges to their anchor cell's XF.
func (s *Sheet) CellXFIndex(rowx, colx int) int {
	ar, ac := s.mergeAnchor(rowx, colx)
	return s.RawCellXFIndex(ar, ac)
}

// Cell returns the Cell object at the given row and column (raw, no
// merge resolution).
func (s *Sheet) Cell(rowx, colx int) *Cell {
	if c, ok := s.row(rowx)[colx]; ok {
		return c
	}
	return EmptyCell()
}

// Row returns a slice of Cell objects for the given row, one entry per
// column from 0 to NCols-1, with unset columns filled in as empty cells.
func (s *Sheet) Row(rowx int) []*Cell {
	rowCells := s.row(rowx)
	out := make([]*Cell, s.NCols)
	for colx := range out {
		if c, ok := rowCells[colx]; ok {
			out[colx] = c
		} else {
			out[colx] = EmptyCell()
		}
	}
	return out
}

// RowLen returns the number of physical cell records present in rowx
// (not counting the implicit empty cells out to NCols).
func (s *Sheet) RowLen(rowx int) int {
	return len(s.row(rowx))
}

// EmptyCell returns an empty cell.
func EmptyCell() *Cell {
	return &Cell{CType: XL_CELL_EMPTY}
}
