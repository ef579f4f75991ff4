package xlrd

import (
	"bytes"
	"io"

	"github.com/richardlehane/mscfb"
)

// CompDocError represents an error while locating a stream inside an OLE2
// compound document.
type CompDocError struct {
	Message string
}

func (e *CompDocError) Error() string {
	return e.Message
}

// StreamSource extracts the raw BIFF byte stream this reader operates on
// from whatever container the caller has (§1: OLE2 extraction is an
// external collaborator, interface only). OpenWorkbook always uses
// CompoundFileSource; a caller that has already extracted the
// "Workbook"/"Book" stream itself can skip this entirely and pass the
// bytes to (*Reader).Read directly.
type StreamSource interface {
	// WorkbookStream returns the raw BIFF bytes found in container.
	WorkbookStream(container []byte) ([]byte, error)
}

// CompoundFileSource is the default StreamSource: an OLE2/CFB compound
// document, as produced by every real .xls file. It locates the
// "Workbook" stream (BIFF8) or, failing that, "Book" (BIFF5/7), matching
// case-insensitively since some writers vary the casing.
type CompoundFileSource struct{}

func (CompoundFileSource) WorkbookStream(container []byte) ([]byte, error) {
	r, err := mscfb.New(bytes.NewReader(container))
	if err != nil {
		return nil, &CompDocError{Message: "not an OLE2 compound document: " + err.Error()}
	}
	var book []byte
	for entry, err := r.Next(); err == nil; entry, err = r.Next() {
		name := entry.Name
		if !equalFoldASCII(name, "Workbook") && !equalFoldASCII(name, "Book") {
			continue
		}
		buf := make([]byte, entry.Size)
		n, readErr := io.ReadFull(entry, buf)
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return nil, &CompDocError{Message: "reading " + name + " stream: " + readErr.Error()}
		}
		if equalFoldASCII(name, "Workbook") {
			return buf[:n], nil
		}
		if book == nil {
			book = buf[:n]
		}
	}
	if book != nil {
		return book, nil
	}
	return nil, &CompDocError{Message: `no "Workbook" or "Book" stream found in compound document`}
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
