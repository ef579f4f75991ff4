package xlrd

import "testing"

func TestOpenWorkbookUnknownFormat(t *testing.T) {
	_, err := OpenWorkbook("", &OpenWorkbookOptions{FileContents: []byte("not a spreadsheet at all")})
	if err == nil {
		t.Error("OpenWorkbook of an unrecognized format should error")
	}
}

func TestOpenWorkbookRejectsXLSX(t *testing.T) {
	content := buildZipWithEntry("xl/workbook.xml")
	_, err := OpenWorkbook("", &OpenWorkbookOptions{FileContents: content})
	if err == nil {
		t.Fatal("OpenWorkbook of an xlsx file should error: this reader only decodes legacy xls BIFF streams")
	}
	want := FileFormatDescriptions["xlsx"]
	if err.Error() == "" || want == "" {
		t.Fatalf("unexpected empty error or description")
	}
}

func TestOpenWorkbookNoPathOrContent(t *testing.T) {
	_, err := OpenWorkbook("", nil)
	if err == nil {
		t.Error("OpenWorkbook with neither a path nor FileContents should error")
	}
}

func TestOpenWorkbookMissingFile(t *testing.T) {
	_, err := OpenWorkbook("/nonexistent/path/to/workbook.xls", nil)
	if err == nil {
		t.Error("OpenWorkbook of a nonexistent path should error")
	}
}
