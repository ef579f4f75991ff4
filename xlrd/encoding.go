package xlrd

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Encoder turns a raw BIFF5/7 byte string into a Go string. §1 leaves the
// exact codepage table as an external collaborator's concern; this module
// ships a default backed by golang.org/x/text rather than leaving callers
// to supply their own for every codepage Excel has ever written.
type Encoder interface {
	Decode(raw []byte) (string, error)
}

type charmapEncoder struct {
	enc encoding.Encoding
}

func (c charmapEncoder) Decode(raw []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// codepageEncoders maps a BIFF CODEPAGE record value to a decoder. Entries
// come from x/text's charmap package for the single-byte Windows/Mac
// codepages, and from its CJK packages for the double-byte ones (932,
// 936, 949, 950).
var codepageEncoders = map[int]encoding.Encoding{
	367:   charmap.Windows1252, // ASCII, treated as a 1252 subset
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	860:   charmap.CodePage860,
	863:   charmap.CodePage863,
	865:   charmap.CodePage865,
	874:   charmap.Windows874,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	10007: charmap.MacintoshCyrillic,
	32768: charmap.Macintosh,
	32769: charmap.Windows1252,
}

// resolveEncoder returns the Encoder for a BIFF CODEPAGE value, or an
// UnknownCodePageError if this module has no decoder for it (§7, fatal).
// Codepage 1200 (UTF-16LE) yields a nil Encoder and no error: BIFF8
// strings are native unicode and go through unpackUnicodeString instead.
func resolveEncoder(codepage int) (Encoder, error) {
	if codepage == 1200 {
		return nil, nil
	}
	enc, ok := codepageEncoders[codepage]
	if !ok {
		return nil, newUnknownCodePageError(codepage)
	}
	return charmapEncoder{enc: enc}, nil
}
