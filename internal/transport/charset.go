package transport

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	xunicode "golang.org/x/text/encoding/unicode"
)

// namedEncoding pairs an encoding with its WHATWG name.
type namedEncoding struct {
	name     string
	encoding encoding.Encoding

	// rare holds runes the encoding can produce that real pages seldom
	// contain. They count against the candidate when scoring.
	rare *unicode.RangeTable
}

var halfwidthKatakana = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0xff61, Hi: 0xff9f, Stride: 1}},
}

// fallbackEncodings is tried when the declared encoding does not match the
// bytes. Strict multibyte decoders come before the single-byte charmaps,
// which accept any byte sequence.
var fallbackEncodings = []namedEncoding{
	{name: "utf-8", encoding: xunicode.UTF8},
	{name: "shift_jis", encoding: japanese.ShiftJIS, rare: halfwidthKatakana},
	{name: "euc-kr", encoding: korean.EUCKR, rare: unicode.Han},
	{name: "gbk", encoding: simplifiedchinese.GBK},
	{name: "windows-1252", encoding: charmap.Windows1252},
	{name: "iso-8859-15", encoding: charmap.ISO8859_15},
}

var replacementChar = []byte(string(utf8.RuneError))

// Decoded is the result of Decode.
type Decoded struct {
	Body     []byte
	Charset  string
	Declared string
}

// Decode converts raw to UTF-8.
//
// The declared encoding comes from a BOM, the Content-Type charset or a
// <meta> tag, in that order. The fallback list is consulted when the
// declared decode contains U+FFFD, or when a non-UTF-8 declaration covers
// bytes that are valid multibyte UTF-8, which is what produces "Ã©" style
// mojibake. Clean UTF-8 wins outright; otherwise the clean fallback with
// the fewest implausible runes wins. When no fallback decodes cleanly the
// declared decode is kept.
func Decode(raw []byte, contentType string) Decoded {
	enc, declared, _ := charset.DetermineEncoding(raw, contentType)
	declared = strings.ToLower(declared)

	body, err := decodeWith(enc, raw)
	if err != nil {
		body = raw
	}
	result := Decoded{Body: body, Charset: declared, Declared: declared}

	if !needsFallback(raw, body, declared) {
		return result
	}

	best, bestScore := result, -1
	for _, candidate := range fallbackEncodings {
		if candidate.name == declared {
			continue
		}
		decoded, err := decodeWith(candidate.encoding, raw)
		if err != nil || bytes.Contains(decoded, replacementChar) {
			continue
		}
		if candidate.name == "utf-8" {
			return Decoded{Body: decoded, Charset: candidate.name, Declared: declared}
		}
		// Ties keep the earlier candidate.
		if score := implausibleRunes(decoded, candidate.rare); bestScore < 0 || score < bestScore {
			best = Decoded{Body: decoded, Charset: candidate.name, Declared: declared}
			bestScore = score
		}
	}
	return best
}

// implausibleRunes counts the non-ASCII runes of text that are neither
// letters, marks, numbers nor spaces, plus C1 controls, private use runes
// and runes in rare.
func implausibleRunes(text []byte, rare *unicode.RangeTable) int {
	n := 0
	for _, r := range string(text) {
		if r < utf8.RuneSelf {
			continue
		}
		switch {
		case r <= 0x9f, unicode.Is(unicode.Co, r), rare != nil && unicode.Is(rare, r):
			n++
		case !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsNumber(r) && !unicode.IsSpace(r):
			n++
		}
	}
	return n
}

func needsFallback(raw, decoded []byte, declared string) bool {
	if bytes.Contains(decoded, replacementChar) && !bytes.Contains(raw, replacementChar) {
		return true
	}
	return declared != "utf-8" && hasMultibyteUTF8(raw)
}

// hasMultibyteUTF8 reports whether raw is valid UTF-8 with at least one
// non-ASCII rune.
func hasMultibyteUTF8(raw []byte) bool {
	if !utf8.Valid(raw) {
		return false
	}
	for _, b := range raw {
		if b >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

func decodeWith(enc encoding.Encoding, raw []byte) ([]byte, error) {
	if enc == encoding.Nop {
		return raw, nil
	}
	return enc.NewDecoder().Bytes(raw)
}
