package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// TestDecode tests declared charset handling and the fallback decoder.
func TestDecode(t *testing.T) {
	t.Parallel()

	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("<p>宇多田ヒカル</p>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	euckr, err := korean.EUCKR.NewEncoder().Bytes([]byte("<p>방탄소년단</p>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name        string
		raw         []byte
		contentType string
		want        string
		charset     string
		declared    string
	}{
		{
			name:        "declared utf-8",
			raw:         []byte("<p>Beyoncé</p>"),
			contentType: "text/html; charset=utf-8",
			want:        "<p>Beyoncé</p>",
			charset:     "utf-8",
			declared:    "utf-8",
		},
		{
			name:        "utf-8 bytes declared latin-1",
			raw:         []byte("<p>Beyoncé</p>"),
			contentType: "text/html; charset=iso-8859-1",
			want:        "<p>Beyoncé</p>",
			charset:     "utf-8",
			declared:    "windows-1252",
		},
		{
			name:        "latin-1 bytes declared utf-8",
			raw:         []byte("<p>caf\xe9</p>"),
			contentType: "text/html; charset=utf-8",
			want:        "<p>café</p>",
			charset:     "windows-1252",
			declared:    "utf-8",
		},
		{
			name:        "shift_jis declared correctly",
			raw:         sjis,
			contentType: "text/html; charset=Shift_JIS",
			want:        "<p>宇多田ヒカル</p>",
			charset:     "shift_jis",
			declared:    "shift_jis",
		},
		{
			name:        "shift_jis bytes declared utf-8",
			raw:         sjis,
			contentType: "text/html; charset=utf-8",
			want:        "<p>宇多田ヒカル</p>",
			charset:     "shift_jis",
			declared:    "utf-8",
		},
		{
			name:        "euc-kr bytes declared utf-8",
			raw:         euckr,
			contentType: "text/html; charset=utf-8",
			want:        "<p>방탄소년단</p>",
			charset:     "euc-kr",
			declared:    "utf-8",
		},
		{
			name:        "meta tag declaration",
			raw:         []byte("<html><head><meta charset=\"windows-1252\"></head><body>na\xefve</body></html>"),
			contentType: "text/html",
			want:        `<html><head><meta charset="windows-1252"></head><body>naïve</body></html>`,
			charset:     "windows-1252",
			declared:    "windows-1252",
		},
		{
			name:        "undeclared utf-8 is sniffed",
			raw:         []byte("<p>Sigur Rós</p>"),
			contentType: "",
			want:        "<p>Sigur Rós</p>",
			charset:     "utf-8",
			declared:    "utf-8",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Decode(tc.raw, tc.contentType)
			if string(got.Body) != tc.want {
				t.Errorf("Body = %q, expected %q", got.Body, tc.want)
			}
			if got.Charset != tc.charset {
				t.Errorf("Charset = %q, expected %q", got.Charset, tc.charset)
			}
			if got.Declared != tc.declared {
				t.Errorf("Declared = %q, expected %q", got.Declared, tc.declared)
			}
			if bytes.ContainsRune(got.Body, utf8.RuneError) {
				t.Errorf("Body contains U+FFFD: %q", got.Body)
			}
		})
	}
}

func TestImplausibleRunes(t *testing.T) {
	t.Parallel()

	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("宇多田ヒカル"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("王菲"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latin, err := charmap.Windows1252.NewDecoder().Bytes(sjis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("clean text scores zero", func(t *testing.T) {
		t.Parallel()
		for _, text := range []string{"Beyoncé", "Sigur Rós", "宇多田ヒカル", "방탄소년단", "王菲"} {
			if n := implausibleRunes([]byte(text), nil); n != 0 {
				t.Errorf("implausibleRunes(%q) = %d, expected 0", text, n)
			}
		}
	})

	t.Run("latin mojibake of cjk bytes scores above zero", func(t *testing.T) {
		t.Parallel()
		if n := implausibleRunes(latin, nil); n == 0 {
			t.Errorf("expected %q to score above zero", latin)
		}
	})

	t.Run("rare runes count", func(t *testing.T) {
		t.Parallel()
		if n := implausibleRunes([]byte("ｶﾗｵｹ"), halfwidthKatakana); n != 4 {
			t.Errorf("expected 4, got %d", n)
		}
		if n := implausibleRunes([]byte("王菲"), nil); n != 0 {
			t.Errorf("expected 0 without a rare table, got %d", n)
		}
	})

	t.Run("gbk bytes are not taken for korean", func(t *testing.T) {
		t.Parallel()
		got := Decode(append([]byte("<p>"), append(gbk, "</p>"...)...), "text/html; charset=utf-8")
		if string(got.Body) != "<p>王菲</p>" {
			t.Errorf("Body = %q (charset %s), expected <p>王菲</p>", got.Body, got.Charset)
		}
	})
}

// TestFetchRepairsMojibake runs the fallback through a real response.
func TestFetchRepairsMojibake(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write([]byte("<h1>Björk – Jóga</h1>")) //nolint:errcheck // test server
	}))
	defer srv.Close()

	c := newTestClient(t)
	page, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(page.Body) != "<h1>Björk – Jóga</h1>" {
		t.Errorf("Body = %q", page.Body)
	}
	if bytes.Contains(page.Body, []byte("Ã")) {
		t.Errorf("Body still has mojibake: %q", page.Body)
	}
	if page.Charset == page.Declared {
		t.Errorf("expected fallback, Charset = Declared = %q", page.Charset)
	}
}
