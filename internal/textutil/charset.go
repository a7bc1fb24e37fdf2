package textutil

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// Charset is the character encoding of the active locale. The zero value is
// UTF-8, which needs no transcoding.
type Charset struct {
	Name string
	enc  encoding.Encoding
}

var isoCodeset = regexp.MustCompile(`^iso[-_]?8859[-_]?(\d+)$`)

// LocaleCharset resolves the charset named by LC_ALL, LC_CTYPE or LANG, in
// that order. Unknown or unset codesets fall back to UTF-8.
func LocaleCharset(getenv func(string) string) Charset {
	var locale string
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			locale = v
			break
		}
	}
	codeset := localeCodeset(locale)
	if codeset == "" || isUTF8(codeset) {
		return Charset{Name: "UTF-8"}
	}
	enc, name := lookupEncoding(codeset)
	if enc == nil {
		return Charset{Name: "UTF-8"}
	}
	return Charset{Name: name, enc: enc}
}

// IsUTF8 reports whether text passes through untouched.
func (c Charset) IsUTF8() bool {
	return c.enc == nil
}

// NewReader decodes r from the charset into UTF-8.
func (c Charset) NewReader(r io.Reader) io.Reader {
	if c.enc == nil {
		return r
	}
	return c.enc.NewDecoder().Reader(r)
}

// NewWriter encodes UTF-8 written to the result into the charset. Runes the
// charset cannot represent are replaced rather than failing the write.
func (c Charset) NewWriter(w io.Writer) io.Writer {
	if c.enc == nil {
		return w
	}
	return encoding.ReplaceUnsupported(c.enc.NewEncoder()).Writer(w)
}

// localeCodeset extracts the codeset of language_TERRITORY.codeset@modifier.
func localeCodeset(locale string) string {
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	if at := strings.IndexByte(locale, '@'); at >= 0 {
		locale = locale[:at]
	}
	dot := strings.IndexByte(locale, '.')
	if dot < 0 {
		return ""
	}
	return strings.ToLower(locale[dot+1:])
}

func isUTF8(codeset string) bool {
	return codeset == "utf-8" || codeset == "utf8"
}

func lookupEncoding(codeset string) (encoding.Encoding, string) {
	if m := isoCodeset.FindStringSubmatch(codeset); m != nil {
		codeset = "iso-8859-" + m[1]
	}
	if enc, err := ianaindex.IANA.Encoding(codeset); err == nil && enc != nil {
		name, _ := ianaindex.IANA.Name(enc)
		return enc, name
	}
	if enc, err := htmlindex.Get(codeset); err == nil && enc != nil {
		name, _ := htmlindex.Name(enc)
		return enc, name
	}
	return nil, ""
}
