// Package encoding decodes the legacy text encodings found in source asset
// files. Exporters from older DCC tools often write OBJ and MTL files in the
// system code page instead of UTF-8.
package encoding

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned for encoding names Lookup does not know.
var ErrUnknownEncoding = errors.New("unknown text encoding")

var encodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8,
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"shift-jis":    japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"euc-kr":       korean.EUCKR,
	"gbk":          simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"big5":         traditionalchinese.Big5,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
}

var aliases = map[string]string{
	"":       "utf-8",
	"utf8":   "utf-8",
	"sjis":   "shift-jis",
	"cp932":  "shift-jis",
	"cp949":  "euc-kr",
	"cp936":  "gbk",
	"cp1252": "windows-1252",
	"latin1": "iso-8859-1",
}

// Lookup returns the encoding registered under name (case-insensitive).
// An empty name means UTF-8.
func Lookup(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	enc, ok := encodings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// Names lists the canonical encoding names, sorted.
func Names() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewReader returns a reader that decodes r from the named encoding to
// UTF-8. A leading byte order mark overrides name and is stripped.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// DecodeString converts s from the named encoding to UTF-8.
func DecodeString(s, name string) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	out, _, err := transform.String(unicode.BOMOverride(enc.NewDecoder()), s)
	if err != nil {
		return "", fmt.Errorf("decoding %s text: %w", name, err)
	}
	return out, nil
}
