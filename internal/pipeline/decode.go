package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// minDetectConfidence is the chardet score below which the export is
// assumed to be Shift_JIS, the encoding legacy exports are written in.
const minDetectConfidence = 50

// DecodeText turns raw export bytes into text. A non-empty hint names the
// charset explicitly; otherwise BOMs, UTF-8 validity and chardet decide.
// It returns the decoded text and the charset that was used.
func DecodeText(raw []byte, hint string) (string, string, error) {
	if hint = strings.TrimSpace(hint); hint != "" {
		enc, err := htmlindex.Get(hint)
		if err != nil {
			return "", hint, fmt.Errorf("unknown charset %q: %w", hint, err)
		}
		return decodeWith(enc, raw, hint)
	}

	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):]), "UTF-8", nil
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), raw, "UTF-16LE")
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), raw, "UTF-16BE")
	case utf8.Valid(raw):
		return string(raw), "UTF-8", nil
	}

	name := "Shift_JIS"
	var enc encoding.Encoding = japanese.ShiftJIS
	if res, err := chardet.NewTextDetector().DetectBest(raw); err == nil && res != nil && res.Confidence >= minDetectConfidence {
		if detected, err := htmlindex.Get(res.Charset); err == nil {
			name, enc = res.Charset, detected
		}
	}
	return decodeWith(enc, raw, name)
}

func decodeWith(enc encoding.Encoding, raw []byte, name string) (string, string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", name, fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), name, nil
}
