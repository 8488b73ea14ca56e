package chainhash

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for hashing.
//
// Supported values are nil, string, []any and map[string]any. Differences
// from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping and no escaping of U+2028/U+2029
//  3. Strings are NFC normalized
//  4. No insignificant whitespace
//
// Record only passes fixed ASCII keys and hex text, so normalization never
// changes a record hash. Raw column bytes are hex encoded before they get
// here and are never normalized.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		writeCanonicalString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only quote, backslash and control
// characters, as RFC 8785 requires.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				hex := strconv.FormatInt(int64(r), 16)
				if len(hex) < 2 {
					buf.WriteByte('0')
				}
				buf.WriteString(hex)
				continue
			}
			var tmp [utf8.UTFMax]byte
			n := utf8.EncodeRune(tmp[:], r)
			buf.Write(tmp[:n])
		}
	}
	buf.WriteByte('"')
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
// Go's default string comparison uses UTF-8 which orders supplementary
// characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
