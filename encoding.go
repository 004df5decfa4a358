package rsdb

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultPrimaryEncoding is tried first for text payloads
	DefaultPrimaryEncoding = "utf-8"
	// DefaultFallbackEncoding is tried once when the primary encoding fails
	DefaultFallbackEncoding = "shift_jis"
)

// byteOrderMark is the UTF-8 BOM written by spreadsheet exports
const byteOrderMark = "\uFEFF"

// textDecoder decodes payload bytes with a primary encoding and a single
// fallback. It is not a retry loop: each encoding is attempted exactly once
// on the full payload.
type textDecoder struct {
	primaryName  string
	primary      encoding.Encoding
	fallbackName string
	fallback     encoding.Encoding
}

// lookupEncoding resolves a WHATWG encoding label such as "utf-8",
// "shift_jis", "windows-31j" or "euc-jp".
func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// newTextDecoder creates a decoder. An empty fallback disables the fallback.
func newTextDecoder(primary, fallback string) (*textDecoder, error) {
	p, err := lookupEncoding(primary)
	if err != nil {
		return nil, err
	}
	d := &textDecoder{primaryName: primary, primary: p}
	if fallback != "" {
		f, err := lookupEncoding(fallback)
		if err != nil {
			return nil, err
		}
		d.fallbackName = fallback
		d.fallback = f
	}
	return d, nil
}

// decode returns the payload as UTF-8 text and the name of the encoding that
// succeeded.
func (d *textDecoder) decode(data []byte) (string, string, error) {
	text, primaryErr := decodeWith(d.primary, data)
	if primaryErr == nil {
		return text, d.primaryName, nil
	}
	if d.fallback == nil {
		return "", "", fmt.Errorf("%w: %s: %w", ErrDecode, d.primaryName, primaryErr)
	}

	text, fallbackErr := decodeWith(d.fallback, data)
	if fallbackErr == nil {
		return text, d.fallbackName, nil
	}
	return "", "", fmt.Errorf("%w: %s: %w; %s: %w",
		ErrDecode, d.primaryName, primaryErr, d.fallbackName, fallbackErr)
}

// decodeWith decodes data. UTF-8 input is checked for validity directly, so
// a genuine U+FFFD in the text is accepted. Other decoders substitute the
// replacement character for invalid input, which counts as failure.
func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	if isUTF8(enc) {
		if idx := invalidUTF8Offset(data); idx >= 0 {
			return "", fmt.Errorf("invalid byte sequence near offset %d", idx)
		}
		return strings.TrimPrefix(string(data), byteOrderMark), nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if idx := bytes.IndexRune(out, utf8.RuneError); idx >= 0 {
		return "", fmt.Errorf("invalid byte sequence near offset %d", idx)
	}
	return strings.TrimPrefix(string(out), byteOrderMark), nil
}

// isUTF8 reports whether enc is the UTF-8 encoding under any of its labels.
func isUTF8(enc encoding.Encoding) bool {
	name, err := htmlindex.Name(enc)
	return err == nil && name == "utf-8"
}

// invalidUTF8Offset returns the offset of the first invalid UTF-8 sequence,
// or -1 when data is valid.
func invalidUTF8Offset(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
