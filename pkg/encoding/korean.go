// Package encoding converts the EUC-KR strings found in Ragnarok Online data
// files to and from UTF-8.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// DecodeFixed cuts a NUL-padded field at its first NUL and decodes it from
// EUC-KR. Pure ASCII is returned unchanged, and bytes that do not decode are
// returned as they are.
func DecodeFixed(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return Decode(field)
}

// Decode converts EUC-KR bytes to UTF-8.
func Decode(b []byte) string {
	if isASCII(b) {
		return string(b)
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Encode converts a UTF-8 string to EUC-KR, falling back to the UTF-8 bytes
// when s has characters outside the code page.
func Encode(s string) []byte {
	if IsASCII(s) {
		return []byte(s)
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// NormalizePath lowercases an archive path and uses forward slashes.
func NormalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}

// IsASCII reports whether s is plain 7-bit ASCII.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
