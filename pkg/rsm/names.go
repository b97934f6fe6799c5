package rsm

import "github.com/Faultbox/avatara-export/pkg/encoding"

// Names are NUL-padded EUC-KR, the encoding of the Korean client's data.
func decodeName(b []byte) string { return encoding.DecodeFixed(b) }

// EncodeName converts a name to the on-disk encoding.
func EncodeName(s string) []byte { return encoding.Encode(s) }
