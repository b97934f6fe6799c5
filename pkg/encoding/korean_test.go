package encoding

import (
	"bytes"
	"testing"
)

func TestDecodeFixed(t *testing.T) {
	tests := []struct {
		name  string
		field []byte
		want  string
	}{
		{"ascii", []byte("base\x00\x00\x00"), "base"},
		{"no nul", []byte("wing"), "wing"},
		{"korean", append(Encode("날개"), 0, 0), "날개"},
		{"garbage after nul", []byte("tail\x00junk"), "tail"},
		{"empty", make([]byte, 8), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeFixed(tt.field); got != tt.want {
				t.Errorf("DecodeFixed() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	enc := Encode("날개")
	if len(enc) != 4 {
		t.Errorf("len(Encode(날개)) = %d, want 4", len(enc))
	}
	if bytes.Equal(enc, []byte("날개")) {
		t.Error("Encode returned UTF-8")
	}
	if got := string(Encode("plain")); got != "plain" {
		t.Errorf("Encode(plain) = %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath(`Data\Model\Windmill.RSM`); got != "data/model/windmill.rsm" {
		t.Errorf("NormalizePath() = %q", got)
	}
}

func TestIsASCII(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Spine_01", true},
		{"날개", false},
		{"背骨", false},
		{"tail\x7f", true},
	}
	for _, tt := range tests {
		if got := IsASCII(tt.in); got != tt.want {
			t.Errorf("IsASCII(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
