package grf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var testFiles = map[string][]byte{
	"data/model/windmill.rsm":    []byte("GRSM fake model"),
	`data\texture\wood.bmp`:      []byte("BM fake bitmap data"),
	"data/subfolder/nested.txt":  bytes.Repeat([]byte("nested "), 50),
	"data/model/프론테라/문.rsm":     []byte("korean path"),
	"data/empty.txt":             {},
}

func writeTestGRF(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, testFiles); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.grf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenAndRead(t *testing.T) {
	a, err := Open(writeTestGRF(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close()

	want := []string{
		"data/empty.txt",
		"data/model/windmill.rsm",
		"data/model/프론테라/문.rsm",
		"data/subfolder/nested.txt",
		"data/texture/wood.bmp",
	}
	if got := a.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	tests := []struct {
		path string
		want []byte
	}{
		{"data/model/windmill.rsm", testFiles["data/model/windmill.rsm"]},
		{`DATA\TEXTURE\WOOD.BMP`, testFiles[`data\texture\wood.bmp`]},
		{"data/subfolder/nested.txt", testFiles["data/subfolder/nested.txt"]},
		{"data/model/프론테라/문.rsm", testFiles["data/model/프론테라/문.rsm"]},
		{"data/empty.txt", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if !a.Contains(tt.path) {
				t.Fatalf("Contains(%q) = false", tt.path)
			}
			got, err := a.Read(tt.path)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Read() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStat(t *testing.T) {
	a, err := Open(writeTestGRF(t))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	e, err := a.Stat("data/subfolder/nested.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if e.UncompressedSize != 350 || e.AlignedSize%8 != 0 || e.Flags != FlagFile {
		t.Errorf("Stat() = %+v", e)
	}
	if _, err := a.Stat("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRead_NotFound(t *testing.T) {
	a, err := Open(writeTestGRF(t))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if _, err := a.Read("data/nope.rsm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestNew_Errors(t *testing.T) {
	var good bytes.Buffer
	if err := Write(&good, testFiles); err != nil {
		t.Fatal(err)
	}
	data := good.Bytes()

	badVersion := append([]byte(nil), data...)
	badVersion[42] = 0x03

	badCount := append([]byte(nil), data...)
	badCount[38] = 0x00 // file count below the bias

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrCorrupt},
		{"magic", append([]byte("Master of Mag1c"), data[15:]...), ErrInvalidMagic},
		{"version", badVersion, ErrUnsupportedVersion},
		{"count", badCount, ErrCorrupt},
		{"truncated table", data[:len(data)-4], ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen_Missing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "none.grf")); err == nil {
		t.Error("Open() error = nil for a missing file")
	}
}
