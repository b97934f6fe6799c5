// Package grf reads and writes version 0x200 Ragnarok Online GRF archives,
// the container the client's models ship in.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Faultbox/avatara-export/pkg/encoding"
)

// GRF errors.
var (
	ErrInvalidMagic       = errors.New("grf: invalid magic")
	ErrUnsupportedVersion = errors.New("grf: unsupported version")
	ErrCorrupt            = errors.New("grf: corrupt archive")
	ErrNotFound           = errors.New("grf: file not found")
	ErrEncrypted          = errors.New("grf: encrypted entries are not supported")
)

const (
	magic      = "Master of Magic"
	headerSize = 46
	version    = 0x200

	// The stored file count is offset by the seed plus this constant.
	countBias = 7

	entryTrailer = 17
)

// Entry flags.
const (
	FlagFile       = 0x01
	FlagMixCrypt   = 0x02
	FlagHeaderOnly = 0x04
)

type header struct {
	Magic       [15]byte
	Key         [15]byte
	TableOffset uint32
	Seed        uint32
	FileCount   uint32
	Version     uint32
}

// Entry is one file in the archive table.
type Entry struct {
	Name             string // normalised: lower case, forward slashes
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32 // from the end of the header
}

// Archive is an opened GRF.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	entries map[string]*Entry
}

// Open opens the archive at path.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a, err := New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// New reads the header and file table from r.
func New(r io.ReaderAt) (*Archive, error) {
	var h header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if string(h.Magic[:]) != magic {
		return nil, ErrInvalidMagic
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, h.Version)
	}

	a := &Archive{r: r, entries: make(map[string]*Entry)}
	if err := a.readTable(h); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) readTable(h header) error {
	var sizes [2]uint32
	tableAt := int64(h.TableOffset) + headerSize
	if err := binary.Read(io.NewSectionReader(a.r, tableAt, 8), binary.LittleEndian, &sizes); err != nil {
		return fmt.Errorf("%w: table sizes: %v", ErrCorrupt, err)
	}
	compressed := make([]byte, sizes[0])
	if _, err := a.r.ReadAt(compressed, tableAt+8); err != nil {
		return fmt.Errorf("%w: table: %v", ErrCorrupt, err)
	}
	table, err := inflate(compressed, sizes[1])
	if err != nil {
		return fmt.Errorf("%w: table: %v", ErrCorrupt, err)
	}

	count := int64(h.FileCount) - int64(h.Seed) - countBias
	if count < 0 {
		return fmt.Errorf("%w: file count %d", ErrCorrupt, count)
	}
	for i := int64(0); i < count; i++ {
		end := bytes.IndexByte(table, 0)
		if end < 0 || len(table) < end+1+entryTrailer {
			return fmt.Errorf("%w: entry %d truncated", ErrCorrupt, i)
		}
		name := encoding.Decode(table[:end])
		rec := table[end+1:]
		e := &Entry{
			Name:             encoding.NormalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(rec[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(rec[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[8:]),
			Flags:            rec[12],
			Offset:           binary.LittleEndian.Uint32(rec[13:]),
		}
		table = rec[entryTrailer:]

		// Directory entries carry no FlagFile.
		if e.Flags&FlagFile != 0 {
			a.entries[e.Name] = e
		}
	}
	return nil
}

// Close releases the file opened by Open.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Names returns every file path in sorted order.
func (a *Archive) Names() []string {
	out := make([]string, 0, len(a.entries))
	for name := range a.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether path names a file, ignoring case and slash style.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[encoding.NormalizePath(path)]
	return ok
}

// Stat returns the table entry for path.
func (a *Archive) Stat(path string) (Entry, error) {
	e, ok := a.entries[encoding.NormalizePath(path)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return *e, nil
}

// Read returns the uncompressed contents of path.
func (a *Archive) Read(path string) ([]byte, error) {
	e, ok := a.entries[encoding.NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if e.Flags&(FlagMixCrypt|FlagHeaderOnly) != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, path)
	}
	if e.CompressedSize > e.AlignedSize {
		return nil, fmt.Errorf("%w: %s: compressed size exceeds aligned size", ErrCorrupt, path)
	}

	data := make([]byte, e.CompressedSize)
	if _, err := a.r.ReadAt(data, int64(e.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if e.CompressedSize == e.UncompressedSize {
		return data, nil
	}
	out, err := inflate(data, e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return out, nil
}

func inflate(data []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}
