package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/Faultbox/avatara-export/pkg/encoding"
)

// Write packs files, keyed by archive path, into a version 0x200 GRF.
// Every file is zlib-compressed and padded to 8 bytes.
func Write(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var body, table bytes.Buffer
	for _, name := range names {
		content := files[name]
		compressed, err := deflate(content)
		if err != nil {
			return fmt.Errorf("compressing %s: %w", name, err)
		}
		aligned := (len(compressed) + 7) &^ 7
		offset := body.Len()
		body.Write(compressed)
		body.Write(make([]byte, aligned-len(compressed)))

		table.Write(encoding.Encode(name))
		table.WriteByte(0)
		var rec [entryTrailer]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(len(compressed)))
		binary.LittleEndian.PutUint32(rec[4:], uint32(aligned))
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(content)))
		rec[12] = FlagFile
		binary.LittleEndian.PutUint32(rec[13:], uint32(offset))
		table.Write(rec[:])
	}

	packed, err := deflate(table.Bytes())
	if err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}

	h := header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(names)) + countBias,
		Version:     version,
	}
	copy(h.Magic[:], magic)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, h)
	out.Write(body.Bytes())
	binary.Write(&out, binary.LittleEndian, [2]uint32{uint32(len(packed)), uint32(table.Len())})
	out.Write(packed)
	_, err = w.Write(out.Bytes())
	return err
}

func deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
