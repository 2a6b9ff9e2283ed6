package woff

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
)

const woffSignature = 0x774F4646 // "wOFF"

// Encode wraps a TrueType/OpenType binary into a WOFF container. Each table
// is deflated individually; tables that do not shrink are stored raw, as
// the format requires.
func Encode(w io.Writer, ttf []byte) error {
	flavor, tables, err := parseSFNT(ttf)
	if err != nil {
		return err
	}

	type packed struct {
		comp []byte
		orig int
	}
	entries := make([]packed, len(tables))
	for i, t := range tables {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return err
		}
		if _, err := zw.Write(t.data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		comp := buf.Bytes()
		if len(comp) >= len(t.data) {
			comp = t.data
		}
		entries[i] = packed{comp: comp, orig: len(t.data)}
	}

	headerSize := 44
	dirSize := 20 * len(tables)
	total := headerSize + dirSize
	for _, e := range entries {
		total += pad4(len(e.comp))
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[0:4], woffSignature)
	binary.BigEndian.PutUint32(header[4:8], flavor)
	binary.BigEndian.PutUint32(header[8:12], uint32(total))
	binary.BigEndian.PutUint16(header[12:14], uint16(len(tables)))
	binary.BigEndian.PutUint32(header[16:20], uncompressedSize(tables))
	binary.BigEndian.PutUint16(header[20:22], 1) // major version
	// minor version, metadata and private blocks stay zero
	if _, err := w.Write(header); err != nil {
		return err
	}

	offset := headerSize + dirSize
	dir := make([]byte, dirSize)
	for i, t := range tables {
		entry := dir[20*i:]
		binary.BigEndian.PutUint32(entry[0:4], t.tag)
		binary.BigEndian.PutUint32(entry[4:8], uint32(offset))
		binary.BigEndian.PutUint32(entry[8:12], uint32(len(entries[i].comp)))
		binary.BigEndian.PutUint32(entry[12:16], uint32(entries[i].orig))
		binary.BigEndian.PutUint32(entry[16:20], t.checksum)
		offset += pad4(len(entries[i].comp))
	}
	if _, err := w.Write(dir); err != nil {
		return err
	}

	var padding [3]byte
	for _, e := range entries {
		if _, err := w.Write(e.comp); err != nil {
			return err
		}
		if n := pad4(len(e.comp)) - len(e.comp); n > 0 {
			if _, err := w.Write(padding[:n]); err != nil {
				return err
			}
		}
	}
	return nil
}
