package woff

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/andybalholm/brotli"
)

const woff2Signature = 0x774F4632 // "wOF2"

// knownTags is the WOFF2 known table tag list; a table whose tag appears
// here is referenced by index instead of an explicit tag in the directory.
var knownTags = [...]string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

func knownTagIndex(tag string) int {
	for i, t := range knownTags {
		if t == tag {
			return i
		}
	}
	return -1
}

// appendUintBase128 appends n in the variable length encoding used by the
// WOFF2 table directory: 7 bits per byte, most significant first, with the
// high bit marking continuation.
func appendUintBase128(dst []byte, n uint32) []byte {
	var tmp [5]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			break
		}
	}
	for j := i; j < len(tmp)-1; j++ {
		tmp[j] |= 0x80
	}
	return append(dst, tmp[i:]...)
}

// EncodeWOFF2 wraps a TrueType/OpenType binary into a WOFF2 container.
// All tables are kept untransformed (the null transform, version 3 for
// glyf and loca) and compressed as a single Brotli stream.
func EncodeWOFF2(w io.Writer, ttf []byte) error {
	flavor, tables, err := parseSFNT(ttf)
	if err != nil {
		return err
	}

	var dir []byte
	var raw []byte
	for _, t := range tables {
		tag := t.tagString()
		flags := byte(0x3f)
		idx := knownTagIndex(tag)
		if idx >= 0 {
			flags = byte(idx)
		}
		// The null transform is version 0 for most tables but version 3
		// for glyf and loca.
		if tag == "glyf" || tag == "loca" {
			flags |= 3 << 6
		}
		dir = append(dir, flags)
		if idx < 0 {
			dir = append(dir, tag...)
		}
		dir = appendUintBase128(dir, uint32(len(t.data)))
		raw = append(raw, t.data...)
	}

	var comp bytes.Buffer
	bw := brotli.NewWriterLevel(&comp, brotli.BestCompression)
	if _, err := bw.Write(raw); err != nil {
		return err
	}
	if err := bw.Close(); err != nil {
		return err
	}

	headerSize := 48
	total := headerSize + len(dir) + pad4(comp.Len())

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[0:4], woff2Signature)
	binary.BigEndian.PutUint32(header[4:8], flavor)
	binary.BigEndian.PutUint32(header[8:12], uint32(total))
	binary.BigEndian.PutUint16(header[12:14], uint16(len(tables)))
	binary.BigEndian.PutUint32(header[16:20], uncompressedSize(tables))
	binary.BigEndian.PutUint32(header[20:24], uint32(comp.Len()))
	binary.BigEndian.PutUint16(header[24:26], 1) // major version
	// minor version, metadata and private blocks stay zero
	if _, err := w.Write(header); err != nil {
		return err
	}
	if _, err := w.Write(dir); err != nil {
		return err
	}
	if _, err := w.Write(comp.Bytes()); err != nil {
		return err
	}
	var padding [3]byte
	if n := pad4(comp.Len()) - comp.Len(); n > 0 {
		if _, err := w.Write(padding[:n]); err != nil {
			return err
		}
	}
	return nil
}
