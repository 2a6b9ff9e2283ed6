// Package woff wraps sfnt font binaries into the WOFF and WOFF2 container
// formats used for web delivery.
package woff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedFont is returned when the input bytes are not a valid
// TrueType or OpenType font.
var ErrMalformedFont = errors.New("woff: malformed sfnt input")

// table is one entry of the input font's table directory, with its raw data.
type table struct {
	tag      uint32
	checksum uint32
	data     []byte
}

func (t table) tagString() string {
	return string([]byte{byte(t.tag >> 24), byte(t.tag >> 16), byte(t.tag >> 8), byte(t.tag)})
}

// parseSFNT splits a TrueType/OpenType binary into its flavor tag and table
// directory, preserving directory order.
func parseSFNT(data []byte) (flavor uint32, tables []table, err error) {
	if len(data) < 12 {
		return 0, nil, ErrMalformedFont
	}
	flavor = binary.BigEndian.Uint32(data[0:4])
	numTables := int(binary.BigEndian.Uint16(data[4:6]))

	if len(data) < 12+16*numTables {
		return 0, nil, fmt.Errorf("%w: truncated table directory", ErrMalformedFont)
	}
	for i := 0; i < numTables; i++ {
		entry := data[12+16*i:]
		offset := binary.BigEndian.Uint32(entry[8:12])
		length := binary.BigEndian.Uint32(entry[12:16])
		if uint64(offset)+uint64(length) > uint64(len(data)) {
			return 0, nil, fmt.Errorf("%w: table out of bounds", ErrMalformedFont)
		}
		tables = append(tables, table{
			tag:      binary.BigEndian.Uint32(entry[0:4]),
			checksum: binary.BigEndian.Uint32(entry[4:8]),
			data:     data[offset : offset+length],
		})
	}
	return flavor, tables, nil
}

// pad4 returns n rounded up to the next multiple of four.
func pad4(n int) int {
	return (n + 3) &^ 3
}

// uncompressedSize is the size the font would occupy as a plain sfnt file,
// reported in both container headers.
func uncompressedSize(tables []table) uint32 {
	size := 12 + 16*len(tables)
	for _, t := range tables {
		size += pad4(len(t.data))
	}
	return uint32(size)
}
