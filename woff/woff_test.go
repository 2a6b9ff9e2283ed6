package woff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/font/gofont/goregular"
)

func TestParseSFNT_RejectsGarbage(t *testing.T) {
	if _, _, err := parseSFNT([]byte("not a font")); !errors.Is(err, ErrMalformedFont) {
		t.Errorf("Garbage input expected to fail with ErrMalformedFont. Got %v", err)
	}
}

func TestParseSFNT_ReadsTableDirectory(t *testing.T) {
	flavor, tables, err := parseSFNT(goregular.TTF)
	if err != nil {
		t.Fatalf("could not parse the test font: %v", err)
	}
	if flavor != 0x00010000 {
		t.Errorf("TrueType flavor expected to be 0x00010000. Got %#x", flavor)
	}
	if len(tables) == 0 {
		t.Fatal("Table directory expected to be non-empty")
	}

	found := false
	for _, tb := range tables {
		if tb.tagString() == "glyf" {
			found = true
		}
	}
	if !found {
		t.Error("A glyf table expected in a TrueType font")
	}
}

func TestEncode_WOFFHeaderAndRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, goregular.TTF); err != nil {
		t.Fatalf("could not encode the font: %v", err)
	}
	data := buf.Bytes()

	if got := binary.BigEndian.Uint32(data[0:4]); got != woffSignature {
		t.Fatalf("Signature expected to be wOFF. Got %#x", got)
	}
	if got := binary.BigEndian.Uint32(data[8:12]); got != uint32(len(data)) {
		t.Errorf("Header length expected to match file size %d. Got %d", len(data), got)
	}

	_, tables, err := parseSFNT(goregular.TTF)
	if err != nil {
		t.Fatalf("could not parse the test font: %v", err)
	}
	numTables := int(binary.BigEndian.Uint16(data[12:14]))
	if numTables != len(tables) {
		t.Fatalf("Table count expected to be %d. Got %d", len(tables), numTables)
	}

	// Decompress every table and compare with the original data.
	for i, want := range tables {
		entry := data[44+20*i:]
		offset := binary.BigEndian.Uint32(entry[4:8])
		compLen := binary.BigEndian.Uint32(entry[8:12])
		origLen := binary.BigEndian.Uint32(entry[12:16])

		if int(origLen) != len(want.data) {
			t.Fatalf("Table %d origLength expected to be %d. Got %d", i, len(want.data), origLen)
		}
		stored := data[offset : offset+compLen]
		if compLen == origLen {
			if !bytes.Equal(stored, want.data) {
				t.Fatalf("Table %d stored raw but differs from the original", i)
			}
			continue
		}
		zr, err := zlib.NewReader(bytes.NewReader(stored))
		if err != nil {
			t.Fatalf("Table %d expected to hold a zlib stream: %v", i, err)
		}
		got, err := io.ReadAll(zr)
		if err != nil {
			t.Fatalf("could not inflate table %d: %v", i, err)
		}
		if !bytes.Equal(got, want.data) {
			t.Fatalf("Table %d round trip mismatch", i)
		}
	}
}

func TestEncodeWOFF2_HeaderAndRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeWOFF2(&buf, goregular.TTF); err != nil {
		t.Fatalf("could not encode the font: %v", err)
	}
	data := buf.Bytes()

	if got := binary.BigEndian.Uint32(data[0:4]); got != woff2Signature {
		t.Fatalf("Signature expected to be wOF2. Got %#x", got)
	}
	if got := binary.BigEndian.Uint32(data[8:12]); got != uint32(len(data)) {
		t.Errorf("Header length expected to match file size %d. Got %d", len(data), got)
	}

	_, tables, err := parseSFNT(goregular.TTF)
	if err != nil {
		t.Fatalf("could not parse the test font: %v", err)
	}
	if got := int(binary.BigEndian.Uint16(data[12:14])); got != len(tables) {
		t.Fatalf("Table count expected to be %d. Got %d", len(tables), got)
	}

	// The Brotli stream sits after the header and directory; its size is
	// recorded in the header.
	compLen := binary.BigEndian.Uint32(data[20:24])
	stream := data[len(data)-pad4(int(compLen)):][:compLen]

	got, err := io.ReadAll(brotli.NewReader(bytes.NewReader(stream)))
	if err != nil {
		t.Fatalf("could not decompress the table data: %v", err)
	}
	var want []byte
	for _, tb := range tables {
		want = append(want, tb.data...)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("Decompressed table data expected to match the concatenated source tables")
	}
}

func TestAppendUintBase128(t *testing.T) {
	cases := map[uint32][]byte{
		0:       {0x00},
		0x3f:    {0x3f},
		0x80:    {0x81, 0x00},
		0x3fff:  {0xff, 0x7f},
		0x4000:  {0x81, 0x80, 0x00},
		1047552: {0xbf, 0xf8, 0x00},
	}
	for n, want := range cases {
		if got := appendUintBase128(nil, n); !bytes.Equal(got, want) {
			t.Errorf("%d expected to encode as % x. Got % x", n, want, got)
		}
	}
}
