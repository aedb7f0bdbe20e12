// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"strings"
	"testing"
	"time"

	"github.com/devblok/windmill/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(t *testing.T, files map[string]string) []byte {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	for name, contents := range files {
		if err := builder.Add(name, strings.NewReader(contents)); err != nil {
			t.Fatal(err)
		}
	}

	buf := bytes.NewBuffer([]byte{})
	if written, err := builder.WriteTo(buf); err != nil {
		t.Fatal(err)
	} else {
		t.Logf("written %d", written)
	}
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.Open("test")
	if err != nil {
		t.Fatal(err)
	}
	if err := readFileAndCompare(f, testString1); err != nil {
		t.Error(err)
	}
	if f.Size() != int64(len(testString1)) {
		t.Errorf("unexpected size: %d", f.Size())
	}
}

func TestCreateAndReadAll(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.ReadAll("test2")
	if err != nil {
		t.Fatal(err)
	}

	if strings.Compare(string(f), testString2) != 0 {
		t.Error("test string does not match up")
	}
}

func TestHeaderAndList(t *testing.T) {
	data := buildArchive(t, map[string]string{"b.wgsl": "b", "a.wgsl": "a", "empty": ""})

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	if ar.Header().Author != "devblok" || ar.Header().Version != 1 {
		t.Errorf("unexpected header: %+v", ar.Header())
	}

	list := ar.List()
	if strings.Join(list, ",") != "a.wgsl,b.wgsl,empty" {
		t.Errorf("unexpected list: %v", list)
	}

	empty, err := ar.ReadAll("empty")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("expected an empty file, got %d bytes", len(empty))
	}
}

func TestOpenMissing(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1})

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.Open("nope"); err != kar.ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestOpenNotAnArchive(t *testing.T) {
	for _, data := range []string{"", "KAR", "TAR\x00 and something longer than the header", "KAR\x00\x00"} {
		if _, err := kar.Open(strings.NewReader(data)); err != kar.ErrFileFormat {
			t.Errorf("expected ErrFileFormat for %q, got: %v", data, err)
		}
	}
}

// rawArchive lays out an archive by hand so the header can carry any values
func rawArchive(t *testing.T, headerSize int64, header *kar.Header, data []byte) []byte {
	var encoded bytes.Buffer
	if header != nil {
		if err := gob.NewEncoder(&encoded).Encode(header); err != nil {
			t.Fatal(err)
		}
	}
	if headerSize == 0 {
		headerSize = int64(encoded.Len())
	}
	sizeBytes := make([]byte, kar.HeaderSizeNumberLength)
	binary.PutVarint(sizeBytes, headerSize)

	var buf bytes.Buffer
	buf.WriteString("KAR\x00")
	buf.Write(sizeBytes)
	buf.Write(encoded.Bytes())
	buf.Write(data)
	return buf.Bytes()
}

func TestOpenCorruptHeader(t *testing.T) {
	payload := make([]byte, 32)
	cases := map[string][]byte{
		"huge header size":     rawArchive(t, 1<<62, nil, nil),
		"header past the end":  rawArchive(t, 4096, nil, payload),
		"negative size":        rawArchive(t, 0, &kar.Header{Index: []kar.IndexEntry{{Name: "a", Size: -1, CompressedSize: 8}}}, payload),
		"negative compressed":  rawArchive(t, 0, &kar.Header{Index: []kar.IndexEntry{{Name: "a", Size: 8, CompressedSize: -1}}}, payload),
		"negative offset":      rawArchive(t, 0, &kar.Header{Index: []kar.IndexEntry{{Name: "a", Offset: -16, Size: 8, CompressedSize: 8}}}, payload),
		"entry past the end":   rawArchive(t, 0, &kar.Header{Index: []kar.IndexEntry{{Name: "a", Offset: 16, Size: 8, CompressedSize: 32}}}, payload),
		"offset overflows end": rawArchive(t, 0, &kar.Header{Index: []kar.IndexEntry{{Name: "a", Offset: 1<<63 - 1, Size: 8, CompressedSize: 8}}}, payload),
	}
	for name, data := range cases {
		if _, err := kar.Open(bytes.NewReader(data)); err != kar.ErrFileFormat {
			t.Errorf("%s: expected ErrFileFormat, got: %v", name, err)
		}
	}
}

func TestReadAllHugeDeclaredSize(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1})
	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	// Same entry, but the index claims far more data than the frame holds
	header := ar.Header()
	header.Index[0].Size = 1 << 50
	encoded := data[kar.MagicLength+kar.HeaderSizeNumberLength:]
	headerSize := len(encoded) - int(header.Index[0].CompressedSize)
	forged := rawArchive(t, 0, &header, encoded[headerSize:])

	ar, err = kar.Open(bytes.NewReader(forged))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.ReadAll("test"); err != kar.ErrFileFormat {
		t.Errorf("expected ErrFileFormat, got: %v", err)
	}
}

func BenchmarkReadAll(b *testing.B) {
	builder, err := kar.NewBuilder(kar.Header{Author: "devblok"})
	if err != nil {
		b.Fatal(err)
	}
	defer builder.Close()
	if err := builder.Add("bench", bytes.NewReader(bytes.Repeat([]byte(testString2), 4096))); err != nil {
		b.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := builder.WriteTo(&buf); err != nil {
		b.Fatal(err)
	}
	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for idx := 0; idx < b.N; idx++ {
		if _, err := ar.ReadAll("bench"); err != nil {
			b.Fatal(err)
		}
	}
}
