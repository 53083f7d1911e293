package narc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
)

func TestReadInfoFromReader(t *testing.T) {
	t.Parallel()

	blob := buildManualNARC(t, binary.LittleEndian, []manualFile{
		{name: "a.bin", data: []byte("aaaa")},
		{name: "b.bin", data: []byte("bb")},
	})

	info, err := ReadInfoFromReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("ReadInfoFromReader: %v", err)
	}

	if info.ByteOrder != binary.LittleEndian {
		t.Fatalf("ByteOrder=%v", info.ByteOrder)
	}
	if info.Version != 1 {
		t.Fatalf("Version=%d, want 1", info.Version)
	}
	if info.TotalLength != uint32(len(blob)) {
		t.Fatalf("TotalLength=%d, want %d", info.TotalLength, len(blob))
	}
	if info.FileCount != 2 {
		t.Fatalf("FileCount=%d, want 2", info.FileCount)
	}
	if info.HeaderLength != headerSize {
		t.Fatalf("HeaderLength=%d, want %d", info.HeaderLength, headerSize)
	}
}

func TestReadInfoBigEndian(t *testing.T) {
	t.Parallel()

	blob := buildManualNARC(t, binary.BigEndian, []manualFile{
		{name: "x.bin", data: []byte("x")},
	})

	info, err := ReadInfoFromReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("ReadInfoFromReader: %v", err)
	}
	if info.ByteOrder != binary.BigEndian {
		t.Fatalf("ByteOrder=%v, want big-endian", info.ByteOrder)
	}
	if info.FileCount != 1 {
		t.Fatalf("FileCount=%d, want 1", info.FileCount)
	}
}

func TestListNamesFromReader(t *testing.T) {
	t.Parallel()

	blob := buildManualNARC(t, binary.LittleEndian, []manualFile{
		{name: "first.bin", data: []byte("1")},
		{name: "dir/second.bin", data: []byte("2")},
		{name: "third.bin", data: nil},
	})

	names, err := ListNamesFromReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("ListNamesFromReader: %v", err)
	}

	want := []string{"first.bin", "dir/second.bin", "third.bin"}
	if len(names) != len(want) {
		t.Fatalf("names=%v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%v, want %v", names, want)
		}
	}
}

func TestReadInfoBadMagic(t *testing.T) {
	t.Parallel()

	blob := buildManualNARC(t, binary.LittleEndian, []manualFile{
		{name: "a.bin", data: []byte("a")},
	})
	bad := bytes.Clone(blob)
	copy(bad, "SARC")

	if _, err := ReadInfoFromReader(bytes.NewReader(bad)); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("err=%v, want ErrInvalidHeader", err)
	}
}

func TestReadInfoNilReader(t *testing.T) {
	t.Parallel()

	if _, err := ReadInfoFromReader(nil); !errors.Is(err, ErrNilReader) {
		t.Fatalf("err=%v, want ErrNilReader", err)
	}
}

func TestReadInfoFile(t *testing.T) {
	t.Parallel()

	a := New()
	a.Set("one.bin", []byte("1"))
	a.Set("two.bin", []byte("22"))

	path := filepath.Join(t.TempDir(), "info.narc")
	if err := a.EncodeFile(path); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	info, err := ReadInfo(path)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if info.FileCount != 2 {
		t.Fatalf("FileCount=%d, want 2", info.FileCount)
	}

	names, err := ListNames(path)
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	if len(names) != 2 || names[0] != "one.bin" || names[1] != "two.bin" {
		t.Fatalf("names=%v", names)
	}
}

func TestReadInfoMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := ReadInfo(filepath.Join(t.TempDir(), "absent.narc")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
