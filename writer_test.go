package narc

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/pathrules"
)

// testArchive returns an archive with a few members in insertion order.
func testArchive(t *testing.T) *Archive {
	t.Helper()

	a := New()
	a.Set("zz/last-name-first.bin", []byte("insertion order wins"))
	a.Set("a.bin", bytes.Repeat([]byte{0xAB}, 37))
	a.Set("empty.bin", nil)
	a.Set("b.bin", []byte("short"))
	return a
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	orders := map[string]binary.ByteOrder{
		"little": binary.LittleEndian,
		"big":    binary.BigEndian,
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := testArchive(t)
			src.SetByteOrder(order)
			src.SetVersion(2)

			blob, err := src.Bytes()
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}

			got, err := DecodeBytes(blob)
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}

			if got.ByteOrder() != order {
				t.Errorf("ByteOrder=%v, want %v", got.ByteOrder(), order)
			}
			if got.Version() != 2 {
				t.Errorf("Version=%d, want 2", got.Version())
			}

			wantNames := src.Names()
			gotNames := got.Names()
			if len(gotNames) != len(wantNames) {
				t.Fatalf("Names: got %v, want %v", gotNames, wantNames)
			}
			for i := range wantNames {
				if gotNames[i] != wantNames[i] {
					t.Errorf("Names[%d]=%q, want %q", i, gotNames[i], wantNames[i])
				}
			}

			for name, data := range src.Files() {
				decoded, ok := got.Get(name)
				if !ok {
					t.Fatalf("member %q missing after round trip", name)
				}
				if !bytes.Equal(decoded, data) {
					t.Errorf("member %q: got %q, want %q", name, decoded, data)
				}
			}
		})
	}
}

func TestEncodeTotalLength(t *testing.T) {
	t.Parallel()

	blob, err := testArchive(t).Bytes()
	if err != nil {
		t.Fatal(err)
	}

	total := binary.LittleEndian.Uint32(blob[8:])
	if int(total) != len(blob) {
		t.Fatalf("patched total length %d, stream is %d bytes", total, len(blob))
	}
}

func TestEncodeSectionLayout(t *testing.T) {
	t.Parallel()

	blob, err := testArchive(t).Bytes()
	if err != nil {
		t.Fatal(err)
	}

	if string(blob[:4]) != magicTag {
		t.Fatalf("magic: got %q", blob[:4])
	}
	if blob[4] != 0xFE || blob[5] != 0xFF {
		t.Fatalf("byte-order marker bytes: got %x", blob[4:6])
	}
	if got := binary.LittleEndian.Uint16(blob[12:]); got != headerSize {
		t.Errorf("header length: got %d", got)
	}
	if got := binary.LittleEndian.Uint16(blob[14:]); got != sectionCount {
		t.Errorf("section count: got %d", got)
	}

	// Walk the three sections by declared length and check tags and
	// alignment of the name table tail.
	cur := headerSize
	wantTags := []string{tagAlloc, tagNames, tagData}
	for i, want := range wantTags {
		if got := string(blob[cur : cur+4]); got != want {
			t.Fatalf("section %d tag: got %q, want %q", i, got, want)
		}

		length := binary.LittleEndian.Uint32(blob[cur+4:])
		if length < sectionHeaderSize {
			t.Fatalf("section %q length %d below header size", want, length)
		}

		if want == tagNames {
			if (cur+int(length)-reservedSize)%nameAlign != 0 {
				t.Errorf("name table tail not 32-aligned: end=%d", cur+int(length))
			}
		}

		cur += int(length)
	}

	if cur != len(blob) {
		t.Fatalf("sections cover %d of %d bytes", cur, len(blob))
	}
}

func TestEncodeAllocationInvariant(t *testing.T) {
	t.Parallel()

	src := testArchive(t)
	blob, err := src.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	count := binary.LittleEndian.Uint32(blob[24:])
	if int(count) != src.Len() {
		t.Fatalf("file count %d, want %d", count, src.Len())
	}

	names := src.Names()
	var prevEnd uint32
	for i := 0; i < int(count); i++ {
		start := binary.LittleEndian.Uint32(blob[28+i*8:])
		end := binary.LittleEndian.Uint32(blob[32+i*8:])

		data, _ := src.Get(names[i])
		if end-start != uint32(len(data)) {
			t.Errorf("member %q: allocation size %d, want %d", names[i], end-start, len(data))
		}
		if start < prevEnd {
			t.Errorf("member %q: start %d overlaps previous end %d", names[i], start, prevEnd)
		}
		if i > 0 && start%dataAlign != 0 {
			t.Errorf("member %q: start %d not 16-aligned", names[i], start)
		}

		prevEnd = end
	}
}

func TestEncodeFileAndOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.narc")
	src := testArchive(t)
	if err := src.EncodeFile(path); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Len() != src.Len() {
		t.Fatalf("Len=%d, want %d", got.Len(), src.Len())
	}
}

func TestEncodeNilWriter(t *testing.T) {
	t.Parallel()

	if err := New().Encode(nil); !errors.Is(err, ErrNilWriter) {
		t.Fatalf("expected ErrNilWriter, got %v", err)
	}
}

func TestEncodeNameTooLong(t *testing.T) {
	t.Parallel()

	a := New()
	a.Set(strings.Repeat("n", maxNameLen+1), []byte("x"))
	if _, err := a.Bytes(); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

// stringInput builds a Build input backed by an in-memory string.
func stringInput(path string, data string) Input {
	return Input{
		Path:     path,
		SizeHint: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(data)), nil
		},
	}
}

func TestBuildDeterministicOrder(t *testing.T) {
	t.Parallel()

	var ms memStream
	inputs := []Input{
		stringInput("zeta.bin", "z"),
		stringInput("alpha.bin", "a"),
		stringInput("mid/file.bin", "m"),
	}

	res, err := Build(context.Background(), &ms, inputs, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.WrittenEntries != 3 {
		t.Fatalf("WrittenEntries=%d, want 3", res.WrittenEntries)
	}

	a, err := DecodeBytes(ms.buf)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	want := []string{"alpha.bin", "mid/file.bin", "zeta.bin"}
	got := a.Names()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names=%v, want %v", got, want)
		}
	}
}

func TestBuildDuplicatePath(t *testing.T) {
	t.Parallel()

	var ms memStream
	inputs := []Input{
		stringInput("same.bin", "a"),
		stringInput("./same.bin", "b"),
	}

	if _, err := Build(context.Background(), &ms, inputs, BuildOptions{}); !errors.Is(err, ErrDuplicateEntryPath) {
		t.Fatalf("expected ErrDuplicateEntryPath, got %v", err)
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	t.Parallel()

	var ms memStream
	if _, err := Build(context.Background(), &ms, nil, BuildOptions{}); !errors.Is(err, ErrEmptyInputs) {
		t.Fatalf("expected ErrEmptyInputs, got %v", err)
	}
}

func TestBuildCompressionRules(t *testing.T) {
	t.Parallel()

	compressible := strings.Repeat("narc narc narc narc ", 200)
	var progress []BuildEntryProgress
	var ms memStream

	inputs := []Input{
		stringInput("data/big.txt", compressible),
		stringInput("data/tiny.txt", "too small"),
		stringInput("raw/skip.bin", compressible),
	}

	res, err := Build(context.Background(), &ms, inputs, BuildOptions{
		Compress: []pathrules.Rule{
			{Action: pathrules.ActionInclude, Pattern: "data/**"},
		},
		OnEntryDone: func(entry BuildEntryProgress) {
			progress = append(progress, entry)
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if res.CompressedEntries != 1 {
		t.Fatalf("CompressedEntries=%d, want 1", res.CompressedEntries)
	}
	if len(progress) != 3 {
		t.Fatalf("progress events=%d, want 3", len(progress))
	}

	a, err := DecodeBytes(ms.buf)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	stored, ok := a.Get("data/big.txt")
	if !ok {
		t.Fatal("compressed member missing")
	}
	if len(stored) >= len(compressible) {
		t.Fatalf("member not compressed: stored %d bytes of %d", len(stored), len(compressible))
	}

	restored, err := DecompressMember(stored)
	if err != nil {
		t.Fatalf("DecompressMember: %v", err)
	}
	if string(restored) != compressible {
		t.Fatal("decompressed member differs from input")
	}

	// Members outside the rules stay raw.
	raw, ok := a.Get("raw/skip.bin")
	if !ok || string(raw) != compressible {
		t.Fatal("excluded member should be stored raw")
	}
}

func TestBuildFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "built.narc")
	res, err := BuildFile(context.Background(), path, []Input{stringInput("one.bin", "payload")}, BuildOptions{})
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	if res.WrittenEntries != 1 {
		t.Fatalf("WrittenEntries=%d, want 1", res.WrittenEntries)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if data, ok := a.Get("one.bin"); !ok || string(data) != "payload" {
		t.Fatalf("member: data=%q ok=%v", data, ok)
	}
}

func TestBuildCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ms memStream
	_, err := Build(ctx, &ms, []Input{stringInput("a.bin", "x")}, BuildOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEncodeAtNonZeroOffset(t *testing.T) {
	t.Parallel()

	var ms memStream
	if _, err := ms.Write([]byte("prefix--")); err != nil {
		t.Fatal(err)
	}

	src := testArchive(t)
	if err := src.Encode(&ms); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	total := binary.LittleEndian.Uint32(ms.buf[8+8:])
	if int(total) != len(ms.buf)-8 {
		t.Fatalf("total length %d, want %d", total, len(ms.buf)-8)
	}

	got, err := Decode(bytes.NewReader(ms.buf[8:]))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Len() != src.Len() {
		t.Fatalf("Len=%d, want %d", got.Len(), src.Len())
	}
}

func TestRoundTripManualFixture(t *testing.T) {
	t.Parallel()

	files := []manualFile{
		{name: "first.bin", data: []byte("0123456789abcdef")},
		{name: "second.bin", data: []byte("x")},
	}
	blob := buildManualNARC(t, binary.LittleEndian, files)

	a, err := DecodeBytes(blob)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	reencoded, err := a.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	if !bytes.Equal(reencoded, blob) {
		t.Fatalf("re-encoded archive differs from fixture:\n got %x\nwant %x", reencoded, blob)
	}
}

func TestEncodeFileInvalidDir(t *testing.T) {
	t.Parallel()

	err := New().EncodeFile(filepath.Join(t.TempDir(), "missing", "out.narc"))
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
	if !os.IsNotExist(errors.Unwrap(err)) {
		t.Logf("unwrapped error: %v", err)
	}
}
