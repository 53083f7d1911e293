// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// Encode writes the archive to w at its current position: fixed header,
// allocation table, name table, and raw data section, in that order.
// Section lengths, allocation offsets, and the total length are written as
// placeholders and patched once their values are known. The stream is left
// open; closing it is the caller's responsibility. On error the destination
// is left in an undefined, partially written state.
func (a *Archive) Encode(w io.WriteSeeker) error {
	if w == nil {
		return ErrNilWriter
	}

	bw := newBinWriter(w, a.order)

	base, err := bw.pos()
	if err != nil {
		return err
	}

	totalLenPos, err := a.encodeHeader(bw, base)
	if err != nil {
		return err
	}

	allocPos, err := a.encodeAllocTable(bw)
	if err != nil {
		return err
	}

	if err := a.encodeNameTable(bw, base); err != nil {
		return err
	}

	if err := a.encodeDataSection(bw, allocPos); err != nil {
		return err
	}

	end, err := bw.pos()
	if err != nil {
		return err
	}
	if end-base > math.MaxUint32 {
		return fmt.Errorf("%w: archive is %d bytes", ErrSizeOverflow, end-base)
	}

	if err := bw.patchU32(totalLenPos, uint32(end-base)); err != nil {
		return fmt.Errorf("patch total length: %w", err)
	}

	return nil
}

// EncodeFile writes the archive to path, truncating any existing file.
func (a *Archive) EncodeFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create NARC file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	if err := a.Encode(f); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync NARC file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close NARC file: %w", err)
	}
	f = nil

	return nil
}

// Bytes encodes the archive into a fresh byte slice.
func (a *Archive) Bytes() ([]byte, error) {
	var ms memStream
	if err := a.Encode(&ms); err != nil {
		return nil, err
	}

	return ms.buf, nil
}

// encodeHeader writes the fixed 16-byte header and returns the position of
// the total-length placeholder.
func (a *Archive) encodeHeader(bw *binWriter, base int64) (int64, error) {
	if err := bw.bytes([]byte(magicTag)); err != nil {
		return 0, fmt.Errorf("write magic: %w", err)
	}

	if err := bw.u16(byteOrderMark); err != nil {
		return 0, fmt.Errorf("write byte-order marker: %w", err)
	}

	if err := bw.u16(a.version); err != nil {
		return 0, fmt.Errorf("write version: %w", err)
	}

	totalLenPos := base + 8
	if err := bw.u32(0); err != nil {
		return 0, fmt.Errorf("write total length placeholder: %w", err)
	}

	if err := bw.u16(headerSize); err != nil {
		return 0, fmt.Errorf("write header length: %w", err)
	}

	if err := bw.u16(sectionCount); err != nil {
		return 0, fmt.Errorf("write section count: %w", err)
	}

	return totalLenPos, nil
}

// encodeAllocTable writes the allocation table with zeroed offset pairs and
// returns the position of the first pair for later patching.
func (a *Archive) encodeAllocTable(bw *binWriter) (int64, error) {
	start, err := bw.pos()
	if err != nil {
		return 0, err
	}

	if err := bw.bytes([]byte(tagAlloc)); err != nil {
		return 0, fmt.Errorf("write allocation tag: %w", err)
	}

	if err := bw.u32(0); err != nil {
		return 0, fmt.Errorf("write allocation length placeholder: %w", err)
	}

	if err := bw.u32(uint32(len(a.entries))); err != nil {
		return 0, fmt.Errorf("write file count: %w", err)
	}

	allocPos, err := bw.pos()
	if err != nil {
		return 0, err
	}

	// Offsets are unknown until the data section is written; reserve the
	// pairs now and patch them around each member write.
	if err := bw.fill(int64(len(a.entries))*8, 0); err != nil {
		return 0, fmt.Errorf("reserve allocation entries: %w", err)
	}

	if err := patchSectionLength(bw, start); err != nil {
		return 0, err
	}

	return allocPos, nil
}

// encodeNameTable writes the opaque prefix, the length-prefixed names, the
// zero terminator, padding to a 32-byte boundary, and 8 reserved bytes.
func (a *Archive) encodeNameTable(bw *binWriter, base int64) error {
	start, err := bw.pos()
	if err != nil {
		return err
	}

	if err := bw.bytes([]byte(tagNames)); err != nil {
		return fmt.Errorf("write name table tag: %w", err)
	}

	if err := bw.u32(0); err != nil {
		return fmt.Errorf("write name table length placeholder: %w", err)
	}

	if err := bw.bytes(a.reserved[:]); err != nil {
		return fmt.Errorf("write name table prefix: %w", err)
	}

	for i := range a.entries {
		if err := bw.pascalString(a.entries[i].name); err != nil {
			return fmt.Errorf("write name %q: %w", a.entries[i].name, err)
		}
	}

	if err := bw.bytes([]byte{0}); err != nil {
		return fmt.Errorf("write name terminator: %w", err)
	}

	if err := bw.align(base, nameAlign); err != nil {
		return fmt.Errorf("pad name table: %w", err)
	}

	// The trailing 8 bytes are reserved; the cursor advances without
	// writing and the range reads back as zeros.
	if err := bw.skip(reservedSize); err != nil {
		return err
	}

	return patchSectionLength(bw, start)
}

// encodeDataSection writes each member's contents in archive order, patching
// the corresponding allocation pair around each write and padding to a
// 16-byte boundary between members.
func (a *Archive) encodeDataSection(bw *binWriter, allocPos int64) error {
	start, err := bw.pos()
	if err != nil {
		return err
	}

	if err := bw.bytes([]byte(tagData)); err != nil {
		return fmt.Errorf("write data tag: %w", err)
	}

	if err := bw.u32(0); err != nil {
		return fmt.Errorf("write data length placeholder: %w", err)
	}

	payloadStart := start + sectionHeaderSize
	for i := range a.entries {
		if i > 0 {
			if err := bw.align(payloadStart, dataAlign); err != nil {
				return fmt.Errorf("pad member %d: %w", i, err)
			}
		}

		if err := a.encodeMember(bw, i, allocPos, payloadStart); err != nil {
			return err
		}
	}

	return patchSectionLength(bw, start)
}

// encodeMember writes one member and patches its allocation offsets.
func (a *Archive) encodeMember(bw *binWriter, i int, allocPos int64, payloadStart int64) error {
	offset, err := relativeOffset(bw, payloadStart, a.entries[i].name)
	if err != nil {
		return err
	}

	if err := bw.patchU32(allocPos+int64(i)*8, offset); err != nil {
		return fmt.Errorf("patch start offset of %q: %w", a.entries[i].name, err)
	}

	if err := bw.bytes(a.entries[i].data); err != nil {
		return fmt.Errorf("write member %q: %w", a.entries[i].name, err)
	}

	offset, err = relativeOffset(bw, payloadStart, a.entries[i].name)
	if err != nil {
		return err
	}

	if err := bw.patchU32(allocPos+int64(i)*8+4, offset); err != nil {
		return fmt.Errorf("patch end offset of %q: %w", a.entries[i].name, err)
	}

	return nil
}

// relativeOffset returns the current cursor position relative to the data
// payload start, checked against the uint32 offset field.
func relativeOffset(bw *binWriter, payloadStart int64, name string) (uint32, error) {
	pos, err := bw.pos()
	if err != nil {
		return 0, err
	}

	rel := pos - payloadStart
	if rel < 0 || rel > math.MaxUint32 {
		return 0, fmt.Errorf("%w: member %q at offset %d", ErrSizeOverflow, name, rel)
	}

	return uint32(rel), nil
}

// patchSectionLength computes a section's length as (current cursor - section
// start) and patches the length field next to its tag.
func patchSectionLength(bw *binWriter, sectionStart int64) error {
	end, err := bw.pos()
	if err != nil {
		return err
	}

	length := end - sectionStart
	if length > math.MaxUint32 {
		return fmt.Errorf("%w: section is %d bytes", ErrSizeOverflow, length)
	}

	if err := bw.patchU32(sectionStart+4, uint32(length)); err != nil {
		return fmt.Errorf("patch section length: %w", err)
	}

	return nil
}

// Build assembles an archive from stream-oriented inputs and encodes it to
// out. Inputs are sorted by normalized path for deterministic output, and
// members matching the compression rules are stored with CompressMember when
// that makes them smaller.
func Build(ctx context.Context, out io.WriteSeeker, inputs []Input, opts BuildOptions) (*BuildResult, error) {
	if out == nil {
		return nil, ErrNilWriter
	}

	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := opts.compressMatcher()
	if err != nil {
		return nil, err
	}

	plan, err := prepareBuildInputs(inputs)
	if err != nil {
		return nil, err
	}

	a := New()
	a.SetByteOrder(opts.ByteOrder)
	a.SetVersion(opts.Version)

	res := &BuildResult{}
	for i := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := buildMember(a, &plan[i], opts, matcher, res); err != nil {
			return nil, err
		}
	}

	if err := a.Encode(out); err != nil {
		return nil, err
	}

	res.WrittenEntries = a.Len()
	return res, nil
}

// BuildFile assembles an archive from inputs and writes it to outPath.
func BuildFile(ctx context.Context, outPath string, inputs []Input, opts BuildOptions) (*BuildResult, error) {
	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create NARC file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := Build(ctx, f, inputs, opts)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync NARC file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close NARC file: %w", err)
	}
	f = nil

	return res, nil
}

// prepareBuildInputs normalizes, sorts, and de-duplicates build inputs.
func prepareBuildInputs(inputs []Input) ([]Input, error) {
	sorted := make([]Input, len(inputs))
	copy(sorted, inputs)

	for i := range sorted {
		normalized := NormalizePath(sorted[i].Path)
		if normalized == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntryPath, sorted[i].Path)
		}

		sorted[i].Path = normalized
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	seen := make(map[string]struct{}, len(sorted))
	for i := range sorted {
		if _, ok := seen[sorted[i].Path]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntryPath, sorted[i].Path)
		}

		seen[sorted[i].Path] = struct{}{}
	}

	return sorted, nil
}

// buildMember reads one input, applies the compression policy, and adds the
// member to the archive.
func buildMember(a *Archive, in *Input, opts BuildOptions, matcher *ruleMatcher, res *BuildResult) error {
	if in.Open == nil {
		return fmt.Errorf("input %s: Open is nil", in.Path)
	}

	rc, err := in.Open()
	if err != nil {
		return fmt.Errorf("open input %s: %w", in.Path, err)
	}

	raw, readErr := io.ReadAll(rc)
	closeErr := rc.Close()
	if readErr != nil {
		return fmt.Errorf("read input %s: %w", in.Path, readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close input %s: %w", in.Path, closeErr)
	}

	if int64(len(raw)) > math.MaxUint32 {
		return fmt.Errorf("%w: input %s is %d bytes", ErrSizeOverflow, in.Path, len(raw))
	}

	progress := BuildEntryProgress{Name: in.Path, Size: uint32(len(raw))}
	data := raw

	candidate := matcher.Match(in.Path) && sizeInCompressRange(opts, uint32(len(raw)))
	if candidate {
		compressed, err := CompressMember(raw)
		if err != nil {
			return fmt.Errorf("compress %s: %w", in.Path, err)
		}

		if len(compressed) < len(raw) {
			data = compressed
			progress.Size = uint32(len(compressed))
			progress.OriginalSize = uint32(len(raw))
			progress.Compressed = true
			res.CompressedEntries++
		} else {
			res.SkippedCompressionEntries++
		}
	}

	a.Set(in.Path, data)
	res.DataSize += int64(len(data))

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(progress)
	}

	return nil
}

// sizeInCompressRange reports whether member size fits compression boundaries.
func sizeInCompressRange(opts BuildOptions, size uint32) bool {
	return size >= opts.MinCompressSize && size <= opts.MaxCompressSize
}
