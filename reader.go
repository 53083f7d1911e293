// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// allocEntry is one (start, end) offset pair from the allocation table,
// relative to the start of the raw data section payload.
type allocEntry struct {
	start uint32
	end   uint32
}

// Open reads and decodes a NARC file by path.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open NARC: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// DecodeBytes decodes an archive from an in-memory byte slice.
func DecodeBytes(data []byte) (*Archive, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a complete archive from the stream's current position.
// The stream is left open; closing it is the caller's responsibility.
// A missing or wrong magic tag fails with ErrInvalidHeader before any
// archive state is built.
func Decode(r io.ReadSeeker) (*Archive, error) {
	var (
		info         Info
		alloc        []allocEntry
		names        []string
		reserved     [reservedSize]byte
		payloadStart int64 = -1
		dataLen      uint32
	)

	// Sections may appear in any order; iteration is driven purely by the
	// declared count and section lengths. Raw data slicing is deferred until
	// the allocation table is known.
	err := scanSections(r, func(br *binReader, tag string, length uint32) error {
		var err error
		switch tag {
		case tagAlloc:
			alloc, err = decodeAllocTable(br, length)
		case tagNames:
			reserved, names, err = decodeNameTable(br)
		case tagData:
			payloadStart, err = br.pos()
			dataLen = length
		default:
			// Unrecognized sections are skipped by their declared length.
		}

		return err
	}, &info)
	if err != nil {
		return nil, err
	}

	data, err := sliceDataSection(newBinReader(r), payloadStart, dataLen, alloc)
	if err != nil {
		return nil, err
	}

	a := New()
	a.order = info.ByteOrder
	a.version = info.Version
	a.reserved = reserved

	// Names and data slices are zipped positionally in name-table order.
	n := min(len(names), len(data))
	for i := 0; i < n; i++ {
		a.Set(names[i], data[i])
	}

	return a, nil
}

// decodeAllocTable reads the file count and per-file offset pairs. The
// declared count must fit inside the section's declared length, so a
// corrupt count fails before any per-entry allocation.
func decodeAllocTable(br *binReader, length uint32) ([]allocEntry, error) {
	if length < sectionHeaderSize+4 {
		return nil, fmt.Errorf("%w: allocation table declares %d bytes", ErrInvalidSection, length)
	}

	count, err := br.u32()
	if err != nil {
		return nil, fmt.Errorf("read file count: %w", err)
	}

	if maxCount := (length - sectionHeaderSize - 4) / 8; count > maxCount {
		return nil, fmt.Errorf("%w: file count %d exceeds section capacity of %d entries", ErrInvalidSection, count, maxCount)
	}

	alloc := make([]allocEntry, count)
	for i := range alloc {
		if alloc[i].start, err = br.u32(); err != nil {
			return nil, fmt.Errorf("read allocation entry %d: %w", i, err)
		}

		if alloc[i].end, err = br.u32(); err != nil {
			return nil, fmt.Errorf("read allocation entry %d: %w", i, err)
		}

		if alloc[i].end < alloc[i].start {
			return nil, fmt.Errorf("%w: entry %d is (%d, %d)", ErrInvalidAllocation, i, alloc[i].start, alloc[i].end)
		}
	}

	return alloc, nil
}

// decodeNameTable reads the opaque leading bytes and the run of
// length-prefixed names up to the zero-length terminator. Tail padding is
// not consumed; the section loop advances by declared length.
func decodeNameTable(br *binReader) ([reservedSize]byte, []string, error) {
	var reserved [reservedSize]byte

	head, err := br.bytes(reservedSize)
	if err != nil {
		return reserved, nil, fmt.Errorf("read name table prefix: %w", err)
	}
	copy(reserved[:], head)

	var names []string
	for {
		name, err := br.pascalString()
		if err != nil {
			return reserved, nil, fmt.Errorf("read name %d: %w", len(names), err)
		}

		if name == "" {
			return reserved, names, nil
		}

		names = append(names, name)
	}
}

// sliceDataSection reads each member's byte range from the raw data payload
// using the allocation table's offset pairs. Every range must end inside
// the section's declared payload; an entry pointing past it fails before
// the member buffer is allocated.
func sliceDataSection(br *binReader, payloadStart int64, dataLen uint32, alloc []allocEntry) ([][]byte, error) {
	if payloadStart < 0 || len(alloc) == 0 {
		return nil, nil
	}

	payloadLen := int64(dataLen) - sectionHeaderSize
	data := make([][]byte, len(alloc))
	for i, entry := range alloc {
		if int64(entry.end) > payloadLen {
			return nil, fmt.Errorf("%w: entry %d ends at %d, payload is %d bytes", ErrInvalidAllocation, i, entry.end, payloadLen)
		}

		size := int64(entry.end) - int64(entry.start)
		err := br.at(payloadStart+int64(entry.start), func() error {
			buf, err := br.bytes(int(size))
			if err != nil {
				return fmt.Errorf("read member %d data: %w", i, err)
			}

			data[i] = buf
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return data, nil
}
