// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Info describes an archive's header fields and member count without
// decoded member data.
type Info struct {
	// ByteOrder is the archive's integer byte order.
	ByteOrder binary.ByteOrder
	// Version is the format version from the header.
	Version uint16
	// TotalLength is the full archive size as recorded in the header.
	TotalLength uint32
	// FileCount is the allocation table's file count.
	FileCount uint32
	// HeaderLength is the fixed header size as recorded in the header.
	HeaderLength uint16
}

// ReadInfo opens a NARC file and reads only header and allocation metadata.
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open NARC: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadInfoFromReader(f)
}

// ReadInfoFromReader reads header and allocation metadata from a seekable
// stream without touching member data.
func ReadInfoFromReader(r io.ReadSeeker) (*Info, error) {
	info := &Info{}
	err := scanSections(r, func(br *binReader, tag string, _ uint32) error {
		if tag != tagAlloc {
			return nil
		}

		count, err := br.u32()
		if err != nil {
			return fmt.Errorf("read file count: %w", err)
		}

		info.FileCount = count
		return nil
	}, info)
	if err != nil {
		return nil, err
	}

	return info, nil
}

// ListNames opens a NARC file and returns member names in archive order
// without reading member data.
func ListNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open NARC: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ListNamesFromReader(f)
}

// ListNamesFromReader parses only the name table from a seekable stream.
func ListNamesFromReader(r io.ReadSeeker) ([]string, error) {
	var names []string
	err := scanSections(r, func(br *binReader, tag string, _ uint32) error {
		if tag != tagNames {
			return nil
		}

		_, decoded, err := decodeNameTable(br)
		if err != nil {
			return err
		}

		names = decoded
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	return names, nil
}

// scanSections validates the fixed header and walks the section list,
// calling visit with the cursor positioned after each section header.
// When info is non-nil its header fields are filled in.
func scanSections(r io.ReadSeeker, visit func(br *binReader, tag string, length uint32) error, info *Info) error {
	if r == nil {
		return ErrNilReader
	}

	br := newBinReader(r)

	base, err := br.pos()
	if err != nil {
		return err
	}

	magic, err := br.bytes(4)
	if err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != magicTag {
		return fmt.Errorf("%w: got %q", ErrInvalidHeader, magic)
	}

	bom, err := br.bytes(2)
	if err != nil {
		return fmt.Errorf("read byte-order marker: %w", err)
	}
	if binary.BigEndian.Uint16(bom) == byteOrderMark {
		br.order = binary.BigEndian
	}

	version, err := br.u16()
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	totalLen, err := br.u32()
	if err != nil {
		return fmt.Errorf("read total length: %w", err)
	}

	headerLen, err := br.u16()
	if err != nil {
		return fmt.Errorf("read header length: %w", err)
	}

	sections, err := br.u16()
	if err != nil {
		return fmt.Errorf("read section count: %w", err)
	}

	if info != nil {
		info.ByteOrder = br.order
		info.Version = version
		info.TotalLength = totalLen
		info.HeaderLength = headerLen
	}

	cur := base + headerSize
	for i := 0; i < int(sections); i++ {
		var length uint32
		err := br.at(cur, func() error {
			tag, err := br.bytes(4)
			if err != nil {
				return fmt.Errorf("read section tag: %w", err)
			}

			length, err = br.u32()
			if err != nil {
				return fmt.Errorf("read section length: %w", err)
			}
			if length < sectionHeaderSize {
				return fmt.Errorf("%w: section %q declares %d bytes", ErrInvalidSection, tag, length)
			}

			return visit(br, string(tag), length)
		})
		if err != nil {
			return err
		}

		cur += int64(length)
	}

	return nil
}
