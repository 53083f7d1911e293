// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// binReader reads fixed-layout binary data from a seekable stream.
// The byte order applies to all multi-byte integer reads after it is set.
type binReader struct {
	r     io.ReadSeeker
	order binary.ByteOrder
}

// newBinReader wraps a seekable stream with little-endian integer decoding.
func newBinReader(r io.ReadSeeker) *binReader {
	return &binReader{r: r, order: binary.LittleEndian}
}

// pos returns the current cursor position.
func (b *binReader) pos() (int64, error) {
	return b.r.Seek(0, io.SeekCurrent)
}

// seek moves the cursor to an absolute position.
func (b *binReader) seek(off int64) error {
	if _, err := b.r.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", off, err)
	}

	return nil
}

// bytes reads exactly n bytes from the current position.
func (b *binReader) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// u16 reads one unsigned 16-bit integer in the selected byte order.
func (b *binReader) u16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}

	return b.order.Uint16(buf[:]), nil
}

// u32 reads one unsigned 32-bit integer in the selected byte order.
func (b *binReader) u32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}

	return b.order.Uint32(buf[:]), nil
}

// u64 reads one unsigned 64-bit integer in the selected byte order.
func (b *binReader) u64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}

	return b.order.Uint64(buf[:]), nil
}

// pascalString reads a one-byte length prefix followed by that many bytes.
// A zero length prefix yields an empty string.
func (b *binReader) pascalString() (string, error) {
	var size [1]byte
	if _, err := io.ReadFull(b.r, size[:]); err != nil {
		return "", err
	}

	if size[0] == 0 {
		return "", nil
	}

	buf, err := b.bytes(int(size[0]))
	if err != nil {
		return "", err
	}

	return string(buf), nil
}

// at runs fn with the cursor moved to off and restores the cursor on every
// exit path, including errors raised by fn.
func (b *binReader) at(off int64, fn func() error) (err error) {
	saved, err := b.pos()
	if err != nil {
		return err
	}

	if err := b.seek(off); err != nil {
		return err
	}

	defer func() {
		if seekErr := b.seek(saved); seekErr != nil && err == nil {
			err = seekErr
		}
	}()

	return fn()
}

// binWriter writes fixed-layout binary data to a seekable stream.
type binWriter struct {
	w     io.WriteSeeker
	order binary.ByteOrder
}

// newBinWriter wraps a seekable stream with the given integer byte order.
func newBinWriter(w io.WriteSeeker, order binary.ByteOrder) *binWriter {
	return &binWriter{w: w, order: order}
}

// pos returns the current cursor position.
func (b *binWriter) pos() (int64, error) {
	return b.w.Seek(0, io.SeekCurrent)
}

// seek moves the cursor to an absolute position.
func (b *binWriter) seek(off int64) error {
	if _, err := b.w.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", off, err)
	}

	return nil
}

// skip advances the cursor n bytes without writing. Skipped ranges read back
// as zero bytes on file-backed and memStream destinations.
func (b *binWriter) skip(n int64) error {
	if _, err := b.w.Seek(n, io.SeekCurrent); err != nil {
		return fmt.Errorf("skip %d bytes: %w", n, err)
	}

	return nil
}

// bytes writes a raw byte range at the current position.
func (b *binWriter) bytes(p []byte) error {
	if _, err := b.w.Write(p); err != nil {
		return err
	}

	return nil
}

// u16 writes one unsigned 16-bit integer in the selected byte order.
func (b *binWriter) u16(v uint16) error {
	var buf [2]byte
	b.order.PutUint16(buf[:], v)
	return b.bytes(buf[:])
}

// u32 writes one unsigned 32-bit integer in the selected byte order.
func (b *binWriter) u32(v uint32) error {
	var buf [4]byte
	b.order.PutUint32(buf[:], v)
	return b.bytes(buf[:])
}

// u64 writes one unsigned 64-bit integer in the selected byte order.
func (b *binWriter) u64(v uint64) error {
	var buf [8]byte
	b.order.PutUint64(buf[:], v)
	return b.bytes(buf[:])
}

// pascalString writes a one-byte length prefix followed by the string bytes.
func (b *binWriter) pascalString(s string) error {
	if len(s) > maxNameLen {
		return fmt.Errorf("%w: %q is %d bytes", ErrNameTooLong, s, len(s))
	}

	if err := b.bytes([]byte{byte(len(s))}); err != nil {
		return err
	}

	return b.bytes([]byte(s))
}

// fill writes n copies of val at the current position.
func (b *binWriter) fill(n int64, val byte) error {
	if n <= 0 {
		return nil
	}

	chunk := make([]byte, min(n, 512))
	if val != 0 {
		for i := range chunk {
			chunk[i] = val
		}
	}

	for n > 0 {
		step := min(n, int64(len(chunk)))
		if err := b.bytes(chunk[:step]); err != nil {
			return err
		}

		n -= step
	}

	return nil
}

// align pads the cursor with zero bytes up to the next multiple of boundary,
// measured relative to base.
func (b *binWriter) align(base int64, boundary int64) error {
	pos, err := b.pos()
	if err != nil {
		return err
	}

	rem := (pos - base) % boundary
	if rem == 0 {
		return nil
	}

	return b.fill(boundary-rem, 0)
}

// at runs fn with the cursor moved to off and restores the cursor on every
// exit path, including errors raised by fn.
func (b *binWriter) at(off int64, fn func() error) (err error) {
	saved, err := b.pos()
	if err != nil {
		return err
	}

	if err := b.seek(off); err != nil {
		return err
	}

	defer func() {
		if seekErr := b.seek(saved); seekErr != nil && err == nil {
			err = seekErr
		}
	}()

	return fn()
}

// patchU32 overwrites a previously reserved 32-bit slot at off.
func (b *binWriter) patchU32(off int64, v uint32) error {
	return b.at(off, func() error {
		return b.u32(v)
	})
}

// memStream is a seekable in-memory byte stream used by the in-memory
// encode helpers. Writes past the end grow the buffer with zero bytes.
type memStream struct {
	buf []byte
	off int64
}

// Write stores p at the current offset, growing the buffer as needed.
func (m *memStream) Write(p []byte) (int, error) {
	end := m.off + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}

	copy(m.buf[m.off:end], p)
	m.off = end
	return len(p), nil
}

// Seek moves the stream offset. Seeking past the end is allowed; the gap is
// zero-filled by the next write.
func (m *memStream) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = m.off + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid seek whence %d", whence)
	}

	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}

	m.off = next
	return next, nil
}
