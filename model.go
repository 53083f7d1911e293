// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	headerSize        = 16     // fixed NARC header size in bytes
	sectionHeaderSize = 8      // 4-byte tag + 4-byte length
	byteOrderMark     = 0xFFFE // byte-order marker as written by the encoder
	sectionCount      = 3      // allocation table, name table, raw data
	nameAlign         = 32     // name table tail alignment
	dataAlign         = 16     // raw data member alignment
	maxNameLen        = 255    // one length byte bounds member names
	reservedSize      = 8      // opaque bytes leading the name table body
)

// Section tags as stored on disk.
const (
	magicTag = "NARC"
	tagAlloc = "BTAF"
	tagNames = "BTNF"
	tagData  = "GMIF"
)

// DefaultVersion is the format version written for archives built from scratch.
const DefaultVersion = 1

// Default build tuning values.
const (
	DefaultMinCompressSize = 512
	DefaultMaxCompressSize = 16 * 1024 * 1024
)

// fileEntry is one named member in archive order.
type fileEntry struct {
	name string
	data []byte
}

// Archive is an in-memory NARC: byte order, version, and an ordered
// name-to-data mapping. Member insertion order is the canonical on-disk
// order; allocation entries and raw data are positional, not keyed by name.
type Archive struct {
	order    binary.ByteOrder
	entries  []fileEntry
	index    map[string]int
	reserved [reservedSize]byte
	version  uint16
}

// defaultReserved is the opaque name-table prefix written for archives built
// from scratch: one root directory entry (offset 8, first file 0, one dir).
var defaultReserved = [reservedSize]byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00}

// New returns an empty little-endian archive with the default version.
func New() *Archive {
	return &Archive{
		order:    binary.LittleEndian,
		index:    make(map[string]int),
		reserved: defaultReserved,
		version:  DefaultVersion,
	}
}

// ByteOrder returns the archive's integer byte order.
func (a *Archive) ByteOrder() binary.ByteOrder {
	return a.order
}

// SetByteOrder selects the integer byte order used by Encode.
func (a *Archive) SetByteOrder(order binary.ByteOrder) {
	if order != nil {
		a.order = order
	}
}

// Version returns the format version.
func (a *Archive) Version() uint16 {
	return a.version
}

// SetVersion sets the format version written by Encode.
func (a *Archive) SetVersion(v uint16) {
	a.version = v
}

// Len returns the number of members.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Names returns member names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i := range a.entries {
		names[i] = a.entries[i].name
	}

	return names
}

// Get returns the contents of the named member.
func (a *Archive) Get(name string) ([]byte, bool) {
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}

	return a.entries[i].data, true
}

// Set stores data under name. An existing member keeps its position in
// archive order; a new member is appended.
func (a *Archive) Set(name string, data []byte) {
	if i, ok := a.index[name]; ok {
		a.entries[i].data = data
		return
	}

	a.index[name] = len(a.entries)
	a.entries = append(a.entries, fileEntry{name: name, data: data})
}

// Delete removes the named member, preserving the order of the rest.
func (a *Archive) Delete(name string) bool {
	i, ok := a.index[name]
	if !ok {
		return false
	}

	a.entries = append(a.entries[:i], a.entries[i+1:]...)
	delete(a.index, name)
	for j := i; j < len(a.entries); j++ {
		a.index[a.entries[j].name] = j
	}

	return true
}

// Files iterates members as (name, contents) pairs in archive order.
func (a *Archive) Files() iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		for i := range a.entries {
			if !yield(a.entries[i].name, a.entries[i].data) {
				return
			}
		}
	}
}

// Input describes one source stream to be packed into an archive member.
type Input struct {
	// Open returns raw source stream for this member.
	Open func() (io.ReadCloser, error)
	// Path is the destination name inside the archive.
	Path string
	// SizeHint is expected size in bytes (zero when unknown).
	SizeHint int64
}

// BuildEntryProgress contains one completed member write event from Build.
type BuildEntryProgress struct {
	// Name is the member name written to the archive.
	Name string
	// Size is stored member size in bytes.
	Size uint32
	// OriginalSize is uncompressed size for compressed members; zero otherwise.
	OriginalSize uint32
	// Compressed reports whether compressed member data was actually stored.
	Compressed bool
}

// BuildOptions configures Build behavior.
type BuildOptions struct {
	// ByteOrder selects the archive byte order; nil means little-endian.
	ByteOrder binary.ByteOrder
	// OnEntryDone is called after one member is added to the archive.
	OnEntryDone func(entry BuildEntryProgress)
	// Compress defines ordered path rules for compression candidate selection.
	Compress []pathrules.Rule
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions
	// MinCompressSize disables compression for members smaller than this size.
	// Default is 512 bytes.
	MinCompressSize uint32
	// MaxCompressSize disables compression for members larger than this size.
	// Default is 16 MiB.
	MaxCompressSize uint32
	// Version is the format version to write; zero means DefaultVersion.
	Version uint16
}

// BuildResult contains build output statistics.
type BuildResult struct {
	// WrittenEntries is the number of members written to the archive.
	WrittenEntries int
	// DataSize is total member bytes stored (after compression).
	DataSize int64
	// CompressedEntries is the number of members stored compressed.
	CompressedEntries int
	// SkippedCompressionEntries is the number of candidates stored raw.
	SkippedCompressionEntries int
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one member is fully written to disk.
	OnEntryDone func(name string, written int64, outputPath string)
	// Rules limits extraction to members included by ordered path rules;
	// an empty rule set extracts everything.
	Rules []pathrules.Rule
	// Decompress selects members whose data is run through DecompressMember
	// before being written to disk.
	Decompress []pathrules.Rule
	// MatcherOptions control rule matching for Rules and Decompress.
	MatcherOptions pathrules.MatcherOptions
	// MaxWorkers is the number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int
}

// EditOptions configures the file-based archive edit flow.
type EditOptions struct {
	// BackupKeep controls how many backup generations are kept after a
	// successful commit. 0 removes the backup, 1 keeps only `<archive>.bak`,
	// N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int
}

// applyDefaults fills zero-valued build options with defaults.
func (opts *BuildOptions) applyDefaults() {
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.LittleEndian
	}

	if opts.Version == 0 {
		opts.Version = DefaultVersion
	}

	if opts.MinCompressSize == 0 {
		opts.MinCompressSize = DefaultMinCompressSize
	}

	if opts.MaxCompressSize == 0 || opts.MaxCompressSize <= opts.MinCompressSize {
		opts.MaxCompressSize = DefaultMaxCompressSize
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// compressMatcher compiles the compression selection rules.
func (opts *BuildOptions) compressMatcher() (*ruleMatcher, error) {
	m, err := newRuleMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("compile compress rules: %w", err)
	}

	return m, nil
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.MatcherOptions == (pathrules.MatcherOptions{}) {
		opts.MatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// includeMatcher compiles the member selection rules.
func (opts *ExtractOptions) includeMatcher() (*ruleMatcher, error) {
	m, err := newRuleMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("compile extract rules: %w", err)
	}

	return m, nil
}

// decompressMatcher compiles the decompression selection rules.
func (opts *ExtractOptions) decompressMatcher() (*ruleMatcher, error) {
	m, err := newRuleMatcher(opts.Decompress, opts.MatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("compile decompress rules: %w", err)
	}

	return m, nil
}

// applyDefaults fills zero-valued edit options with defaults.
func (opts *EditOptions) applyDefaults() {
	if opts.BackupKeep < 0 {
		opts.BackupKeep = 0
	}
}
