// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import "errors"

// Sentinel errors for NARC operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the stream does not start with the NARC magic tag.
	ErrInvalidHeader = errors.New("invalid NARC file: missing or bad magic")
	// ErrInvalidSection means a section header declares an impossible length.
	ErrInvalidSection = errors.New("invalid section length")
	// ErrInvalidAllocation means an allocation entry has end offset before start.
	ErrInvalidAllocation = errors.New("invalid allocation entry")
	// ErrNilReader means the source stream is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the destination stream is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrNameTooLong means a file name does not fit the one-byte length prefix.
	ErrNameTooLong = errors.New("file name exceeds maximum length")
	// ErrEntryNotFound means the named file is not present in the archive.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrSizeOverflow means a size or offset exceeds the uint32 format limit.
	ErrSizeOverflow = errors.New("size exceeds uint32 format limit")
	// ErrEmptyInputs means no inputs provided for build.
	ErrEmptyInputs = errors.New("no inputs provided for build")
	// ErrInvalidEntryPath means an input path is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateEntryPath means two inputs resolve to the same archive name.
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrInvalidCompressPattern means one or more compression rules are invalid.
	ErrInvalidCompressPattern = errors.New("invalid compress rules")
	// ErrInvalidExtractPath means an archive name is invalid as an extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrNotCompressed means member data is not in the compressed member form.
	ErrNotCompressed = errors.New("member data is not compressed")
)
