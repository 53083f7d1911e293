// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/woozymasta/lzss"
	"github.com/woozymasta/pathrules"
)

// memberSizePrefix is the little-endian original-size prefix that leads a
// compressed member. The raw data section stores compressed members verbatim;
// the format itself has no compression flag, so the prefix carries the
// decompressed size.
const memberSizePrefix = 4

// CompressMember compresses raw member data with LZSS and prepends the
// 4-byte little-endian original size. Zero-length data compresses to the
// bare size prefix; the LZSS codec itself rejects empty input.
func CompressMember(data []byte) ([]byte, error) {
	if int64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: member is %d bytes", ErrSizeOverflow, len(data))
	}

	if len(data) == 0 {
		return make([]byte, memberSizePrefix), nil
	}

	packed, err := lzss.Compress(data, lzss.DefaultCompressOptions())
	if err != nil {
		return nil, err
	}

	out := make([]byte, memberSizePrefix+len(packed))
	binary.LittleEndian.PutUint32(out, uint32(len(data)))
	copy(out[memberSizePrefix:], packed)
	return out, nil
}

// DecompressMember reverses CompressMember: it reads the original-size
// prefix and decompresses the LZSS stream that follows.
func DecompressMember(data []byte) ([]byte, error) {
	if len(data) < memberSizePrefix {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotCompressed, len(data))
	}

	size := binary.LittleEndian.Uint32(data)
	if uint64(size) > uint64(math.MaxInt) {
		return nil, ErrSizeOverflow
	}

	if size == 0 {
		return []byte{}, nil
	}

	var out bytes.Buffer
	out.Grow(int(size))
	if _, err := lzss.DecompressToWriter(&out, bytes.NewReader(data[memberSizePrefix:]), int(size), nil); err != nil {
		return nil, fmt.Errorf("decompress member: %w", err)
	}

	if out.Len() != int(size) {
		return nil, fmt.Errorf("%w: decompressed %d of %d bytes", ErrNotCompressed, out.Len(), size)
	}

	return out.Bytes(), nil
}

// ruleMatcher holds compiled ordered path rules.
type ruleMatcher struct {
	matcher *pathrules.Matcher
}

// newRuleMatcher compiles path rules; an empty rule set compiles to a nil
// matcher that matches nothing.
func newRuleMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*ruleMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidCompressPattern, err)
	}

	return &ruleMatcher{matcher: matcher}, nil
}

// normalizeRules normalizes rule patterns and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path is included by at least one rule.
func (m *ruleMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}
