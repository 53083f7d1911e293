// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

import (
	"context"
	"encoding/binary"
	"fmt"
	"iter"
	"strings"
)

// Filesystem exposes path-addressable access over an archive's file tree.
// Paths are slash-separated and case-sensitive; leading and trailing slashes
// are tolerated and an empty path denotes the root. The type performs no
// internal locking; callers sharing one instance across goroutines must
// synchronize externally.
type Filesystem struct {
	order    binary.ByteOrder
	root     *Branch
	reserved [reservedSize]byte
	version  uint16
}

// NewFilesystem builds a file tree from the archive's members. Member names
// containing slashes become nested directories.
func NewFilesystem(a *Archive) *Filesystem {
	f := &Filesystem{
		order:    binary.LittleEndian,
		root:     NewBranch(""),
		reserved: defaultReserved,
		version:  DefaultVersion,
	}

	if a != nil {
		f.order = a.order
		f.reserved = a.reserved
		f.version = a.version
		for name, data := range a.Files() {
			f.AddFile(name, data)
		}
	}

	return f
}

// Root returns the root branch of the tree.
func (f *Filesystem) Root() *Branch {
	return f.root
}

// GetFile returns the contents at path, or nil when the path does not
// resolve to a file. Use LookupFile to distinguish a missing file from an
// empty one.
func (f *Filesystem) GetFile(path string) []byte {
	data, _ := f.LookupFile(path)
	return data
}

// LookupFile returns the contents at path and whether a file was found.
func (f *Filesystem) LookupFile(path string) ([]byte, bool) {
	leaf, ok := f.root.Walk(splitPath(path)).(*Leaf)
	if !ok {
		return nil, false
	}

	return leaf.Contents, true
}

// ReadFile returns the contents at path, or ErrEntryNotFound when the path
// does not resolve to a file.
func (f *Filesystem) ReadFile(path string) ([]byte, error) {
	data, ok := f.LookupFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}

	return data, nil
}

// AddFile stores data at path. An existing file at path has its contents
// replaced in place; otherwise missing intermediate directories are created,
// reusing existing ones, and the final segment becomes a new file. A node of
// the other kind occupying a segment is replaced. An empty path is a no-op.
func (f *Filesystem) AddFile(path string, data []byte) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return
	}

	cur := f.root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := cur.Child(segment).(*Branch)
		if !ok {
			if cur.Child(segment) != nil {
				cur.Remove(segment)
			}

			next = NewBranch(segment)
			cur.Insert(next)
		}

		cur = next
	}

	addLeaf(cur, segments[len(segments)-1], data)
}

// AddFileRoot stores data directly under the root without path splitting.
func (f *Filesystem) AddFileRoot(name string, data []byte) {
	if name == "" {
		return
	}

	addLeaf(f.root, name, data)
}

// addLeaf replaces an existing leaf's contents or inserts a new one,
// displacing a same-named branch if present.
func addLeaf(dir *Branch, name string, data []byte) {
	switch existing := dir.Child(name).(type) {
	case *Leaf:
		existing.Contents = data
		return
	case *Branch:
		dir.Remove(name)
	}

	dir.Insert(NewLeaf(name, data))
}

// RemoveFile detaches the file at path from its parent directory.
func (f *Filesystem) RemoveFile(path string) bool {
	leaf, ok := f.root.Walk(splitPath(path)).(*Leaf)
	if !ok {
		return false
	}

	return leaf.Parent().Remove(leaf.Name())
}

// RemoveDirectory detaches the directory at path. A directory with children
// is only removed when recursive is true, in which case all descendants are
// detached first. The root cannot be removed.
func (f *Filesystem) RemoveDirectory(path string, recursive bool) bool {
	dir, ok := f.root.Walk(splitPath(path)).(*Branch)
	if !ok || dir.Parent() == nil {
		return false
	}

	if dir.Len() > 0 {
		if !recursive {
			return false
		}

		detachAll(dir)
	}

	return dir.Parent().Remove(dir.Name())
}

// detachAll removes every descendant of dir, leaves and branches alike.
func detachAll(dir *Branch) {
	for _, child := range dir.Children() {
		if branch, ok := child.(*Branch); ok {
			detachAll(branch)
		}

		dir.Remove(child.Name())
	}
}

// DirectoryContents returns the immediate children of the directory at path
// keyed by name, or false when path does not resolve to a directory.
func (f *Filesystem) DirectoryContents(path string) (map[string]Node, bool) {
	dir, ok := f.root.Walk(splitPath(path)).(*Branch)
	if !ok {
		return nil, false
	}

	out := make(map[string]Node, dir.Len())
	for _, child := range dir.Children() {
		out[child.Name()] = child
	}

	return out, true
}

// DirectoryTree returns every directory path reachable below the directory
// at path, depth-first, each emitted exactly once relative to the start.
// Files are not listed. A path that does not resolve yields nil.
func (f *Filesystem) DirectoryTree(path string) []string {
	dir, ok := f.root.Walk(splitPath(path)).(*Branch)
	if !ok {
		return nil
	}

	var out []string
	var walk func(b *Branch, prefix string)
	walk = func(b *Branch, prefix string) {
		for _, child := range b.Children() {
			branch, ok := child.(*Branch)
			if !ok {
				continue
			}

			full := branch.Name()
			if prefix != "" {
				full = prefix + "/" + branch.Name()
			}

			out = append(out, full)
			walk(branch, full)
		}
	}

	walk(dir, "")
	return out
}

// Files returns a lazy, restartable sequence of (name, contents) pairs for
// the immediate file children of dir. Subdirectories are not descended into.
// The sequence yields nothing when dir does not resolve to a directory.
func (f *Filesystem) Files(dir string) iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		branch, ok := f.root.Walk(splitPath(dir)).(*Branch)
		if !ok {
			return
		}

		for _, child := range branch.Children() {
			leaf, ok := child.(*Leaf)
			if !ok {
				continue
			}

			if !yield(leaf.Name(), leaf.Contents) {
				return
			}
		}
	}
}

// Extract flattens the tree and writes its files to dstDir; see
// Archive.Extract for rule and worker semantics.
func (f *Filesystem) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	return f.Archive().Extract(ctx, dstDir, opts)
}

// Archive flattens the tree depth-first back into an archive, carrying over
// the byte order, version, and name-table prefix the filesystem was created
// with. Nested files are named by their full slash-separated path.
func (f *Filesystem) Archive() *Archive {
	a := New()
	a.order = f.order
	a.version = f.version
	a.reserved = f.reserved

	flattenBranch(a, f.root, "")
	return a
}

// flattenBranch emits dir's files and recurses into subdirectories in
// child insertion order.
func flattenBranch(a *Archive, dir *Branch, prefix string) {
	for _, child := range dir.Children() {
		full := child.Name()
		if prefix != "" {
			full = prefix + "/" + child.Name()
		}

		switch v := child.(type) {
		case *Leaf:
			a.Set(full, v.Contents)
		case *Branch:
			flattenBranch(a, v, full)
		}
	}
}

// splitPath splits a slash-separated path into segments, dropping empty
// segments. An empty or all-slash path yields no segments (the root).
func splitPath(path string) []string {
	if path == "" {
		return nil
	}

	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}

	return segments
}
