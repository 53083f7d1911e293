// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

package narc

// Node is one element of the virtual file tree: a Branch or a Leaf.
type Node interface {
	// Name returns the node's own name without any path.
	Name() string
	// Parent returns the owning branch, or nil for a detached node or the root.
	Parent() *Branch
}

// Branch is a directory node owning an ordered list of children. Child name
// uniqueness is not enforced here; the filesystem layer is responsible for
// not inserting duplicate siblings.
type Branch struct {
	parent   *Branch
	name     string
	children []Node
}

// NewBranch returns a detached branch with the given name.
func NewBranch(name string) *Branch {
	return &Branch{name: name}
}

// Name returns the branch name.
func (b *Branch) Name() string {
	return b.name
}

// Parent returns the owning branch, nil for the root.
func (b *Branch) Parent() *Branch {
	return b.parent
}

// Len returns the number of children.
func (b *Branch) Len() int {
	return len(b.children)
}

// Children returns a copy of the child list in insertion order.
func (b *Branch) Children() []Node {
	out := make([]Node, len(b.children))
	copy(out, b.children)
	return out
}

// Child returns the named child, or nil when absent.
func (b *Branch) Child(name string) Node {
	for _, child := range b.children {
		if child.Name() == name {
			return child
		}
	}

	return nil
}

// Insert appends n as a child and sets its parent back-reference.
func (b *Branch) Insert(n Node) {
	switch v := n.(type) {
	case *Branch:
		v.parent = b
	case *Leaf:
		v.parent = b
	}

	b.children = append(b.children, n)
}

// Remove detaches the named child and clears its parent back-reference.
func (b *Branch) Remove(name string) bool {
	for i, child := range b.children {
		if child.Name() != name {
			continue
		}

		switch v := child.(type) {
		case *Branch:
			v.parent = nil
		case *Leaf:
			v.parent = nil
		}

		b.children = append(b.children[:i], b.children[i+1:]...)
		return true
	}

	return false
}

// Walk descends one segment at a time and returns the node at the path,
// or nil when any segment does not resolve. An empty segment list returns
// the branch itself. A leaf resolves only as the final segment.
func (b *Branch) Walk(segments []string) Node {
	if len(segments) == 0 {
		return b
	}

	child := b.Child(segments[0])
	if child == nil {
		return nil
	}

	if len(segments) == 1 {
		return child
	}

	next, ok := child.(*Branch)
	if !ok {
		return nil
	}

	return next.Walk(segments[1:])
}

// Leaf is a file node holding byte contents.
type Leaf struct {
	parent *Branch
	name   string
	// Contents is the member data; owned by the filesystem layer that
	// created the leaf.
	Contents []byte
}

// NewLeaf returns a detached leaf with the given name and contents.
func NewLeaf(name string, contents []byte) *Leaf {
	return &Leaf{name: name, Contents: contents}
}

// Name returns the leaf name.
func (l *Leaf) Name() string {
	return l.name
}

// Parent returns the owning branch, nil for a detached leaf.
func (l *Leaf) Parent() *Branch {
	return l.parent
}
