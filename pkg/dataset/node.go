package dataset

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Node is a fragment of a header value anchored at a character position.
//
// Every position used by the dataset has a root node with an empty pattern.
// A node's children are the fragments at the same position that extend its
// pattern, sorted by pattern; at most one child can prefix a given input.
type Node struct {
	entity
	position   int
	parent     int32
	pattern    string
	children   []int32
	signatures []int32
}

// Offset returns the node offset within its section.
func (n *Node) Offset() int32 { return n.key }

// Position returns the character position the pattern is anchored at.
func (n *Node) Position() int { return n.position }

// Pattern returns the fragment, starting at Position.
func (n *Node) Pattern() string { return n.pattern }

func (n *Node) String() string { return fmt.Sprintf("%d:%q", n.position, n.pattern) }

// IsRoot reports whether the node is the root of its position.
func (n *Node) IsRoot() bool { return n.parent < 0 }

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() (*Node, error) {
	if err := n.alive(); err != nil {
		return nil, err
	}
	if n.parent < 0 {
		return nil, nil
	}
	return n.ds.nodes.Get(n.parent)
}

// ChildOffsets returns the child offsets ordered by pattern.
func (n *Node) ChildOffsets() []int32 { return slices.Clone(n.children) }

// SignatureOffsets returns the offsets of the signatures using the node, in
// ascending order.
func (n *Node) SignatureOffsets() []int32 { return slices.Clone(n.signatures) }

func (n *Node) Children() ([]*Node, error) {
	out := make([]*Node, 0, len(n.children))
	for _, off := range n.children {
		c, err := n.ds.nodes.Get(off)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (n *Node) Signatures() ([]*Signature, error) {
	out := make([]*Signature, 0, len(n.signatures))
	for _, off := range n.signatures {
		s, err := n.ds.signatures.Get(off)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Child returns the child whose pattern prefixes input, or nil. input is the
// header value from the node's position onward.
func (n *Node) Child(input string) (*Node, error) {
	if len(n.children) == 0 {
		return nil, nil
	}

	var loadErr error
	i := sort.Search(len(n.children), func(i int) bool {
		if loadErr != nil {
			return true
		}
		c, err := n.ds.nodes.Get(n.children[i])
		if err != nil {
			loadErr = err
			return true
		}
		return c.pattern > input
	}) - 1
	if loadErr != nil {
		return nil, loadErr
	}
	if i < 0 {
		return nil, nil
	}

	c, err := n.ds.nodes.Get(n.children[i])
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(input, c.pattern) {
		return c, nil
	}
	return nil, nil
}

func (ds *Dataset) loadNode(off int32) (*Node, error) {
	n := &Node{entity: entity{ds: ds, key: off}}
	var patternOffset int32
	err := ds.read(secNodes, off, func(r *source.Reader) error {
		n.position = int(r.Int16())
		n.parent = r.Int32()
		patternOffset = r.Int32()
		children := int(r.Uint16())
		signatures := r.Int32()
		if signatures < 0 || int64(signatures)*4 > int64(ds.sections[secNodes].Length) {
			return fmt.Errorf("%w: node at %d has %d signatures", ErrCorruptDataset, off, signatures)
		}
		n.children = r.Int32s(children)
		n.signatures = r.Int32s(int(signatures))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if n.position < 0 {
		return nil, fmt.Errorf("%w: node at %d has position %d", ErrCorruptDataset, off, n.position)
	}

	n.pattern, err = ds.strings.Get(patternOffset)
	if err != nil {
		return nil, err
	}
	return n, nil
}
