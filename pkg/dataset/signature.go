package dataset

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Signature is a ranked set of nodes found in a known header value, resolving
// to one profile per component.
type Signature struct {
	entity
	rank     int32
	profiles []int32
	nodes    []int32
}

// Offset returns the signature offset within its section.
func (s *Signature) Offset() int32 { return s.key }

// Rank is the popularity weight of the signature. Higher is more popular.
func (s *Signature) Rank() int32 { return s.rank }

// ProfileOffsets returns the profile offsets of the signature.
func (s *Signature) ProfileOffsets() []int32 { return slices.Clone(s.profiles) }

// NodeOffsets returns the node offsets ordered by position then pattern.
func (s *Signature) NodeOffsets() []int32 { return slices.Clone(s.nodes) }

// NodeCount returns the number of nodes of the signature.
func (s *Signature) NodeCount() int { return len(s.nodes) }

func (s *Signature) Profiles() ([]*Profile, error) {
	out := make([]*Profile, 0, len(s.profiles))
	for _, off := range s.profiles {
		p, err := s.ds.profiles.Get(off)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Profile returns the signature's profile for component, or nil.
func (s *Signature) Profile(component *Component) (*Profile, error) {
	for _, off := range s.profiles {
		p, err := s.ds.profiles.Get(off)
		if err != nil {
			return nil, err
		}
		if p.component == component {
			return p, nil
		}
	}
	return nil, nil
}

func (s *Signature) Nodes() ([]*Node, error) {
	out := make([]*Node, 0, len(s.nodes))
	for _, off := range s.nodes {
		n, err := s.ds.nodes.Get(off)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Pattern rebuilds the header value the signature was made from. Characters
// not covered by any node are written as '_'.
func (s *Signature) Pattern() (string, error) {
	nodes, err := s.Nodes()
	if err != nil {
		return "", err
	}
	size := 0
	for _, n := range nodes {
		size = max(size, n.position+len(n.pattern))
	}
	buf := []byte(strings.Repeat("_", size))
	for _, n := range nodes {
		copy(buf[n.position:], n.pattern)
	}
	return string(buf), nil
}

// String returns Pattern, or an empty string if the nodes cannot be read.
func (s *Signature) String() string {
	p, _ := s.Pattern()
	return p
}

// Compare orders signatures by rank, then by node sequence.
func (s *Signature) Compare(other *Signature) int {
	if c := cmp.Compare(s.rank, other.rank); c != 0 {
		return c
	}
	return slices.Compare(s.nodes, other.nodes)
}

func (ds *Dataset) loadSignature(off int32) (*Signature, error) {
	s := &Signature{entity: entity{ds: ds, key: off}}
	err := ds.read(secSignatures, off, func(r *source.Reader) error {
		s.rank = r.Int32()
		profiles := int(r.Byte())
		nodes := int(r.Byte())
		s.profiles = r.Int32s(profiles)
		s.nodes = r.Int32s(nodes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, p := range s.profiles {
		if p < 0 || p >= ds.sections[secProfiles].Length {
			return nil, fmt.Errorf("%w: signature at %d references profile %d", ErrCorruptDataset, off, p)
		}
	}
	for _, n := range s.nodes {
		if n < 0 || n >= ds.sections[secNodes].Length {
			return nil, fmt.Errorf("%w: signature at %d references node %d", ErrCorruptDataset, off, n)
		}
	}
	return s, nil
}
