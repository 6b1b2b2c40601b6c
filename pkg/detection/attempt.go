package detection

import (
	"slices"

	"github.com/dmitrymomot/devicedetect/pkg/dataset"
)

// attempt holds the state of matching one header value.
type attempt struct {
	ds         *dataset.Dataset
	input      string
	collected  map[int32]bool
	candidates []*dataset.Signature
}

// walk descends from the root at every position while a child's pattern
// prefixes the input, calling visit with the nodes reached below the root;
// the last one is the longest match at that position. When no child
// matches, miss may supply a replacement; miss is called with the last node
// reached and returns nil to stop.
func walk(ds *dataset.Dataset, input func() string, visit func(path []*dataset.Node), miss func(pos int, n *dataset.Node) (*dataset.Node, error)) error {
	limit := min(len(input()), ds.RootCount())
	var path []*dataset.Node
	for pos := range limit {
		n, err := ds.RootNode(pos)
		if err != nil {
			return err
		}
		path = path[:0]
		for n != nil {
			child, err := n.Child(input()[pos:])
			if err != nil {
				return err
			}
			if child == nil && miss != nil {
				if child, err = miss(pos, n); err != nil {
					return err
				}
			}
			if child != nil {
				path = append(path, child)
			}
			n = child
		}
		if len(path) > 0 {
			visit(path)
		}
	}
	return nil
}

// tokens records the longest match of every position as collected. The
// signatures of every node on the way down become candidates, so the
// fallback strategies can score signatures built on shorter fragments.
type tokens struct {
	collected map[int32]bool
	sigs      []int32
}

func newTokens() *tokens { return &tokens{collected: make(map[int32]bool)} }

func (t *tokens) visit(path []*dataset.Node) {
	t.collected[path[len(path)-1].Offset()] = true
	for _, n := range path {
		t.sigs = append(t.sigs, n.SignatureOffsets()...)
	}
}

// collect finds the longest node present at every position of the input and
// the signatures using the nodes passed on the way.
func collect(ds *dataset.Dataset, input string) (*attempt, error) {
	t := newTokens()
	if err := walk(ds, func() string { return input }, t.visit, nil); err != nil {
		return nil, err
	}
	candidates, err := loadSignatures(ds, t.sigs)
	if err != nil {
		return nil, err
	}
	return &attempt{ds: ds, input: input, collected: t.collected, candidates: candidates}, nil
}

func loadSignatures(ds *dataset.Dataset, offsets []int32) ([]*dataset.Signature, error) {
	slices.Sort(offsets)
	offsets = slices.Compact(offsets)
	out := make([]*dataset.Signature, 0, len(offsets))
	for _, off := range offsets {
		s, err := ds.Signatures().Get(off)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// complete reports whether every node of s was collected.
func complete(s *dataset.Signature, collected map[int32]bool) bool {
	for _, off := range s.NodeOffsets() {
		if !collected[off] {
			return false
		}
	}
	return true
}

// preferred breaks ties between otherwise equal signatures: higher rank,
// then lower offset.
func preferred(a, b *dataset.Signature) bool {
	if a.Rank() != b.Rank() {
		return a.Rank() > b.Rank()
	}
	return a.Offset() < b.Offset()
}

// bestComplete returns the complete signature with the most nodes.
func bestComplete(candidates []*dataset.Signature, collected map[int32]bool) *dataset.Signature {
	var best *dataset.Signature
	for _, s := range candidates {
		if !complete(s, collected) {
			continue
		}
		if best == nil || s.NodeCount() > best.NodeCount() ||
			(s.NodeCount() == best.NodeCount() && preferred(s, best)) {
			best = s
		}
	}
	return best
}
