package detection

import (
	"strconv"
	"strings"

	"github.com/dmitrymomot/devicedetect/pkg/dataset"
)

// exact selects a signature whose nodes were all found in the input.
func (a *attempt) exact() (*dataset.Signature, int, error) {
	return bestComplete(a.candidates, a.collected), 0, nil
}

// numeric repeats the collection on a copy of the input, replacing unknown
// numbers with the closest number of the same width the dataset knows at
// that point. The difference is the sum of the replacements.
func (a *attempt) numeric() (*dataset.Signature, int, error) {
	work := []byte(a.input)
	t := newTokens()
	var (
		difference  int
		substituted bool
	)

	err := walk(a.ds, func() string { return string(work) }, t.visit, func(pos int, n *dataset.Node) (*dataset.Node, error) {
		child, diff, err := substitute(n, work, pos)
		if child != nil {
			difference += diff
			substituted = true
		}
		return child, err
	})
	if err != nil || !substituted {
		return nil, 0, err
	}

	candidates, err := loadSignatures(a.ds, t.sigs)
	if err != nil {
		return nil, 0, err
	}
	best := bestComplete(candidates, t.collected)
	if best == nil {
		return nil, 0, nil
	}
	return best, difference, nil
}

// maxDigits keeps parsed numbers within int range.
const maxDigits = 9

func digitRun(s []byte) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// substitute finds the child of n whose number at the end of n's pattern is
// closest to the number in work at the same place. On success work is
// rewritten with the child's digits.
func substitute(n *dataset.Node, work []byte, pos int) (*dataset.Node, int, error) {
	rel := len(n.Pattern())
	at := pos + rel
	if at >= len(work) {
		return nil, 0, nil
	}
	width := digitRun(work[at:])
	if width == 0 || width > maxDigits {
		return nil, 0, nil
	}
	target, _ := strconv.Atoi(string(work[at : at+width]))

	children, err := n.Children()
	if err != nil {
		return nil, 0, err
	}
	var (
		best      *dataset.Node
		bestDiff  int
		bestValue int
	)
	for _, c := range children {
		p := c.Pattern()
		if len(p) < rel+width || digitRun([]byte(p[rel:])) != width {
			continue
		}
		if !strings.HasPrefix(string(work[at+width:]), p[rel+width:]) {
			continue
		}
		value, _ := strconv.Atoi(p[rel : rel+width])
		diff := abs(value - target)
		if best == nil || diff < bestDiff || (diff == bestDiff && value < bestValue) {
			best, bestDiff, bestValue = c, diff, value
		}
	}
	if best == nil {
		return nil, 0, nil
	}
	copy(work[at:], best.Pattern()[rel:rel+width])
	return best, bestDiff, nil
}

// nearest accepts signatures whose missing nodes all appear elsewhere in the
// input. It prefers the longest run of found leading nodes, then the fewest
// shifted nodes. The difference is the sum of the shifts.
func (a *attempt) nearest() (*dataset.Signature, int, error) {
	var (
		best                 *dataset.Signature
		bestPrefix, bestMove int
		bestDiff             int
	)
	for _, s := range a.candidates {
		nodes, err := s.Nodes()
		if err != nil {
			return nil, 0, err
		}
		prefix, moved, diff := 0, 0, 0
		leading, ok := true, true
		for _, n := range nodes {
			if a.collected[n.Offset()] {
				if leading {
					prefix++
				}
				continue
			}
			leading = false
			shift, found := nearestOccurrence(a.input, n.Pattern(), n.Position())
			if !found {
				ok = false
				break
			}
			moved++
			diff += shift
		}
		if !ok || moved == 0 {
			continue
		}

		better := best == nil ||
			prefix > bestPrefix ||
			(prefix == bestPrefix && moved < bestMove) ||
			(prefix == bestPrefix && moved == bestMove && preferred(s, best))
		if better {
			best, bestPrefix, bestMove, bestDiff = s, prefix, moved, diff
		}
	}
	return best, bestDiff, nil
}

// nearestOccurrence returns the smallest distance between pos and an
// occurrence of pattern in input.
func nearestOccurrence(input, pattern string, pos int) (int, bool) {
	best, found := 0, false
	for from := 0; from <= len(input)-len(pattern); {
		i := strings.Index(input[from:], pattern)
		if i < 0 {
			break
		}
		at := from + i
		if d := abs(at - pos); !found || d < best {
			best, found = d, true
		}
		if at > pos {
			break
		}
		from = at + 1
	}
	return best, found
}

// closest scores every candidate by the character difference between its
// missing nodes and the input at their positions, and picks the lowest score.
func (a *attempt) closest() (*dataset.Signature, int, error) {
	var (
		best      *dataset.Signature
		bestScore int
	)
	for _, s := range a.candidates {
		nodes, err := s.Nodes()
		if err != nil {
			return nil, 0, err
		}
		score := 0
		for _, n := range nodes {
			if !a.collected[n.Offset()] {
				score += charDifference(a.input, n.Pattern(), n.Position())
			}
		}
		if best == nil || score < bestScore || (score == bestScore && preferred(s, best)) {
			best, bestScore = s, score
		}
	}
	return best, bestScore, nil
}

// charDifference sums the absolute byte differences between pattern and the
// input at pos. Pattern bytes beyond the input count in full.
func charDifference(input, pattern string, pos int) int {
	d := 0
	for i := 0; i < len(pattern); i++ {
		j := pos + i
		if j < len(input) {
			d += abs(int(pattern[i]) - int(input[j]))
		} else {
			d += int(pattern[i])
		}
	}
	return d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
